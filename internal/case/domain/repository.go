package domain

import (
	"context"

	"github.com/legalaid-center/platform/internal/shared/types"
)

// Repository defines the interface for case persistence. Update persists the
// case row together with any pending timeline events in one transaction.
type Repository interface {
	Save(ctx context.Context, c *Case) error
	FindByID(ctx context.Context, id types.ID) (*Case, error)
	Update(ctx context.Context, c *Case) error
	Delete(ctx context.Context, id types.ID) error

	// Query operations. Visibility is a repository concern: list endpoints
	// pre-filter here, never after serialization.
	List(ctx context.Context, filter ListFilter) ([]Case, int, error)
	FindByBeneficiary(ctx context.Context, beneficiaryID types.ID, filter ListFilter) ([]Case, int, error)
	FindByAssignedLawyer(ctx context.Context, lawyerID types.ID, filter ListFilter) ([]Case, int, error)

	// Timeline operations
	GetTimeline(ctx context.Context, caseID types.ID, limit, offset int) ([]TimelineEvent, error)
}

// ListFilter defines filters for listing cases
type ListFilter struct {
	Status   *Status   `json:"status,omitempty"`
	Category *Category `json:"category,omitempty"`
	Search   string    `json:"search,omitempty"`
	Limit    int       `json:"limit,omitempty"`
	Offset   int       `json:"offset,omitempty"`
}
