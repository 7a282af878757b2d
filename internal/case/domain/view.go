package domain

import (
	"time"

	"github.com/legalaid-center/platform/internal/identity"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// View is the caller-specific projection of a case. Beneficiary-facing views
// never carry internal notes; this is unconditional shaping, not a
// permission check.
type View struct {
	ID          types.ID `json:"id"`
	CaseNumber  string   `json:"case_number"`
	Status      Status   `json:"status"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`

	BeneficiaryID    types.ID `json:"beneficiary_id"`
	AssignedLawyerID types.ID `json:"assigned_lawyer_id,omitempty"`

	InternalNotes string `json:"internal_notes,omitempty"`

	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ViewFor projects a case for the acting principal.
func ViewFor(p identity.Principal, c *Case) View {
	v := View{
		ID:               c.ID,
		CaseNumber:       c.CaseNumber,
		Status:           c.Status.Canonical(),
		Title:            c.Title,
		Description:      c.Description,
		Category:         c.Category,
		BeneficiaryID:    c.BeneficiaryID,
		AssignedLawyerID: c.AssignedLawyerID,
		AcceptedAt:       c.AcceptedAt,
		CompletedAt:      c.CompletedAt,
		ClosedAt:         c.ClosedAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	if p.Can(identity.CapCaseInternalNotes) && !p.IsBeneficiary() {
		v.InternalNotes = c.InternalNotes
	}
	return v
}

// ViewsFor projects a list of cases for the acting principal.
func ViewsFor(p identity.Principal, cases []Case) []View {
	views := make([]View, 0, len(cases))
	for i := range cases {
		views = append(views, ViewFor(p, &cases[i]))
	}
	return views
}
