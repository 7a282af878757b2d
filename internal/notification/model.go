// Package notification implements in-app notification records and the
// fan-out that produces them after workflow changes.
package notification

import (
	"time"

	"github.com/legalaid-center/platform/internal/shared/types"
)

// Type categorizes a notification for the recipient's inbox
type Type string

const (
	TypeCaseSubmitted    Type = "case_submitted"
	TypeCaseApproved     Type = "case_approved"
	TypeCaseRejected     Type = "case_rejected"
	TypeLawyerAssigned   Type = "lawyer_assigned"
	TypeStatusChanged    Type = "status_changed"
	TypeDocumentAttached Type = "document_attached"
	TypeTaskAssigned     Type = "task_assigned"
	TypeServiceRequested Type = "service_requested"
)

// Notification is a per-recipient inbox record
type Notification struct {
	ID              types.ID  `json:"id"`
	UserID          types.ID  `json:"user_id"`
	Type            Type      `json:"type"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	RelatedEntityID types.ID  `json:"related_entity_id,omitempty"`
	IsRead          bool      `json:"is_read"`
	CreatedAt       time.Time `json:"created_at"`
}

// New creates a notification record for a recipient
func New(recipient types.ID, notifType Type, title, message string, relatedEntityID types.ID) *Notification {
	return &Notification{
		ID:              types.NewID(),
		UserID:          recipient,
		Type:            notifType,
		Title:           title,
		Message:         message,
		RelatedEntityID: relatedEntityID,
		CreatedAt:       time.Now(),
	}
}
