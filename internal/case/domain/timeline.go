package domain

import (
	"time"

	"github.com/legalaid-center/platform/internal/shared/types"
)

// EventType defines types of timeline events
type EventType string

const (
	EventTypeCreated          EventType = "created"
	EventTypeUpdated          EventType = "updated"
	EventTypeApproved         EventType = "approved"
	EventTypeRejected         EventType = "rejected"
	EventTypeLawyerAssigned   EventType = "lawyer_assigned"
	EventTypeStatusChanged    EventType = "status_changed"
	EventTypeDocumentAttached EventType = "document_attached"
)

// TimelineEvent is an immutable, append-only audit entry for one case
// mutation. Never updated or deleted.
type TimelineEvent struct {
	ID          types.ID  `json:"id"`
	CaseID      types.ID  `json:"case_id"`
	EventType   EventType `json:"event_type"`
	FromStatus  Status    `json:"from_status,omitempty"`
	ToStatus    Status    `json:"to_status,omitempty"`
	Note        string    `json:"note,omitempty"`
	ActorUserID types.ID  `json:"actor_user_id"`
	CreatedAt   time.Time `json:"created_at"`
}
