// Package task implements follow-up tasks attached to beneficiaries: chase a
// document, prepare for a hearing, confirm an appointment.
package task

import (
	"time"

	"github.com/legalaid-center/platform/internal/identity"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// Status defines the status of a task
type Status string

const (
	StatusPending             Status = "pending"
	StatusInProgress          Status = "in_progress"
	StatusFollowUp            Status = "follow_up"
	StatusAwaitingBeneficiary Status = "awaiting_beneficiary"
	StatusUnderReview         Status = "under_review"
	StatusCompleted           Status = "completed"
	StatusCancelled           Status = "cancelled"
)

// statusTransitions maps current status to allowed next statuses. Admins and
// the linked lawyer share the table; who may call it at all is the guard's
// concern.
var statusTransitions = map[Status][]Status{
	StatusPending:             {StatusInProgress, StatusCancelled},
	StatusInProgress:          {StatusFollowUp, StatusAwaitingBeneficiary, StatusUnderReview, StatusCompleted, StatusCancelled},
	StatusFollowUp:            {StatusInProgress, StatusUnderReview, StatusCompleted, StatusCancelled},
	StatusAwaitingBeneficiary: {StatusInProgress, StatusUnderReview, StatusCompleted, StatusCancelled},
	StatusUnderReview:         {StatusCompleted, StatusCancelled, StatusInProgress},
}

// CanTransition consults the transition table.
func CanTransition(from, to Status) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Task represents a follow-up work item
type Task struct {
	ID          types.ID `json:"id"`
	Status      Status   `json:"status"`
	Title       string   `json:"title"`
	Description string   `json:"description"`

	BeneficiaryID types.ID `json:"beneficiary_id"`

	// AssignedUserID is the beneficiary's user account the task is for
	AssignedUserID types.ID `json:"assigned_user_id,omitempty"`

	// LawyerID is the staff lawyer linked to the task
	LawyerID types.ID `json:"lawyer_id,omitempty"`

	DueAt       *time.Time `json:"due_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Events appended during this request, persisted with the status write
	pending []Event
}

// Event is an immutable record of one task transition
type Event struct {
	ID          types.ID  `json:"id"`
	TaskID      types.ID  `json:"task_id"`
	FromStatus  Status    `json:"from_status,omitempty"`
	ToStatus    Status    `json:"to_status,omitempty"`
	Note        string    `json:"note,omitempty"`
	ActorUserID types.ID  `json:"actor_user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// New creates a staff-created task for a beneficiary.
func New(p identity.Principal, beneficiaryID types.ID, title, description string, lawyerID types.ID, dueAt *time.Time) (*Task, error) {
	if !p.Can(identity.CapTaskCreate) {
		return nil, errors.Forbidden("not allowed to create tasks")
	}
	if beneficiaryID.IsZero() {
		return nil, errors.Validation("beneficiary is required", map[string]string{"beneficiary_id": "required"})
	}
	if title == "" {
		return nil, errors.Validation("title is required", map[string]string{"title": "required"})
	}

	now := time.Now()
	t := &Task{
		ID:            types.NewID(),
		Status:        StatusPending,
		Title:         title,
		Description:   description,
		BeneficiaryID: beneficiaryID,
		LawyerID:      lawyerID,
		DueAt:         dueAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	t.appendEvent("", StatusPending, "Task created", p.UserID)
	return t, nil
}

// SetStatus applies a status transition. Admins may apply any legal edge;
// the linked lawyer is limited to this status-only operation by the guard.
func (t *Task) SetStatus(p identity.Principal, to Status, note string) error {
	if !CanTransition(t.Status, to) {
		return errors.InvalidTransition(string(t.Status), string(to))
	}

	from := t.Status
	now := time.Now()
	t.Status = to
	t.UpdatedAt = now
	if to == StatusCompleted {
		t.CompletedAt = &now
	}
	t.appendEvent(from, to, note, p.UserID)
	return nil
}

// ApplyEdit updates admin-editable fields. Status is never touched here.
func (t *Task) ApplyEdit(title, description *string, lawyerID *types.ID, dueAt *time.Time) {
	if title != nil {
		t.Title = *title
	}
	if description != nil {
		t.Description = *description
	}
	if lawyerID != nil {
		t.LawyerID = *lawyerID
	}
	if dueAt != nil {
		t.DueAt = dueAt
	}
	t.UpdatedAt = time.Now()
}

// PendingEvents returns events appended during this request.
func (t *Task) PendingEvents() []Event {
	return t.pending
}

// ClearPendingEvents is called after a successful commit.
func (t *Task) ClearPendingEvents() {
	t.pending = nil
}

func (t *Task) appendEvent(from, to Status, note string, actorID types.ID) {
	t.pending = append(t.pending, Event{
		ID:          types.NewID(),
		TaskID:      t.ID,
		FromStatus:  from,
		ToStatus:    to,
		Note:        note,
		ActorUserID: actorID,
		CreatedAt:   time.Now(),
	})
}
