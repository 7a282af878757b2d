package domain

import (
	"fmt"
	"time"

	"github.com/legalaid-center/platform/internal/identity"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// Status defines the status of a case
type Status string

const (
	StatusPendingReview             Status = "pending_review"
	StatusPendingAdminReview        Status = "pending_admin_review" // legacy alias of pending_review
	StatusAcceptedPendingAssignment Status = "accepted_pending_assignment"
	StatusAssigned                  Status = "assigned"
	StatusInProgress                Status = "in_progress"
	StatusAwaitingDocuments         Status = "awaiting_documents"
	StatusAwaitingHearing           Status = "awaiting_hearing"
	StatusCompleted                 Status = "completed"
	StatusClosedAdmin               Status = "closed_admin"
	StatusRejected                  Status = "rejected"
)

// Canonical folds the legacy alias into the canonical entry status. Rows
// written by the previous system still carry pending_admin_review.
func (s Status) Canonical() Status {
	if s == StatusPendingAdminReview {
		return StatusPendingReview
	}
	return s
}

// IsTerminal reports whether no transition leaves this status.
func (s Status) IsTerminal() bool {
	return s.Canonical() == StatusRejected
}

// Category defines the legal area of a case
type Category string

const (
	CategoryFamily         Category = "family"
	CategoryLabor          Category = "labor"
	CategoryHousing        Category = "housing"
	CategoryCivil          Category = "civil"
	CategoryCriminal       Category = "criminal"
	CategoryAdministrative Category = "administrative"
	CategoryOther          Category = "other"
)

// Case is the aggregate root for the legal-aid case workflow
type Case struct {
	ID          types.ID `json:"id"`
	CaseNumber  string   `json:"case_number"`
	Status      Status   `json:"status"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`

	// Ownership: immutable after creation
	BeneficiaryID types.ID `json:"beneficiary_id"`

	// Assignment: exclusive, one lawyer at a time
	AssignedLawyerID types.ID `json:"assigned_lawyer_id,omitempty"`

	// Staff-only field, stripped from beneficiary-facing views
	InternalNotes string `json:"internal_notes,omitempty"`

	AcceptedByUserID types.ID   `json:"accepted_by_user_id,omitempty"`
	AcceptedAt       *time.Time `json:"accepted_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Timeline events loaded with the case
	Events []TimelineEvent `json:"events,omitempty"`

	// Events appended during this request, persisted atomically with the
	// status write
	pending []TimelineEvent
}

// NewBeneficiaryCase creates a self-submitted case. The owner is always the
// caller's beneficiary profile; any client-supplied id was discarded before
// this point.
func NewBeneficiaryCase(p identity.Principal, title, description string, category Category) (*Case, error) {
	if !p.IsBeneficiary() {
		return nil, errors.Forbidden("only beneficiaries may self-submit a case")
	}
	if p.BeneficiaryID.IsZero() {
		return nil, errors.ProfileIncomplete()
	}
	if title == "" {
		return nil, errors.Validation("title is required", map[string]string{"title": "required"})
	}

	c := newCase(title, description, category, p.BeneficiaryID)
	c.Status = StatusPendingReview
	c.appendEvent(EventTypeCreated, "", StatusPendingReview, "Case submitted for review", p.UserID)
	return c, nil
}

// NewAdminCase creates a staff-submitted case for a beneficiary. Admin-created
// cases skip review and start accepted, awaiting assignment.
func NewAdminCase(p identity.Principal, beneficiaryID types.ID, title, description string, category Category) (*Case, error) {
	if !p.Can(identity.CapCaseCreateDirect) {
		return nil, errors.Forbidden("not allowed to create cases directly")
	}
	if beneficiaryID.IsZero() {
		return nil, errors.Validation("beneficiary is required", map[string]string{"beneficiary_id": "required"})
	}
	if title == "" {
		return nil, errors.Validation("title is required", map[string]string{"title": "required"})
	}

	now := time.Now()
	c := newCase(title, description, category, beneficiaryID)
	c.Status = StatusAcceptedPendingAssignment
	c.AcceptedByUserID = p.UserID
	c.AcceptedAt = &now
	c.appendEvent(EventTypeCreated, "", StatusAcceptedPendingAssignment, "Case opened by staff", p.UserID)
	return c, nil
}

func newCase(title, description string, category Category, beneficiaryID types.ID) *Case {
	if category == "" {
		category = CategoryOther
	}
	now := time.Now()
	return &Case{
		ID:            types.NewID(),
		CaseNumber:    generateCaseNumber(),
		Title:         title,
		Description:   description,
		Category:      category,
		BeneficiaryID: beneficiaryID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Approve moves a pending case to accepted_pending_assignment.
func (c *Case) Approve(p identity.Principal) error {
	from := c.Status.Canonical()
	if from != StatusPendingReview {
		return errors.InvalidTransition(string(c.Status), string(StatusAcceptedPendingAssignment))
	}

	now := time.Now()
	c.Status = StatusAcceptedPendingAssignment
	c.AcceptedByUserID = p.UserID
	c.AcceptedAt = &now
	c.UpdatedAt = now
	c.appendEvent(EventTypeApproved, from, StatusAcceptedPendingAssignment, "Case accepted", p.UserID)
	return nil
}

// Reject moves a pending case to the terminal rejected status. The reason is
// recorded on the timeline, not on the case row.
func (c *Case) Reject(p identity.Principal, reason string) error {
	from := c.Status.Canonical()
	if from != StatusPendingReview {
		return errors.InvalidTransition(string(c.Status), string(StatusRejected))
	}

	c.Status = StatusRejected
	c.UpdatedAt = time.Now()
	c.appendEvent(EventTypeRejected, from, StatusRejected, reason, p.UserID)
	return nil
}

// AssignLawyer sets the assigned lawyer and moves the case to assigned. The
// target must be a staff account with the lawyer role; anything else is an
// invalid target, not an authorization failure.
func (c *Case) AssignLawyer(p identity.Principal, lawyer *identity.User) error {
	if lawyer == nil || lawyer.Kind != identity.KindStaff || lawyer.Role != identity.RoleLawyer {
		return errors.InvalidTarget("assignee must be a lawyer")
	}

	from := c.Status.Canonical()
	if from != StatusAcceptedPendingAssignment && from != StatusAssigned {
		return errors.InvalidTransition(string(c.Status), string(StatusAssigned))
	}

	c.AssignedLawyerID = lawyer.ID
	c.Status = StatusAssigned
	c.UpdatedAt = time.Now()
	c.appendEvent(EventTypeLawyerAssigned, from, StatusAssigned,
		fmt.Sprintf("Lawyer %s assigned", lawyer.ID), p.UserID)
	return nil
}

// SetStatus applies a role-gated status transition via the transition table.
// Admins move within the administrative set, the assigned lawyer within the
// operating set. Assignment and ownership checks happen in the guard before
// this is called; this method owns state legality only.
func (c *Case) SetStatus(p identity.Principal, to Status, note string) error {
	from := c.Status.Canonical()
	to = to.Canonical()

	if !CanTransition(p.Role, from, to) {
		return errors.InvalidTransition(string(c.Status), string(to))
	}

	// The assignment step cannot be skipped: assigned requires a lawyer.
	if to == StatusAssigned && c.AssignedLawyerID.IsZero() {
		return errors.InvalidTransition(string(c.Status), string(to))
	}

	now := time.Now()
	c.Status = to
	c.UpdatedAt = now

	switch to {
	case StatusCompleted:
		c.CompletedAt = &now
	case StatusClosedAdmin:
		c.ClosedAt = &now
	}

	c.appendEvent(EventTypeStatusChanged, from, to, note, p.UserID)
	return nil
}

// ApplyEdit updates admin-editable fields. Status, assignment and workflow
// timestamps are never touched here.
func (c *Case) ApplyEdit(p identity.Principal, title, description, internalNotes *string, category *Category) {
	if title != nil {
		c.Title = *title
	}
	if description != nil {
		c.Description = *description
	}
	if internalNotes != nil {
		c.InternalNotes = *internalNotes
	}
	if category != nil {
		c.Category = *category
	}
	c.UpdatedAt = time.Now()
	c.appendEvent(EventTypeUpdated, "", "", "Case details updated", p.UserID)
}

// RecordAttachment appends a timeline entry for a document attachment.
func (c *Case) RecordAttachment(p identity.Principal, fileName string) {
	c.UpdatedAt = time.Now()
	c.appendEvent(EventTypeDocumentAttached, "", "", fmt.Sprintf("Document attached: %s", fileName), p.UserID)
}

// PendingEvents returns the timeline events appended during this request.
// The repository persists them in the same transaction as the case row.
func (c *Case) PendingEvents() []TimelineEvent {
	return c.pending
}

// ClearPendingEvents is called after a successful commit.
func (c *Case) ClearPendingEvents() {
	c.pending = nil
}

func (c *Case) appendEvent(eventType EventType, from, to Status, note string, actorID types.ID) {
	event := TimelineEvent{
		ID:          types.NewID(),
		CaseID:      c.ID,
		EventType:   eventType,
		FromStatus:  from,
		ToStatus:    to,
		Note:        note,
		ActorUserID: actorID,
		CreatedAt:   time.Now(),
	}
	c.Events = append(c.Events, event)
	c.pending = append(c.pending, event)
}

// generateCaseNumber generates a unique case number: LA-YEAR-SEQUENCE
func generateCaseNumber() string {
	year := time.Now().Year()
	seq := time.Now().UnixNano() % 1000000
	return fmt.Sprintf("LA-%d-%06d", year, seq)
}
