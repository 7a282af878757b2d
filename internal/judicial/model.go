// Package judicial implements judicial-service requests: court filings and
// related services a beneficiary asks the organization to handle.
package judicial

import (
	"time"

	"github.com/legalaid-center/platform/internal/identity"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// Status defines the status of a judicial service
type Status string

const (
	StatusNew      Status = "new"
	StatusAssigned Status = "assigned"
	StatusInReview Status = "in_review"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// statusTransitions is the admin transition table. Only admins change
// judicial-service status; the assigned lawyer reads but does not drive it.
var statusTransitions = map[Status][]Status{
	StatusNew:      {StatusAssigned},
	StatusAssigned: {StatusInReview, StatusAccepted, StatusRejected},
	StatusInReview: {StatusAccepted, StatusRejected},
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

// Service represents a judicial-service request
type Service struct {
	ID          types.ID `json:"id"`
	Status      Status   `json:"status"`
	ServiceType string   `json:"service_type"`
	Description string   `json:"description"`

	// Reference number in the legacy court registry, optional
	CourtReference string `json:"court_reference,omitempty"`

	BeneficiaryID    types.ID `json:"beneficiary_id"`
	AssignedLawyerID types.ID `json:"assigned_lawyer_id,omitempty"`

	// Staff-only field, stripped from beneficiary-facing views
	ReviewNotes string `json:"review_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRequest creates a beneficiary-submitted service request. The owner is
// always the caller's beneficiary profile.
func NewRequest(p identity.Principal, serviceType, description string) (*Service, error) {
	if !p.IsBeneficiary() {
		return nil, errors.Forbidden("only beneficiaries may request a judicial service")
	}
	if p.BeneficiaryID.IsZero() {
		return nil, errors.ProfileIncomplete()
	}
	return newService(serviceType, description, p.BeneficiaryID)
}

// NewAdminService creates a staff-submitted service for a beneficiary.
func NewAdminService(p identity.Principal, beneficiaryID types.ID, serviceType, description string) (*Service, error) {
	if !p.Can(identity.CapJudicialCreateDirect) {
		return nil, errors.Forbidden("not allowed to create judicial services directly")
	}
	if beneficiaryID.IsZero() {
		return nil, errors.Validation("beneficiary is required", map[string]string{"beneficiary_id": "required"})
	}
	return newService(serviceType, description, beneficiaryID)
}

func newService(serviceType, description string, beneficiaryID types.ID) (*Service, error) {
	if serviceType == "" {
		return nil, errors.Validation("service type is required", map[string]string{"service_type": "required"})
	}
	now := time.Now()
	return &Service{
		ID:            types.NewID(),
		Status:        StatusNew,
		ServiceType:   serviceType,
		Description:   description,
		BeneficiaryID: beneficiaryID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// AssignLawyer sets the assigned lawyer and moves the service to assigned.
// The target must be a staff account with the lawyer role.
func (s *Service) AssignLawyer(lawyer *identity.User) error {
	if lawyer == nil || lawyer.Kind != identity.KindStaff || lawyer.Role != identity.RoleLawyer {
		return errors.InvalidTarget("assignee must be a lawyer")
	}
	if s.Status != StatusNew && s.Status != StatusAssigned {
		return errors.InvalidTransition(string(s.Status), string(StatusAssigned))
	}

	s.AssignedLawyerID = lawyer.ID
	s.Status = StatusAssigned
	s.UpdatedAt = time.Now()
	return nil
}

// SetStatus applies an admin status transition.
func (s *Service) SetStatus(to Status) error {
	if !CanTransition(s.Status, to) {
		return errors.InvalidTransition(string(s.Status), string(to))
	}
	if to == StatusAssigned && s.AssignedLawyerID.IsZero() {
		return errors.InvalidTransition(string(s.Status), string(to))
	}

	s.Status = to
	s.UpdatedAt = time.Now()
	return nil
}

// View is the caller-specific projection of a judicial service.
type View struct {
	ID               types.ID  `json:"id"`
	Status           Status    `json:"status"`
	ServiceType      string    `json:"service_type"`
	Description      string    `json:"description"`
	CourtReference   string    `json:"court_reference,omitempty"`
	BeneficiaryID    types.ID  `json:"beneficiary_id"`
	AssignedLawyerID types.ID  `json:"assigned_lawyer_id,omitempty"`
	ReviewNotes      string    `json:"review_notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ViewFor projects a service for the acting principal. Review notes are
// staff-only.
func ViewFor(p identity.Principal, s *Service) View {
	v := View{
		ID:               s.ID,
		Status:           s.Status,
		ServiceType:      s.ServiceType,
		Description:      s.Description,
		CourtReference:   s.CourtReference,
		BeneficiaryID:    s.BeneficiaryID,
		AssignedLawyerID: s.AssignedLawyerID,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	if p.IsStaff() {
		v.ReviewNotes = s.ReviewNotes
	}
	return v
}

// ViewsFor projects a list of services for the acting principal.
func ViewsFor(p identity.Principal, services []Service) []View {
	views := make([]View, 0, len(services))
	for i := range services {
		views = append(views, ViewFor(p, &services[i]))
	}
	return views
}
