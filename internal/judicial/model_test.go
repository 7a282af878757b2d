package judicial

import (
	"errors"
	"testing"

	"github.com/legalaid-center/platform/internal/identity"
	apperrors "github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/types"
)

func beneficiaryPrincipal() identity.Principal {
	return identity.Principal{
		UserID:        types.NewID(),
		Kind:          identity.KindBeneficiary,
		Role:          identity.RoleBeneficiary,
		BeneficiaryID: types.NewID(),
	}
}

func adminPrincipal() identity.Principal {
	return identity.Principal{UserID: types.NewID(), Kind: identity.KindStaff, Role: identity.RoleAdmin}
}

func lawyerUser() *identity.User {
	return &identity.User{ID: types.NewID(), Kind: identity.KindStaff, Role: identity.RoleLawyer}
}

func TestNewRequest(t *testing.T) {
	p := beneficiaryPrincipal()

	s, err := NewRequest(p, "enforcement", "Enforce the judgment from case 41")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status != StatusNew {
		t.Errorf("Expected status new, got '%s'", s.Status)
	}
	if s.BeneficiaryID != p.BeneficiaryID {
		t.Error("Owner should be the caller's beneficiary profile")
	}
}

func TestNewRequestProfileIncomplete(t *testing.T) {
	p := beneficiaryPrincipal()
	p.BeneficiaryID = ""

	_, err := NewRequest(p, "enforcement", "")
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != "PROFILE_INCOMPLETE" {
		t.Errorf("Expected PROFILE_INCOMPLETE, got %v", err)
	}
}

func TestNewRequestRequiresServiceType(t *testing.T) {
	if _, err := NewRequest(beneficiaryPrincipal(), "", ""); err == nil {
		t.Error("Missing service type should be rejected")
	}
}

func TestAssignLawyerAndStatusFlow(t *testing.T) {
	s, _ := NewAdminService(adminPrincipal(), types.NewID(), "representation", "")
	lawyer := lawyerUser()

	if err := s.AssignLawyer(lawyer); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if s.Status != StatusAssigned || s.AssignedLawyerID != lawyer.ID {
		t.Error("Assignment should record the lawyer and move to assigned")
	}

	if err := s.SetStatus(StatusInReview); err != nil {
		t.Fatalf("in_review: %v", err)
	}
	if err := s.SetStatus(StatusAccepted); err != nil {
		t.Fatalf("accepted: %v", err)
	}

	// Accepted is terminal.
	if err := s.SetStatus(StatusInReview); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("Nothing should leave accepted, got %v", err)
	}
}

func TestAssignNonLawyerIsInvalidTarget(t *testing.T) {
	s, _ := NewAdminService(adminPrincipal(), types.NewID(), "representation", "")

	err := s.AssignLawyer(&identity.User{ID: types.NewID(), Kind: identity.KindStaff, Role: identity.RoleViewer})
	if !errors.Is(err, apperrors.ErrInvalidTarget) {
		t.Errorf("Expected invalid target, got %v", err)
	}
}

func TestStatusAssignedRequiresLawyer(t *testing.T) {
	s, _ := NewAdminService(adminPrincipal(), types.NewID(), "representation", "")

	err := s.SetStatus(StatusAssigned)
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("assigned without a lawyer should fail, got %v", err)
	}
}

func TestCanTransitionTable(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusNew, StatusAssigned, true},
		{StatusNew, StatusAccepted, false},
		{StatusAssigned, StatusInReview, true},
		{StatusAssigned, StatusRejected, true},
		{StatusInReview, StatusAccepted, true},
		{StatusAccepted, StatusRejected, false},
		{StatusRejected, StatusNew, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestViewStripsReviewNotesForBeneficiary(t *testing.T) {
	s := &Service{ID: types.NewID(), ReviewNotes: "check eligibility again"}

	if v := ViewFor(beneficiaryPrincipal(), s); v.ReviewNotes != "" {
		t.Error("Beneficiary views must never carry review notes")
	}
	if v := ViewFor(adminPrincipal(), s); v.ReviewNotes != "check eligibility again" {
		t.Error("Staff should see review notes")
	}
}
