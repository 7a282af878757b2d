package domain

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
	return identity.Principal{
		UserID: types.NewID(),
		Kind:   identity.KindStaff,
		Role:   identity.RoleAdmin,
	}
}

func lawyerPrincipal() identity.Principal {
	return identity.Principal{
		UserID: types.NewID(),
		Kind:   identity.KindStaff,
		Role:   identity.RoleLawyer,
	}
}

func lawyerUser() *identity.User {
	return &identity.User{
		ID:   types.NewID(),
		Kind: identity.KindStaff,
		Role: identity.RoleLawyer,
	}
}

// --- Creation ---

func TestNewBeneficiaryCase(t *testing.T) {
	p := beneficiaryPrincipal()

	c, err := NewBeneficiaryCase(p, "Eviction notice", "Landlord dispute", CategoryHousing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Status != StatusPendingReview {
		t.Errorf("Expected status pending_review, got '%s'", c.Status)
	}
	if c.BeneficiaryID != p.BeneficiaryID {
		t.Error("Owner should be the caller's beneficiary profile")
	}
	if c.CaseNumber == "" {
		t.Error("Case number should be generated")
	}
	if len(c.PendingEvents()) != 1 {
		t.Fatalf("Expected 1 pending event, got %d", len(c.PendingEvents()))
	}
	if e := c.PendingEvents()[0]; e.EventType != EventTypeCreated || e.ToStatus != StatusPendingReview {
		t.Errorf("Expected created event into pending_review, got %s -> %s", e.EventType, e.ToStatus)
	}
}

func TestNewBeneficiaryCaseProfileIncomplete(t *testing.T) {
	p := beneficiaryPrincipal()
	p.BeneficiaryID = ""

	_, err := NewBeneficiaryCase(p, "Title", "", CategoryOther)
	if err == nil {
		t.Fatal("Expected error for missing profile link")
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != "PROFILE_INCOMPLETE" {
		t.Errorf("Expected PROFILE_INCOMPLETE, got %v", err)
	}
}

func TestNewBeneficiaryCaseRejectsStaff(t *testing.T) {
	if _, err := NewBeneficiaryCase(adminPrincipal(), "Title", "", CategoryOther); err == nil {
		t.Error("Staff should not self-submit beneficiary cases")
	}
}

func TestNewAdminCaseSkipsReview(t *testing.T) {
	p := adminPrincipal()
	beneficiaryID := types.NewID()

	c, err := NewAdminCase(p, beneficiaryID, "Walk-in consultation", "", CategoryFamily)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Status != StatusAcceptedPendingAssignment {
		t.Errorf("Admin-created case should skip review, got '%s'", c.Status)
	}
	if c.AcceptedByUserID != p.UserID {
		t.Error("AcceptedByUserID should be the creating admin")
	}
	if c.AcceptedAt == nil {
		t.Error("AcceptedAt should be stamped")
	}
}

func TestNewAdminCaseRequiresCapability(t *testing.T) {
	if _, err := NewAdminCase(lawyerPrincipal(), types.NewID(), "Title", "", CategoryOther); err == nil {
		t.Error("Lawyers should not create cases directly")
	}
}

// --- Review ---

func TestApproveFromPendingReview(t *testing.T) {
	c, _ := NewBeneficiaryCase(beneficiaryPrincipal(), "Title", "", CategoryCivil)
	c.ClearPendingEvents()
	admin := adminPrincipal()

	if err := c.Approve(admin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusAcceptedPendingAssignment {
		t.Errorf("Expected accepted_pending_assignment, got '%s'", c.Status)
	}
	if len(c.PendingEvents()) != 1 {
		t.Fatalf("Expected exactly one pending event, got %d", len(c.PendingEvents()))
	}
	e := c.PendingEvents()[0]
	if e.FromStatus != StatusPendingReview || e.ToStatus != StatusAcceptedPendingAssignment {
		t.Errorf("Event should record %s -> %s, got %s -> %s",
			StatusPendingReview, StatusAcceptedPendingAssignment, e.FromStatus, e.ToStatus)
	}
}

func TestApproveLegacyAliasStatus(t *testing.T) {
	c, _ := NewBeneficiaryCase(beneficiaryPrincipal(), "Title", "", CategoryCivil)
	c.Status = StatusPendingAdminReview

	if err := c.Approve(adminPrincipal()); err != nil {
		t.Errorf("Legacy alias rows should still be approvable: %v", err)
	}
}

func TestApproveTwiceFails(t *testing.T) {
	c, _ := NewBeneficiaryCase(beneficiaryPrincipal(), "Title", "", CategoryCivil)
	admin := adminPrincipal()

	if err := c.Approve(admin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := c.Approve(admin)
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("Second approve should be an invalid transition, got %v", err)
	}
}

func TestRejectIsTerminal(t *testing.T) {
	c, _ := NewBeneficiaryCase(beneficiaryPrincipal(), "Title", "", CategoryCivil)
	admin := adminPrincipal()

	if err := c.Reject(admin, "outside our mandate"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusRejected {
		t.Errorf("Expected rejected, got '%s'", c.Status)
	}
	if !c.Status.IsTerminal() {
		t.Error("Rejected should be terminal")
	}

	// The reason lives on the timeline, not the case row.
	events := c.PendingEvents()
	last := events[len(events)-1]
	if last.Note != "outside our mandate" {
		t.Errorf("Rejection reason should be on the timeline, got %q", last.Note)
	}

	if err := c.Approve(admin); err == nil {
		t.Error("Nothing should leave a rejected case")
	}
	if err := c.SetStatus(admin, StatusClosedAdmin, ""); err == nil {
		t.Error("Nothing should leave a rejected case")
	}
}

// --- Assignment ---

func TestAssignLawyer(t *testing.T) {
	c, _ := NewAdminCase(adminPrincipal(), types.NewID(), "Title", "", CategoryLabor)
	admin := adminPrincipal()
	lawyer := lawyerUser()

	if err := c.AssignLawyer(admin, lawyer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusAssigned {
		t.Errorf("Expected assigned, got '%s'", c.Status)
	}
	if c.AssignedLawyerID != lawyer.ID {
		t.Error("Assigned lawyer should be recorded")
	}
}

func TestAssignLawyerInvalidTarget(t *testing.T) {
	c, _ := NewAdminCase(adminPrincipal(), types.NewID(), "Title", "", CategoryLabor)
	admin := adminPrincipal()

	tests := []struct {
		name   string
		target *identity.User
	}{
		{"nil user", nil},
		{"beneficiary account", &identity.User{ID: types.NewID(), Kind: identity.KindBeneficiary, Role: identity.RoleBeneficiary}},
		{"staff viewer", &identity.User{ID: types.NewID(), Kind: identity.KindStaff, Role: identity.RoleViewer}},
		{"staff admin", &identity.User{ID: types.NewID(), Kind: identity.KindStaff, Role: identity.RoleAdmin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.AssignLawyer(admin, tt.target)
			if !errors.Is(err, apperrors.ErrInvalidTarget) {
				t.Errorf("Expected invalid target, got %v", err)
			}
		})
	}
}

func TestReassignLawyerLastWriteWins(t *testing.T) {
	c, _ := NewAdminCase(adminPrincipal(), types.NewID(), "Title", "", CategoryLabor)
	admin := adminPrincipal()
	first := lawyerUser()
	second := lawyerUser()

	if err := c.AssignLawyer(admin, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.AssignLawyer(admin, second); err != nil {
		t.Fatalf("reassignment from assigned should be allowed: %v", err)
	}
	if c.AssignedLawyerID != second.ID {
		t.Error("Reassignment should replace the previous lawyer")
	}
}

func TestAssignLawyerFromPendingReviewFails(t *testing.T) {
	c, _ := NewBeneficiaryCase(beneficiaryPrincipal(), "Title", "", CategoryCivil)

	err := c.AssignLawyer(adminPrincipal(), lawyerUser())
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("Assignment before approval should fail, got %v", err)
	}
}

// --- Status transitions ---

func TestSetStatusAdminSet(t *testing.T) {
	admin := adminPrincipal()

	tests := []struct {
		name string
		from Status
		to   Status
		ok   bool
	}{
		{"accept pending", StatusPendingReview, StatusAcceptedPendingAssignment, true},
		{"close from in_progress", StatusInProgress, StatusClosedAdmin, true},
		{"complete from awaiting_hearing", StatusAwaitingHearing, StatusCompleted, true},
		{"reopen completed", StatusCompleted, StatusAssigned, true},
		{"admin cannot enter operating set", StatusAssigned, StatusInProgress, false},
		{"admin cannot reject via status", StatusPendingReview, StatusRejected, false},
		{"same state", StatusAssigned, StatusAssigned, false},
		{"nothing leaves rejected", StatusRejected, StatusClosedAdmin, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Case{Status: tt.from, AssignedLawyerID: types.NewID()}
			err := c.SetStatus(admin, tt.to, "")
			if tt.ok && err != nil {
				t.Errorf("Expected %s -> %s to be allowed: %v", tt.from, tt.to, err)
			}
			if !tt.ok && !errors.Is(err, apperrors.ErrInvalidTransition) {
				t.Errorf("Expected %s -> %s to be rejected, got %v", tt.from, tt.to, err)
			}
		})
	}
}

func TestSetStatusLawyerSet(t *testing.T) {
	lawyer := lawyerPrincipal()

	tests := []struct {
		name string
		from Status
		to   Status
		ok   bool
	}{
		{"start work", StatusAssigned, StatusInProgress, true},
		{"wait for documents", StatusInProgress, StatusAwaitingDocuments, true},
		{"back to work", StatusAwaitingDocuments, StatusInProgress, true},
		{"complete", StatusAwaitingHearing, StatusCompleted, true},
		{"lawyer cannot close_admin", StatusInProgress, StatusClosedAdmin, false},
		{"lawyer cannot reassign", StatusInProgress, StatusAssigned, false},
		{"lawyer cannot leave completed", StatusCompleted, StatusInProgress, false},
		{"lawyer cannot accept pending", StatusPendingReview, StatusAcceptedPendingAssignment, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Case{Status: tt.from, AssignedLawyerID: lawyer.UserID}
			err := c.SetStatus(lawyer, tt.to, "")
			if tt.ok && err != nil {
				t.Errorf("Expected %s -> %s to be allowed: %v", tt.from, tt.to, err)
			}
			if !tt.ok && !errors.Is(err, apperrors.ErrInvalidTransition) {
				t.Errorf("Expected %s -> %s to be rejected, got %v", tt.from, tt.to, err)
			}
		})
	}
}

func TestSetStatusAssignedRequiresLawyer(t *testing.T) {
	c := &Case{Status: StatusAcceptedPendingAssignment}

	err := c.SetStatus(adminPrincipal(), StatusAssigned, "")
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("Moving to assigned without a lawyer should fail, got %v", err)
	}
}

func TestSetStatusStampsTimestamps(t *testing.T) {
	admin := adminPrincipal()

	c := &Case{Status: StatusInProgress, AssignedLawyerID: types.NewID()}
	if err := c.SetStatus(admin, StatusCompleted, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.CompletedAt == nil {
		t.Error("CompletedAt should be stamped on completion")
	}

	c = &Case{Status: StatusInProgress, AssignedLawyerID: types.NewID()}
	if err := c.SetStatus(admin, StatusClosedAdmin, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ClosedAt == nil {
		t.Error("ClosedAt should be stamped on administrative close")
	}
}

func TestSetStatusAppendsExactlyOneEvent(t *testing.T) {
	c := &Case{Status: StatusAssigned, AssignedLawyerID: types.NewID()}
	admin := adminPrincipal()

	if err := c.SetStatus(admin, StatusCompleted, "wrapped up"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(c.PendingEvents()) != 1 {
		t.Fatalf("Expected exactly one pending event, got %d", len(c.PendingEvents()))
	}
	e := c.PendingEvents()[0]
	if e.EventType != EventTypeStatusChanged {
		t.Errorf("Expected status_changed event, got '%s'", e.EventType)
	}
	if e.FromStatus != StatusAssigned || e.ToStatus != StatusCompleted {
		t.Errorf("Event should record assigned -> completed, got %s -> %s", e.FromStatus, e.ToStatus)
	}
	if e.ActorUserID != admin.UserID {
		t.Error("Event should record the acting user")
	}
}

func TestFailedTransitionAppendsNoEvent(t *testing.T) {
	c := &Case{Status: StatusRejected}

	_ = c.SetStatus(adminPrincipal(), StatusClosedAdmin, "")
	if len(c.PendingEvents()) != 0 {
		t.Errorf("Rejected transition should append no event, got %d", len(c.PendingEvents()))
	}
}

// --- Full lifecycle ---

func TestBeneficiaryCaseLifecycle(t *testing.T) {
	owner := beneficiaryPrincipal()
	admin := adminPrincipal()

	c, err := NewBeneficiaryCase(owner, "Unpaid wages", "Three months outstanding", CategoryLabor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.Approve(admin); err != nil {
		t.Fatalf("approve: %v", err)
	}

	lawyer := lawyerUser()
	if err := c.AssignLawyer(admin, lawyer); err != nil {
		t.Fatalf("assign: %v", err)
	}

	assignee := identity.Principal{UserID: lawyer.ID, Kind: identity.KindStaff, Role: identity.RoleLawyer}
	if err := c.SetStatus(assignee, StatusInProgress, "started"); err != nil {
		t.Fatalf("in_progress: %v", err)
	}
	if err := c.SetStatus(assignee, StatusAwaitingHearing, ""); err != nil {
		t.Fatalf("awaiting_hearing: %v", err)
	}
	if err := c.SetStatus(assignee, StatusCompleted, "judgment delivered"); err != nil {
		t.Fatalf("completed: %v", err)
	}

	// created, approved, lawyer_assigned, 3 status changes
	if len(c.Events) != 6 {
		t.Errorf("Expected 6 timeline events, got %d", len(c.Events))
	}
}

func TestApplyEditNeverTouchesWorkflow(t *testing.T) {
	c, _ := NewAdminCase(adminPrincipal(), types.NewID(), "Title", "", CategoryCivil)
	statusBefore := c.Status

	title := "Corrected title"
	notes := "spoke to the court clerk"
	c.ApplyEdit(adminPrincipal(), &title, nil, &notes, nil)

	if c.Status != statusBefore {
		t.Error("Edit should never change status")
	}
	if c.Title != title || c.InternalNotes != notes {
		t.Error("Edit should apply the provided fields")
	}
}

// --- Transition table ---

func TestAllowedNextUnknownRole(t *testing.T) {
	if next := AllowedNext(identity.Role("intern"), StatusAssigned); len(next) != 0 {
		t.Errorf("Unknown roles should have no transitions, got %v", next)
	}
	if next := AllowedNext(identity.RoleBeneficiary, StatusPendingReview); len(next) != 0 {
		t.Errorf("Beneficiaries should have no transitions, got %v", next)
	}
}

func TestAllowedNextExcludesSelfLoop(t *testing.T) {
	for _, s := range AllowedNext(identity.RoleAdmin, StatusAssigned) {
		if s == StatusAssigned {
			t.Error("Same-state transitions should not be offered")
		}
	}
}

func TestCanonicalStatus(t *testing.T) {
	if StatusPendingAdminReview.Canonical() != StatusPendingReview {
		t.Error("Legacy alias should fold into pending_review")
	}
	if StatusInProgress.Canonical() != StatusInProgress {
		t.Error("Canonical statuses should be unchanged")
	}
}
