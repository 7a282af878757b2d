package authz

import (
	"errors"
	"testing"

	casedomain "github.com/legalaid-center/platform/internal/case/domain"
	"github.com/legalaid-center/platform/internal/document"
	"github.com/legalaid-center/platform/internal/identity"
	"github.com/legalaid-center/platform/internal/judicial"
	apperrors "github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/types"
	"github.com/legalaid-center/platform/internal/task"
)

func staff(role identity.Role) identity.Principal {
	return identity.Principal{UserID: types.NewID(), Kind: identity.KindStaff, Role: role}
}

func beneficiary() identity.Principal {
	return identity.Principal{
		UserID:        types.NewID(),
		Kind:          identity.KindBeneficiary,
		Role:          identity.RoleBeneficiary,
		BeneficiaryID: types.NewID(),
	}
}

func appCode(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// --- Case guard ---

func TestCaseGuardBeneficiaryOwnRecord(t *testing.T) {
	p := beneficiary()
	c := &casedomain.Case{ID: types.NewID(), BeneficiaryID: p.BeneficiaryID}

	allowed := []Action{ActionRead, ActionListDocuments, ActionReadTimeline, ActionAttach}
	for _, action := range allowed {
		if err := Case(p, c, action); err != nil {
			t.Errorf("Owner should be allowed %s: %v", action, err)
		}
	}

	denied := []Action{ActionEdit, ActionDelete, ActionApprove, ActionReject, ActionAssignLawyer, ActionSetStatus}
	for _, action := range denied {
		if err := Case(p, c, action); err == nil {
			t.Errorf("Beneficiary should be denied %s", action)
		}
	}
}

func TestCaseGuardForeignRecordIsNotFound(t *testing.T) {
	p := beneficiary()
	c := &casedomain.Case{ID: types.NewID(), BeneficiaryID: types.NewID()}

	// Denial must be indistinguishable from a missing record.
	err := Case(p, c, ActionRead)
	if appCode(err) != "NOT_FOUND" {
		t.Errorf("Foreign record should deny as NOT_FOUND, got %v", err)
	}
}

func TestCaseGuardProfileIncomplete(t *testing.T) {
	p := beneficiary()
	p.BeneficiaryID = ""
	c := &casedomain.Case{ID: types.NewID(), BeneficiaryID: types.NewID()}

	err := Case(p, c, ActionRead)
	if appCode(err) != "PROFILE_INCOMPLETE" {
		t.Errorf("Expected PROFILE_INCOMPLETE, got %v", err)
	}
}

func TestCaseGuardAdminBypassesAssignment(t *testing.T) {
	p := staff(identity.RoleAdmin)
	c := &casedomain.Case{ID: types.NewID(), BeneficiaryID: types.NewID(), AssignedLawyerID: types.NewID()}

	for _, action := range []Action{ActionRead, ActionEdit, ActionDelete, ActionApprove, ActionSetStatus} {
		if err := Case(p, c, action); err != nil {
			t.Errorf("Admin should be allowed %s: %v", action, err)
		}
	}
}

func TestCaseGuardLawyerAssignmentScope(t *testing.T) {
	lawyer := staff(identity.RoleLawyer)

	assigned := &casedomain.Case{ID: types.NewID(), AssignedLawyerID: lawyer.UserID}
	if err := Case(lawyer, assigned, ActionRead); err != nil {
		t.Errorf("Assigned lawyer should read their case: %v", err)
	}
	if err := Case(lawyer, assigned, ActionSetStatus); err != nil {
		t.Errorf("Assigned lawyer should set status: %v", err)
	}

	foreign := &casedomain.Case{ID: types.NewID(), AssignedLawyerID: types.NewID()}
	if err := Case(lawyer, foreign, ActionRead); err == nil {
		t.Error("Non-assignee lawyer should be denied read")
	}
	if err := Case(lawyer, foreign, ActionSetStatus); err == nil {
		t.Error("Non-assignee lawyer should be denied status changes")
	}
}

func TestCaseGuardViewerReadOnly(t *testing.T) {
	viewer := staff(identity.RoleViewer)
	c := &casedomain.Case{ID: types.NewID()}

	if err := Case(viewer, c, ActionRead); err != nil {
		t.Errorf("Viewer should read any case: %v", err)
	}
	for _, action := range []Action{ActionEdit, ActionSetStatus, ActionApprove, ActionAttach} {
		if err := Case(viewer, c, action); err == nil {
			t.Errorf("Viewer should be denied %s", action)
		}
	}
}

func TestCaseGuardFailsClosed(t *testing.T) {
	c := &casedomain.Case{ID: types.NewID()}

	if err := Case(identity.Principal{}, c, ActionRead); err == nil {
		t.Error("Anonymous principal should be denied")
	}

	unknown := identity.Principal{UserID: types.NewID(), Kind: identity.KindStaff, Role: identity.Role("auditor")}
	if err := Case(unknown, c, ActionRead); err == nil {
		t.Error("Unknown role should be denied")
	}
}

// --- Judicial guard ---

func TestJudicialGuardForeignRecordIsNotFound(t *testing.T) {
	p := beneficiary()
	s := &judicial.Service{ID: types.NewID(), BeneficiaryID: types.NewID()}

	err := JudicialService(p, s, ActionRead)
	if appCode(err) != "NOT_FOUND" {
		t.Errorf("Foreign service should deny as NOT_FOUND, got %v", err)
	}
}

func TestJudicialGuardLawyerScope(t *testing.T) {
	lawyer := staff(identity.RoleLawyer)

	own := &judicial.Service{ID: types.NewID(), AssignedLawyerID: lawyer.UserID}
	if err := JudicialService(lawyer, own, ActionRead); err != nil {
		t.Errorf("Assigned lawyer should read: %v", err)
	}
	// Judicial status stays admin-driven even for the assignee.
	if err := JudicialService(lawyer, own, ActionSetStatus); err == nil {
		t.Error("Lawyers should not drive judicial-service status")
	}
}

// --- Task guard ---

func TestTaskGuardLinkedLawyerStatusOnly(t *testing.T) {
	lawyer := staff(identity.RoleLawyer)
	tk := &task.Task{ID: types.NewID(), LawyerID: lawyer.UserID}

	if err := Task(lawyer, tk, ActionSetStatus); err != nil {
		t.Errorf("Linked lawyer should set task status: %v", err)
	}
	if err := Task(lawyer, tk, ActionEdit); err == nil {
		t.Error("Field edits should stay admin-only")
	}

	foreign := &task.Task{ID: types.NewID(), LawyerID: types.NewID()}
	if err := Task(lawyer, foreign, ActionSetStatus); err == nil {
		t.Error("Unlinked lawyer should be denied")
	}
}

func TestTaskGuardBeneficiaryForeignIsNotFound(t *testing.T) {
	p := beneficiary()
	tk := &task.Task{ID: types.NewID(), BeneficiaryID: types.NewID()}

	err := Task(p, tk, ActionRead)
	if appCode(err) != "NOT_FOUND" {
		t.Errorf("Foreign task should deny as NOT_FOUND, got %v", err)
	}
}

// --- Document guard ---

func TestDocumentGuardVisibility(t *testing.T) {
	p := beneficiary()

	public := &document.Document{ID: types.NewID(), IsPublic: true}
	if err := Document(p, public, ActionRead); err != nil {
		t.Errorf("Beneficiary should read public documents: %v", err)
	}

	internal := &document.Document{ID: types.NewID(), IsPublic: false}
	err := Document(p, internal, ActionRead)
	if appCode(err) != "NOT_FOUND" {
		t.Errorf("Internal document should deny as NOT_FOUND, got %v", err)
	}

	if err := Document(staff(identity.RoleLawyer), internal, ActionRead); err != nil {
		t.Errorf("Staff should read internal documents: %v", err)
	}
}
