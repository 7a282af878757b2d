package domain

import (
	"testing"

	"github.com/legalaid-center/platform/internal/identity"
	"github.com/legalaid-center/platform/internal/shared/types"
)

func TestViewStripsInternalNotesForBeneficiary(t *testing.T) {
	c := &Case{
		ID:            types.NewID(),
		Status:        StatusInProgress,
		InternalNotes: "client seems unreliable",
	}

	p := identity.Principal{
		UserID:        types.NewID(),
		Kind:          identity.KindBeneficiary,
		Role:          identity.RoleBeneficiary,
		BeneficiaryID: types.NewID(),
	}

	v := ViewFor(p, c)
	if v.InternalNotes != "" {
		t.Error("Beneficiary views must never carry internal notes")
	}
}

func TestViewKeepsInternalNotesForStaff(t *testing.T) {
	c := &Case{ID: types.NewID(), Status: StatusInProgress, InternalNotes: "hearing moved"}

	roles := []identity.Role{identity.RoleAdmin, identity.RoleLawyer, identity.RoleViewer}
	for _, role := range roles {
		p := identity.Principal{UserID: types.NewID(), Kind: identity.KindStaff, Role: role}
		if v := ViewFor(p, c); v.InternalNotes != "hearing moved" {
			t.Errorf("Role %s should see internal notes", role)
		}
	}

	// Experts have no internal-notes capability.
	expert := identity.Principal{UserID: types.NewID(), Kind: identity.KindStaff, Role: identity.RoleExpert}
	if v := ViewFor(expert, c); v.InternalNotes != "" {
		t.Error("Experts should not see internal notes")
	}
}

func TestViewCanonicalizesStatus(t *testing.T) {
	c := &Case{ID: types.NewID(), Status: StatusPendingAdminReview}
	p := identity.Principal{UserID: types.NewID(), Kind: identity.KindStaff, Role: identity.RoleAdmin}

	if v := ViewFor(p, c); v.Status != StatusPendingReview {
		t.Errorf("Views should surface the canonical status, got '%s'", v.Status)
	}
}

func TestViewsForProjectsAll(t *testing.T) {
	cases := []Case{
		{ID: types.NewID(), InternalNotes: "a"},
		{ID: types.NewID(), InternalNotes: "b"},
	}
	p := identity.Principal{
		UserID:        types.NewID(),
		Kind:          identity.KindBeneficiary,
		Role:          identity.RoleBeneficiary,
		BeneficiaryID: types.NewID(),
	}

	views := ViewsFor(p, cases)
	if len(views) != 2 {
		t.Fatalf("Expected 2 views, got %d", len(views))
	}
	for _, v := range views {
		if v.InternalNotes != "" {
			t.Error("List views must strip internal notes too")
		}
	}
}
