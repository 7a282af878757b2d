package task

import (
	"errors"
	"testing"
	"time"

	"github.com/legalaid-center/platform/internal/identity"
	apperrors "github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/types"
)

func adminPrincipal() identity.Principal {
	return identity.Principal{UserID: types.NewID(), Kind: identity.KindStaff, Role: identity.RoleAdmin}
}

func TestNew(t *testing.T) {
	p := adminPrincipal()
	beneficiaryID := types.NewID()
	lawyerID := types.NewID()
	due := time.Now().Add(72 * time.Hour)

	tk, err := New(p, beneficiaryID, "Bring employment contract", "", lawyerID, &due)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tk.Status != StatusPending {
		t.Errorf("Expected pending, got '%s'", tk.Status)
	}
	if tk.BeneficiaryID != beneficiaryID || tk.LawyerID != lawyerID {
		t.Error("Owner and linked lawyer should be recorded")
	}
	if len(tk.PendingEvents()) != 1 {
		t.Fatalf("Expected 1 pending event, got %d", len(tk.PendingEvents()))
	}
	if e := tk.PendingEvents()[0]; e.ToStatus != StatusPending {
		t.Errorf("Creation event should record pending, got '%s'", e.ToStatus)
	}
}

func TestNewRequiresCapability(t *testing.T) {
	lawyer := identity.Principal{UserID: types.NewID(), Kind: identity.KindStaff, Role: identity.RoleLawyer}
	if _, err := New(lawyer, types.NewID(), "Title", "", "", nil); err == nil {
		t.Error("Lawyers should not create tasks")
	}
}

func TestSetStatus(t *testing.T) {
	p := adminPrincipal()

	tests := []struct {
		name string
		from Status
		to   Status
		ok   bool
	}{
		{"start", StatusPending, StatusInProgress, true},
		{"wait for beneficiary", StatusInProgress, StatusAwaitingBeneficiary, true},
		{"resume", StatusAwaitingBeneficiary, StatusInProgress, true},
		{"complete from review", StatusUnderReview, StatusCompleted, true},
		{"cancel early", StatusPending, StatusCancelled, true},
		{"skip to completed", StatusPending, StatusCompleted, false},
		{"leave completed", StatusCompleted, StatusInProgress, false},
		{"leave cancelled", StatusCancelled, StatusPending, false},
		{"same state", StatusInProgress, StatusInProgress, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := &Task{ID: types.NewID(), Status: tt.from}
			err := tk.SetStatus(p, tt.to, "")
			if tt.ok && err != nil {
				t.Errorf("Expected %s -> %s to be allowed: %v", tt.from, tt.to, err)
			}
			if !tt.ok && !errors.Is(err, apperrors.ErrInvalidTransition) {
				t.Errorf("Expected %s -> %s to be rejected, got %v", tt.from, tt.to, err)
			}
		})
	}
}

func TestSetStatusStampsCompletion(t *testing.T) {
	tk := &Task{ID: types.NewID(), Status: StatusInProgress}

	if err := tk.SetStatus(adminPrincipal(), StatusCompleted, "done"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tk.CompletedAt == nil {
		t.Error("CompletedAt should be stamped")
	}

	events := tk.PendingEvents()
	if len(events) != 1 {
		t.Fatalf("Expected 1 pending event, got %d", len(events))
	}
	if events[0].FromStatus != StatusInProgress || events[0].ToStatus != StatusCompleted {
		t.Errorf("Event should record in_progress -> completed, got %s -> %s",
			events[0].FromStatus, events[0].ToStatus)
	}
}

func TestFailedTransitionAppendsNoEvent(t *testing.T) {
	tk := &Task{ID: types.NewID(), Status: StatusCompleted}

	_ = tk.SetStatus(adminPrincipal(), StatusInProgress, "")
	if len(tk.PendingEvents()) != 0 {
		t.Errorf("Rejected transition should append no event, got %d", len(tk.PendingEvents()))
	}
}

func TestApplyEditNeverTouchesStatus(t *testing.T) {
	tk := &Task{ID: types.NewID(), Status: StatusInProgress}

	title := "Updated title"
	lawyer := types.NewID()
	tk.ApplyEdit(&title, nil, &lawyer, nil)

	if tk.Status != StatusInProgress {
		t.Error("Edit should never change status")
	}
	if tk.Title != title || tk.LawyerID != lawyer {
		t.Error("Edit should apply the provided fields")
	}
}
