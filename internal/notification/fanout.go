package notification

import (
	"context"
	"log"

	"github.com/legalaid-center/platform/internal/beneficiary"
	"github.com/legalaid-center/platform/internal/identity"
	"github.com/legalaid-center/platform/internal/shared/events"
	"github.com/legalaid-center/platform/internal/shared/metrics"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// BeneficiaryDirectory resolves a beneficiary profile to its linked user
// account, the inbox a beneficiary notification lands in.
type BeneficiaryDirectory interface {
	FindByID(ctx context.Context, id types.ID) (*beneficiary.Beneficiary, error)
}

// Change describes a workflow change to fan out. The recipient set is
// computed from the post-change record: the assigned lawyer plus the
// beneficiary's linked user, minus the actor.
type Change struct {
	Type    Type
	Title   string
	Message string

	EntityKind string // case | judicial_service | task
	EntityID   types.ID

	Actor            identity.Principal
	BeneficiaryID    types.ID
	AssignedLawyerID types.ID

	FromStatus string
	ToStatus   string
}

// Fanout writes notification records and publishes workflow events. All of
// it is best-effort: a failed write is logged and counted, never surfaced
// to the caller, because the workflow change already committed.
type Fanout struct {
	repo          Repository
	beneficiaries BeneficiaryDirectory
	bus           events.EventBus // nil when the event store is disabled
}

// NewFanout creates a notification fan-out
func NewFanout(repo Repository, beneficiaries BeneficiaryDirectory, bus events.EventBus) *Fanout {
	return &Fanout{repo: repo, beneficiaries: beneficiaries, bus: bus}
}

// Notify fans the change out to its recipients and publishes the event.
func (f *Fanout) Notify(ctx context.Context, change Change) {
	for _, recipient := range f.recipients(ctx, change) {
		n := New(recipient, change.Type, change.Title, change.Message, change.EntityID)
		if err := f.repo.Save(ctx, n); err != nil {
			log.Printf("notification write failed for user %s: %v", recipient, err)
			metrics.RecordNotificationFailure()
			continue
		}
		metrics.RecordNotification(string(change.Type))
	}

	f.publish(ctx, change)
}

// recipients resolves the recipient user IDs, deduplicated and excluding
// the actor. A beneficiary without a linked user account simply receives
// nothing.
func (f *Fanout) recipients(ctx context.Context, change Change) []types.ID {
	seen := map[types.ID]bool{change.Actor.UserID: true}
	var out []types.ID

	add := func(id types.ID) {
		if id.IsZero() || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	add(change.AssignedLawyerID)

	if !change.BeneficiaryID.IsZero() {
		b, err := f.beneficiaries.FindByID(ctx, change.BeneficiaryID)
		if err != nil {
			log.Printf("notification recipient lookup failed for beneficiary %s: %v", change.BeneficiaryID, err)
			metrics.RecordNotificationFailure()
		} else {
			add(b.UserID)
		}
	}

	return out
}

func (f *Fanout) publish(ctx context.Context, change Change) {
	if f.bus == nil {
		return
	}

	event := events.NewEvent(change.EntityKind+"."+string(change.Type), change.EntityKind, change.EntityID).
		WithActor(change.Actor.UserID, string(change.Actor.Role)).
		WithStatusChange(change.FromStatus, change.ToStatus)

	if err := f.bus.Publish(ctx, event); err != nil {
		log.Printf("event publish failed for %s: %v", event.Type, err)
	}
}
