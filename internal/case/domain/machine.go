package domain

import "github.com/legalaid-center/platform/internal/identity"

// transitionClass partitions the status vocabulary by who is driving the
// change. Admins move cases through the administrative set; the assigned
// lawyer moves them through the operating set. The two sets are disjoint on
// purpose: a lawyer cannot reject or reassign through the status endpoint,
// and an admin cannot skip the assignment step.
type transitionClass int

const (
	classNone transitionClass = iota
	classAdmin
	classLawyer
)

type transitionKey struct {
	class transitionClass
	from  Status
}

// adminTargets is the administrative status set.
var adminTargets = []Status{
	StatusAcceptedPendingAssignment,
	StatusAssigned,
	StatusCompleted,
	StatusClosedAdmin,
}

// operatingTargets is the set the assigned lawyer works in.
var operatingTargets = []Status{
	StatusInProgress,
	StatusAwaitingDocuments,
	StatusAwaitingHearing,
	StatusCompleted,
}

// statusTransitions maps (class, current status) to the allowed next
// statuses. Terminal states have no entry, so nothing leaves them. Adding a
// role class or a status is a table edit.
var statusTransitions = buildTransitions()

func buildTransitions() map[transitionKey][]Status {
	t := make(map[transitionKey][]Status)

	// Admins may drive a case from the entry state and from anywhere in the
	// administrative or operating sets back into the administrative set.
	adminSources := []Status{
		StatusPendingReview,
		StatusAcceptedPendingAssignment,
		StatusAssigned,
		StatusInProgress,
		StatusAwaitingDocuments,
		StatusAwaitingHearing,
		StatusCompleted,
		StatusClosedAdmin,
	}
	for _, from := range adminSources {
		t[transitionKey{classAdmin, from}] = targetsExcluding(adminTargets, from)
	}

	// The assigned lawyer operates between assignment and completion.
	lawyerSources := []Status{
		StatusAssigned,
		StatusInProgress,
		StatusAwaitingDocuments,
		StatusAwaitingHearing,
	}
	for _, from := range lawyerSources {
		t[transitionKey{classLawyer, from}] = targetsExcluding(operatingTargets, from)
	}

	return t
}

func targetsExcluding(targets []Status, from Status) []Status {
	out := make([]Status, 0, len(targets))
	for _, s := range targets {
		if s != from {
			out = append(out, s)
		}
	}
	return out
}

// classFor resolves the transition class for a role. Unknown roles get
// classNone and therefore no transitions.
func classFor(role identity.Role) transitionClass {
	switch role {
	case identity.RoleAdmin, identity.RoleSuperAdmin:
		return classAdmin
	case identity.RoleLawyer:
		return classLawyer
	}
	return classNone
}

// AllowedNext returns the statuses a role may move the case to from the
// given status.
func AllowedNext(role identity.Role, from Status) []Status {
	return statusTransitions[transitionKey{classFor(role), from.Canonical()}]
}

// CanTransition consults the transition table once per request.
func CanTransition(role identity.Role, from, to Status) bool {
	for _, s := range AllowedNext(role, from) {
		if s == to.Canonical() {
			return true
		}
	}
	return false
}
