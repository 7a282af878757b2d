package identity

import (
	"context"

	"github.com/legalaid-center/platform/internal/shared/types"
)

// Kind distinguishes the two sides of the API.
type Kind string

const (
	KindStaff       Kind = "staff"
	KindBeneficiary Kind = "beneficiary"
)

// Principal is the authenticated actor for a request. It is constructed once
// by the middleware and never mutated; downstream code receives it by value.
type Principal struct {
	UserID types.ID
	Kind   Kind
	Role   Role

	// BeneficiaryID is the linked beneficiary profile for beneficiary
	// principals. Zero when the session is authenticated but the profile
	// link is missing (profile-incomplete).
	BeneficiaryID types.ID
}

// IsZero reports whether the principal is uninitialized (anonymous).
func (p Principal) IsZero() bool {
	return p.UserID.IsZero()
}

// IsStaff reports whether the principal is a staff member.
func (p Principal) IsStaff() bool {
	return p.Kind == KindStaff && IsStaffRole(p.Role)
}

// IsBeneficiary reports whether the principal is a beneficiary.
func (p Principal) IsBeneficiary() bool {
	return p.Kind == KindBeneficiary
}

// IsAdmin reports whether the principal bypasses assignment checks.
func (p Principal) IsAdmin() bool {
	return p.IsStaff() && (p.Role == RoleAdmin || p.Role == RoleSuperAdmin)
}

// Can checks the principal's role against the capability table.
func (p Principal) Can(cap Capability) bool {
	if p.IsZero() {
		return false
	}
	return HasCapability(p.Role, cap)
}

type contextKey string

const principalContextKey contextKey = "principal"

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// FromContext extracts the principal from the context. The second return is
// false for anonymous requests.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	if !ok || p.IsZero() {
		return Principal{}, false
	}
	return p, true
}
