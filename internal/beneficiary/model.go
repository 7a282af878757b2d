// Package beneficiary manages beneficiary person records and their link to
// user accounts.
package beneficiary

import (
	"time"

	"github.com/legalaid-center/platform/internal/shared/types"
)

// Beneficiary is a person record owned by the organization. At most one
// linked user account; the link is set once and is the basis for every
// "is this my own record" check.
type Beneficiary struct {
	ID       types.ID `json:"id"`
	UserID   types.ID `json:"user_id,omitempty"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email,omitempty"`
	Phone    string   `json:"phone,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
