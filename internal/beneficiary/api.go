// Package beneficiary holds the beneficiary profile read model. Profiles are
// created by the intake collaborator; this side reads and links them.
package beneficiary

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/legalaid-center/platform/internal/identity"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/httpx"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// Handler handles beneficiary-profile HTTP requests
type Handler struct {
	repo Repository
}

// NewHandler creates a new beneficiary handler
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes returns the beneficiary routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(identity.RequireAuth)

	r.Get("/me", h.me)

	r.Group(func(r chi.Router) {
		r.Use(identity.RequireStaff)
		r.Get("/{id}", h.get)
	})

	return r
}

// me returns the caller's own profile. A beneficiary session without a
// linked profile gets the profile-incomplete error the frontend acts on.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p, _ := identity.FromContext(r.Context())

	if !p.IsBeneficiary() {
		httpx.WriteError(w, errors.Forbidden("staff accounts have no beneficiary profile"))
		return
	}
	if p.BeneficiaryID.IsZero() {
		httpx.WriteError(w, errors.ProfileIncomplete())
		return
	}

	b, err := h.repo.FindByID(r.Context(), p.BeneficiaryID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, errors.Validation("invalid beneficiary id", nil))
		return
	}

	b, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, b)
}
