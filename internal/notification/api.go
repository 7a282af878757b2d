package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/legalaid-center/platform/internal/identity"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/httpx"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// Handler handles notification inbox HTTP requests
type Handler struct {
	repo Repository
}

// NewHandler creates a new notification handler
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes returns the notification routes. Every route is scoped to the
// authenticated user's own inbox.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(identity.RequireAuth)

	r.Get("/", h.list)
	r.Get("/unread-count", h.unreadCount)
	r.Post("/{id}/read", h.markRead)
	r.Post("/read-all", h.markAllRead)

	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, _ := identity.FromContext(r.Context())

	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit, offset := httpx.Pagination(r)

	notifications, err := h.repo.ListByRecipient(r.Context(), p.UserID, unreadOnly, limit, offset)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if notifications == nil {
		notifications = []Notification{}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	p, _ := identity.FromContext(r.Context())

	count, err := h.repo.CountUnread(r.Context(), p.UserID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	p, _ := identity.FromContext(r.Context())

	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, errors.Validation("invalid notification id", nil))
		return
	}

	if err := h.repo.MarkRead(r.Context(), id, p.UserID); err != nil {
		httpx.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	p, _ := identity.FromContext(r.Context())

	if err := h.repo.MarkAllRead(r.Context(), p.UserID); err != nil {
		httpx.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
