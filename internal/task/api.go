package task

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/legalaid-center/platform/internal/document"
	"github.com/legalaid-center/platform/internal/identity"
	"github.com/legalaid-center/platform/internal/notification"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/httpx"
	"github.com/legalaid-center/platform/internal/shared/metrics"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// Guard decides record-level access for tasks. Implemented by the authz
// package; declared here to keep the dependency pointing inward.
type Guard func(p identity.Principal, t *Task, action string) error

// Handler handles task HTTP requests
type Handler struct {
	repo      Repository
	documents document.Repository
	fanout    *notification.Fanout
	guard     Guard
}

// NewHandler creates a new task handler
func NewHandler(repo Repository, documents document.Repository, fanout *notification.Fanout, guard Guard) *Handler {
	return &Handler{repo: repo, documents: documents, fanout: fanout, guard: guard}
}

// Routes returns the task routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(identity.RequireAuth)

	r.Post("/", h.create)
	r.Get("/", h.list)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Patch("/", h.update)
		r.Delete("/", h.delete)

		r.Post("/status", h.setStatus)
		r.Get("/events", h.events)

		r.Get("/documents", h.listDocuments)
		r.Post("/documents", h.attachDocument)
	})

	return r
}

type createRequest struct {
	BeneficiaryID types.ID   `json:"beneficiary_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	LawyerID      types.ID   `json:"lawyer_id"`
	DueAt         *time.Time `json:"due_at"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, _ := identity.FromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	t, err := New(p, req.BeneficiaryID, req.Title, req.Description, req.LawyerID, req.DueAt)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.repo.Save(r.Context(), t); err != nil {
		httpx.WriteError(w, err)
		return
	}

	h.fanout.Notify(r.Context(), notification.Change{
		Type:             notification.TypeTaskAssigned,
		Title:            "New task",
		Message:          fmt.Sprintf("Task created: %s", t.Title),
		EntityKind:       "task",
		EntityID:         t.ID,
		Actor:            p,
		BeneficiaryID:    t.BeneficiaryID,
		AssignedLawyerID: t.LawyerID,
		ToStatus:         string(t.Status),
	})

	httpx.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, _ := identity.FromContext(r.Context())

	filter := ListFilter{}
	filter.Limit, filter.Offset = httpx.Pagination(r)
	if s := r.URL.Query().Get("status"); s != "" {
		status := Status(s)
		filter.Status = &status
	}

	var (
		tasks []Task
		total int
		err   error
	)
	switch {
	case p.IsBeneficiary():
		if p.BeneficiaryID.IsZero() {
			httpx.WriteError(w, errors.ProfileIncomplete())
			return
		}
		tasks, total, err = h.repo.FindByBeneficiary(r.Context(), p.BeneficiaryID, filter)
	case p.Can(identity.CapTaskReadAll):
		tasks, total, err = h.repo.List(r.Context(), filter)
	case p.Can(identity.CapTaskReadAssigned):
		tasks, total, err = h.repo.FindByLawyer(r.Context(), p.UserID, filter)
	default:
		httpx.WriteError(w, errors.Forbidden("access denied"))
		return
	}
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if tasks == nil {
		tasks = []Task{}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"total": total,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	_, t, ok := h.load(w, r, "read")
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

type updateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	LawyerID    *types.ID  `json:"lawyer_id"`
	DueAt       *time.Time `json:"due_at"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p, t, ok := h.load(w, r, "edit")
	if !ok {
		return
	}
	if !p.Can(identity.CapTaskEdit) {
		httpx.WriteError(w, errors.Forbidden("not allowed to edit tasks"))
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	t.ApplyEdit(req.Title, req.Description, req.LawyerID, req.DueAt)

	if err := h.repo.Update(r.Context(), t); err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	_, t, ok := h.load(w, r, "delete")
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), t.ID); err != nil {
		httpx.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type setStatusRequest struct {
	Status Status `json:"status"`
	Note   string `json:"note"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	p, t, ok := h.load(w, r, "set_status")
	if !ok {
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	from := t.Status
	if err := t.SetStatus(p, req.Status, req.Note); err != nil {
		metrics.RecordInvalidTransition("task")
		httpx.WriteError(w, err)
		return
	}

	if err := h.repo.Update(r.Context(), t); err != nil {
		httpx.WriteError(w, err)
		return
	}
	metrics.RecordTransition("task", string(from), string(t.Status))

	h.fanout.Notify(r.Context(), notification.Change{
		Type:             notification.TypeStatusChanged,
		Title:            "Task status changed",
		Message:          fmt.Sprintf("Task %q moved to %s", t.Title, t.Status),
		EntityKind:       "task",
		EntityID:         t.ID,
		Actor:            p,
		BeneficiaryID:    t.BeneficiaryID,
		AssignedLawyerID: t.LawyerID,
		FromStatus:       string(from),
		ToStatus:         string(t.Status),
	})

	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	_, t, ok := h.load(w, r, "read")
	if !ok {
		return
	}

	limit, offset := httpx.Pagination(r)
	events, err := h.repo.GetEvents(r.Context(), t.ID, limit, offset)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if events == nil {
		events = []Event{}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	p, t, ok := h.load(w, r, "list_documents")
	if !ok {
		return
	}

	var (
		docs []document.Document
		err  error
	)
	if p.IsBeneficiary() {
		docs, err = h.documents.ListPublicByParent(r.Context(), document.ParentTask, t.ID)
	} else {
		docs, err = h.documents.ListByParent(r.Context(), document.ParentTask, t.ID)
	}
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if docs == nil {
		docs = []document.Document{}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

type attachDocumentRequest struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
	IsPublic   *bool  `json:"is_public"`
}

func (h *Handler) attachDocument(w http.ResponseWriter, r *http.Request) {
	p, t, ok := h.load(w, r, "attach")
	if !ok {
		return
	}

	var req attachDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	doc, err := document.New(p, document.ParentTask, t.ID, req.StorageKey, req.FileName, req.MimeType, req.SizeBytes, isPublic)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.documents.Save(r.Context(), doc); err != nil {
		httpx.WriteError(w, err)
		return
	}
	metrics.RecordDocumentAttached(string(document.ParentTask), doc.IsPublic)

	httpx.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, action string) (identity.Principal, *Task, bool) {
	p, _ := identity.FromContext(r.Context())

	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, errors.Validation("invalid task id", nil))
		return p, nil, false
	}

	t, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return p, nil, false
	}

	if err := h.guard(p, t, action); err != nil {
		httpx.WriteError(w, err)
		return p, nil, false
	}

	return p, t, true
}
