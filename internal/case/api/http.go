// Package api exposes the case workflow over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/legalaid-center/platform/internal/authz"
	"github.com/legalaid-center/platform/internal/case/domain"
	"github.com/legalaid-center/platform/internal/document"
	"github.com/legalaid-center/platform/internal/identity"
	"github.com/legalaid-center/platform/internal/notification"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/httpx"
	"github.com/legalaid-center/platform/internal/shared/metrics"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// Handler handles case HTTP requests
type Handler struct {
	repo      domain.Repository
	directory identity.Directory
	documents document.Repository
	fanout    *notification.Fanout
}

// NewHandler creates a new case handler
func NewHandler(repo domain.Repository, directory identity.Directory, documents document.Repository, fanout *notification.Fanout) *Handler {
	return &Handler{repo: repo, directory: directory, documents: documents, fanout: fanout}
}

// Routes returns the case routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(identity.RequireAuth)

	r.Post("/", h.create)
	r.Get("/", h.list)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Patch("/", h.update)
		r.Delete("/", h.delete)

		r.Post("/approve", h.approve)
		r.Post("/reject", h.reject)
		r.Post("/assign-lawyer", h.assignLawyer)
		r.Post("/status", h.setStatus)
		r.Get("/transitions", h.transitions)

		r.Get("/timeline", h.timeline)
		r.Get("/documents", h.listDocuments)
		r.Post("/documents", h.attachDocument)
	})

	return r
}

type createRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      domain.Category `json:"category"`
	BeneficiaryID types.ID        `json:"beneficiary_id"` // staff-created cases only
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, _ := identity.FromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	var (
		c      *domain.Case
		origin string
		err    error
	)
	if p.IsBeneficiary() {
		// Ownership comes from the session; a client-supplied beneficiary
		// id is ignored.
		c, err = domain.NewBeneficiaryCase(p, req.Title, req.Description, req.Category)
		origin = "beneficiary"
	} else {
		c, err = domain.NewAdminCase(p, req.BeneficiaryID, req.Title, req.Description, req.Category)
		origin = "admin"
	}
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.repo.Save(r.Context(), c); err != nil {
		httpx.WriteError(w, err)
		return
	}
	metrics.RecordCaseCreated(origin)

	h.fanout.Notify(r.Context(), notification.Change{
		Type:          notification.TypeCaseSubmitted,
		Title:         "Case submitted",
		Message:       fmt.Sprintf("Case %s was submitted", c.CaseNumber),
		EntityKind:    "case",
		EntityID:      c.ID,
		Actor:         p,
		BeneficiaryID: c.BeneficiaryID,
		ToStatus:      string(c.Status),
	})

	httpx.WriteJSON(w, http.StatusCreated, domain.ViewFor(p, c))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, _ := identity.FromContext(r.Context())

	filter := parseListFilter(r)

	// Visibility is decided here, before the query runs. Beneficiaries and
	// assignment-scoped staff never receive rows outside their scope.
	var (
		cases []domain.Case
		total int
		err   error
	)
	switch {
	case p.IsBeneficiary():
		if p.BeneficiaryID.IsZero() {
			httpx.WriteError(w, errors.ProfileIncomplete())
			return
		}
		cases, total, err = h.repo.FindByBeneficiary(r.Context(), p.BeneficiaryID, filter)
	case p.Can(identity.CapCaseReadAll):
		cases, total, err = h.repo.List(r.Context(), filter)
	case p.Can(identity.CapCaseReadAssigned):
		cases, total, err = h.repo.FindByAssignedLawyer(r.Context(), p.UserID, filter)
	default:
		httpx.WriteError(w, errors.Forbidden("access denied"))
		return
	}
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"cases": domain.ViewsFor(p, cases),
		"total": total,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, c, ok := h.load(w, r, authz.ActionRead)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, domain.ViewFor(p, c))
}

type updateRequest struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	InternalNotes *string          `json:"internal_notes"`
	Category      *domain.Category `json:"category"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p, c, ok := h.load(w, r, authz.ActionEdit)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	c.ApplyEdit(p, req.Title, req.Description, req.InternalNotes, req.Category)

	if err := h.repo.Update(r.Context(), c); err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, domain.ViewFor(p, c))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	_, c, ok := h.load(w, r, authz.ActionDelete)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), c.ID); err != nil {
		httpx.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	p, c, ok := h.load(w, r, authz.ActionApprove)
	if !ok {
		return
	}
	if !p.Can(identity.CapCaseApprove) {
		httpx.WriteError(w, errors.Forbidden("not allowed to approve cases"))
		return
	}

	from := c.Status
	if err := c.Approve(p); err != nil {
		metrics.RecordInvalidTransition("case")
		httpx.WriteError(w, err)
		return
	}

	if err := h.repo.Update(r.Context(), c); err != nil {
		httpx.WriteError(w, err)
		return
	}
	metrics.RecordTransition("case", string(from), string(c.Status))

	h.fanout.Notify(r.Context(), notification.Change{
		Type:          notification.TypeCaseApproved,
		Title:         "Case accepted",
		Message:       fmt.Sprintf("Case %s was accepted for assignment", c.CaseNumber),
		EntityKind:    "case",
		EntityID:      c.ID,
		Actor:         p,
		BeneficiaryID: c.BeneficiaryID,
		FromStatus:    string(from),
		ToStatus:      string(c.Status),
	})

	httpx.WriteJSON(w, http.StatusOK, domain.ViewFor(p, c))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	p, c, ok := h.load(w, r, authz.ActionReject)
	if !ok {
		return
	}
	if !p.Can(identity.CapCaseReject) {
		httpx.WriteError(w, errors.Forbidden("not allowed to reject cases"))
		return
	}

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}
	if req.Reason == "" {
		httpx.WriteError(w, errors.Validation("reason is required", map[string]string{"reason": "required"}))
		return
	}

	from := c.Status
	if err := c.Reject(p, req.Reason); err != nil {
		metrics.RecordInvalidTransition("case")
		httpx.WriteError(w, err)
		return
	}

	if err := h.repo.Update(r.Context(), c); err != nil {
		httpx.WriteError(w, err)
		return
	}
	metrics.RecordTransition("case", string(from), string(c.Status))

	h.fanout.Notify(r.Context(), notification.Change{
		Type:          notification.TypeCaseRejected,
		Title:         "Case rejected",
		Message:       fmt.Sprintf("Case %s was rejected", c.CaseNumber),
		EntityKind:    "case",
		EntityID:      c.ID,
		Actor:         p,
		BeneficiaryID: c.BeneficiaryID,
		FromStatus:    string(from),
		ToStatus:      string(c.Status),
	})

	httpx.WriteJSON(w, http.StatusOK, domain.ViewFor(p, c))
}

type assignLawyerRequest struct {
	LawyerID types.ID `json:"lawyer_id"`
}

func (h *Handler) assignLawyer(w http.ResponseWriter, r *http.Request) {
	p, c, ok := h.load(w, r, authz.ActionAssignLawyer)
	if !ok {
		return
	}
	if !p.Can(identity.CapCaseAssignLawyer) {
		httpx.WriteError(w, errors.Forbidden("not allowed to assign lawyers"))
		return
	}

	var req assignLawyerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}
	if req.LawyerID.IsZero() {
		httpx.WriteError(w, errors.Validation("lawyer is required", map[string]string{"lawyer_id": "required"}))
		return
	}

	lawyer, err := h.directory.FindUser(r.Context(), req.LawyerID)
	if err != nil {
		httpx.WriteError(w, errors.InvalidTarget("assignee must be a lawyer"))
		return
	}

	from := c.Status
	if err := c.AssignLawyer(p, lawyer); err != nil {
		metrics.RecordInvalidTransition("case")
		httpx.WriteError(w, err)
		return
	}

	if err := h.repo.Update(r.Context(), c); err != nil {
		httpx.WriteError(w, err)
		return
	}
	metrics.RecordTransition("case", string(from), string(c.Status))

	h.fanout.Notify(r.Context(), notification.Change{
		Type:             notification.TypeLawyerAssigned,
		Title:            "Lawyer assigned",
		Message:          fmt.Sprintf("A lawyer was assigned to case %s", c.CaseNumber),
		EntityKind:       "case",
		EntityID:         c.ID,
		Actor:            p,
		BeneficiaryID:    c.BeneficiaryID,
		AssignedLawyerID: c.AssignedLawyerID,
		FromStatus:       string(from),
		ToStatus:         string(c.Status),
	})

	httpx.WriteJSON(w, http.StatusOK, domain.ViewFor(p, c))
}

type setStatusRequest struct {
	Status domain.Status `json:"status"`
	Note   string        `json:"note"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	p, c, ok := h.load(w, r, authz.ActionSetStatus)
	if !ok {
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	from := c.Status
	if err := c.SetStatus(p, req.Status, req.Note); err != nil {
		metrics.RecordInvalidTransition("case")
		httpx.WriteError(w, err)
		return
	}

	if err := h.repo.Update(r.Context(), c); err != nil {
		httpx.WriteError(w, err)
		return
	}
	metrics.RecordTransition("case", string(from), string(c.Status))

	h.fanout.Notify(r.Context(), notification.Change{
		Type:             notification.TypeStatusChanged,
		Title:            "Case status changed",
		Message:          fmt.Sprintf("Case %s moved to %s", c.CaseNumber, c.Status),
		EntityKind:       "case",
		EntityID:         c.ID,
		Actor:            p,
		BeneficiaryID:    c.BeneficiaryID,
		AssignedLawyerID: c.AssignedLawyerID,
		FromStatus:       string(from),
		ToStatus:         string(c.Status),
	})

	httpx.WriteJSON(w, http.StatusOK, domain.ViewFor(p, c))
}

// transitions returns the statuses the caller may move the case to. The
// frontend uses this to render the status menu instead of hard-coding the
// table a second time.
func (h *Handler) transitions(w http.ResponseWriter, r *http.Request) {
	p, c, ok := h.load(w, r, authz.ActionRead)
	if !ok {
		return
	}

	next := domain.AllowedNext(p.Role, c.Status)
	if next == nil {
		next = []domain.Status{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"transitions": next})
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	_, c, ok := h.load(w, r, authz.ActionReadTimeline)
	if !ok {
		return
	}

	limit, offset := httpx.Pagination(r)
	events, err := h.repo.GetTimeline(r.Context(), c.ID, limit, offset)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if events == nil {
		events = []domain.TimelineEvent{}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	p, c, ok := h.load(w, r, authz.ActionListDocuments)
	if !ok {
		return
	}

	// Beneficiary reads are pre-filtered in the query; internal documents
	// never leave the database for them.
	var (
		docs []document.Document
		err  error
	)
	if p.IsBeneficiary() {
		docs, err = h.documents.ListPublicByParent(r.Context(), document.ParentCase, c.ID)
	} else {
		docs, err = h.documents.ListByParent(r.Context(), document.ParentCase, c.ID)
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
	p, c, ok := h.load(w, r, authz.ActionAttach)
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

	doc, err := document.New(p, document.ParentCase, c.ID, req.StorageKey, req.FileName, req.MimeType, req.SizeBytes, isPublic)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.documents.Save(r.Context(), doc); err != nil {
		httpx.WriteError(w, err)
		return
	}
	metrics.RecordDocumentAttached(string(document.ParentCase), doc.IsPublic)

	c.RecordAttachment(p, doc.FileName)
	if err := h.repo.Update(r.Context(), c); err != nil {
		httpx.WriteError(w, err)
		return
	}

	h.fanout.Notify(r.Context(), notification.Change{
		Type:             notification.TypeDocumentAttached,
		Title:            "Document attached",
		Message:          fmt.Sprintf("%s was attached to case %s", doc.FileName, c.CaseNumber),
		EntityKind:       "case",
		EntityID:         c.ID,
		Actor:            p,
		BeneficiaryID:    c.BeneficiaryID,
		AssignedLawyerID: c.AssignedLawyerID,
	})

	httpx.WriteJSON(w, http.StatusCreated, doc)
}

// load fetches the case and runs the guard for the action. On failure the
// response is already written.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, action authz.Action) (identity.Principal, *domain.Case, bool) {
	p, _ := identity.FromContext(r.Context())

	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, errors.Validation("invalid case id", nil))
		return p, nil, false
	}

	c, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return p, nil, false
	}

	if err := authz.Case(p, c, action); err != nil {
		httpx.WriteError(w, err)
		return p, nil, false
	}

	return p, c, true
}

func parseListFilter(r *http.Request) domain.ListFilter {
	filter := domain.ListFilter{Search: r.URL.Query().Get("search")}
	filter.Limit, filter.Offset = httpx.Pagination(r)

	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.Status(s).Canonical()
		filter.Status = &status
	}
	if c := r.URL.Query().Get("category"); c != "" {
		category := domain.Category(c)
		filter.Category = &category
	}

	return filter
}
