package judicial

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/legalaid-center/platform/internal/adapters/registry"
	"github.com/legalaid-center/platform/internal/document"
	"github.com/legalaid-center/platform/internal/identity"
	"github.com/legalaid-center/platform/internal/notification"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/httpx"
	"github.com/legalaid-center/platform/internal/shared/metrics"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// Guard decides record-level access for judicial services. Implemented by
// the authz package; declared here to keep the dependency pointing inward.
type Guard func(p identity.Principal, s *Service, action string) error

// Handler handles judicial-service HTTP requests
type Handler struct {
	repo      Repository
	directory identity.Directory
	documents document.Repository
	fanout    *notification.Fanout
	guard     Guard
	registry  registry.Adapter // nil when the court registry is disabled
}

// NewHandler creates a new judicial-service handler
func NewHandler(repo Repository, directory identity.Directory, documents document.Repository, fanout *notification.Fanout, guard Guard, reg registry.Adapter) *Handler {
	return &Handler{repo: repo, directory: directory, documents: documents, fanout: fanout, guard: guard, registry: reg}
}

// Routes returns the judicial-service routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(identity.RequireAuth)

	r.Post("/", h.create)
	r.Get("/", h.list)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Delete("/", h.delete)

		r.Post("/assign-lawyer", h.assignLawyer)
		r.Post("/status", h.setStatus)
		r.Get("/filing", h.filing)

		r.Get("/documents", h.listDocuments)
		r.Post("/documents", h.attachDocument)
	})

	return r
}

type createRequest struct {
	ServiceType   string   `json:"service_type"`
	Description   string   `json:"description"`
	BeneficiaryID types.ID `json:"beneficiary_id"` // staff-created services only
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, _ := identity.FromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	var (
		s   *Service
		err error
	)
	if p.IsBeneficiary() {
		s, err = NewRequest(p, req.ServiceType, req.Description)
	} else {
		s, err = NewAdminService(p, req.BeneficiaryID, req.ServiceType, req.Description)
	}
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.repo.Save(r.Context(), s); err != nil {
		httpx.WriteError(w, err)
		return
	}

	h.fanout.Notify(r.Context(), notification.Change{
		Type:          notification.TypeServiceRequested,
		Title:         "Judicial service requested",
		Message:       fmt.Sprintf("A %s service was requested", s.ServiceType),
		EntityKind:    "judicial_service",
		EntityID:      s.ID,
		Actor:         p,
		BeneficiaryID: s.BeneficiaryID,
		ToStatus:      string(s.Status),
	})

	httpx.WriteJSON(w, http.StatusCreated, ViewFor(p, s))
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
		services []Service
		total    int
		err      error
	)
	switch {
	case p.IsBeneficiary():
		if p.BeneficiaryID.IsZero() {
			httpx.WriteError(w, errors.ProfileIncomplete())
			return
		}
		services, total, err = h.repo.FindByBeneficiary(r.Context(), p.BeneficiaryID, filter)
	case p.Can(identity.CapJudicialReadAll):
		services, total, err = h.repo.List(r.Context(), filter)
	case p.Can(identity.CapJudicialReadAssigned):
		services, total, err = h.repo.FindByAssignedLawyer(r.Context(), p.UserID, filter)
	default:
		httpx.WriteError(w, errors.Forbidden("access denied"))
		return
	}
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"services": ViewsFor(p, services),
		"total":    total,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, s, ok := h.load(w, r, "read")
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ViewFor(p, s))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.load(w, r, "delete")
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), s.ID); err != nil {
		httpx.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type assignLawyerRequest struct {
	LawyerID types.ID `json:"lawyer_id"`
}

func (h *Handler) assignLawyer(w http.ResponseWriter, r *http.Request) {
	p, s, ok := h.load(w, r, "assign_lawyer")
	if !ok {
		return
	}
	if !p.Can(identity.CapJudicialAssignLawyer) {
		httpx.WriteError(w, errors.Forbidden("not allowed to assign lawyers"))
		return
	}

	var req assignLawyerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	lawyer, err := h.directory.FindUser(r.Context(), req.LawyerID)
	if err != nil {
		httpx.WriteError(w, errors.InvalidTarget("assignee must be a lawyer"))
		return
	}

	from := s.Status
	if err := s.AssignLawyer(lawyer); err != nil {
		metrics.RecordInvalidTransition("judicial_service")
		httpx.WriteError(w, err)
		return
	}

	if err := h.repo.Update(r.Context(), s); err != nil {
		httpx.WriteError(w, err)
		return
	}
	metrics.RecordTransition("judicial_service", string(from), string(s.Status))

	h.fanout.Notify(r.Context(), notification.Change{
		Type:             notification.TypeLawyerAssigned,
		Title:            "Lawyer assigned",
		Message:          fmt.Sprintf("A lawyer was assigned to your %s request", s.ServiceType),
		EntityKind:       "judicial_service",
		EntityID:         s.ID,
		Actor:            p,
		BeneficiaryID:    s.BeneficiaryID,
		AssignedLawyerID: s.AssignedLawyerID,
		FromStatus:       string(from),
		ToStatus:         string(s.Status),
	})

	httpx.WriteJSON(w, http.StatusOK, ViewFor(p, s))
}

type setStatusRequest struct {
	Status      Status `json:"status"`
	ReviewNotes string `json:"review_notes"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	p, s, ok := h.load(w, r, "set_status")
	if !ok {
		return
	}
	if !p.Can(identity.CapJudicialStatus) {
		httpx.WriteError(w, errors.Forbidden("not allowed to change service status"))
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	from := s.Status
	if err := s.SetStatus(req.Status); err != nil {
		metrics.RecordInvalidTransition("judicial_service")
		httpx.WriteError(w, err)
		return
	}
	if req.ReviewNotes != "" {
		s.ReviewNotes = req.ReviewNotes
	}

	if err := h.repo.Update(r.Context(), s); err != nil {
		httpx.WriteError(w, err)
		return
	}
	metrics.RecordTransition("judicial_service", string(from), string(s.Status))

	h.fanout.Notify(r.Context(), notification.Change{
		Type:             notification.TypeStatusChanged,
		Title:            "Service status changed",
		Message:          fmt.Sprintf("Your %s request moved to %s", s.ServiceType, s.Status),
		EntityKind:       "judicial_service",
		EntityID:         s.ID,
		Actor:            p,
		BeneficiaryID:    s.BeneficiaryID,
		AssignedLawyerID: s.AssignedLawyerID,
		FromStatus:       string(from),
		ToStatus:         string(s.Status),
	})

	httpx.WriteJSON(w, http.StatusOK, ViewFor(p, s))
}

// filing looks the service's court reference up in the legacy court
// registry. Staff only: registry data is not shaped for beneficiaries.
func (h *Handler) filing(w http.ResponseWriter, r *http.Request) {
	p, s, ok := h.load(w, r, "read")
	if !ok {
		return
	}
	if !p.IsStaff() {
		httpx.WriteError(w, errors.Forbidden("staff access required"))
		return
	}
	if h.registry == nil || !h.registry.IsConnected() {
		httpx.WriteError(w, errors.BadRequest("court registry is not available"))
		return
	}
	if s.CourtReference == "" {
		httpx.WriteError(w, errors.NotFound("filing", s.ID.String()))
		return
	}

	f, err := h.registry.LookupFiling(r.Context(), s.CourtReference)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	p, s, ok := h.load(w, r, "list_documents")
	if !ok {
		return
	}

	var (
		docs []document.Document
		err  error
	)
	if p.IsBeneficiary() {
		docs, err = h.documents.ListPublicByParent(r.Context(), document.ParentJudicialService, s.ID)
	} else {
		docs, err = h.documents.ListByParent(r.Context(), document.ParentJudicialService, s.ID)
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
	p, s, ok := h.load(w, r, "attach")
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

	doc, err := document.New(p, document.ParentJudicialService, s.ID, req.StorageKey, req.FileName, req.MimeType, req.SizeBytes, isPublic)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.documents.Save(r.Context(), doc); err != nil {
		httpx.WriteError(w, err)
		return
	}
	metrics.RecordDocumentAttached(string(document.ParentJudicialService), doc.IsPublic)

	httpx.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, action string) (identity.Principal, *Service, bool) {
	p, _ := identity.FromContext(r.Context())

	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, errors.Validation("invalid service id", nil))
		return p, nil, false
	}

	s, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return p, nil, false
	}

	if err := h.guard(p, s, action); err != nil {
		httpx.WriteError(w, err)
		return p, nil, false
	}

	return p, s, true
}
