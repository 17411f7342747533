package registry

import (
	"log/slog"
	"net/http"

	"github.com/travelcrm/backend/internal/middleware"
	"github.com/travelcrm/backend/internal/respond"
)

type CreateCounterpartyRequest struct {
	Name        string  `json:"name"`
	CompanyName *string `json:"company_name"`
	Email       *string `json:"email"`
	Destination *string `json:"destination"`
}

type Handler struct {
	svc  Service
	resp *respond.Responder
}

func NewHandler(svc Service, log *slog.Logger, debug bool) *Handler {
	return &Handler{svc: svc, resp: respond.New(log, debug)}
}

// Create handles POST /api/v1/{kind}.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		respond.Fail(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}
	kind, ok := respond.PathKind(w, r)
	if !ok {
		return
	}
	var req CreateCounterpartyRequest
	if !respond.DecodeJSON(w, r, &req) {
		return
	}
	cp, err := h.svc.CreateCounterparty(r.Context(), CreateParams{
		CompanyID:   ident.CompanyID,
		Kind:        kind,
		Name:        req.Name,
		CompanyName: req.CompanyName,
		Email:       req.Email,
		Destination: req.Destination,
	})
	if err != nil {
		h.resp.Error(w, "create counterparty", err)
		return
	}
	respond.Created(w, cp, Label(kind)+" created successfully")
}

// List handles GET /api/v1/{kind}.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		respond.Fail(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}
	kind, ok := respond.PathKind(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListCounterparties(r.Context(), ident.CompanyID, kind)
	if err != nil {
		h.resp.Error(w, "list counterparties", err)
		return
	}
	respond.OK(w, list)
}

// Get handles GET /api/v1/{kind}/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		respond.Fail(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}
	kind, ok := respond.PathKind(w, r)
	if !ok {
		return
	}
	id, ok := respond.PathUUID(w, r, "id", Label(kind))
	if !ok {
		return
	}
	cp, err := h.svc.GetCounterparty(r.Context(), ident.CompanyID, kind, id)
	if err != nil {
		h.resp.Error(w, "get counterparty", err)
		return
	}
	respond.OK(w, cp)
}
