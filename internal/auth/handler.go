package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/travelcrm/backend/internal/respond"
)

// Request/response structs use snake_case JSON. Bodies are schema-checked
// by middleware before they reach these handlers.

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type OperatorResponse struct {
	ID          string `json:"id"`
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
}

type LoginResponse struct {
	Token string           `json:"token"`
	User  OperatorResponse `json:"user"`
}

type Handler struct {
	svc  Service
	resp *respond.Responder
}

func NewHandler(svc Service, log *slog.Logger, debug bool) *Handler {
	return &Handler{svc: svc, resp: respond.New(log, debug)}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !respond.DecodeJSON(w, r, &req) {
		return
	}
	op, err := h.svc.Register(r.Context(), RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		h.resp.Error(w, "register", err)
		return
	}
	respond.Created(w, operatorToResponse(op), "Company registered successfully")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !respond.DecodeJSON(w, r, &req) {
		return
	}
	token, op, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Fail(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.resp.Error(w, "login", err)
		return
	}
	respond.OK(w, LoginResponse{Token: token, User: operatorToResponse(op)})
}

func operatorToResponse(op *Operator) OperatorResponse {
	return OperatorResponse{
		ID:          op.ID.String(),
		CompanyID:   op.CompanyID.String(),
		CompanyName: op.CompanyName,
		Email:       op.Email,
		Name:        op.Name,
		Role:        op.Role,
	}
}
