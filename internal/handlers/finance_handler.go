package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/travelcrm/backend/internal/apperr"
	"github.com/travelcrm/backend/internal/ledger"
	"github.com/travelcrm/backend/internal/middleware"
	"github.com/travelcrm/backend/internal/models"
	"github.com/travelcrm/backend/internal/period"
	"github.com/travelcrm/backend/internal/respond"
	"github.com/travelcrm/backend/internal/services"
)

// Summarizer computes counterparty reconciliations.
type Summarizer interface {
	Summarize(ctx context.Context, companyID uuid.UUID, kind models.CounterpartyKind, id uuid.UUID, q period.Query) (*services.Summary, error)
}

// FinanceHandler serves the per-counterparty finance endpoints under
// /api/v1/{kind}/{id}.
type FinanceHandler struct {
	Ledger     ledger.Service
	Reconciler Summarizer
	Resp       *respond.Responder
	Now        func() time.Time
}

func (h *FinanceHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// target is the authenticated tenant plus the counterparty addressed by the path.
type target struct {
	ident *models.Identity
	kind  models.CounterpartyKind
	id    uuid.UUID
}

func (h *FinanceHandler) resolve(w http.ResponseWriter, r *http.Request) (target, bool) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		respond.Fail(w, http.StatusUnauthorized, "Unauthenticated")
		return target{}, false
	}
	kind, ok := respond.PathKind(w, r)
	if !ok {
		return target{}, false
	}
	id, ok := respond.PathUUID(w, r, "id", label(kind))
	if !ok {
		return target{}, false
	}
	return target{ident: ident, kind: kind, id: id}, true
}

func label(kind models.CounterpartyKind) string {
	s := string(kind)
	return strings.ToUpper(s[:1]) + s[1:]
}

// --- GET /api/v1/{kind}/{id}/financial-summary ---

func (h *FinanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	q, err := period.FromValues(r.URL.Query(), true)
	if err != nil {
		h.Resp.Error(w, "financial summary", err)
		return
	}
	s, err := h.Reconciler.Summarize(r.Context(), t.ident.CompanyID, t.kind, t.id, q)
	if err != nil {
		h.Resp.Error(w, "financial summary", err)
		return
	}
	respond.OK(w, summaryToResponse(s))
}

// --- POST /api/v1/{kind}/{id}/lead-costs ---

type recordCostRequest struct {
	LeadID          uuid.UUID        `json:"lead_id"`
	CostAmount      decimal.Decimal  `json:"cost_amount"`
	RevenueAmount   *decimal.Decimal `json:"revenue_amount"`
	ServiceType     *string          `json:"service_type"`
	TransactionDate string           `json:"transaction_date"`
	Description     *string          `json:"description"`
}

func (h *FinanceHandler) RecordCost(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var req recordCostRequest
	if !respond.DecodeJSON(w, r, &req) {
		return
	}
	day, err := parseDateField("RecordCost", "transaction_date", req.TransactionDate)
	if err != nil {
		h.Resp.Error(w, "record cost", err)
		return
	}
	e, err := h.Ledger.RecordCost(r.Context(), ledger.RecordCostInput{
		CompanyID:       t.ident.CompanyID,
		Kind:            t.kind,
		CounterpartyID:  t.id,
		LeadID:          req.LeadID,
		CostAmount:      req.CostAmount,
		RevenueAmount:   req.RevenueAmount,
		ServiceType:     req.ServiceType,
		TransactionDate: day,
		Description:     req.Description,
		CreatedBy:       &t.ident.UserID,
	})
	if err != nil {
		h.Resp.Error(w, "record cost", err)
		return
	}
	respond.Created(w, map[string]any{"cost": costToResponse(t.kind, e)}, "Lead "+string(t.kind)+" cost added successfully")
}

// --- GET /api/v1/{kind}/{id}/lead-costs ---

func (h *FinanceHandler) ListCosts(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	rng, err := optionalRange(r, h.now())
	if err != nil {
		h.Resp.Error(w, "list costs", err)
		return
	}
	out, err := h.Ledger.ListCosts(r.Context(), ledger.ListCostsInput{
		CompanyID:      t.ident.CompanyID,
		Kind:           t.kind,
		CounterpartyID: t.id,
		Range:          rng,
	})
	if err != nil {
		h.Resp.Error(w, "list costs", err)
		return
	}
	costs := make([]costResponse, 0, len(out.Costs))
	for _, e := range out.Costs {
		costs = append(costs, costToResponse(t.kind, e))
	}
	data := map[string]any{
		string(t.kind): refOf(out.Counterparty),
		"costs":        costs,
		"total_cost":   money(out.TotalCost),
	}
	if out.TotalRevenue != nil {
		data["total_revenue"] = money(*out.TotalRevenue)
	}
	respond.OK(w, data)
}

// --- POST /api/v1/{kind}/{id}/financial-transactions ---

type recordObligationRequest struct {
	Type            string          `json:"type"`
	Category        *string         `json:"category"`
	Amount          decimal.Decimal `json:"amount"`
	LeadID          *uuid.UUID      `json:"lead_id"`
	TransactionDate string          `json:"transaction_date"`
	DueDate         *string         `json:"due_date"`
	Description     *string         `json:"description"`
}

func (h *FinanceHandler) RecordObligation(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var req recordObligationRequest
	if !respond.DecodeJSON(w, r, &req) {
		return
	}
	verr := apperr.Validation("RecordObligation")
	day, err := period.ParseDate(req.TransactionDate)
	if err != nil {
		verr.Add("transaction_date", "The transaction date is not a valid date.")
	}
	var due *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		d, err := period.ParseDate(*req.DueDate)
		if err != nil {
			verr.Add("due_date", "The due date is not a valid date.")
		}
		due = &d
	}
	if err := verr.OrNil(); err != nil {
		h.Resp.Error(w, "record obligation", err)
		return
	}
	o, err := h.Ledger.RecordObligation(r.Context(), ledger.RecordObligationInput{
		CompanyID:       t.ident.CompanyID,
		Kind:            t.kind,
		CounterpartyID:  t.id,
		Type:            models.ObligationType(req.Type),
		Category:        req.Category,
		Amount:          req.Amount,
		LeadID:          req.LeadID,
		TransactionDate: day,
		DueDate:         due,
		Description:     req.Description,
		CreatedBy:       &t.ident.UserID,
	})
	if err != nil {
		h.Resp.Error(w, "record obligation", err)
		return
	}
	msg := "Receivable added successfully"
	if o.Type == models.ObligationPayable {
		msg = "Payable added successfully"
	}
	respond.Created(w, map[string]any{"transaction": obligationToResponse(o)}, msg)
}

// --- GET /api/v1/{kind}/{id}/financial-transactions ---

func (h *FinanceHandler) ListObligations(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	rng, err := optionalRange(r, h.now())
	if err != nil {
		h.Resp.Error(w, "list obligations", err)
		return
	}
	q := r.URL.Query()
	out, err := h.Ledger.ListObligations(r.Context(), ledger.ListObligationsInput{
		CompanyID:      t.ident.CompanyID,
		Kind:           t.kind,
		CounterpartyID: t.id,
		Type:           q.Get("type"),
		Status:         q.Get("status"),
		Range:          rng,
	})
	if err != nil {
		h.Resp.Error(w, "list obligations", err)
		return
	}
	rows := make([]obligationResponse, 0, len(out.Transactions))
	for _, o := range out.Transactions {
		rows = append(rows, obligationToResponse(o))
	}
	respond.OK(w, map[string]any{
		string(t.kind):                 refOf(out.Counterparty),
		"transactions":                 rows,
		"total_payable_outstanding":    money(out.TotalPayableOutstanding),
		"total_receivable_outstanding": money(out.TotalReceivableOutstanding),
	})
}

// --- POST /api/v1/{kind}/{id}/financial-transactions/{transactionId}/payment ---

type recordPaymentRequest struct {
	PaidAmount decimal.Decimal `json:"paid_amount"`
}

func (h *FinanceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	txID, ok := respond.PathUUID(w, r, "transactionId", "Transaction")
	if !ok {
		return
	}
	var req recordPaymentRequest
	if !respond.DecodeJSON(w, r, &req) {
		return
	}
	receipt, err := h.Ledger.RecordPayment(r.Context(), ledger.RecordPaymentInput{
		CompanyID:      t.ident.CompanyID,
		Kind:           t.kind,
		CounterpartyID: t.id,
		ObligationID:   txID,
		Amount:         req.PaidAmount,
		RecordedBy:     &t.ident.UserID,
	})
	if err != nil {
		h.Resp.Error(w, "record payment", err)
		return
	}
	p := receipt.Payment
	respond.JSON(w, http.StatusOK, respond.Envelope{
		Success: true,
		Message: "Payment recorded successfully",
		Data: map[string]any{
			"transaction": obligationToResponse(receipt.Obligation),
			"payment":     paymentResponse{ID: p.ID, Amount: money(p.Amount), RecordedBy: p.RecordedBy, PaidAt: p.PaidAt},
		},
	})
}

// --- helpers ---

func optionalRange(r *http.Request, now time.Time) (*period.Range, error) {
	q, err := period.FromValues(r.URL.Query(), false)
	if err != nil {
		return nil, err
	}
	return q.Optional(now)
}

func parseDateField(op, field, s string) (time.Time, error) {
	d, err := period.ParseDate(s)
	if err != nil {
		return time.Time{}, apperr.Validation(op).Add(field, "The "+strings.ReplaceAll(field, "_", " ")+" is not a valid date.")
	}
	return d, nil
}
