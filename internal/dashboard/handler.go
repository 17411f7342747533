// Package dashboard serves the tenant-wide overall financial summary.
package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/travelcrm/backend/internal/middleware"
	"github.com/travelcrm/backend/internal/models"
	"github.com/travelcrm/backend/internal/period"
	"github.com/travelcrm/backend/internal/repository"
	"github.com/travelcrm/backend/internal/respond"
)

// OutstandingSource returns open payable/receivable totals per counterparty kind.
type OutstandingSource interface {
	OutstandingByKind(ctx context.Context, companyID uuid.UUID) (map[models.CounterpartyKind]repository.Outstanding, error)
}

type Handler struct {
	obligations OutstandingSource
	resp        *respond.Responder
	now         func() time.Time
}

func NewHandler(obligations OutstandingSource, log *slog.Logger, debug bool) *Handler {
	return &Handler{obligations: obligations, resp: respond.New(log, debug), now: time.Now}
}

// Overview is the overall summary. Outstanding totals are stock values; the
// period is echoed for the client but does not filter them.
type Overview struct {
	Period    string
	Range     period.Range
	Dena      map[models.CounterpartyKind]decimal.Decimal
	Lena      map[models.CounterpartyKind]decimal.Decimal
	TotalDena decimal.Decimal
	TotalLena decimal.Decimal
}

// Build sums the per-kind totals into an Overview.
func Build(name string, rng period.Range, byKind map[models.CounterpartyKind]repository.Outstanding) *Overview {
	o := &Overview{
		Period:    name,
		Range:     rng,
		Dena:      make(map[models.CounterpartyKind]decimal.Decimal, len(models.AllKinds)),
		Lena:      make(map[models.CounterpartyKind]decimal.Decimal, len(models.AllKinds)),
		TotalDena: decimal.Zero,
		TotalLena: decimal.Zero,
	}
	for _, k := range models.AllKinds {
		out, ok := byKind[k]
		if !ok {
			out = repository.Outstanding{Payable: decimal.Zero, Receivable: decimal.Zero}
		}
		o.Dena[k] = out.Payable.Round(2)
		o.Lena[k] = out.Receivable.Round(2)
		o.TotalDena = o.TotalDena.Add(out.Payable)
		o.TotalLena = o.TotalLena.Add(out.Receivable)
	}
	o.TotalDena = o.TotalDena.Round(2)
	o.TotalLena = o.TotalLena.Round(2)
	return o
}

// GET /api/v1/finance/overall-summary
func (h *Handler) OverallSummary(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		respond.Fail(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}
	q, err := period.FromValues(r.URL.Query(), true)
	if err != nil {
		h.resp.Error(w, "overall summary", err)
		return
	}
	rng, err := period.Resolve(q.Name, q.Start, q.End, h.now())
	if err != nil {
		h.resp.Error(w, "overall summary", err)
		return
	}
	byKind, err := h.obligations.OutstandingByKind(r.Context(), ident.CompanyID)
	if err != nil {
		h.resp.Error(w, "overall summary", err)
		return
	}
	respond.OK(w, toResponse(Build(q.Name, rng, byKind)))
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func toResponse(o *Overview) map[string]any {
	dena := map[string]json.Number{"total": money(o.TotalDena)}
	lena := map[string]json.Number{"total": money(o.TotalLena)}
	for _, k := range models.AllKinds {
		dena[k.Plural()] = money(o.Dena[k])
		lena[k.Plural()] = money(o.Lena[k])
	}
	return map[string]any{
		"period": o.Period,
		"date_range": map[string]string{
			"start_date": o.Range.StartDate(),
			"end_date":   o.Range.EndDate(),
		},
		"summary": map[string]json.Number{
			"kitna_dena": money(o.TotalDena),
			"kitna_lena": money(o.TotalLena),
			"balance":    money(o.TotalLena.Sub(o.TotalDena)),
		},
		"breakdown": map[string]any{
			"dena": dena,
			"lena": lena,
		},
	}
}
