package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/travelcrm/backend/internal/config"
	"github.com/travelcrm/backend/internal/models"
	"github.com/travelcrm/backend/internal/period"
	"github.com/travelcrm/backend/internal/repository"
)

type CounterpartyReader interface {
	Get(ctx context.Context, companyID uuid.UUID, kind models.CounterpartyKind, id uuid.UUID) (*models.Counterparty, error)
}

type CostTotaler interface {
	PeriodTotals(ctx context.Context, companyID, counterpartyID uuid.UUID, rng period.Range) (*repository.CostTotals, error)
	CounterpartyCounts(ctx context.Context, companyID uuid.UUID, kind models.CounterpartyKind, leadIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type EngagementReader interface {
	ListByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]*models.Engagement, error)
	PaymentTotals(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

type OutstandingReader interface {
	OutstandingTotals(ctx context.Context, companyID, counterpartyID uuid.UUID) (repository.Outstanding, error)
}

// Summary is the reconciliation of one counterparty over one period.
// Dena, Lena and Balance are stock values and ignore the period.
type Summary struct {
	Counterparty *models.Counterparty
	Period       string
	Range        period.Range

	Revenue   decimal.Decimal
	Cost      decimal.Decimal
	Profit    decimal.Decimal
	Loss      decimal.Decimal
	NetProfit decimal.Decimal
	Dena      decimal.Decimal
	Lena      decimal.Decimal
	Balance   decimal.Decimal
}

// Reconciler computes counterparty summaries from current ledger rows. It
// holds no state between calls.
type Reconciler struct {
	Counterparties CounterpartyReader
	Costs          CostTotaler
	Engagements    EngagementReader
	Obligations    OutstandingReader
	Loss           *LossEstimator
	RevenueScope   string
	Now            func() time.Time
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Summarize reconciles counterparty id of kind over the period named by q.
func (r *Reconciler) Summarize(ctx context.Context, companyID uuid.UUID, kind models.CounterpartyKind, id uuid.UUID, q period.Query) (*Summary, error) {
	cp, err := r.Counterparties.Get(ctx, companyID, kind, id)
	if err != nil {
		return nil, err
	}
	now := r.now()
	rng, err := period.Resolve(q.Name, q.Start, q.End, now)
	if err != nil {
		return nil, err
	}

	totals, err := r.Costs.PeriodTotals(ctx, companyID, id, rng)
	if err != nil {
		return nil, fmt.Errorf("cost totals: %w", err)
	}
	touched, err := r.Engagements.ListByIDs(ctx, companyID, totals.LeadIDs)
	if err != nil {
		return nil, fmt.Errorf("touched engagements: %w", err)
	}
	confirmed, cancelled := confirmedAndCancelled(touched)

	revenue := decimal.Zero
	if kind.RecordsRevenue() && totals.Revenue.Sign() > 0 {
		revenue = totals.Revenue
	} else {
		revenue, err = r.paymentRevenue(ctx, companyID, kind, confirmed)
		if err != nil {
			return nil, err
		}
	}

	loss := decimal.Zero
	if r.Loss != nil {
		if loss, err = r.Loss.Total(ctx, companyID, cancelled, now); err != nil {
			return nil, fmt.Errorf("loss estimate: %w", err)
		}
	}

	open, err := r.Obligations.OutstandingTotals(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("outstanding totals: %w", err)
	}

	profit := revenue.Sub(totals.Cost).Round(2)
	return &Summary{
		Counterparty: cp,
		Period:       q.Name,
		Range:        rng,
		Revenue:      revenue.Round(2),
		Cost:         totals.Cost.Round(2),
		Profit:       profit,
		Loss:         loss.Round(2),
		NetProfit:    profit.Sub(loss).Round(2),
		Dena:         open.Payable.Round(2),
		Lena:         open.Receivable.Round(2),
		Balance:      open.Receivable.Sub(open.Payable).Round(2),
	}, nil
}

func (r *Reconciler) paymentRevenue(ctx context.Context, companyID uuid.UUID, kind models.CounterpartyKind, confirmed []*models.Engagement) (decimal.Decimal, error) {
	if len(confirmed) == 0 {
		return decimal.Zero, nil
	}
	leadIDs := ids(confirmed)
	payments, err := r.Engagements.PaymentTotals(ctx, companyID, leadIDs)
	if err != nil {
		return decimal.Zero, fmt.Errorf("engagement payments: %w", err)
	}
	var shares map[uuid.UUID]int
	if r.RevenueScope == config.RevenueScopeShare {
		if shares, err = r.Costs.CounterpartyCounts(ctx, companyID, kind, leadIDs); err != nil {
			return decimal.Zero, fmt.Errorf("counterparty shares: %w", err)
		}
	}
	return PaymentRevenue(r.RevenueScope, confirmed, payments, shares), nil
}
