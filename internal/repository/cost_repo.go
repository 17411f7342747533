package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/travelcrm/backend/internal/models"
	"github.com/travelcrm/backend/internal/period"
)

type CostRepo struct {
	pool *pgxpool.Pool
}

func NewCostRepo(pool *pgxpool.Pool) *CostRepo {
	return &CostRepo{pool: pool}
}

// CostTotals aggregates the cost entries of one counterparty within a period.
type CostTotals struct {
	Cost    decimal.Decimal
	Revenue decimal.Decimal
	// LeadIDs are the distinct engagements touched by the entries.
	LeadIDs []uuid.UUID
}

func (r *CostRepo) Create(ctx context.Context, e *models.CostEntry) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO cost_entries (
			company_id, lead_id, counterparty_id, cost_amount, revenue_amount,
			service_type, transaction_date, description, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, e.CompanyID, e.LeadID, e.CounterpartyID, e.CostAmount, e.RevenueAmount,
		e.ServiceType, e.TransactionDate, e.Description, e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt)
}

// ListByCounterparty returns the counterparty's entries, newest first. A nil
// rng returns every entry.
func (r *CostRepo) ListByCounterparty(ctx context.Context, companyID, counterpartyID uuid.UUID, rng *period.Range) ([]*models.CostEntry, error) {
	query := `
		SELECT ce.id, ce.company_id, ce.lead_id, ce.counterparty_id, ce.cost_amount,
		       ce.revenue_amount, ce.service_type, ce.transaction_date, ce.description,
		       ce.created_by, ce.created_at, l.client_name, l.status
		FROM cost_entries ce
		LEFT JOIN leads l ON l.id = ce.lead_id AND l.company_id = ce.company_id
		WHERE ce.company_id = $1 AND ce.counterparty_id = $2`
	args := []any{companyID, counterpartyID}
	if rng != nil {
		query += ` AND ce.transaction_date BETWEEN $3 AND $4`
		args = append(args, rng.Start, rng.End)
	}
	query += ` ORDER BY ce.transaction_date DESC, ce.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CostEntry
	for rows.Next() {
		var (
			e          models.CostEntry
			clientName *string
			leadStatus *string
		)
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.LeadID, &e.CounterpartyID, &e.CostAmount,
			&e.RevenueAmount, &e.ServiceType, &e.TransactionDate, &e.Description,
			&e.CreatedBy, &e.CreatedAt, &clientName, &leadStatus); err != nil {
			return nil, err
		}
		e.Lead = engagementRef(&e.LeadID, clientName, leadStatus)
		list = append(list, &e)
	}
	return list, rows.Err()
}

// PeriodTotals sums the counterparty's entries whose transaction_date falls
// in rng (inclusive) and collects the engagements they touch.
func (r *CostRepo) PeriodTotals(ctx context.Context, companyID, counterpartyID uuid.UUID, rng period.Range) (*CostTotals, error) {
	var (
		t       CostTotals
		leadIDs []string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(cost_amount), 0),
		       COALESCE(SUM(revenue_amount), 0),
		       COALESCE(array_agg(DISTINCT lead_id::text), '{}')
		FROM cost_entries
		WHERE company_id = $1 AND counterparty_id = $2
		  AND transaction_date BETWEEN $3 AND $4
	`, companyID, counterpartyID, rng.Start, rng.End).Scan(&t.Cost, &t.Revenue, &leadIDs)
	if err != nil {
		return nil, err
	}
	if t.LeadIDs, err = parseUUIDs(leadIDs); err != nil {
		return nil, fmt.Errorf("period totals: %w", err)
	}
	return &t, nil
}

// CounterpartyCounts returns, per engagement, how many distinct counterparties
// of kind have cost entries on it.
func (r *CostRepo) CounterpartyCounts(ctx context.Context, companyID uuid.UUID, kind models.CounterpartyKind, leadIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(leadIDs))
	if len(leadIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT ce.lead_id, COUNT(DISTINCT ce.counterparty_id)
		FROM cost_entries ce
		JOIN counterparties c ON c.id = ce.counterparty_id AND c.company_id = ce.company_id
		WHERE ce.company_id = $1 AND c.kind = $2 AND ce.lead_id = ANY($3::uuid[])
		GROUP BY ce.lead_id
	`, companyID, string(kind), uuidStrings(leadIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id uuid.UUID
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}
