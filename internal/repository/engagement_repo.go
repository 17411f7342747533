package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/travelcrm/backend/internal/models"
)

// EngagementRepo reads leads and lead payments. Both tables belong to the CRM;
// nothing here writes them.
type EngagementRepo struct {
	pool *pgxpool.Pool
}

func NewEngagementRepo(pool *pgxpool.Pool) *EngagementRepo {
	return &EngagementRepo{pool: pool}
}

func (r *EngagementRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Engagement, error) {
	var e models.Engagement
	err := r.pool.QueryRow(ctx, `
		SELECT id, company_id, client_name, status, estimated_value, created_at
		FROM leads WHERE id = $1 AND company_id = $2
	`, id, companyID).Scan(&e.ID, &e.CompanyID, &e.ClientName, &e.Status, &e.EstimatedValue, &e.CreatedAt)
	if err != nil {
		return nil, notFound(err, "Lead")
	}
	return &e, nil
}

// ListByIDs returns the tenant's engagements among ids. Unknown ids are skipped.
func (r *EngagementRepo) ListByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]*models.Engagement, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, client_name, status, estimated_value, created_at
		FROM leads WHERE company_id = $1 AND id = ANY($2::uuid[])
	`, companyID, uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Engagement
	for rows.Next() {
		var e models.Engagement
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.ClientName, &e.Status, &e.EstimatedValue, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

// PaymentTotals returns the sum of recorded payments per engagement, regardless
// of payment date. Engagements without payments are absent from the map.
func (r *EngagementRepo) PaymentTotals(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT lead_id, SUM(amount)
		FROM lead_payments
		WHERE company_id = $1 AND lead_id = ANY($2::uuid[])
		GROUP BY lead_id
	`, companyID, uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id    uuid.UUID
			total decimal.Decimal
		)
		if err := rows.Scan(&id, &total); err != nil {
			return nil, err
		}
		out[id] = total
	}
	return out, rows.Err()
}

// AverageConfirmedPayments is the mean payment total of confirmed engagements
// created at or after since. ok is false when there are none.
func (r *EngagementRepo) AverageConfirmedPayments(ctx context.Context, companyID uuid.UUID, since time.Time) (avg decimal.Decimal, ok bool, err error) {
	var (
		mean decimal.NullDecimal
		n    int64
	)
	err = r.pool.QueryRow(ctx, `
		SELECT AVG(t.total), COUNT(*)
		FROM (
			SELECT l.id, COALESCE(SUM(p.amount), 0) AS total
			FROM leads l
			LEFT JOIN lead_payments p ON p.lead_id = l.id AND p.company_id = l.company_id
			WHERE l.company_id = $1 AND l.status = 'confirmed' AND l.created_at >= $2
			GROUP BY l.id
		) t
	`, companyID, since).Scan(&mean, &n)
	if err != nil {
		return decimal.Zero, false, err
	}
	if n == 0 || !mean.Valid {
		return decimal.Zero, false, nil
	}
	return mean.Decimal, true, nil
}
