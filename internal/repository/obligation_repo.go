package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/travelcrm/backend/internal/apperr"
	"github.com/travelcrm/backend/internal/models"
	"github.com/travelcrm/backend/internal/period"
)

const obligationColumns = `
	o.id, o.company_id, o.counterparty_id, o.type, o.category, o.amount, o.paid_amount,
	o.lead_id, o.transaction_date, o.due_date, o.status, o.description, o.created_by,
	o.created_at, o.updated_at`

type ObligationRepo struct {
	pool *pgxpool.Pool
}

func NewObligationRepo(pool *pgxpool.Pool) *ObligationRepo {
	return &ObligationRepo{pool: pool}
}

// ObligationFilter selects the rows returned by List. Nil fields do not filter.
type ObligationFilter struct {
	CompanyID      uuid.UUID
	CounterpartyID uuid.UUID
	Type           *models.ObligationType
	Status         *models.ObligationStatus
	Range          *period.Range
}

// Outstanding holds the open dena (payable) and lena (receivable) totals.
type Outstanding struct {
	Payable    decimal.Decimal
	Receivable decimal.Decimal
}

// IntegritySnapshot is an obligation together with the sum of its payment rows.
type IntegritySnapshot struct {
	Obligation   *models.Obligation
	PaymentsSum  decimal.Decimal
	PaymentCount int
}

func scanObligation(row rowScanner, extra ...any) (*models.Obligation, error) {
	var o models.Obligation
	dest := []any{&o.ID, &o.CompanyID, &o.CounterpartyID, &o.Type, &o.Category, &o.Amount, &o.PaidAmount,
		&o.LeadID, &o.TransactionDate, &o.DueDate, &o.Status, &o.Description, &o.CreatedBy,
		&o.CreatedAt, &o.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *ObligationRepo) Create(ctx context.Context, o *models.Obligation) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO obligations (
			company_id, counterparty_id, type, category, amount, paid_amount, lead_id,
			transaction_date, due_date, status, description, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`, o.CompanyID, o.CounterpartyID, string(o.Type), o.Category, o.Amount, o.PaidAmount, o.LeadID,
		o.TransactionDate, o.DueDate, string(o.Status), o.Description, o.CreatedBy,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

// GetForUpdate loads an obligation of the counterparty and locks its row for
// the rest of tx. Missing, foreign and other-counterparty rows are all NotFound.
func (r *ObligationRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, companyID, counterpartyID, id uuid.UUID) (*models.Obligation, error) {
	row := tx.QueryRow(ctx, `SELECT`+obligationColumns+`
		FROM obligations o
		WHERE o.id = $1 AND o.company_id = $2 AND o.counterparty_id = $3
		FOR UPDATE
	`, id, companyID, counterpartyID)
	o, err := scanObligation(row)
	if err != nil {
		return nil, notFound(err, "Transaction")
	}
	return o, nil
}

// UpdatePaid stores o's paid_amount and status, guarded on the previously read
// paid_amount. Zero affected rows means a concurrent writer won: ErrConflict.
func (r *ObligationRepo) UpdatePaid(ctx context.Context, tx pgx.Tx, o *models.Obligation, oldPaid decimal.Decimal) error {
	err := tx.QueryRow(ctx, `
		UPDATE obligations
		SET paid_amount = $1, status = $2, updated_at = now()
		WHERE id = $3 AND company_id = $4 AND paid_amount = $5
		RETURNING updated_at
	`, o.PaidAmount, string(o.Status), o.ID, o.CompanyID, oldPaid).Scan(&o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrConflict
	}
	return err
}

// InsertPayment appends a payment history row inside tx.
func (r *ObligationRepo) InsertPayment(ctx context.Context, tx pgx.Tx, p *models.ObligationPayment) error {
	return tx.QueryRow(ctx, `
		INSERT INTO obligation_payments (company_id, obligation_id, amount, recorded_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, paid_at
	`, p.CompanyID, p.ObligationID, p.Amount, p.RecordedBy).Scan(&p.ID, &p.PaidAt)
}

// List returns the filtered obligations, newest transaction_date first.
func (r *ObligationRepo) List(ctx context.Context, f ObligationFilter) ([]*models.Obligation, error) {
	query := `SELECT` + obligationColumns + `, l.client_name, l.status
		FROM obligations o
		LEFT JOIN leads l ON l.id = o.lead_id AND l.company_id = o.company_id
		WHERE o.company_id = $1 AND o.counterparty_id = $2`
	args := []any{f.CompanyID, f.CounterpartyID}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Type != nil {
		query += ` AND o.type = ` + next(string(*f.Type))
	}
	if f.Status != nil {
		query += ` AND o.status = ` + next(string(*f.Status))
	}
	if f.Range != nil {
		query += ` AND o.transaction_date BETWEEN ` + next(f.Range.Start) + ` AND ` + next(f.Range.End)
	}
	query += ` ORDER BY o.transaction_date DESC, o.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Obligation
	for rows.Next() {
		var clientName, leadStatus *string
		o, err := scanObligation(rows, &clientName, &leadStatus)
		if err != nil {
			return nil, err
		}
		o.Lead = engagementRef(o.LeadID, clientName, leadStatus)
		list = append(list, o)
	}
	return list, rows.Err()
}

// OutstandingTotals sums amount - paid_amount over the counterparty's open
// obligations. It is never period filtered.
func (r *ObligationRepo) OutstandingTotals(ctx context.Context, companyID, counterpartyID uuid.UUID) (Outstanding, error) {
	var out Outstanding
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount - paid_amount) FILTER (WHERE type = 'payable'), 0),
		       COALESCE(SUM(amount - paid_amount) FILTER (WHERE type = 'receivable'), 0)
		FROM obligations
		WHERE company_id = $1 AND counterparty_id = $2 AND status IN ('pending', 'partial')
	`, companyID, counterpartyID).Scan(&out.Payable, &out.Receivable)
	return out, err
}

// OutstandingByKind returns the tenant-wide open totals grouped by counterparty kind.
// Kinds without obligations are present with zero totals.
func (r *ObligationRepo) OutstandingByKind(ctx context.Context, companyID uuid.UUID) (map[models.CounterpartyKind]Outstanding, error) {
	out := make(map[models.CounterpartyKind]Outstanding, len(models.AllKinds))
	for _, k := range models.AllKinds {
		out[k] = Outstanding{Payable: decimal.Zero, Receivable: decimal.Zero}
	}
	rows, err := r.pool.Query(ctx, `
		SELECT c.kind,
		       COALESCE(SUM(o.amount - o.paid_amount) FILTER (WHERE o.type = 'payable'), 0),
		       COALESCE(SUM(o.amount - o.paid_amount) FILTER (WHERE o.type = 'receivable'), 0)
		FROM obligations o
		JOIN counterparties c ON c.id = o.counterparty_id AND c.company_id = o.company_id
		WHERE o.company_id = $1 AND o.status IN ('pending', 'partial')
		GROUP BY c.kind
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			kind string
			o    Outstanding
		)
		if err := rows.Scan(&kind, &o.Payable, &o.Receivable); err != nil {
			return nil, err
		}
		out[models.CounterpartyKind(kind)] = o
	}
	return out, rows.Err()
}

// IntegritySnapshot reads an obligation and the aggregate of its payment rows.
func (r *ObligationRepo) IntegritySnapshot(ctx context.Context, companyID, id uuid.UUID) (*IntegritySnapshot, error) {
	var s IntegritySnapshot
	row := r.pool.QueryRow(ctx, `SELECT`+obligationColumns+`,
		       COALESCE((SELECT SUM(p.amount) FROM obligation_payments p WHERE p.obligation_id = o.id), 0),
		       (SELECT COUNT(*) FROM obligation_payments p WHERE p.obligation_id = o.id)
		FROM obligations o
		WHERE o.id = $1 AND o.company_id = $2
	`, id, companyID)
	o, err := scanObligation(row, &s.PaymentsSum, &s.PaymentCount)
	if err != nil {
		return nil, notFound(err, "Transaction")
	}
	s.Obligation = o
	return &s, nil
}
