package registry

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/travelcrm/backend/internal/apperr"
	"github.com/travelcrm/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateParams struct {
	CompanyID   uuid.UUID
	Kind        models.CounterpartyKind
	Name        string
	CompanyName *string
	Email       *string
	Destination *string
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (*models.Counterparty, error) {
	c := &models.Counterparty{
		CompanyID:   p.CompanyID,
		Kind:        p.Kind,
		Name:        p.Name,
		CompanyName: p.CompanyName,
		Email:       p.Email,
		Destination: p.Destination,
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO counterparties (company_id, kind, name, company_name, email, destination, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, status, created_at
	`, p.CompanyID, string(p.Kind), p.Name, p.CompanyName, p.Email, p.Destination, models.CounterpartyStatusActive)
	if err := row.Scan(&c.ID, &c.Status, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the tenant's counterparty of kind. A row of another tenant or
// another kind is reported exactly like a missing one.
func (r *Repository) Get(ctx context.Context, companyID uuid.UUID, kind models.CounterpartyKind, id uuid.UUID) (*models.Counterparty, error) {
	var c models.Counterparty
	err := r.pool.QueryRow(ctx, `
		SELECT id, company_id, kind, name, company_name, email, destination, status, created_at
		FROM counterparties
		WHERE id = $1 AND company_id = $2 AND kind = $3
	`, id, companyID, string(kind)).Scan(&c.ID, &c.CompanyID, &c.Kind, &c.Name, &c.CompanyName,
		&c.Email, &c.Destination, &c.Status, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(Label(kind))
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repository) ListByKind(ctx context.Context, companyID uuid.UUID, kind models.CounterpartyKind) ([]*models.Counterparty, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, kind, name, company_name, email, destination, status, created_at
		FROM counterparties
		WHERE company_id = $1 AND kind = $2
		ORDER BY name
	`, companyID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Counterparty
	for rows.Next() {
		var c models.Counterparty
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Kind, &c.Name, &c.CompanyName,
			&c.Email, &c.Destination, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

// Label is the display name of a kind ("Supplier", "Vehicle", "Hotel").
func Label(kind models.CounterpartyKind) string {
	s := string(kind)
	if s == "" {
		return "Counterparty"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
