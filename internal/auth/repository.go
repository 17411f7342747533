package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/travelcrm/backend/internal/apperr"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateWithCompany inserts the company and its operator in one statement.
func (r *Repository) CreateWithCompany(ctx context.Context, companyName, email, passwordHash, name, role string) (*Operator, error) {
	op := &Operator{CompanyName: companyName, Email: email, Name: name, Role: role}
	row := r.pool.QueryRow(ctx, `
		WITH c AS (
			INSERT INTO companies (name) VALUES ($1)
			RETURNING id
		)
		INSERT INTO users (company_id, email, password_hash, name, role)
		SELECT c.id, $2, $3, $4, $5 FROM c
		RETURNING id, company_id
	`, companyName, email, passwordHash, name, role)
	if err := row.Scan(&op.ID, &op.CompanyID); err != nil {
		return nil, err
	}
	return op, nil
}

// GetByEmail returns the operator and password hash for login.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Operator, string, error) {
	var (
		op   Operator
		hash string
	)
	row := r.pool.QueryRow(ctx, `
		SELECT u.id, u.company_id, c.name, u.email, u.name, u.role, u.password_hash
		FROM users u
		JOIN companies c ON c.id = u.company_id
		WHERE u.email = $1
	`, email)
	if err := row.Scan(&op.ID, &op.CompanyID, &op.CompanyName, &op.Email, &op.Name, &op.Role, &hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperr.NotFound("User")
		}
		return nil, "", err
	}
	return &op, hash, nil
}
