package models

import "github.com/google/uuid"

// Operator roles.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Identity is the authenticated operator behind a request. CompanyID is the
// tenant every query is scoped to.
type Identity struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	Role      string
}
