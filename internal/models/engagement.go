package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lead status values read by the reconciliation engine. Other statuses exist
// in the CRM and are carried through unchanged.
const (
	LeadStatusNew       = "new"
	LeadStatusConfirmed = "confirmed"
	LeadStatusCancelled = "cancelled"
)

// Engagement is a client booking (lead). The CRM owns the row; this service
// only reads it.
type Engagement struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID
	ClientName     string
	Status         string
	EstimatedValue decimal.NullDecimal
	CreatedAt      time.Time
}

// EngagementRef is the minimal lead identity joined onto ledger rows for display.
type EngagementRef struct {
	ID         uuid.UUID `json:"id"`
	ClientName string    `json:"client_name"`
	Status     string    `json:"status,omitempty"`
}
