package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostEntry records what an engagement cost when sourced through a
// counterparty. Entries are append-only.
type CostEntry struct {
	ID              uuid.UUID
	CompanyID       uuid.UUID
	LeadID          uuid.UUID
	CounterpartyID  uuid.UUID
	CostAmount      decimal.Decimal
	RevenueAmount   decimal.Decimal
	ServiceType     *string
	TransactionDate time.Time
	Description     *string
	CreatedBy       *uuid.UUID
	CreatedAt       time.Time

	Lead *EngagementRef
}
