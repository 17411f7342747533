package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ObligationType distinguishes money the tenant owes (dena) from money owed to it (lena).
type ObligationType string

const (
	ObligationPayable    ObligationType = "payable"
	ObligationReceivable ObligationType = "receivable"
)

// Valid reports whether t is payable or receivable.
func (t ObligationType) Valid() bool {
	return t == ObligationPayable || t == ObligationReceivable
}

// ObligationStatus is derived from paid_amount and amount; it is never set by callers.
type ObligationStatus string

const (
	StatusPending ObligationStatus = "pending"
	StatusPartial ObligationStatus = "partial"
	StatusPaid    ObligationStatus = "paid"
	StatusSettled ObligationStatus = "settled"
)

// Valid reports whether s is one of the four statuses.
func (s ObligationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusPaid, StatusSettled:
		return true
	}
	return false
}

// Open reports whether an obligation in status s still has an outstanding balance.
func (s ObligationStatus) Open() bool {
	return s == StatusPending || s == StatusPartial
}

// DefaultCategory is used when an obligation is created without a category.
const DefaultCategory = "other"

// ErrNonPositivePayment is returned for a zero or negative payment increment.
var ErrNonPositivePayment = errors.New("paid amount must be greater than zero")

// MaxAmount is the largest value a NUMERIC(12,2) money column holds.
var MaxAmount = decimal.RequireFromString("9999999999.99")

var (
	ErrAmountPrecision = errors.New("amount has more than 2 decimal places")
	ErrAmountTooLarge  = errors.New("amount exceeds 9999999999.99")
)

// CheckMoney returns an error unless d fits a NUMERIC(12,2) column unrounded.
func CheckMoney(d decimal.Decimal) error {
	if !d.Equal(d.Round(2)) {
		return ErrAmountPrecision
	}
	if d.Abs().GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}

// OverpaymentError is returned when a payment would push paid_amount above amount.
type OverpaymentError struct {
	Outstanding decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("paid amount cannot exceed outstanding amount (%s)", e.Outstanding.StringFixed(2))
}

// DeriveStatus maps (paid, amount) onto the obligation status. The terminal
// label is "paid" for payables and "settled" for receivables.
func DeriveStatus(t ObligationType, paid, amount decimal.Decimal) ObligationStatus {
	switch {
	case paid.Sign() <= 0:
		return StatusPending
	case paid.LessThan(amount):
		return StatusPartial
	case t == ObligationReceivable:
		return StatusSettled
	default:
		return StatusPaid
	}
}

// Obligation is a payable or receivable towards a counterparty.
// Invariant: 0 <= PaidAmount <= Amount.
type Obligation struct {
	ID              uuid.UUID
	CompanyID       uuid.UUID
	CounterpartyID  uuid.UUID
	Type            ObligationType
	Category        string
	Amount          decimal.Decimal
	PaidAmount      decimal.Decimal
	LeadID          *uuid.UUID
	TransactionDate time.Time
	DueDate         *time.Time
	Status          ObligationStatus
	Description     *string
	CreatedBy       *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Lead *EngagementRef
}

// Outstanding is amount - paid_amount.
func (o *Obligation) Outstanding() decimal.Decimal {
	return o.Amount.Sub(o.PaidAmount)
}

// ApplyPayment returns a copy of o with incr added to PaidAmount and the
// status re-derived. o itself is never modified, so a rejected payment
// leaves the caller's entry untouched.
func (o *Obligation) ApplyPayment(incr decimal.Decimal) (*Obligation, error) {
	if incr.Sign() <= 0 {
		return nil, ErrNonPositivePayment
	}
	if err := CheckMoney(incr); err != nil {
		return nil, err
	}
	outstanding := o.Outstanding()
	if incr.GreaterThan(outstanding) {
		return nil, &OverpaymentError{Outstanding: outstanding}
	}
	next := *o
	next.PaidAmount = o.PaidAmount.Add(incr)
	next.Status = DeriveStatus(o.Type, next.PaidAmount, o.Amount)
	return &next, nil
}

// ObligationPayment is one settlement recorded against an obligation.
type ObligationPayment struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	ObligationID uuid.UUID
	Amount       decimal.Decimal
	RecordedBy   *uuid.UUID
	PaidAt       time.Time
}
