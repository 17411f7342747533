package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/travelcrm/backend/internal/apperr"
	"github.com/travelcrm/backend/internal/execution"
	"github.com/travelcrm/backend/internal/models"
	"github.com/travelcrm/backend/internal/period"
	"github.com/travelcrm/backend/internal/repository"
)

type RecordObligationInput struct {
	CompanyID       uuid.UUID
	Kind            models.CounterpartyKind
	CounterpartyID  uuid.UUID
	Type            models.ObligationType
	Category        *string
	Amount          decimal.Decimal
	LeadID          *uuid.UUID
	TransactionDate time.Time
	DueDate         *time.Time
	Description     *string
	CreatedBy       *uuid.UUID
}

type RecordPaymentInput struct {
	CompanyID      uuid.UUID
	Kind           models.CounterpartyKind
	CounterpartyID uuid.UUID
	ObligationID   uuid.UUID
	Amount         decimal.Decimal
	RecordedBy     *uuid.UUID
}

// PaymentReceipt is the obligation after a payment and the history row written for it.
type PaymentReceipt struct {
	Obligation *models.Obligation
	Payment    *models.ObligationPayment
}

type ListObligationsInput struct {
	CompanyID      uuid.UUID
	Kind           models.CounterpartyKind
	CounterpartyID uuid.UUID
	Type           string
	Status         string
	Range          *period.Range
}

// ObligationList holds the filtered obligations and the open totals over them.
type ObligationList struct {
	Counterparty               *models.Counterparty
	Transactions               []*models.Obligation
	TotalPayableOutstanding    decimal.Decimal
	TotalReceivableOutstanding decimal.Decimal
}

func (s *service) RecordObligation(ctx context.Context, in RecordObligationInput) (*models.Obligation, error) {
	if _, err := s.counterparties.Get(ctx, in.CompanyID, in.Kind, in.CounterpartyID); err != nil {
		return nil, err
	}

	verr := apperr.Validation("RecordObligation")
	if !in.Type.Valid() {
		verr.Add("type", "The selected type is invalid.")
	}
	category := models.DefaultCategory
	if in.Category != nil {
		c := strings.TrimSpace(*in.Category)
		switch {
		case c == "":
			verr.Add("category", "The category must not be empty.")
		case utf8.RuneCountInString(c) > 50:
			verr.Add("category", "The category may not be greater than 50 characters.")
		default:
			category = c
		}
	}
	if in.Amount.Sign() <= 0 {
		verr.Add("amount", "The amount must be greater than 0.")
	} else if err := models.CheckMoney(in.Amount); err != nil {
		verr.Add("amount", moneyMessage("amount", err))
	}
	if in.TransactionDate.IsZero() {
		verr.Add("transaction_date", "The transaction date field is required.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if in.LeadID != nil {
		if _, err := s.engagements.GetByID(ctx, in.CompanyID, *in.LeadID); err != nil {
			return nil, err
		}
	}

	o := &models.Obligation{
		CompanyID:       in.CompanyID,
		CounterpartyID:  in.CounterpartyID,
		Type:            in.Type,
		Category:        category,
		Amount:          in.Amount,
		PaidAmount:      decimal.Zero,
		LeadID:          in.LeadID,
		TransactionDate: in.TransactionDate,
		DueDate:         in.DueDate,
		Status:          models.StatusPending,
		Description:     in.Description,
		CreatedBy:       in.CreatedBy,
	}
	if err := s.obligations.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("record obligation: %w", err)
	}
	return o, nil
}

// RecordPayment adds in.Amount to an obligation's paid_amount. The row is
// locked for the whole transaction, so concurrent payments on one obligation
// apply one after the other and each sees the previous result.
func (s *service) RecordPayment(ctx context.Context, in RecordPaymentInput) (*PaymentReceipt, error) {
	if _, err := s.counterparties.Get(ctx, in.CompanyID, in.Kind, in.CounterpartyID); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin payment tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.obligations.GetForUpdate(ctx, tx, in.CompanyID, in.CounterpartyID, in.ObligationID)
	if err != nil {
		return nil, err
	}

	next, err := current.ApplyPayment(in.Amount)
	if err != nil {
		return nil, paymentValidation(err)
	}
	if err := s.obligations.UpdatePaid(ctx, tx, next, current.PaidAmount); err != nil {
		return nil, fmt.Errorf("update paid amount: %w", err)
	}

	payment := &models.ObligationPayment{
		CompanyID:    in.CompanyID,
		ObligationID: next.ID,
		Amount:       in.Amount,
		RecordedBy:   in.RecordedBy,
	}
	if err := s.obligations.InsertPayment(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	if err := s.insertCheck(ctx, tx, execution.IntegrityCheckArgs{CompanyID: in.CompanyID, ObligationID: next.ID}); err != nil {
		return nil, fmt.Errorf("enqueue integrity check: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}
	return &PaymentReceipt{Obligation: next, Payment: payment}, nil
}

func paymentValidation(err error) error {
	verr := apperr.Validation("RecordPayment")
	var over *models.OverpaymentError
	switch {
	case errors.As(err, &over):
		msg := fmt.Sprintf("Paid amount cannot exceed outstanding amount (%s)", over.Outstanding.StringFixed(2))
		return verr.WithMessage(msg).Add("paid_amount", msg)
	case errors.Is(err, models.ErrNonPositivePayment):
		return verr.Add("paid_amount", "The paid amount must be greater than 0.")
	case errors.Is(err, models.ErrAmountPrecision), errors.Is(err, models.ErrAmountTooLarge):
		return verr.Add("paid_amount", moneyMessage("paid amount", err))
	}
	return err
}

// moneyMessage renders a CheckMoney failure for the named field.
func moneyMessage(label string, err error) string {
	if errors.Is(err, models.ErrAmountTooLarge) {
		return "The " + label + " may not be greater than " + models.MaxAmount.StringFixed(2) + "."
	}
	return "The " + label + " must have at most 2 decimal places."
}

func (s *service) ListObligations(ctx context.Context, in ListObligationsInput) (*ObligationList, error) {
	cp, err := s.counterparties.Get(ctx, in.CompanyID, in.Kind, in.CounterpartyID)
	if err != nil {
		return nil, err
	}

	f := repository.ObligationFilter{CompanyID: in.CompanyID, CounterpartyID: in.CounterpartyID, Range: in.Range}
	verr := apperr.Validation("ListObligations")
	if in.Type != "" {
		t := models.ObligationType(in.Type)
		if !t.Valid() {
			verr.Add("type", "The selected type is invalid.")
		}
		f.Type = &t
	}
	if in.Status != "" {
		st := models.ObligationStatus(in.Status)
		if !st.Valid() {
			verr.Add("status", "The selected status is invalid.")
		}
		f.Status = &st
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	list, err := s.obligations.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	if list == nil {
		list = []*models.Obligation{}
	}
	out := &ObligationList{
		Counterparty:               cp,
		Transactions:               list,
		TotalPayableOutstanding:    decimal.Zero,
		TotalReceivableOutstanding: decimal.Zero,
	}
	for _, o := range list {
		if !o.Status.Open() {
			continue
		}
		if o.Type == models.ObligationPayable {
			out.TotalPayableOutstanding = out.TotalPayableOutstanding.Add(o.Outstanding())
		} else {
			out.TotalReceivableOutstanding = out.TotalReceivableOutstanding.Add(o.Outstanding())
		}
	}
	out.TotalPayableOutstanding = out.TotalPayableOutstanding.Round(2)
	out.TotalReceivableOutstanding = out.TotalReceivableOutstanding.Round(2)
	return out, nil
}
