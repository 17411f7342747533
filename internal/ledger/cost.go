package ledger

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/travelcrm/backend/internal/apperr"
	"github.com/travelcrm/backend/internal/models"
	"github.com/travelcrm/backend/internal/period"
)

type RecordCostInput struct {
	CompanyID       uuid.UUID
	Kind            models.CounterpartyKind
	CounterpartyID  uuid.UUID
	LeadID          uuid.UUID
	CostAmount      decimal.Decimal
	RevenueAmount   *decimal.Decimal
	ServiceType     *string
	TransactionDate time.Time
	Description     *string
	CreatedBy       *uuid.UUID
}

type ListCostsInput struct {
	CompanyID      uuid.UUID
	Kind           models.CounterpartyKind
	CounterpartyID uuid.UUID
	// Range nil lists every entry.
	Range *period.Range
}

// CostList is a counterparty's cost entries with their totals. TotalRevenue is
// only set for kinds that record revenue.
type CostList struct {
	Counterparty *models.Counterparty
	Costs        []*models.CostEntry
	TotalCost    decimal.Decimal
	TotalRevenue *decimal.Decimal
}

func (s *service) RecordCost(ctx context.Context, in RecordCostInput) (*models.CostEntry, error) {
	if _, err := s.counterparties.Get(ctx, in.CompanyID, in.Kind, in.CounterpartyID); err != nil {
		return nil, err
	}

	verr := apperr.Validation("RecordCost")
	if in.CostAmount.IsNegative() {
		verr.Add("cost_amount", "The cost amount must be at least 0.")
	} else if err := models.CheckMoney(in.CostAmount); err != nil {
		verr.Add("cost_amount", moneyMessage("cost amount", err))
	}
	revenue := decimal.Zero
	if in.RevenueAmount != nil {
		switch {
		case !in.Kind.RecordsRevenue():
			verr.Add("revenue_amount", "Revenue is not recorded on "+string(in.Kind)+" costs.")
		case in.RevenueAmount.IsNegative():
			verr.Add("revenue_amount", "The revenue amount must be at least 0.")
		default:
			if err := models.CheckMoney(*in.RevenueAmount); err != nil {
				verr.Add("revenue_amount", moneyMessage("revenue amount", err))
			}
			revenue = *in.RevenueAmount
		}
	}
	if in.ServiceType != nil {
		if in.Kind != models.KindSupplier {
			verr.Add("service_type", "The service type is only recorded on supplier costs.")
		} else if utf8.RuneCountInString(*in.ServiceType) > 50 {
			verr.Add("service_type", "The service type may not be greater than 50 characters.")
		}
	}
	if in.Description != nil && utf8.RuneCountInString(*in.Description) > 500 {
		verr.Add("description", "The description may not be greater than 500 characters.")
	}
	if in.TransactionDate.IsZero() {
		verr.Add("transaction_date", "The transaction date field is required.")
	}
	if in.LeadID == uuid.Nil {
		verr.Add("lead_id", "The lead id field is required.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	lead, err := s.engagements.GetByID(ctx, in.CompanyID, in.LeadID)
	if err != nil {
		return nil, err
	}

	e := &models.CostEntry{
		CompanyID:       in.CompanyID,
		LeadID:          in.LeadID,
		CounterpartyID:  in.CounterpartyID,
		CostAmount:      in.CostAmount,
		RevenueAmount:   revenue,
		ServiceType:     in.ServiceType,
		TransactionDate: in.TransactionDate,
		Description:     in.Description,
		CreatedBy:       in.CreatedBy,
		Lead:            &models.EngagementRef{ID: lead.ID, ClientName: lead.ClientName, Status: lead.Status},
	}
	if err := s.costs.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("record cost: %w", err)
	}
	return e, nil
}

func (s *service) ListCosts(ctx context.Context, in ListCostsInput) (*CostList, error) {
	cp, err := s.counterparties.Get(ctx, in.CompanyID, in.Kind, in.CounterpartyID)
	if err != nil {
		return nil, err
	}
	costs, err := s.costs.ListByCounterparty(ctx, in.CompanyID, in.CounterpartyID, in.Range)
	if err != nil {
		return nil, fmt.Errorf("list costs: %w", err)
	}
	if costs == nil {
		costs = []*models.CostEntry{}
	}

	out := &CostList{Counterparty: cp, Costs: costs, TotalCost: decimal.Zero}
	revenue := decimal.Zero
	for _, c := range costs {
		out.TotalCost = out.TotalCost.Add(c.CostAmount)
		revenue = revenue.Add(c.RevenueAmount)
	}
	out.TotalCost = out.TotalCost.Round(2)
	if in.Kind.RecordsRevenue() {
		revenue = revenue.Round(2)
		out.TotalRevenue = &revenue
	}
	return out, nil
}
