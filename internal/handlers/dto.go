package handlers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/travelcrm/backend/internal/models"
	"github.com/travelcrm/backend/internal/period"
	"github.com/travelcrm/backend/internal/services"
)

// money renders an amount as a JSON number with two decimals.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(period.DateLayout)
	return &s
}

type counterpartyRef struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	CompanyName *string   `json:"company_name,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Destination *string   `json:"destination,omitempty"`
	Status      string    `json:"status,omitempty"`
}

func refOf(c *models.Counterparty) counterpartyRef {
	return counterpartyRef{
		ID:          c.ID,
		Name:        c.Name,
		CompanyName: c.CompanyName,
		Email:       c.Email,
		Destination: c.Destination,
		Status:      c.Status,
	}
}

type dateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// --- cost entries ---

type costResponse struct {
	ID              uuid.UUID             `json:"id"`
	LeadID          uuid.UUID             `json:"lead_id"`
	CounterpartyID  uuid.UUID             `json:"counterparty_id"`
	Lead            *models.EngagementRef `json:"lead"`
	CostAmount      json.Number           `json:"cost_amount"`
	RevenueAmount   *json.Number          `json:"revenue_amount,omitempty"`
	ServiceType     *string               `json:"service_type,omitempty"`
	TransactionDate string                `json:"transaction_date"`
	Description     *string               `json:"description"`
	CreatedAt       time.Time             `json:"created_at"`
}

func costToResponse(kind models.CounterpartyKind, e *models.CostEntry) costResponse {
	out := costResponse{
		ID:              e.ID,
		LeadID:          e.LeadID,
		CounterpartyID:  e.CounterpartyID,
		Lead:            e.Lead,
		CostAmount:      money(e.CostAmount),
		TransactionDate: e.TransactionDate.Format(period.DateLayout),
		Description:     e.Description,
		CreatedAt:       e.CreatedAt,
	}
	if kind.RecordsRevenue() {
		rev := money(e.RevenueAmount)
		out.RevenueAmount = &rev
	} else {
		out.ServiceType = e.ServiceType
	}
	return out
}

// --- obligations ---

type obligationResponse struct {
	ID              uuid.UUID               `json:"id"`
	CounterpartyID  uuid.UUID               `json:"counterparty_id"`
	Type            models.ObligationType   `json:"type"`
	Category        string                  `json:"category"`
	Amount          json.Number             `json:"amount"`
	PaidAmount      json.Number             `json:"paid_amount"`
	Outstanding     json.Number             `json:"outstanding"`
	LeadID          *uuid.UUID              `json:"lead_id"`
	Lead            *models.EngagementRef   `json:"lead"`
	TransactionDate string                  `json:"transaction_date"`
	DueDate         *string                 `json:"due_date"`
	Status          models.ObligationStatus `json:"status"`
	Description     *string                 `json:"description"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

func obligationToResponse(o *models.Obligation) obligationResponse {
	return obligationResponse{
		ID:              o.ID,
		CounterpartyID:  o.CounterpartyID,
		Type:            o.Type,
		Category:        o.Category,
		Amount:          money(o.Amount),
		PaidAmount:      money(o.PaidAmount),
		Outstanding:     money(o.Outstanding()),
		LeadID:          o.LeadID,
		Lead:            o.Lead,
		TransactionDate: o.TransactionDate.Format(period.DateLayout),
		DueDate:         dateString(o.DueDate),
		Status:          o.Status,
		Description:     o.Description,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

type paymentResponse struct {
	ID         uuid.UUID   `json:"id"`
	Amount     json.Number `json:"amount"`
	RecordedBy *uuid.UUID  `json:"recorded_by"`
	PaidAt     time.Time   `json:"paid_at"`
}

// --- summary ---

type balanceSummary struct {
	KitnaDena json.Number `json:"kitna_dena"`
	KitnaLena json.Number `json:"kitna_lena"`
	Balance   json.Number `json:"balance"`
}

type financialSummary struct {
	Revenue   json.Number    `json:"revenue"`
	Cost      json.Number    `json:"cost"`
	Profit    json.Number    `json:"profit"`
	Loss      json.Number    `json:"loss"`
	NetProfit json.Number    `json:"net_profit"`
	Dena      json.Number    `json:"dena"`
	Lena      json.Number    `json:"lena"`
	Summary   balanceSummary `json:"summary"`
}

func summaryToResponse(s *services.Summary) map[string]any {
	return map[string]any{
		string(s.Counterparty.Kind): refOf(s.Counterparty),
		"period":                    s.Period,
		"date_range":                dateRange{StartDate: s.Range.StartDate(), EndDate: s.Range.EndDate()},
		"financial_summary": financialSummary{
			Revenue:   money(s.Revenue),
			Cost:      money(s.Cost),
			Profit:    money(s.Profit),
			Loss:      money(s.Loss),
			NetProfit: money(s.NetProfit),
			Dena:      money(s.Dena),
			Lena:      money(s.Lena),
			Summary: balanceSummary{
				KitnaDena: money(s.Dena),
				KitnaLena: money(s.Lena),
				Balance:   money(s.Balance),
			},
		},
	}
}
