package services

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/travelcrm/backend/internal/config"
	"github.com/travelcrm/backend/internal/models"
)

// PaymentRevenue is the payment-based revenue of the confirmed engagements.
//
// With the engagement scope every counterparty is credited the whole payment
// total of each engagement it touched. With the share scope the total is split
// evenly across the counterparties of the same kind that have cost entries on
// the engagement; counts missing from shares are treated as 1.
func PaymentRevenue(scope string, confirmed []*models.Engagement, payments map[uuid.UUID]decimal.Decimal, shares map[uuid.UUID]int) decimal.Decimal {
	total := decimal.Zero
	for _, e := range confirmed {
		paid, ok := payments[e.ID]
		if !ok {
			continue
		}
		if scope == config.RevenueScopeShare {
			if n := shares[e.ID]; n > 1 {
				paid = paid.Div(decimal.NewFromInt(int64(n)))
			}
		}
		total = total.Add(paid)
	}
	return total
}

// confirmedAndCancelled splits engagements by the two statuses the engine reads.
func confirmedAndCancelled(list []*models.Engagement) (confirmed, cancelled []*models.Engagement) {
	for _, e := range list {
		switch e.Status {
		case models.LeadStatusConfirmed:
			confirmed = append(confirmed, e)
		case models.LeadStatusCancelled:
			cancelled = append(cancelled, e)
		}
	}
	return confirmed, cancelled
}

func ids(list []*models.Engagement) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID)
	}
	return out
}
