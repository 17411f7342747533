package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/travelcrm/backend/internal/config"
	"github.com/travelcrm/backend/internal/models"
)

// AverageSource supplies the trailing average payment total of confirmed engagements.
type AverageSource interface {
	AverageConfirmedPayments(ctx context.Context, companyID uuid.UUID, since time.Time) (decimal.Decimal, bool, error)
}

// LossEstimator estimates the revenue forfeited by a cancelled engagement.
// An engagement's own estimated_value always wins; the policy only decides
// the fallback.
type LossEstimator struct {
	Policy   string
	Fixed    decimal.Decimal
	Window   time.Duration
	Averages AverageSource
}

// NewLossEstimator builds the estimator described by cfg.
func NewLossEstimator(cfg *config.Config, averages AverageSource) *LossEstimator {
	return &LossEstimator{
		Policy:   cfg.LossEstimatePolicy,
		Fixed:    cfg.LossEstimateFixed,
		Window:   time.Duration(cfg.LossEstimateWindowDays) * 24 * time.Hour,
		Averages: averages,
	}
}

// Recorded returns the engagement's estimated_value when it is set and positive.
func Recorded(e *models.Engagement) (decimal.Decimal, bool) {
	if e.EstimatedValue.Valid && e.EstimatedValue.Decimal.Sign() > 0 {
		return e.EstimatedValue.Decimal, true
	}
	return decimal.Zero, false
}

// Fallback is the per-engagement estimate used when none is recorded.
func (l *LossEstimator) Fallback(ctx context.Context, companyID uuid.UUID, now time.Time) (decimal.Decimal, error) {
	if l.Policy != config.LossPolicyTrailingAverage || l.Averages == nil {
		return l.Fixed, nil
	}
	avg, ok, err := l.Averages.AverageConfirmedPayments(ctx, companyID, now.Add(-l.Window))
	if err != nil {
		return decimal.Zero, fmt.Errorf("trailing average: %w", err)
	}
	if !ok {
		return l.Fixed, nil
	}
	return avg, nil
}

// Total sums the estimate over the cancelled engagements. The fallback is
// looked up at most once.
func (l *LossEstimator) Total(ctx context.Context, companyID uuid.UUID, cancelled []*models.Engagement, now time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	var (
		fallback decimal.Decimal
		loaded   bool
	)
	for _, e := range cancelled {
		if v, ok := Recorded(e); ok {
			total = total.Add(v)
			continue
		}
		if !loaded {
			f, err := l.Fallback(ctx, companyID, now)
			if err != nil {
				return decimal.Zero, err
			}
			fallback, loaded = f, true
		}
		total = total.Add(fallback)
	}
	return total, nil
}
