// Package ledger records cost entries and obligations (payables and
// receivables) against suppliers, vehicles and hotels.
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/travelcrm/backend/internal/execution"
	"github.com/travelcrm/backend/internal/models"
	"github.com/travelcrm/backend/internal/period"
	"github.com/travelcrm/backend/internal/repository"
)

// CounterpartyLookup resolves a tenant's counterparty of a given kind.
type CounterpartyLookup interface {
	Get(ctx context.Context, companyID uuid.UUID, kind models.CounterpartyKind, id uuid.UUID) (*models.Counterparty, error)
}

// EngagementLookup resolves a tenant's engagement (lead).
type EngagementLookup interface {
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*models.Engagement, error)
}

type CostStore interface {
	Create(ctx context.Context, e *models.CostEntry) error
	ListByCounterparty(ctx context.Context, companyID, counterpartyID uuid.UUID, rng *period.Range) ([]*models.CostEntry, error)
}

type ObligationStore interface {
	Create(ctx context.Context, o *models.Obligation) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, companyID, counterpartyID, id uuid.UUID) (*models.Obligation, error)
	UpdatePaid(ctx context.Context, tx pgx.Tx, o *models.Obligation, oldPaid decimal.Decimal) error
	InsertPayment(ctx context.Context, tx pgx.Tx, p *models.ObligationPayment) error
	List(ctx context.Context, f repository.ObligationFilter) ([]*models.Obligation, error)
}

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InsertIntegrityCheckTxFunc enqueues the post-payment integrity job inside tx.
type InsertIntegrityCheckTxFunc func(ctx context.Context, tx pgx.Tx, args execution.IntegrityCheckArgs) error

// Service is the ledger API used by the HTTP handlers.
type Service interface {
	RecordCost(ctx context.Context, in RecordCostInput) (*models.CostEntry, error)
	ListCosts(ctx context.Context, in ListCostsInput) (*CostList, error)
	RecordObligation(ctx context.Context, in RecordObligationInput) (*models.Obligation, error)
	RecordPayment(ctx context.Context, in RecordPaymentInput) (*PaymentReceipt, error)
	ListObligations(ctx context.Context, in ListObligationsInput) (*ObligationList, error)
}

type service struct {
	pool           TxBeginner
	counterparties CounterpartyLookup
	engagements    EngagementLookup
	costs          CostStore
	obligations    ObligationStore
	insertCheck    InsertIntegrityCheckTxFunc
}

// Deps groups the collaborators of the ledger service.
type Deps struct {
	Pool           TxBeginner
	Counterparties CounterpartyLookup
	Engagements    EngagementLookup
	Costs          CostStore
	Obligations    ObligationStore
	InsertCheck    InsertIntegrityCheckTxFunc
}

func NewService(d Deps) Service {
	return &service{
		pool:           d.Pool,
		counterparties: d.Counterparties,
		engagements:    d.Engagements,
		costs:          d.Costs,
		obligations:    d.Obligations,
		insertCheck:    d.InsertCheck,
	}
}

var _ Service = (*service)(nil)
