package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/travelcrm/backend/internal/apperr"
	"github.com/travelcrm/backend/internal/execution"
	"github.com/travelcrm/backend/internal/models"
	"github.com/travelcrm/backend/internal/period"
	"github.com/travelcrm/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

// --- lockTx stages writes until Commit and releases the row lock it holds. ---

type lockTx struct {
	noopTx
	once    sync.Once
	unlock  func()
	pending []func()
}

func (t *lockTx) release(apply bool) {
	t.once.Do(func() {
		if apply {
			for _, fn := range t.pending {
				fn()
			}
		}
		if t.unlock != nil {
			t.unlock()
		}
	})
}

func (t *lockTx) Commit(context.Context) error   { t.release(true); return nil }
func (t *lockTx) Rollback(context.Context) error { t.release(false); return nil }

// --- TxBeginner mock ---

type mockPool struct{}

func (mockPool) Begin(context.Context) (pgx.Tx, error) { return &lockTx{}, nil }

// --- Counterparty / engagement lookups ---

type mockCounterparties struct {
	rows map[uuid.UUID]*models.Counterparty
}

func (m *mockCounterparties) Get(_ context.Context, companyID uuid.UUID, kind models.CounterpartyKind, id uuid.UUID) (*models.Counterparty, error) {
	c, ok := m.rows[id]
	if !ok || c.CompanyID != companyID || c.Kind != kind {
		return nil, apperr.NotFound("Counterparty")
	}
	return c, nil
}

type mockEngagements struct {
	rows map[uuid.UUID]*models.Engagement
}

func (m *mockEngagements) GetByID(_ context.Context, companyID, id uuid.UUID) (*models.Engagement, error) {
	e, ok := m.rows[id]
	if !ok || e.CompanyID != companyID {
		return nil, apperr.NotFound("Lead")
	}
	return e, nil
}

// --- Cost store ---

type mockCosts struct {
	created []*models.CostEntry
	list    []*models.CostEntry
	gotRng  *period.Range
}

func (m *mockCosts) Create(_ context.Context, e *models.CostEntry) error {
	e.ID = uuid.New()
	m.created = append(m.created, e)
	return nil
}

func (m *mockCosts) ListByCounterparty(_ context.Context, _, _ uuid.UUID, rng *period.Range) ([]*models.CostEntry, error) {
	m.gotRng = rng
	return m.list, nil
}

// --- Obligation store: in-memory rows guarded by a per-store row lock ---

type memObligations struct {
	rowLock  sync.Mutex
	mu       sync.Mutex
	rows     map[uuid.UUID]*models.Obligation
	payments []*models.ObligationPayment
	listed   repository.ObligationFilter
}

func newMemObligations(rows ...*models.Obligation) *memObligations {
	m := &memObligations{rows: map[uuid.UUID]*models.Obligation{}}
	for _, o := range rows {
		m.rows[o.ID] = o
	}
	return m
}

func (m *memObligations) get(id uuid.UUID) *models.Obligation {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := *m.rows[id]
	return &o
}

func (m *memObligations) Create(_ context.Context, o *models.Obligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = uuid.New()
	cp := *o
	m.rows[o.ID] = &cp
	return nil
}

func (m *memObligations) GetForUpdate(_ context.Context, tx pgx.Tx, companyID, counterpartyID, id uuid.UUID) (*models.Obligation, error) {
	m.rowLock.Lock()
	if lt, ok := tx.(*lockTx); ok {
		lt.unlock = m.rowLock.Unlock
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok || o.CompanyID != companyID || o.CounterpartyID != counterpartyID {
		return nil, apperr.NotFound("Transaction")
	}
	cp := *o
	return &cp, nil
}

func (m *memObligations) UpdatePaid(_ context.Context, tx pgx.Tx, o *models.Obligation, oldPaid decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.rows[o.ID].PaidAmount.Equal(oldPaid) {
		return apperr.ErrConflict
	}
	next := *o
	tx.(*lockTx).pending = append(tx.(*lockTx).pending, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.rows[next.ID] = &next
	})
	return nil
}

func (m *memObligations) InsertPayment(_ context.Context, tx pgx.Tx, p *models.ObligationPayment) error {
	p.ID = uuid.New()
	tx.(*lockTx).pending = append(tx.(*lockTx).pending, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.payments = append(m.payments, p)
	})
	return nil
}

func (m *memObligations) List(_ context.Context, f repository.ObligationFilter) ([]*models.Obligation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listed = f
	var out []*models.Obligation
	for _, o := range m.rows {
		if o.CompanyID != f.CompanyID || o.CounterpartyID != f.CounterpartyID {
			continue
		}
		if f.Type != nil && o.Type != *f.Type {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memObligations) paymentsSum(id uuid.UUID) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.ObligationID == id {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}

// --- Integrity job recorder ---

type checkRecorder struct {
	mu   sync.Mutex
	args []execution.IntegrityCheckArgs
	err  error
}

func (c *checkRecorder) insert(_ context.Context, _ pgx.Tx, args execution.IntegrityCheckArgs) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.args = append(c.args, args)
	return nil
}
