package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/travelcrm/backend/internal/apperr"
	"github.com/travelcrm/backend/internal/models"
	"github.com/travelcrm/backend/internal/period"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strP(s string) *string { return &s }

type fixture struct {
	svc         Service
	company     uuid.UUID
	supplier    *models.Counterparty
	vehicle     *models.Counterparty
	lead        *models.Engagement
	costs       *mockCosts
	obligations *memObligations
	checks      *checkRecorder
}

func newFixture(t *testing.T, rows ...*models.Obligation) *fixture {
	t.Helper()
	company := uuid.New()
	f := &fixture{
		company:  company,
		supplier: &models.Counterparty{ID: uuid.New(), CompanyID: company, Kind: models.KindSupplier, Name: "Alpine Tours"},
		vehicle:  &models.Counterparty{ID: uuid.New(), CompanyID: company, Kind: models.KindVehicle, Name: "Coastline Cabs"},
		lead:     &models.Engagement{ID: uuid.New(), CompanyID: company, ClientName: "R. Mehta", Status: models.LeadStatusConfirmed},
		costs:    &mockCosts{},
		checks:   &checkRecorder{},
	}
	f.obligations = newMemObligations(rows...)
	f.svc = NewService(Deps{
		Pool: mockPool{},
		Counterparties: &mockCounterparties{rows: map[uuid.UUID]*models.Counterparty{
			f.supplier.ID: f.supplier,
			f.vehicle.ID:  f.vehicle,
		}},
		Engagements: &mockEngagements{rows: map[uuid.UUID]*models.Engagement{f.lead.ID: f.lead}},
		Costs:       f.costs,
		Obligations: f.obligations,
		InsertCheck: f.checks.insert,
	})
	return f
}

func (f *fixture) payable(amount string) *models.Obligation {
	o := &models.Obligation{
		ID:              uuid.New(),
		CompanyID:       f.company,
		CounterpartyID:  f.supplier.ID,
		Type:            models.ObligationPayable,
		Category:        models.DefaultCategory,
		Amount:          dec(amount),
		PaidAmount:      decimal.Zero,
		Status:          models.StatusPending,
		TransactionDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	f.obligations.rows[o.ID] = o
	return o
}

func (f *fixture) pay(o *models.Obligation, amount string) (*PaymentReceipt, error) {
	return f.svc.RecordPayment(context.Background(), RecordPaymentInput{
		CompanyID:      f.company,
		Kind:           models.KindSupplier,
		CounterpartyID: f.supplier.ID,
		ObligationID:   o.ID,
		Amount:         dec(amount),
	})
}

func fieldErr(t *testing.T, err error, field string) {
	t.Helper()
	ve, ok := apperr.AsValidation(err)
	if !ok {
		t.Fatalf("expected validation error on %s, got %v", field, err)
	}
	if len(ve.Fields[field]) == 0 {
		t.Fatalf("expected error on %s, got %v", field, ve.Fields)
	}
}

// ---------------------------------------------------------------------------
// Cost ledger
// ---------------------------------------------------------------------------

func TestRecordCost_Supplier(t *testing.T) {
	f := newFixture(t)

	e, err := f.svc.RecordCost(context.Background(), RecordCostInput{
		CompanyID:       f.company,
		Kind:            models.KindSupplier,
		CounterpartyID:  f.supplier.ID,
		LeadID:          f.lead.ID,
		CostAmount:      dec("1000"),
		ServiceType:     strP("sightseeing"),
		TransactionDate: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("RecordCost: %v", err)
	}
	if len(f.costs.created) != 1 || !e.RevenueAmount.IsZero() {
		t.Fatalf("unexpected insert: %+v", f.costs.created)
	}
	if e.Lead == nil || e.Lead.ClientName != "R. Mehta" {
		t.Errorf("lead identity not attached: %+v", e.Lead)
	}
}

func TestRecordCost_KindSpecificFields(t *testing.T) {
	f := newFixture(t)
	rev := dec("200")
	day := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.RecordCost(context.Background(), RecordCostInput{
		CompanyID: f.company, Kind: models.KindSupplier, CounterpartyID: f.supplier.ID,
		LeadID: f.lead.ID, CostAmount: dec("10"), RevenueAmount: &rev, TransactionDate: day,
	})
	fieldErr(t, err, "revenue_amount")

	_, err = f.svc.RecordCost(context.Background(), RecordCostInput{
		CompanyID: f.company, Kind: models.KindVehicle, CounterpartyID: f.vehicle.ID,
		LeadID: f.lead.ID, CostAmount: dec("10"), ServiceType: strP("transfer"), TransactionDate: day,
	})
	fieldErr(t, err, "service_type")

	e, err := f.svc.RecordCost(context.Background(), RecordCostInput{
		CompanyID: f.company, Kind: models.KindVehicle, CounterpartyID: f.vehicle.ID,
		LeadID: f.lead.ID, CostAmount: dec("10"), RevenueAmount: &rev, TransactionDate: day,
	})
	if err != nil {
		t.Fatalf("vehicle cost with revenue: %v", err)
	}
	if !e.RevenueAmount.Equal(rev) {
		t.Errorf("revenue: got %s", e.RevenueAmount)
	}
	if len(f.costs.created) != 1 {
		t.Errorf("rejected entries must not be inserted, got %d rows", len(f.costs.created))
	}
}

func TestRecordCost_Rejects(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.RecordCost(context.Background(), RecordCostInput{
		CompanyID: f.company, Kind: models.KindSupplier, CounterpartyID: f.supplier.ID,
		LeadID: f.lead.ID, CostAmount: dec("-0.01"), TransactionDate: day,
	})
	fieldErr(t, err, "cost_amount")

	_, err = f.svc.RecordCost(context.Background(), RecordCostInput{
		CompanyID: f.company, Kind: models.KindSupplier, CounterpartyID: f.supplier.ID,
		LeadID: f.lead.ID, CostAmount: dec("99999999999.999"), TransactionDate: day,
	})
	fieldErr(t, err, "cost_amount")

	revenue := dec("12.345")
	_, err = f.svc.RecordCost(context.Background(), RecordCostInput{
		CompanyID: f.company, Kind: models.KindVehicle, CounterpartyID: f.vehicle.ID,
		LeadID: f.lead.ID, CostAmount: dec("10"), RevenueAmount: &revenue, TransactionDate: day,
	})
	fieldErr(t, err, "revenue_amount")
	if len(f.costs.created) != 0 {
		t.Errorf("unstorable amounts must not be inserted, got %d rows", len(f.costs.created))
	}

	// A vehicle id used under the supplier kind is not found.
	_, err = f.svc.RecordCost(context.Background(), RecordCostInput{
		CompanyID: f.company, Kind: models.KindSupplier, CounterpartyID: f.vehicle.ID,
		LeadID: f.lead.ID, CostAmount: dec("1"), TransactionDate: day,
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("wrong kind: expected not found, got %v", err)
	}

	// Another tenant cannot see the counterparty.
	_, err = f.svc.RecordCost(context.Background(), RecordCostInput{
		CompanyID: uuid.New(), Kind: models.KindSupplier, CounterpartyID: f.supplier.ID,
		LeadID: f.lead.ID, CostAmount: dec("1"), TransactionDate: day,
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign tenant: expected not found, got %v", err)
	}

	_, err = f.svc.RecordCost(context.Background(), RecordCostInput{
		CompanyID: f.company, Kind: models.KindSupplier, CounterpartyID: f.supplier.ID,
		LeadID: uuid.New(), CostAmount: dec("1"), TransactionDate: day,
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown lead: expected not found, got %v", err)
	}
}

func TestListCosts_Totals(t *testing.T) {
	f := newFixture(t)
	f.costs.list = []*models.CostEntry{
		{CostAmount: dec("100.105"), RevenueAmount: dec("50")},
		{CostAmount: dec("200"), RevenueAmount: dec("0.333")},
	}
	rng := &period.Range{Start: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC)}

	out, err := f.svc.ListCosts(context.Background(), ListCostsInput{
		CompanyID: f.company, Kind: models.KindVehicle, CounterpartyID: f.vehicle.ID, Range: rng,
	})
	if err != nil {
		t.Fatalf("ListCosts: %v", err)
	}
	if f.costs.gotRng != rng {
		t.Error("range not passed to the store")
	}
	if out.TotalCost.String() != "300.11" {
		t.Errorf("total cost: got %s", out.TotalCost)
	}
	if out.TotalRevenue == nil || out.TotalRevenue.String() != "50.33" {
		t.Errorf("total revenue: got %v", out.TotalRevenue)
	}

	out, err = f.svc.ListCosts(context.Background(), ListCostsInput{
		CompanyID: f.company, Kind: models.KindSupplier, CounterpartyID: f.supplier.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.TotalRevenue != nil {
		t.Error("supplier cost lists carry no revenue total")
	}
}

// ---------------------------------------------------------------------------
// Obligation ledger
// ---------------------------------------------------------------------------

func TestRecordObligation_Defaults(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.RecordObligation(context.Background(), RecordObligationInput{
		CompanyID: f.company, Kind: models.KindSupplier, CounterpartyID: f.supplier.ID,
		Type: models.ObligationReceivable, Amount: dec("750"), LeadID: &f.lead.ID,
		TransactionDate: time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("RecordObligation: %v", err)
	}
	if o.Category != models.DefaultCategory || o.Status != models.StatusPending || !o.PaidAmount.IsZero() {
		t.Errorf("defaults not applied: %+v", o)
	}
}

func TestRecordObligation_Rejects(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
	base := RecordObligationInput{
		CompanyID: f.company, Kind: models.KindSupplier, CounterpartyID: f.supplier.ID,
		Type: models.ObligationPayable, Amount: dec("10"), TransactionDate: day,
	}

	in := base
	in.Amount = decimal.Zero
	_, err := f.svc.RecordObligation(context.Background(), in)
	fieldErr(t, err, "amount")

	in = base
	in.Amount = dec("0.001")
	_, err = f.svc.RecordObligation(context.Background(), in)
	fieldErr(t, err, "amount")

	in = base
	in.Amount = dec("10000000000")
	_, err = f.svc.RecordObligation(context.Background(), in)
	fieldErr(t, err, "amount")

	in = base
	in.Type = "loan"
	_, err = f.svc.RecordObligation(context.Background(), in)
	fieldErr(t, err, "type")

	in = base
	in.Category = strP("  ")
	_, err = f.svc.RecordObligation(context.Background(), in)
	fieldErr(t, err, "category")

	in = base
	foreign := uuid.New()
	in.LeadID = &foreign
	if _, err = f.svc.RecordObligation(context.Background(), in); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown lead: expected not found, got %v", err)
	}
}

// Payable 5000: pay 2000 -> partial/3000; pay 3000 -> paid/0; further payments rejected.
func TestRecordPayment_PartialThenPaid(t *testing.T) {
	f := newFixture(t)
	o := f.payable("5000")

	r, err := f.pay(o, "2000")
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if r.Obligation.Status != models.StatusPartial || !r.Obligation.Outstanding().Equal(dec("3000")) {
		t.Errorf("after 2000: status=%s outstanding=%s", r.Obligation.Status, r.Obligation.Outstanding())
	}

	r, err = f.pay(o, "3000")
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if r.Obligation.Status != models.StatusPaid || !r.Obligation.Outstanding().IsZero() {
		t.Errorf("after 3000: status=%s outstanding=%s", r.Obligation.Status, r.Obligation.Outstanding())
	}

	_, err = f.pay(o, "0.01")
	fieldErr(t, err, "paid_amount")

	stored := f.obligations.get(o.ID)
	if !stored.PaidAmount.Equal(dec("5000")) || stored.Status != models.StatusPaid {
		t.Errorf("stored row: paid=%s status=%s", stored.PaidAmount, stored.Status)
	}
	if !f.obligations.paymentsSum(o.ID).Equal(stored.PaidAmount) {
		t.Errorf("payment history %s != paid_amount %s", f.obligations.paymentsSum(o.ID), stored.PaidAmount)
	}
	if len(f.checks.args) != 2 || f.checks.args[0].ObligationID != o.ID {
		t.Errorf("integrity checks enqueued: %+v", f.checks.args)
	}
}

func TestRecordPayment_OverpaymentLeavesRowUnchanged(t *testing.T) {
	f := newFixture(t)
	o := f.payable("100")

	if _, err := f.pay(o, "40"); err != nil {
		t.Fatal(err)
	}
	_, err := f.pay(o, "60.01")
	ve, ok := apperr.AsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Message != "Paid amount cannot exceed outstanding amount (60.00)" {
		t.Errorf("message: got %q", ve.Message)
	}
	stored := f.obligations.get(o.ID)
	if !stored.PaidAmount.Equal(dec("40")) || stored.Status != models.StatusPartial {
		t.Errorf("row changed by rejected payment: paid=%s status=%s", stored.PaidAmount, stored.Status)
	}
}

func TestRecordPayment_SubCentRejected(t *testing.T) {
	f := newFixture(t)
	o := f.payable("100.00")

	if _, err := f.pay(o, "99.99"); err != nil {
		t.Fatal(err)
	}
	_, err := f.pay(o, "0.005")
	fieldErr(t, err, "paid_amount")

	stored := f.obligations.get(o.ID)
	if !stored.PaidAmount.Equal(dec("99.99")) || stored.Status != models.StatusPartial {
		t.Errorf("row changed by rejected payment: paid=%s status=%s", stored.PaidAmount, stored.Status)
	}

	r, err := f.pay(o, "0.01")
	if err != nil {
		t.Fatalf("final cent: %v", err)
	}
	if r.Obligation.Status != models.StatusPaid {
		t.Errorf("status: got %s, want paid", r.Obligation.Status)
	}
}

func TestRecordPayment_NotFound(t *testing.T) {
	f := newFixture(t)
	o := f.payable("100")

	cases := map[string]RecordPaymentInput{
		"unknown obligation": {CompanyID: f.company, Kind: models.KindSupplier, CounterpartyID: f.supplier.ID, ObligationID: uuid.New(), Amount: dec("1")},
		"other counterparty": {CompanyID: f.company, Kind: models.KindVehicle, CounterpartyID: f.vehicle.ID, ObligationID: o.ID, Amount: dec("1")},
		"foreign tenant":     {CompanyID: uuid.New(), Kind: models.KindSupplier, CounterpartyID: f.supplier.ID, ObligationID: o.ID, Amount: dec("1")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := f.svc.RecordPayment(context.Background(), in); !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("expected not found, got %v", err)
			}
		})
	}
}

func TestRecordPayment_EnqueueFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	o := f.payable("100")
	f.checks.err = errors.New("queue unavailable")

	if _, err := f.pay(o, "10"); err == nil {
		t.Fatal("expected error when the integrity job cannot be enqueued")
	}
	stored := f.obligations.get(o.ID)
	if !stored.PaidAmount.IsZero() || !f.obligations.paymentsSum(o.ID).IsZero() {
		t.Errorf("rolled back payment persisted: paid=%s", stored.PaidAmount)
	}
}

// Twelve concurrent payments of 500 against 5000: exactly ten succeed, the
// rest see the updated outstanding and are rejected. No update is lost.
func TestRecordPayment_ConcurrentPaymentsSerialize(t *testing.T) {
	f := newFixture(t)
	o := f.payable("5000")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.pay(o, "500")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperr.ErrValidation):
				fail++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 10 || fail != 2 {
		t.Errorf("succeeded=%d rejected=%d, want 10/2", ok, fail)
	}
	stored := f.obligations.get(o.ID)
	if !stored.PaidAmount.Equal(dec("5000")) || stored.Status != models.StatusPaid {
		t.Errorf("final row: paid=%s status=%s", stored.PaidAmount, stored.Status)
	}
	if !f.obligations.paymentsSum(o.ID).Equal(dec("5000")) {
		t.Errorf("payment history sum: %s", f.obligations.paymentsSum(o.ID))
	}
}

func TestListObligations_OutstandingTotals(t *testing.T) {
	f := newFixture(t)
	a := f.payable("1000")
	b := f.payable("300")
	recv := &models.Obligation{
		ID: uuid.New(), CompanyID: f.company, CounterpartyID: f.supplier.ID,
		Type: models.ObligationReceivable, Amount: dec("250"), PaidAmount: decimal.Zero, Status: models.StatusPending,
	}
	f.obligations.rows[recv.ID] = recv

	if _, err := f.pay(a, "400"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.pay(b, "300"); err != nil {
		t.Fatal(err)
	}

	out, err := f.svc.ListObligations(context.Background(), ListObligationsInput{
		CompanyID: f.company, Kind: models.KindSupplier, CounterpartyID: f.supplier.ID,
	})
	if err != nil {
		t.Fatalf("ListObligations: %v", err)
	}
	if len(out.Transactions) != 3 {
		t.Fatalf("rows: got %d", len(out.Transactions))
	}
	// b is paid and no longer counts.
	if !out.TotalPayableOutstanding.Equal(dec("600")) || !out.TotalReceivableOutstanding.Equal(dec("250")) {
		t.Errorf("totals: payable=%s receivable=%s", out.TotalPayableOutstanding, out.TotalReceivableOutstanding)
	}

	out, err = f.svc.ListObligations(context.Background(), ListObligationsInput{
		CompanyID: f.company, Kind: models.KindSupplier, CounterpartyID: f.supplier.ID,
		Type: "payable", Status: "paid",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Transactions) != 1 || out.Transactions[0].ID != b.ID {
		t.Errorf("filtered rows: %+v", out.Transactions)
	}

	_, err = f.svc.ListObligations(context.Background(), ListObligationsInput{
		CompanyID: f.company, Kind: models.KindSupplier, CounterpartyID: f.supplier.ID, Status: "overdue",
	})
	fieldErr(t, err, "status")
}
