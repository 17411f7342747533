package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/travelcrm/backend/internal/apperr"
	"github.com/travelcrm/backend/internal/models"
	"github.com/travelcrm/backend/internal/repository"
)

// IntegrityCheckArgs is enqueued in the same transaction as every payment.
type IntegrityCheckArgs struct {
	CompanyID    uuid.UUID `json:"company_id"`
	ObligationID uuid.UUID `json:"obligation_id"`
}

func (IntegrityCheckArgs) Kind() string { return "obligation_integrity_check" }

// SnapshotReader loads an obligation together with its payment history totals.
type SnapshotReader interface {
	IntegritySnapshot(ctx context.Context, companyID, id uuid.UUID) (*repository.IntegritySnapshot, error)
}

// IntegrityCheckWorker re-reads an obligation after a payment and reports any
// drift between paid_amount, its payment rows and its status. It never writes.
type IntegrityCheckWorker struct {
	river.WorkerDefaults[IntegrityCheckArgs]
	snapshots SnapshotReader
	log       *slog.Logger
}

func NewIntegrityCheckWorker(snapshots SnapshotReader, log *slog.Logger) *IntegrityCheckWorker {
	if log == nil {
		log = slog.Default()
	}
	return &IntegrityCheckWorker{snapshots: snapshots, log: log}
}

func (w *IntegrityCheckWorker) Work(ctx context.Context, job *river.Job[IntegrityCheckArgs]) error {
	err := w.check(ctx, job.Args)
	if errors.Is(err, apperr.ErrNotFound) {
		return river.JobCancel(err)
	}
	return err
}

func (w *IntegrityCheckWorker) check(ctx context.Context, args IntegrityCheckArgs) error {
	snap, err := w.snapshots.IntegritySnapshot(ctx, args.CompanyID, args.ObligationID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			w.log.Warn("integrity check: obligation gone", "obligation_id", args.ObligationID)
		}
		return err
	}
	problems := Drift(snap)
	if len(problems) == 0 {
		w.log.Debug("integrity check passed", "obligation_id", args.ObligationID, "payments", snap.PaymentCount)
		return nil
	}
	w.log.Error("obligation integrity drift",
		"company_id", args.CompanyID,
		"obligation_id", args.ObligationID,
		"problems", problems,
	)
	return fmt.Errorf("obligation %s: %s", args.ObligationID, strings.Join(problems, "; "))
}

// Drift lists every broken ledger invariant in s; nil means consistent.
func Drift(s *repository.IntegritySnapshot) []string {
	o := s.Obligation
	var problems []string
	if o.PaidAmount.IsNegative() || o.PaidAmount.GreaterThan(o.Amount) {
		problems = append(problems, fmt.Sprintf("paid_amount %s outside [0, %s]", o.PaidAmount, o.Amount))
	}
	if !s.PaymentsSum.Equal(o.PaidAmount) {
		problems = append(problems, fmt.Sprintf("payments sum %s != paid_amount %s", s.PaymentsSum, o.PaidAmount))
	}
	if want := models.DeriveStatus(o.Type, o.PaidAmount, o.Amount); o.Status != want {
		problems = append(problems, fmt.Sprintf("status %s, expected %s", o.Status, want))
	}
	return problems
}
