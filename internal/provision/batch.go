package provision

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medienwerk/credsheet/internal/models"
)

// AuditSink persists per-customer outcomes of a batch run. A nil sink
// disables auditing.
type AuditSink interface {
	SaveResult(ctx context.Context, runID string, result models.CustomerResult) error
}

// SessionChecker reports whether the vault session is still usable.
// *vault.Client satisfies it; a nil checker disables the check.
type SessionChecker interface {
	SessionExpired() bool
}

// BatchRunner processes a list of customers sequentially. One customer's
// terminal state never blocks the next customer's run; only an
// authentication failure aborts the remaining batch.
type BatchRunner struct {
	orch    *Orchestrator
	sink    AuditSink
	session SessionChecker
	runID   string
	log     *zap.Logger
}

// NewBatchRunner creates a BatchRunner around one orchestrator.
func NewBatchRunner(orch *Orchestrator, sink AuditSink, session SessionChecker, log *zap.Logger) *BatchRunner {
	return &BatchRunner{
		orch:    orch,
		sink:    sink,
		session: session,
		runID:   uuid.NewString(),
		log:     log,
	}
}

// RunID identifies this batch in logs and audit rows.
func (b *BatchRunner) RunID() string {
	return b.runID
}

// Run drives every customer through the workflow and returns the
// accumulated results. The session is checked before each customer so a
// token that expired mid-batch fails the next customer up front instead
// of half-way through its transaction. Audit persistence failures are
// logged, never fatal: losing an audit row must not undo a committed
// customer.
func (b *BatchRunner) Run(ctx context.Context, customers []models.CustomerSpec) []models.CustomerResult {
	results := make([]models.CustomerResult, 0, len(customers))

	for _, customer := range customers {
		var result models.CustomerResult
		if b.session != nil && b.session.SessionExpired() {
			err := &models.AuthenticationError{Message: "vault session expired"}
			result = models.CustomerResult{
				Customer: customer,
				State:    models.StateRolledBack,
				Err:      err,
				ErrKind:  models.ErrKind(err),
			}
		} else {
			result = b.orch.ProcessCustomer(ctx, customer)
		}
		results = append(results, result)

		if b.sink != nil {
			if err := b.sink.SaveResult(ctx, b.runID, result); err != nil {
				b.log.Error("audit write failed",
					zap.String("customer", customer.Name), zap.Error(err))
			}
		}

		if models.IsAuthentication(result.Err) {
			b.log.Error("vault session lost, aborting remaining customers",
				zap.Int("remaining", len(customers)-len(results)))
			break
		}
		if ctx.Err() != nil {
			b.log.Warn("run canceled, remaining customers skipped",
				zap.Int("remaining", len(customers)-len(results)))
			break
		}
	}

	b.report(results)
	return results
}

// report logs the final per-customer outcome list.
func (b *BatchRunner) report(results []models.CustomerResult) {
	committed := 0
	for _, r := range results {
		if r.State == models.StateCommitted {
			committed++
			b.log.Info("result",
				zap.String("run", b.runID),
				zap.String("customer", r.Customer.Name),
				zap.String("state", string(r.State)))
			continue
		}
		b.log.Warn("result",
			zap.String("run", b.runID),
			zap.String("customer", r.Customer.Name),
			zap.String("state", string(r.State)),
			zap.String("error_kind", r.ErrKind),
			zap.Error(r.Err))
	}
	b.log.Info("batch finished",
		zap.String("run", b.runID),
		zap.Int("committed", committed),
		zap.Int("failed", len(results)-committed))
}

// ExitCode maps batch results to the process exit code: 0 when every
// customer committed, 1 otherwise.
func ExitCode(results []models.CustomerResult) int {
	for _, r := range results {
		if r.State != models.StateCommitted {
			return 1
		}
	}
	return 0
}
