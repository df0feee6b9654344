package provision

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medienwerk/credsheet/internal/models"
)

// TxStatus is the lifecycle state of a provisioning transaction.
type TxStatus string

const (
	TxInProgress TxStatus = "in_progress"
	TxCommitted  TxStatus = "committed"
	TxRolledBack TxStatus = "rolled_back"
)

type objectKind int

const (
	kindFolder objectKind = iota
	kindRecord
)

type trackedObject struct {
	uid  string
	kind objectKind
}

// Deleter is the vault surface the rollback needs.
type Deleter interface {
	DeleteFolder(ctx context.Context, uid string) error
	DeleteRecord(ctx context.Context, uid string) error
}

// Transaction tracks every vault object created during one customer's
// provisioning run so a failure at any later step can undo all of it.
// It is owned by exactly one orchestrator invocation and is not safe for
// concurrent use; the workflow processes customers sequentially.
type Transaction struct {
	// ID identifies the transaction in logs and audit rows.
	ID       string
	customer string
	vault    Deleter
	log      *zap.Logger

	// created is append-only while the transaction is in progress and is
	// exactly the set of objects deleted on rollback.
	created []trackedObject
	status  TxStatus
}

// NewTransaction opens a transaction for one customer.
func NewTransaction(customer string, vault Deleter, log *zap.Logger) *Transaction {
	return &Transaction{
		ID:       uuid.NewString(),
		customer: customer,
		vault:    vault,
		log:      log,
		status:   TxInProgress,
	}
}

// Status returns the transaction lifecycle state.
func (t *Transaction) Status() TxStatus {
	return t.status
}

// TrackFolder records a created folder. Must be called immediately after
// the successful create, before any subsequent workflow step.
func (t *Transaction) TrackFolder(uid string) {
	t.track(trackedObject{uid: uid, kind: kindFolder})
}

// TrackRecord records a created record.
func (t *Transaction) TrackRecord(uid string) {
	t.track(trackedObject{uid: uid, kind: kindRecord})
}

func (t *Transaction) track(obj trackedObject) {
	if t.status != TxInProgress {
		// Tracking after commit/rollback is a programming error; the log
		// makes it visible without losing the object.
		t.log.Error("track called on finished transaction",
			zap.String("tx", t.ID), zap.String("uid", obj.uid), zap.String("status", string(t.status)))
		return
	}
	t.created = append(t.created, obj)
}

// CreatedUIDs returns the tracked object UIDs in creation order.
func (t *Transaction) CreatedUIDs() []string {
	uids := make([]string, len(t.created))
	for i, obj := range t.created {
		uids[i] = obj.uid
	}
	return uids
}

// Commit marks the transaction committed and discards the creation log;
// no further rollback is possible or needed.
func (t *Transaction) Commit() error {
	if t.status != TxInProgress {
		return fmt.Errorf("commit on %s transaction", t.status)
	}
	t.status = TxCommitted
	t.created = nil
	return nil
}

// Rollback deletes every tracked object in reverse creation order, so
// records go before the folders containing them. Individual deletion
// failures are logged and do not stop the remaining deletions; the
// returned RollbackError (nil when cleanup was complete) lists what was
// left behind and must never be re-raised into the workflow.
func (t *Transaction) Rollback(ctx context.Context) *models.RollbackError {
	if t.status != TxInProgress {
		return nil
	}
	t.status = TxRolledBack

	var failed []string
	for i := len(t.created) - 1; i >= 0; i-- {
		obj := t.created[i]
		var err error
		switch obj.kind {
		case kindFolder:
			err = t.vault.DeleteFolder(ctx, obj.uid)
		case kindRecord:
			err = t.vault.DeleteRecord(ctx, obj.uid)
		}
		if err != nil {
			failed = append(failed, obj.uid)
			t.log.Error("rollback deletion failed",
				zap.String("tx", t.ID),
				zap.String("customer", t.customer),
				zap.String("uid", obj.uid),
				zap.Error(err))
		}
	}

	t.log.Info("transaction rolled back",
		zap.String("tx", t.ID),
		zap.String("customer", t.customer),
		zap.Int("deleted", len(t.created)-len(failed)),
		zap.Int("failed", len(failed)))

	if len(failed) > 0 {
		return &models.RollbackError{FailedUIDs: failed}
	}
	return nil
}
