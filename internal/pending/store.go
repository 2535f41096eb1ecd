package pending

import (
	"context"
	"errors"

	"pos-service/internal/models"
)

var (
	// ErrNotFound is returned by the failed-sale operations when the bill
	// is not in the dead letter. Remove on the pending side is a no-op
	// instead, because reconciliation may be retried.
	ErrNotFound = errors.New("sale not found")
)

// Store is the durable local queue of sales waiting for the ledger. Put and
// Remove are atomic single-record operations; a record is never partially
// written. ListAll carries no ordering guarantee beyond containing everything
// put and not yet removed.
//
// The dead-letter operations hold sales that failed a permanent validation
// check at the ledger. They are out of the retry loop until an operator
// requeues or dismisses them.
type Store interface {
	Put(ctx context.Context, record *models.SaleRecord) error
	ListAll(ctx context.Context) ([]models.SaleRecord, error)
	Remove(ctx context.Context, billID string) error

	Fail(ctx context.Context, record *models.SaleRecord, reason string) error
	ListFailed(ctx context.Context) ([]models.FailedSale, error)
	Requeue(ctx context.Context, billID string) error
	Dismiss(ctx context.Context, billID string) error
}
