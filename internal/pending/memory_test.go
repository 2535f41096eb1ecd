package pending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-service/internal/models"
)

func testRecord(billID string) *models.SaleRecord {
	return &models.SaleRecord{
		BillID: billID,
		Items: []models.SaleItem{
			{ItemID: "rice", Name: "Rice", Quantity: 2, UnitPrice: 5000, LineTotal: 10000},
		},
		Customer:      models.Customer{Name: "A", Phone: "123"},
		Subtotal:      10000,
		FinalAmount:   10000,
		Timestamp:     time.Now(),
		PaymentMethod: models.PaymentMethodCash,
		UserID:        "operator-1",
	}
}

func TestMemoryStorePutListRemove(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testRecord("BILL-1")))
	require.NoError(t, store.Put(ctx, testRecord("BILL-2")))

	records, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	require.NoError(t, store.Remove(ctx, "BILL-1"))

	records, err = store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "BILL-2", records[0].BillID)
}

func TestMemoryStoreRemoveAbsentIsNoop(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	assert.NoError(t, store.Remove(ctx, "BILL-missing"))

	// Retried removal after a successful drain must also be silent.
	require.NoError(t, store.Put(ctx, testRecord("BILL-1")))
	require.NoError(t, store.Remove(ctx, "BILL-1"))
	assert.NoError(t, store.Remove(ctx, "BILL-1"))
}

func TestMemoryStorePutOverwritesSameBill(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testRecord("BILL-1")))
	require.NoError(t, store.Put(ctx, testRecord("BILL-1")))

	records, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMemoryStoreFailLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := testRecord("BILL-1")
	require.NoError(t, store.Put(ctx, rec))
	require.NoError(t, store.Fail(ctx, rec, "item no longer exists"))

	records, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records, "failed sale must leave the retry queue")

	failed, err := store.ListFailed(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "BILL-1", failed[0].Record.BillID)
	assert.Equal(t, "item no longer exists", failed[0].Reason)

	require.NoError(t, store.Requeue(ctx, "BILL-1"))

	records, err = store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	failed, err = store.ListFailed(ctx)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestMemoryStoreDismiss(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := testRecord("BILL-1")
	require.NoError(t, store.Fail(ctx, rec, "rejected"))
	require.NoError(t, store.Dismiss(ctx, "BILL-1"))

	failed, err := store.ListFailed(ctx)
	require.NoError(t, err)
	assert.Empty(t, failed)

	assert.ErrorIs(t, store.Dismiss(ctx, "BILL-1"), ErrNotFound)
	assert.ErrorIs(t, store.Requeue(ctx, "BILL-1"), ErrNotFound)
}
