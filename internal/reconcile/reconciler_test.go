package reconcile

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/notice"
	"pos-service/internal/pending"
	"pos-service/internal/submit"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []interface{}
}

func (f *fakePublisher) PublishEvent(ctx context.Context, key string, event interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeSubmitter struct {
	mu       sync.Mutex
	failures map[string]error
	calls    []string
}

func (f *fakeSubmitter) Submit(ctx context.Context, record *models.SaleRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, record.BillID)
	if err, ok := f.failures[record.BillID]; ok {
		return "", err
	}
	return "sale-" + record.BillID, nil
}

func queuedSale(billID string) *models.SaleRecord {
	return &models.SaleRecord{
		BillID:        billID,
		Items:         []models.SaleItem{{ItemID: "rice", Name: "Rice", Quantity: 2, UnitPrice: 5000, LineTotal: 10000}},
		Customer:      models.Customer{Name: "A", Phone: "123"},
		Subtotal:      10000,
		FinalAmount:   10000,
		Timestamp:     time.Now(),
		PaymentMethod: models.PaymentMethodCash,
		UserID:        "operator-1",
	}
}

func newTestReconciler(store pending.Store, submitter Submitter) *Reconciler {
	board := notice.NewBoard(50)
	events := broker.NewEventPublisher(&fakePublisher{})
	return New(store, submitter, board, events)
}

func TestDrainRemovesConfirmedSales(t *testing.T) {
	ctx := context.Background()
	store := pending.NewMemoryStore()
	require.NoError(t, store.Put(ctx, queuedSale("BILL-1")))
	require.NoError(t, store.Put(ctx, queuedSale("BILL-2")))

	r := newTestReconciler(store, &fakeSubmitter{})

	report, err := r.Drain(ctx)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)

	remaining, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestDrainPartialFailureIsolation(t *testing.T) {
	ctx := context.Background()
	store := pending.NewMemoryStore()
	require.NoError(t, store.Put(ctx, queuedSale("BILL-1")))
	require.NoError(t, store.Put(ctx, queuedSale("BILL-2")))
	require.NoError(t, store.Put(ctx, queuedSale("BILL-3")))

	submitter := &fakeSubmitter{failures: map[string]error{
		"BILL-2": &submit.Error{Kind: submit.KindValidation, Status: http.StatusConflict, Message: "item no longer exists"},
	}}
	r := newTestReconciler(store, submitter)

	report, err := r.Drain(ctx)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.Aborted)

	remaining, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining, "validation failure must leave the retry queue")

	failed, err := store.ListFailed(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "BILL-2", failed[0].Record.BillID)
}

func TestDrainTransientFailureStaysQueued(t *testing.T) {
	ctx := context.Background()
	store := pending.NewMemoryStore()
	require.NoError(t, store.Put(ctx, queuedSale("BILL-1")))

	submitter := &fakeSubmitter{failures: map[string]error{
		"BILL-1": &submit.Error{Kind: submit.KindTransient, Message: "connection refused"},
	}}
	r := newTestReconciler(store, submitter)

	report, err := r.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	remaining, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "transient failure must stay queued")

	failed, err := store.ListFailed(ctx)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestDrainAbortsOnAuthFailure(t *testing.T) {
	ctx := context.Background()
	store := pending.NewMemoryStore()
	require.NoError(t, store.Put(ctx, queuedSale("BILL-1")))
	require.NoError(t, store.Put(ctx, queuedSale("BILL-2")))
	require.NoError(t, store.Put(ctx, queuedSale("BILL-3")))

	authErr := &submit.Error{Kind: submit.KindAuth, Status: http.StatusUnauthorized, Message: "token expired"}
	submitter := &fakeSubmitter{failures: map[string]error{
		"BILL-1": authErr,
		"BILL-2": authErr,
		"BILL-3": authErr,
	}}
	r := newTestReconciler(store, submitter)

	report, err := r.Drain(ctx)
	require.NoError(t, err)
	assert.True(t, report.Aborted)
	assert.Equal(t, 1, report.Attempted, "remaining sales are not attempted under a stale session")

	remaining, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}

type blockingSubmitter struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSubmitter) Submit(ctx context.Context, record *models.SaleRecord) (string, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return "sale-" + record.BillID, nil
}

func TestDrainReentrantTriggerDropped(t *testing.T) {
	ctx := context.Background()
	store := pending.NewMemoryStore()
	require.NoError(t, store.Put(ctx, queuedSale("BILL-1")))

	submitter := &blockingSubmitter{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	r := newTestReconciler(store, submitter)

	done := make(chan *Report, 1)
	go func() {
		report, _ := r.Drain(ctx)
		done <- report
	}()

	<-submitter.started
	assert.True(t, r.Draining())

	dropped, err := r.Drain(ctx)
	require.NoError(t, err)
	assert.Nil(t, dropped, "second drain must be dropped while one is in flight")

	close(submitter.release)
	report := <-done
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Succeeded)
	assert.False(t, r.Draining())
}

func TestDrainSnapshotExcludesSalesQueuedMidPass(t *testing.T) {
	ctx := context.Background()
	store := pending.NewMemoryStore()
	require.NoError(t, store.Put(ctx, queuedSale("BILL-1")))

	submitter := &blockingSubmitter{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	r := newTestReconciler(store, submitter)

	done := make(chan *Report, 1)
	go func() {
		report, _ := r.Drain(ctx)
		done <- report
	}()

	<-submitter.started
	require.NoError(t, store.Put(ctx, queuedSale("BILL-late")))
	close(submitter.release)

	report := <-done
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Attempted, "sales queued during a pass wait for the next one")

	remaining, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "BILL-late", remaining[0].BillID)
}

func TestFlushSaleConfirmsAndRemoves(t *testing.T) {
	ctx := context.Background()
	store := pending.NewMemoryStore()
	rec := queuedSale("BILL-1")
	require.NoError(t, store.Put(ctx, rec))

	r := newTestReconciler(store, &fakeSubmitter{})
	require.NoError(t, r.FlushSale(ctx, rec))

	remaining, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestFlushSaleTransientKeepsRecordQueued(t *testing.T) {
	ctx := context.Background()
	store := pending.NewMemoryStore()
	rec := queuedSale("BILL-1")
	require.NoError(t, store.Put(ctx, rec))

	submitter := &fakeSubmitter{failures: map[string]error{
		"BILL-1": &submit.Error{Kind: submit.KindTransient, Message: "timeout"},
	}}
	r := newTestReconciler(store, submitter)

	err := r.FlushSale(ctx, rec)
	require.Error(t, err)

	remaining, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
