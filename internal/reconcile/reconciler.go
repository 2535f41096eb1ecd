package reconcile

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/notice"
	"pos-service/internal/pending"
	"pos-service/internal/submit"
	"pos-service/internal/util"
)

// Submitter sends one sale to the ledger. Failures carry a submit.ErrorKind.
type Submitter interface {
	Submit(ctx context.Context, record *models.SaleRecord) (string, error)
}

// Report is the outcome of one reconciliation pass. Attempted counts only
// sales actually submitted; an aborted pass leaves the rest for the next one.
type Report struct {
	Attempted int  `json:"attempted"`
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Aborted   bool `json:"aborted"`
}

// Reconciler drains the pending store against the ledger. At most one drain
// is in flight; triggers arriving while one runs are dropped.
type Reconciler struct {
	store     pending.Store
	submitter Submitter
	board     *notice.Board
	events    *broker.EventPublisher
	logger    *zap.Logger
	draining  atomic.Bool
}

// New creates a reconciler over the given store and submitter
func New(store pending.Store, submitter Submitter, board *notice.Board, events *broker.EventPublisher) *Reconciler {
	return &Reconciler{
		store:     store,
		submitter: submitter,
		board:     board,
		events:    events,
		logger:    util.GetLogger(),
	}
}

// Draining reports whether a pass is currently running
func (r *Reconciler) Draining() bool {
	return r.draining.Load()
}

// TriggerDrain starts a drain in the background. The connectivity monitor
// calls this from its transition handler; the API calls it for manual sync.
func (r *Reconciler) TriggerDrain() {
	go func() {
		if _, err := r.Drain(context.Background()); err != nil {
			r.logger.Error("Reconciliation pass failed", zap.Error(err))
		}
	}()
}

// Drain runs one reconciliation pass. It snapshots the queue once at the
// start; sales queued during the pass wait for the next one. Returns a nil
// report when dropped because another pass holds the flag.
func (r *Reconciler) Drain(ctx context.Context) (*Report, error) {
	if !r.draining.CompareAndSwap(false, true) {
		util.SyncDrainsDroppedTotal.Inc()
		r.logger.Info("Drain already in flight, trigger dropped")
		return nil, nil
	}
	defer r.draining.Store(false)

	ctx, span := util.StartSpan(ctx, "Reconciler.Drain")
	defer span.End()

	snapshot, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending sales: %w", err)
	}
	if len(snapshot) == 0 {
		return &Report{}, nil
	}

	util.SyncDrainsTotal.Inc()
	r.board.Post(notice.LevelInfo, notice.CodeSyncStarted,
		fmt.Sprintf("Syncing %d pending sale(s)", len(snapshot)))

	report := &Report{}
	for i := range snapshot {
		rec := &snapshot[i]
		report.Attempted++

		saleID, err := r.submitter.Submit(ctx, rec)
		if err == nil {
			r.confirm(ctx, rec, saleID)
			report.Succeeded++
			continue
		}

		report.Failed++
		switch submit.KindOf(err) {
		case submit.KindValidation:
			r.deadLetter(ctx, rec, err)
		case submit.KindAuth:
			// A stale session fails every remaining sale identically.
			util.SyncSubmitFailedTotal.WithLabelValues("auth").Inc()
			r.board.Post(notice.LevelError, notice.CodeAuthFailed,
				fmt.Sprintf("Sync aborted, session not authorized: %v", err))
			report.Aborted = true
		default:
			util.SyncSubmitFailedTotal.WithLabelValues("transient").Inc()
			r.logger.Warn("Sale submission failed, will retry next drain",
				zap.String("bill_id", rec.BillID),
				zap.Error(err))
		}

		if report.Aborted {
			break
		}
	}

	r.finish(ctx, report)
	return report, nil
}

// FlushSale submits one just-queued sale in the background of an online
// checkout. The checkout itself never waits on this.
func (r *Reconciler) FlushSale(ctx context.Context, rec *models.SaleRecord) error {
	saleID, err := r.submitter.Submit(ctx, rec)
	if err == nil {
		r.confirm(ctx, rec, saleID)
		return nil
	}

	switch submit.KindOf(err) {
	case submit.KindValidation:
		r.deadLetter(ctx, rec, err)
	case submit.KindAuth:
		util.SyncSubmitFailedTotal.WithLabelValues("auth").Inc()
		r.board.Post(notice.LevelError, notice.CodeAuthFailed,
			fmt.Sprintf("Sale %s not accepted, session not authorized", rec.BillID))
	default:
		util.SyncSubmitFailedTotal.WithLabelValues("transient").Inc()
		r.board.Post(notice.LevelWarn, notice.CodeSubmitError,
			fmt.Sprintf("Sale %s could not reach the ledger, queued for sync", rec.BillID))
	}
	return err
}

func (r *Reconciler) confirm(ctx context.Context, rec *models.SaleRecord, saleID string) {
	if err := r.store.Remove(ctx, rec.BillID); err != nil {
		// The ledger holds the bill; the next remove attempt is a no-op
		// and resubmission is deduplicated by bill ID.
		r.logger.Error("Failed to remove confirmed sale from queue",
			zap.String("bill_id", rec.BillID),
			zap.Error(err))
	}

	util.SyncSubmitSuccessTotal.Inc()
	r.board.Post(notice.LevelInfo, notice.CodeSaleSynced,
		fmt.Sprintf("Sale %s recorded by the ledger as %s", rec.BillID, saleID))

	if err := r.events.PublishSaleSynced(ctx, rec, saleID); err != nil {
		r.logger.Error("Failed to publish SaleSynced event", zap.Error(err))
	}
}

func (r *Reconciler) deadLetter(ctx context.Context, rec *models.SaleRecord, cause error) {
	util.SyncSubmitFailedTotal.WithLabelValues("validation").Inc()

	if err := r.store.Fail(ctx, rec, cause.Error()); err != nil {
		r.logger.Error("Failed to dead-letter sale",
			zap.String("bill_id", rec.BillID),
			zap.Error(err))
		return
	}

	r.board.Post(notice.LevelError, notice.CodeSaleFailed,
		fmt.Sprintf("Sale %s rejected by the ledger: %v", rec.BillID, cause))

	if err := r.events.PublishSaleSyncFailed(ctx, rec, cause.Error()); err != nil {
		r.logger.Error("Failed to publish SaleSyncFailed event", zap.Error(err))
	}
}

func (r *Reconciler) finish(ctx context.Context, report *Report) {
	if remaining, err := r.store.ListAll(ctx); err == nil {
		util.PendingQueueDepth.Set(float64(len(remaining)))
	}

	code := notice.CodeSyncCompleted
	level := notice.LevelInfo
	if report.Aborted {
		code = notice.CodeSyncAborted
		level = notice.LevelError
	} else if report.Failed > 0 {
		level = notice.LevelWarn
	}
	r.board.Post(level, code,
		fmt.Sprintf("Sync finished: attempted=%d succeeded=%d failed=%d",
			report.Attempted, report.Succeeded, report.Failed))

	if err := r.events.PublishSyncCompleted(ctx, report.Attempted, report.Succeeded, report.Failed, report.Aborted); err != nil {
		r.logger.Error("Failed to publish SyncCompleted event", zap.Error(err))
	}

	r.logger.Info("Reconciliation pass finished",
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Bool("aborted", report.Aborted))
}
