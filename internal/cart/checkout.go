package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pos-service/internal/broker"
	"pos-service/internal/connectivity"
	"pos-service/internal/inventory"
	"pos-service/internal/models"
	"pos-service/internal/notice"
	"pos-service/internal/pending"
	"pos-service/internal/reconcile"
	"pos-service/internal/util"
)

// Service drives the checkout flow for one terminal: one active cart,
// stock-guarded additions against the inventory snapshot, and the
// online/offline routing decision at payment time. Completion is optimistic:
// the sale is durably queued before any network I/O, so checkout never
// blocks on the ledger.
type Service struct {
	cart         *Cart
	store        pending.Store
	reconciler   *reconcile.Reconciler
	monitor      *connectivity.Monitor
	inv          *inventory.Client
	board        *notice.Board
	events       *broker.EventPublisher
	logger       *zap.Logger
	operatorID   string
	flushTimeout time.Duration
}

// NewService creates the checkout service with a fresh cart
func NewService(
	store pending.Store,
	reconciler *reconcile.Reconciler,
	monitor *connectivity.Monitor,
	inv *inventory.Client,
	board *notice.Board,
	events *broker.EventPublisher,
	operatorID string,
	flushTimeout time.Duration,
) *Service {
	return &Service{
		cart:         New(),
		store:        store,
		reconciler:   reconciler,
		monitor:      monitor,
		inv:          inv,
		board:        board,
		events:       events,
		logger:       util.GetLogger(),
		operatorID:   operatorID,
		flushTimeout: flushTimeout,
	}
}

// Cart exposes the active cart for reads
func (s *Service) Cart() *Cart {
	return s.cart
}

// AddItem validates qty against the last-fetched stock snapshot and adds the
// item to the cart
func (s *Service) AddItem(ctx context.Context, itemID string, qty int) error {
	level, err := s.inv.StockFor(ctx, itemID)
	if err != nil {
		return err
	}

	if err := s.cart.AddItem(level, qty); err != nil {
		var sle *StockLimitError
		if errors.As(err, &sle) {
			util.CheckoutRejectedTotal.WithLabelValues("stock_limit").Inc()
			s.board.Post(notice.LevelWarn, notice.CodeStockLimit,
				fmt.Sprintf("Only %d of %s in stock (%d already in cart)", sle.Stock, level.Name, sle.InCart))
		}
		return err
	}
	return nil
}

// RemoveItem drops a line item from the cart
func (s *Service) RemoveItem(itemID string) {
	s.cart.RemoveItem(itemID)
}

// SetCustomer records the buyer, guarding the mandatory fields
func (s *Service) SetCustomer(customer models.Customer) error {
	err := s.cart.SetCustomer(customer)
	switch {
	case errors.Is(err, ErrMissingCustomer):
		util.CheckoutRejectedTotal.WithLabelValues("missing_customer").Inc()
		s.board.Post(notice.LevelWarn, notice.CodeMissingCustomer,
			"Customer name and phone are required before payment")
	case errors.Is(err, ErrEmptyCart):
		util.CheckoutRejectedTotal.WithLabelValues("empty_cart").Inc()
		s.board.Post(notice.LevelWarn, notice.CodeEmptyCart,
			"Add at least one item before entering customer info")
	}
	return err
}

// CompleteSale finalizes the sale on payment-method selection. The record is
// written to the pending store first; when online, a background flush sends
// it to the ledger without the checkout waiting on the outcome.
func (s *Service) CompleteSale(ctx context.Context, paymentMethod, notes string) (*models.SaleRecord, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CompleteSale")
	defer span.End()

	record, err := s.cart.Finalize(paymentMethod, s.operatorID, notes)
	if err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, record); err != nil {
		// Without a durable copy the sale would be lost on a crash, so
		// the checkout is not allowed to complete.
		s.cart.Reopen()
		util.CheckoutRejectedTotal.WithLabelValues("queue_error").Inc()
		return nil, fmt.Errorf("failed to queue sale: %w", err)
	}

	online := s.monitor.Online()
	mode := "offline"
	if online {
		mode = "online"
	}

	util.SalesQueuedTotal.Inc()
	util.SalesCompletedTotal.WithLabelValues(mode).Inc()
	if pendingNow, err := s.store.ListAll(ctx); err == nil {
		util.PendingQueueDepth.Set(float64(len(pendingNow)))
	}

	s.board.Post(notice.LevelInfo, notice.CodeSaleQueued,
		fmt.Sprintf("Sale %s completed (%s), total %d", record.BillID, mode, record.FinalAmount))

	if err := s.events.PublishSaleQueued(ctx, record, !online); err != nil {
		s.logger.Error("Failed to publish SaleQueued event", zap.Error(err))
	}

	s.logger.Info("Sale completed",
		zap.String("bill_id", record.BillID),
		zap.String("mode", mode),
		zap.Int64("final_amount", record.FinalAmount))

	if online {
		go func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), s.flushTimeout)
			defer cancel()
			if err := s.reconciler.FlushSale(flushCtx, record); err != nil {
				s.logger.Warn("Background flush did not confirm sale",
					zap.String("bill_id", record.BillID),
					zap.Error(err))
			}
		}()
	}

	return record, nil
}

// StartNewSale resets the cart back to Browsing
func (s *Service) StartNewSale() {
	s.cart.Reset()
}
