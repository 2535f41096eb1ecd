package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/util"
)

// Service wraps the store with validation, metrics and event publishing.
type Service struct {
	store  *Store
	events *broker.EventPublisher
	logger *zap.Logger
}

// NewService creates a new ledger service
func NewService(store *Store, events *broker.EventPublisher) *Service {
	return &Service{
		store:  store,
		events: events,
		logger: util.GetLogger(),
	}
}

// ValidateSubmission rejects structurally broken payloads before they reach
// the transaction
func ValidateSubmission(rec *models.SaleRecord) error {
	if rec.BillID == "" {
		return errors.New("bill_id is required")
	}
	if len(rec.Items) == 0 {
		return errors.New("at least one item is required")
	}
	if rec.Customer.Name == "" || rec.Customer.Phone == "" {
		return errors.New("customer name and phone are required")
	}
	if rec.PaymentMethod != models.PaymentMethodCash && rec.PaymentMethod != models.PaymentMethodOnline {
		return fmt.Errorf("unknown payment method %q", rec.PaymentMethod)
	}
	var subtotal int64
	for _, item := range rec.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("item %s: quantity must be positive", item.ItemID)
		}
		if item.LineTotal != int64(item.Quantity)*item.UnitPrice {
			return fmt.Errorf("item %s: line total mismatch", item.ItemID)
		}
		subtotal += item.LineTotal
	}
	if rec.Subtotal != subtotal || rec.FinalAmount != subtotal {
		return errors.New("amounts do not match line totals")
	}
	return nil
}

// RecordSale runs the transactional sale insert and publishes SaleRecorded.
// Duplicates are absorbed without a second event.
func (s *Service) RecordSale(ctx context.Context, rec *models.SaleRecord) (*models.Sale, bool, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.RecordSale")
	defer span.End()

	start := time.Now()
	defer func() {
		util.LedgerRecordLatency.Observe(time.Since(start).Seconds())
	}()

	sale, duplicate, err := s.store.RecordSale(ctx, rec)
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientStock):
			util.LedgerSalesRejectedTotal.WithLabelValues("insufficient_stock").Inc()
		case errors.Is(err, ErrUnknownItem):
			util.LedgerSalesRejectedTotal.WithLabelValues("unknown_item").Inc()
		default:
			util.LedgerSalesRejectedTotal.WithLabelValues("error").Inc()
		}
		return nil, false, err
	}

	if duplicate {
		util.LedgerSalesDuplicateTotal.Inc()
		s.logger.Info("Duplicate bill absorbed",
			zap.String("bill_id", rec.BillID),
			zap.String("sale_id", sale.ID))
		return sale, true, nil
	}

	util.LedgerSalesRecordedTotal.Inc()
	s.logger.Info("Sale recorded",
		zap.String("bill_id", sale.BillID),
		zap.String("sale_id", sale.ID),
		zap.Int64("final_amount", sale.FinalAmount))

	if err := s.events.PublishSaleRecorded(ctx, sale); err != nil {
		s.logger.Error("Failed to publish SaleRecorded event", zap.Error(err))
	}

	return sale, false, nil
}

// GetStockLevels returns the inventory snapshot served to terminals
func (s *Service) GetStockLevels(ctx context.Context) ([]models.StockLevel, error) {
	return s.store.GetStockLevels(ctx)
}

// GetDailySales returns reporting rollups for a date range
func (s *Service) GetDailySales(ctx context.Context, from, to time.Time) ([]models.DailySales, error) {
	return s.store.GetDailySales(ctx, from, to)
}

// ApplySaleRecorded folds a consumed SaleRecorded event into the daily
// rollup, once per event ID
func (s *Service) ApplySaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error {
	processed, err := s.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		s.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	day := event.RecordedAt
	if day.IsZero() {
		day = event.Timestamp
	}
	if err := s.store.UpsertDailySales(ctx, day, event.FinalAmount); err != nil {
		return fmt.Errorf("failed to update daily rollup: %w", err)
	}

	if err := s.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}
