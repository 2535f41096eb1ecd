package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"pos-service/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing sale lifecycle events
type EventPublisher struct {
	publisher Publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(publisher Publisher) *EventPublisher {
	return &EventPublisher{publisher: publisher}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// PublishSaleQueued publishes SaleQueued after a sale lands in the pending store
func (ep *EventPublisher) PublishSaleQueued(ctx context.Context, record *models.SaleRecord, offline bool) error {
	event := &models.SaleQueuedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeSaleQueued),
		BillID:      record.BillID,
		UserID:      record.UserID,
		FinalAmount: record.FinalAmount,
		Offline:     offline,
	}
	return ep.publisher.PublishEvent(ctx, record.BillID, event)
}

// PublishSaleSynced publishes SaleSynced after the ledger confirms a bill
func (ep *EventPublisher) PublishSaleSynced(ctx context.Context, record *models.SaleRecord, saleID string) error {
	event := &models.SaleSyncedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeSaleSynced),
		BillID:      record.BillID,
		SaleID:      saleID,
		FinalAmount: record.FinalAmount,
	}
	return ep.publisher.PublishEvent(ctx, record.BillID, event)
}

// PublishSaleSyncFailed publishes SaleSyncFailed when a bill is dead-lettered
func (ep *EventPublisher) PublishSaleSyncFailed(ctx context.Context, record *models.SaleRecord, reason string) error {
	event := &models.SaleSyncFailedEvent{
		BaseEvent: newBaseEvent(models.EventTypeSaleSyncFailed),
		BillID:    record.BillID,
		Reason:    reason,
	}
	return ep.publisher.PublishEvent(ctx, record.BillID, event)
}

// PublishSaleRecorded publishes SaleRecorded after the ledger transaction commits
func (ep *EventPublisher) PublishSaleRecorded(ctx context.Context, sale *models.Sale) error {
	event := &models.SaleRecordedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeSaleRecorded),
		SaleID:      sale.ID,
		BillID:      sale.BillID,
		UserID:      sale.UserID,
		FinalAmount: sale.FinalAmount,
		RecordedAt:  sale.CreatedAt,
	}
	return ep.publisher.PublishEvent(ctx, sale.BillID, event)
}

// PublishSyncCompleted publishes SyncCompleted with the drain counts
func (ep *EventPublisher) PublishSyncCompleted(ctx context.Context, attempted, succeeded, failed int, aborted bool) error {
	event := &models.SyncCompletedEvent{
		BaseEvent: newBaseEvent(models.EventTypeSyncCompleted),
		Attempted: attempted,
		Succeeded: succeeded,
		Failed:    failed,
		Aborted:   aborted,
	}
	return ep.publisher.PublishEvent(ctx, event.EventID, event)
}

// PublishConnectivityChanged publishes ConnectivityChanged on every transition
func (ep *EventPublisher) PublishConnectivityChanged(ctx context.Context, terminalID string, online bool) error {
	event := &models.ConnectivityChangedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeConnectivityChanged),
		TerminalID: terminalID,
		Online:     online,
	}
	return ep.publisher.PublishEvent(ctx, terminalID, event)
}

// EventHandler routes consumed events to registered handlers
type EventHandler struct {
	onSaleRecorded func(context.Context, *models.SaleRecordedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnSaleRecorded registers a handler for SaleRecorded events
func (eh *EventHandler) OnSaleRecorded(handler func(context.Context, *models.SaleRecordedEvent) error) {
	eh.onSaleRecorded = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeSaleRecorded:
		if eh.onSaleRecorded != nil {
			var event models.SaleRecordedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SaleRecorded event: %w", err)
			}
			return eh.onSaleRecorded(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
