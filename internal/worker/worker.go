package worker

import (
	"context"
	"log"

	"pos-service/internal/broker"
	"pos-service/internal/ledger"
)

// ReportingWorker consumes SaleRecorded events and maintains the daily
// sales rollups. Replays are absorbed by the processed-events table, so the
// worker can be restarted or rebalanced safely.
type ReportingWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewReportingWorker creates a new reporting worker
func NewReportingWorker(consumer *broker.Consumer, service *ledger.Service) *ReportingWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnSaleRecorded(service.ApplySaleRecorded)

	return &ReportingWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *ReportingWorker) Start(ctx context.Context) error {
	log.Println("Starting reporting worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReportingWorker) Stop() error {
	log.Println("Stopping reporting worker...")
	return w.consumer.Close()
}
