package models

import "time"

// Event types
const (
	EventTypeSaleQueued          = "SALE_QUEUED"
	EventTypeSaleSynced          = "SALE_SYNCED"
	EventTypeSaleSyncFailed      = "SALE_SYNC_FAILED"
	EventTypeSaleRecorded        = "SALE_RECORDED"
	EventTypeSyncCompleted       = "SYNC_COMPLETED"
	EventTypeConnectivityChanged = "CONNECTIVITY_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleQueuedEvent published when a finalized sale lands in the pending store
type SaleQueuedEvent struct {
	BaseEvent
	BillID      string `json:"bill_id"`
	UserID      string `json:"user_id"`
	FinalAmount int64  `json:"final_amount"`
	Offline     bool   `json:"offline"`
}

// SaleSyncedEvent published when the ledger confirms a queued sale
type SaleSyncedEvent struct {
	BaseEvent
	BillID      string `json:"bill_id"`
	SaleID      string `json:"sale_id"`
	FinalAmount int64  `json:"final_amount"`
}

// SaleSyncFailedEvent published when a queued sale is rejected permanently
type SaleSyncFailedEvent struct {
	BaseEvent
	BillID string `json:"bill_id"`
	Reason string `json:"reason"`
}

// SaleRecordedEvent published by the ledger after the sale transaction commits
type SaleRecordedEvent struct {
	BaseEvent
	SaleID      string    `json:"sale_id"`
	BillID      string    `json:"bill_id"`
	UserID      string    `json:"user_id"`
	FinalAmount int64     `json:"final_amount"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// SyncCompletedEvent published after a reconciliation pass finishes
type SyncCompletedEvent struct {
	BaseEvent
	Attempted int  `json:"attempted"`
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Aborted   bool `json:"aborted"`
}

// ConnectivityChangedEvent published on every online/offline transition
type ConnectivityChangedEvent struct {
	BaseEvent
	TerminalID string `json:"terminal_id"`
	Online     bool   `json:"online"`
}
