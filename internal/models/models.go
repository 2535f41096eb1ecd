package models

import "time"

// Payment methods accepted at the terminal.
const (
	PaymentMethodCash   = "cash"
	PaymentMethodOnline = "online"
)

// Customer is the buyer recorded on a sale. Name and Phone are mandatory
// before a sale can be finalized.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// SaleItem is one line on a sale. LineTotal is always Quantity * UnitPrice,
// in cents.
type SaleItem struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

// SaleRecord is the durable unit of work. BillID is minted client-side at
// checkout and doubles as the idempotency key for submission and the primary
// key in the pending store. A SaleRecord is immutable once created.
type SaleRecord struct {
	BillID        string     `json:"bill_id"`
	Items         []SaleItem `json:"items"`
	Customer      Customer   `json:"customer"`
	Subtotal      int64      `json:"subtotal"`
	FinalAmount   int64      `json:"final_amount"`
	Notes         string     `json:"notes,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
	PaymentMethod string     `json:"payment_method"`
	UserID        string     `json:"user_id"`
}

// FailedSale is a sale that was rejected by the ledger with a permanent
// validation error and pulled out of the retry loop. It stays visible to the
// operator until requeued or dismissed.
type FailedSale struct {
	Record   SaleRecord `json:"record"`
	Reason   string     `json:"reason"`
	FailedAt time.Time  `json:"failed_at"`
}

// StockLevel is one entry of the inventory snapshot the terminal validates
// cart additions against. It is a snapshot, not a lock.
type StockLevel struct {
	ItemID    string `json:"item_id" db:"item_id"`
	Name      string `json:"name" db:"name"`
	UnitPrice int64  `json:"unit_price" db:"unit_price"`
	Available int    `json:"available" db:"available"`
}

// Sale is the ledger-side row for an accepted sale.
type Sale struct {
	ID            string    `db:"id" json:"id"`
	BillID        string    `db:"bill_id" json:"bill_id"`
	UserID        string    `db:"user_id" json:"user_id"`
	CustomerName  string    `db:"customer_name" json:"customer_name"`
	CustomerPhone string    `db:"customer_phone" json:"customer_phone"`
	Subtotal      int64     `db:"subtotal" json:"subtotal"`
	FinalAmount   int64     `db:"final_amount" json:"final_amount"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	Notes         string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// SaleRow is a ledger-side line item.
type SaleRow struct {
	ID        int64  `db:"id" json:"id"`
	SaleID    string `db:"sale_id" json:"sale_id"`
	ItemID    string `db:"item_id" json:"item_id"`
	Name      string `db:"name" json:"name"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
}

// DailySales is the reporting rollup maintained by the ledger worker.
type DailySales struct {
	Day         time.Time `db:"day" json:"day"`
	SalesCount  int64     `db:"sales_count" json:"sales_count"`
	TotalAmount int64     `db:"total_amount" json:"total_amount"`
}

// ProcessedEvent guards the reporting worker against replays.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// SubmitResponse is the ledger's answer to a sale submission. Duplicate is
// set when the bill was already recorded; the terminal treats that as
// success.
type SubmitResponse struct {
	SaleID    string `json:"sale_id"`
	Duplicate bool   `json:"duplicate"`
}
