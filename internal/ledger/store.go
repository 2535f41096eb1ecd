package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"pos-service/internal/models"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnknownItem       = errors.New("unknown item")
)

const pgUniqueViolation = "23505"

type Store struct {
	db *sqlx.DB
}

// NewStore connects to the ledger database
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSale records a sale and decrements inventory in one transaction, or
// neither. The bill ID is the idempotency key: a bill already recorded
// returns the existing sale with duplicate=true and touches nothing, so a
// retried submission never double-decrements stock.
func (s *Store) RecordSale(ctx context.Context, rec *models.SaleRecord) (*models.Sale, bool, error) {
	existing, err := s.GetSaleByBillID(ctx, rec.BillID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	sale, err := s.recordSaleTx(ctx, rec)
	if err != nil {
		// A concurrent submission of the same bill can win the race
		// between the duplicate check and the insert.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			existing, lookupErr := s.GetSaleByBillID(ctx, rec.BillID)
			if lookupErr == nil && existing != nil {
				return existing, true, nil
			}
		}
		return nil, false, err
	}
	return sale, false, nil
}

func (s *Store) recordSaleTx(ctx context.Context, rec *models.SaleRecord) (*models.Sale, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, item := range rec.Items {
		var available int
		err := tx.GetContext(ctx, &available,
			"SELECT available FROM inventory WHERE item_id = $1 FOR UPDATE", item.ItemID)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", ErrUnknownItem, item.ItemID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to lock inventory for %s: %w", item.ItemID, err)
		}

		if available < item.Quantity {
			return nil, fmt.Errorf("%w for %s: available=%d, requested=%d",
				ErrInsufficientStock, item.ItemID, available, item.Quantity)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE inventory SET available = available - $1, updated_at = NOW() WHERE item_id = $2",
			item.Quantity, item.ItemID)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock for %s: %w", item.ItemID, err)
		}
	}

	sale := &models.Sale{
		ID:            uuid.New().String(),
		BillID:        rec.BillID,
		UserID:        rec.UserID,
		CustomerName:  rec.Customer.Name,
		CustomerPhone: rec.Customer.Phone,
		Subtotal:      rec.Subtotal,
		FinalAmount:   rec.FinalAmount,
		PaymentMethod: rec.PaymentMethod,
		Notes:         rec.Notes,
	}

	query := `
		INSERT INTO sales (id, bill_id, user_id, customer_name, customer_phone, subtotal, final_amount, payment_method, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	if err := tx.GetContext(ctx, &sale.CreatedAt, query,
		sale.ID, sale.BillID, sale.UserID, sale.CustomerName, sale.CustomerPhone,
		sale.Subtotal, sale.FinalAmount, sale.PaymentMethod, sale.Notes); err != nil {
		return nil, err
	}

	for _, item := range rec.Items {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO sale_items (sale_id, item_id, name, quantity, unit_price) VALUES ($1, $2, $3, $4, $5)",
			sale.ID, item.ItemID, item.Name, item.Quantity, item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("failed to insert sale item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sale, nil
}

// GetSaleByBillID retrieves a sale by its bill ID, nil when absent
func (s *Store) GetSaleByBillID(ctx context.Context, billID string) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, "SELECT * FROM sales WHERE bill_id = $1", billID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// GetSaleItems retrieves the line items of a sale
func (s *Store) GetSaleItems(ctx context.Context, saleID string) ([]models.SaleRow, error) {
	var items []models.SaleRow
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM sale_items WHERE sale_id = $1", saleID)
	return items, err
}

// GetStockLevels retrieves the full inventory snapshot
func (s *Store) GetStockLevels(ctx context.Context) ([]models.StockLevel, error) {
	var levels []models.StockLevel
	err := s.db.SelectContext(ctx, &levels,
		"SELECT item_id, name, unit_price, available FROM inventory ORDER BY item_id")
	return levels, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}

// UpsertDailySales folds one recorded sale into the day's rollup
func (s *Store) UpsertDailySales(ctx context.Context, day time.Time, amount int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_sales (day, sales_count, total_amount)
		VALUES ($1, 1, $2)
		ON CONFLICT (day) DO UPDATE
		SET sales_count = daily_sales.sales_count + 1,
		    total_amount = daily_sales.total_amount + EXCLUDED.total_amount`,
		day.Format("2006-01-02"), amount)
	return err
}

// GetDailySales retrieves rollups for a date range
func (s *Store) GetDailySales(ctx context.Context, from, to time.Time) ([]models.DailySales, error) {
	var rollups []models.DailySales
	err := s.db.SelectContext(ctx, &rollups,
		"SELECT * FROM daily_sales WHERE day BETWEEN $1 AND $2 ORDER BY day",
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	return rollups, err
}
