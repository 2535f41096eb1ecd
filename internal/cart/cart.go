package cart

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"pos-service/internal/models"
)

// Checkout states
const (
	StateBrowsing        = "BROWSING"
	StateCart            = "CART"
	StateReadyForPayment = "READY_FOR_PAYMENT"
	StateCompleted       = "COMPLETED"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrMissingCustomer = errors.New("customer name and phone are required")
	ErrInvalidPayment  = errors.New("payment method must be cash or online")
	ErrNotReady        = errors.New("customer info must be entered before payment")
	ErrSaleCompleted   = errors.New("sale already completed, start a new sale")
)

// StockLimitError rejects an addition that would push the cart past the
// snapshot stock.
type StockLimitError struct {
	ItemID    string
	Requested int
	InCart    int
	Stock     int
}

func (e *StockLimitError) Error() string {
	return fmt.Sprintf("stock limit for %s: requested=%d, in cart=%d, available=%d",
		e.ItemID, e.Requested, e.InCart, e.Stock)
}

// Cart is the ephemeral checkout state machine:
// Browsing -> Cart -> ReadyForPayment -> Completed. Never persisted;
// discarded on reset. The invariant held at every addition is that the cart
// quantity of an item stays within the stock snapshot it was checked against.
type Cart struct {
	mu       sync.Mutex
	state    string
	items    []models.SaleItem
	customer models.Customer
}

// New creates an empty cart in the Browsing state
func New() *Cart {
	return &Cart{state: StateBrowsing}
}

// State returns the current checkout state
func (c *Cart) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Items returns a copy of the current line items
func (c *Cart) Items() []models.SaleItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.SaleItem, len(c.items))
	copy(out, c.items)
	return out
}

// Customer returns the entered customer info
func (c *Cart) Customer() models.Customer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.customer
}

// Subtotal sums the line totals
func (c *Cart) Subtotal() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subtotalLocked()
}

func (c *Cart) subtotalLocked() int64 {
	var total int64
	for _, item := range c.items {
		total += item.LineTotal
	}
	return total
}

// AddItem adds qty of the item, merging with an existing line. Rejected with
// a StockLimitError when the summed cart quantity would exceed the snapshot
// stock.
func (c *Cart) AddItem(level models.StockLevel, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", qty)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateCompleted {
		return ErrSaleCompleted
	}

	inCart := 0
	line := -1
	for i, item := range c.items {
		if item.ItemID == level.ItemID {
			inCart = item.Quantity
			line = i
			break
		}
	}

	if inCart+qty > level.Available {
		return &StockLimitError{
			ItemID:    level.ItemID,
			Requested: qty,
			InCart:    inCart,
			Stock:     level.Available,
		}
	}

	if line >= 0 {
		c.items[line].Quantity += qty
		c.items[line].LineTotal = int64(c.items[line].Quantity) * c.items[line].UnitPrice
	} else {
		c.items = append(c.items, models.SaleItem{
			ItemID:    level.ItemID,
			Name:      level.Name,
			Quantity:  qty,
			UnitPrice: level.UnitPrice,
			LineTotal: int64(qty) * level.UnitPrice,
		})
	}

	if c.state == StateBrowsing {
		c.state = StateCart
	}
	return nil
}

// RemoveItem drops a line item. An empty cart falls back to Browsing.
func (c *Cart) RemoveItem(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateCompleted {
		return
	}

	for i, item := range c.items {
		if item.ItemID == itemID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	if len(c.items) == 0 && c.state != StateBrowsing {
		c.state = StateBrowsing
	}
}

// SetCustomer records the buyer and moves the cart to ReadyForPayment.
// Requires a non-empty cart and a customer with name and phone.
func (c *Cart) SetCustomer(customer models.Customer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateCompleted {
		return ErrSaleCompleted
	}
	if len(c.items) == 0 {
		return ErrEmptyCart
	}
	if customer.Name == "" || customer.Phone == "" {
		return ErrMissingCustomer
	}

	c.customer = customer
	c.state = StateReadyForPayment
	return nil
}

// Finalize builds the immutable SaleRecord and moves to Completed. The bill
// ID is minted here, once.
func (c *Cart) Finalize(paymentMethod, userID, notes string) (*models.SaleRecord, error) {
	if paymentMethod != models.PaymentMethodCash && paymentMethod != models.PaymentMethodOnline {
		return nil, ErrInvalidPayment
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateCompleted:
		return nil, ErrSaleCompleted
	case StateReadyForPayment:
	default:
		if len(c.items) == 0 {
			return nil, ErrEmptyCart
		}
		return nil, ErrNotReady
	}

	items := make([]models.SaleItem, len(c.items))
	copy(items, c.items)
	subtotal := c.subtotalLocked()

	record := &models.SaleRecord{
		BillID:        NewBillID(),
		Items:         items,
		Customer:      c.customer,
		Subtotal:      subtotal,
		FinalAmount:   subtotal,
		Notes:         notes,
		Timestamp:     time.Now(),
		PaymentMethod: paymentMethod,
		UserID:        userID,
	}

	c.state = StateCompleted
	return record, nil
}

// Reopen returns a completed cart to ReadyForPayment. Used when the sale
// could not be durably queued, so the operator can try again.
func (c *Cart) Reopen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCompleted {
		c.state = StateReadyForPayment
	}
}

// Reset discards everything and returns to Browsing ("start new sale")
func (c *Cart) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateBrowsing
	c.items = nil
	c.customer = models.Customer{}
}
