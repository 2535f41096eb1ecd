package cart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-service/internal/models"
)

func rice(available int) models.StockLevel {
	return models.StockLevel{ItemID: "rice", Name: "Rice", UnitPrice: 50, Available: available}
}

func TestCartStockGuard(t *testing.T) {
	c := New()
	stock := rice(3)

	require.NoError(t, c.AddItem(stock, 1))
	require.NoError(t, c.AddItem(stock, 1))
	require.NoError(t, c.AddItem(stock, 1))

	err := c.AddItem(stock, 1)
	var sle *StockLimitError
	require.ErrorAs(t, err, &sle)
	assert.Equal(t, 3, sle.InCart)
	assert.Equal(t, 3, sle.Stock)

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity, "rejected add must not change the cart")
}

func TestCartStockGuardSumsAcrossAdds(t *testing.T) {
	c := New()
	stock := rice(5)

	require.NoError(t, c.AddItem(stock, 2))
	require.NoError(t, c.AddItem(stock, 3))
	assert.Error(t, c.AddItem(stock, 1))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, int64(250), items[0].LineTotal)
}

func TestCartRejectsNonPositiveQuantity(t *testing.T) {
	c := New()
	assert.Error(t, c.AddItem(rice(5), 0))
	assert.Error(t, c.AddItem(rice(5), -1))
}

func TestCartStateTransitions(t *testing.T) {
	c := New()
	assert.Equal(t, StateBrowsing, c.State())

	require.NoError(t, c.AddItem(rice(5), 2))
	assert.Equal(t, StateCart, c.State())

	require.NoError(t, c.SetCustomer(models.Customer{Name: "A", Phone: "123"}))
	assert.Equal(t, StateReadyForPayment, c.State())

	record, err := c.Finalize(models.PaymentMethodCash, "operator-1", "")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, c.State())
	require.NotNil(t, record)

	c.Reset()
	assert.Equal(t, StateBrowsing, c.State())
	assert.Empty(t, c.Items())
}

func TestCartCustomerGuards(t *testing.T) {
	c := New()

	assert.ErrorIs(t, c.SetCustomer(models.Customer{Name: "A", Phone: "123"}), ErrEmptyCart)

	require.NoError(t, c.AddItem(rice(5), 1))
	assert.ErrorIs(t, c.SetCustomer(models.Customer{Name: "A"}), ErrMissingCustomer)
	assert.ErrorIs(t, c.SetCustomer(models.Customer{Phone: "123"}), ErrMissingCustomer)

	_, err := c.Finalize(models.PaymentMethodCash, "operator-1", "")
	assert.ErrorIs(t, err, ErrNotReady, "payment requires customer info first")
}

func TestCartFinalizeBuildsImmutableRecord(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(rice(5), 2))
	require.NoError(t, c.SetCustomer(models.Customer{Name: "A", Phone: "123"}))

	record, err := c.Finalize(models.PaymentMethodCash, "operator-1", "note")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(record.BillID, "BILL-"))
	assert.Equal(t, int64(100), record.Subtotal)
	assert.Equal(t, record.Subtotal, record.FinalAmount)
	require.Len(t, record.Items, 1)
	assert.Equal(t, int64(100), record.Items[0].LineTotal)
	assert.Equal(t, models.PaymentMethodCash, record.PaymentMethod)
	assert.Equal(t, "operator-1", record.UserID)
	assert.False(t, record.Timestamp.IsZero())

	// Clearing the cart afterwards must not reach into the record.
	c.Reset()
	assert.Len(t, record.Items, 1)

	_, err = c.Finalize(models.PaymentMethodCash, "operator-1", "")
	assert.ErrorIs(t, err, ErrSaleCompleted)
}

func TestCartFinalizeRejectsUnknownPaymentMethod(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(rice(5), 1))
	require.NoError(t, c.SetCustomer(models.Customer{Name: "A", Phone: "123"}))

	_, err := c.Finalize("credit", "operator-1", "")
	assert.ErrorIs(t, err, ErrInvalidPayment)
}

func TestCartRemoveItemFallsBackToBrowsing(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(rice(5), 1))
	c.RemoveItem("rice")
	assert.Empty(t, c.Items())
	assert.Equal(t, StateBrowsing, c.State())
}

func TestNewBillIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewBillID()
		assert.False(t, seen[id], "bill IDs must not collide")
		seen[id] = true
	}
}
