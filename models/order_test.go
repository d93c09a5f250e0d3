package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder_ComputesTotal(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	items := []OrderItem{
		{MenuItemID: "a", Name: "Margherita", Quantity: 2, Price: 12.5},
		{MenuItemID: "b", Name: "Lemonade", Quantity: 1, Price: 3.99},
	}

	o, err := NewOrder(CustomerInfo{Name: "Ada", Email: "ADA@x.com"}, items, PaymentCard, "", now, 45*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 28.99, o.Subtotal)
	assert.Equal(t, 28.99, o.TotalAmount)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, now.Add(45*time.Minute), o.EstimatedDelivery)
	assert.Equal(t, "ada@x.com", o.Customer.Email)
}

func TestRecalculate_Charges(t *testing.T) {
	o := &Order{Items: []OrderItem{{Quantity: 3, Price: 0.1}}}
	o.Tax = 0.05
	o.DeliveryFee = 2
	o.Discount = 0.5

	require.NoError(t, o.Recalculate())
	assert.Equal(t, 0.3, o.Subtotal)
	assert.Equal(t, 1.85, o.TotalAmount)
}

func TestRecalculate_NegativeTotal(t *testing.T) {
	o := &Order{Items: []OrderItem{{Quantity: 1, Price: 5}}, Discount: 6}
	assert.ErrorIs(t, o.Recalculate(), ErrNegativeTotal)
}

func TestOrderOwnedBy(t *testing.T) {
	uid := "user-1"
	o := &Order{CustomerUserID: &uid, Customer: CustomerInfo{Email: "ada@x.com"}}

	assert.True(t, o.OwnedBy("user-1", ""))
	assert.True(t, o.OwnedBy("other", "Ada@X.com"))
	assert.False(t, o.OwnedBy("other", "bob@x.com"))
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusReady.IsTerminal())
	assert.False(t, OrderStatus("PLACED").Valid())
}
