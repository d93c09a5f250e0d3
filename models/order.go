package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents all possible states of a restaurant order
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusPreparing  OrderStatus = "preparing"
	StatusReady      OrderStatus = "ready"
	StatusDelivering OrderStatus = "delivering"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
	StatusDelivering, StatusDelivered, StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentMobile PaymentMethod = "mobile"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCard || m == PaymentMobile
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPaid || s == PaymentFailed || s == PaymentRefunded
}

// ErrNegativeTotal is returned when discounts exceed what the order costs
var ErrNegativeTotal = errors.New("order total cannot be negative")

// CustomerInfo is a snapshot of who ordered and where to deliver. It is copied
// at order time and never follows later profile edits.
type CustomerInfo struct {
	Name       string `json:"name" gorm:"not null"`
	Email      string `json:"email" gorm:"not null;index"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

type Order struct {
	ID                  string               `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CustomerUserID      *string              `json:"customer_user_id,omitempty" gorm:"index;type:varchar(36)"`
	Customer            CustomerInfo         `json:"customer" gorm:"embedded;embeddedPrefix:customer_"`
	Items               []OrderItem          `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Subtotal            float64              `json:"subtotal"`
	Tax                 float64              `json:"tax"`
	DeliveryFee         float64              `json:"delivery_fee"`
	Discount            float64              `json:"discount"`
	TotalAmount         float64              `json:"total_amount"`
	Status              OrderStatus          `json:"status" gorm:"not null;index"`
	PaymentMethod       PaymentMethod        `json:"payment_method" gorm:"not null"`
	PaymentStatus       PaymentStatus        `json:"payment_status" gorm:"not null"`
	SpecialInstructions string               `json:"special_instructions,omitempty"`
	EstimatedDelivery   time.Time            `json:"estimated_delivery"`
	StatusHistory       []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

type OrderItem struct {
	ID         uint    `json:"-" gorm:"primaryKey"`
	OrderID    string  `json:"-" gorm:"not null;index;type:varchar(36)"`
	MenuItemID string  `json:"menu_item" gorm:"not null;type:varchar(36)"`
	Name       string  `json:"name" gorm:"not null"`            // snapshot name
	Quantity   int     `json:"quantity" gorm:"not null"`
	Price      float64 `json:"price" gorm:"not null"`           // snapshot price at time of order
}

// OrderStatusHistory tracks every status change
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    string      `json:"-" gorm:"not null;index;type:varchar(36)"`
	FromStatus OrderStatus `json:"from_status,omitempty"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  string      `json:"changed_by"` // user ID, or "guest" for anonymous orders
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewOrder snapshots the given line items into a pending order and computes
// its totals.
func NewOrder(customer CustomerInfo, items []OrderItem, method PaymentMethod, instructions string, now time.Time, eta time.Duration) (*Order, error) {
	customer.Email = NormalizeEmail(customer.Email)
	customer.Name = strings.TrimSpace(customer.Name)
	o := &Order{
		ID:                  uuid.NewString(),
		Customer:            customer,
		Items:               items,
		Status:              StatusPending,
		PaymentMethod:       method,
		PaymentStatus:       PaymentPending,
		SpecialInstructions: strings.TrimSpace(instructions),
		EstimatedDelivery:   now.Add(eta),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := o.Recalculate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Recalculate derives Subtotal and TotalAmount from the line items and charges.
// It must run whenever items, tax, delivery fee or discount change.
func (o *Order) Recalculate() error {
	subtotal, total := ComputeTotals(o.Items, o.Tax, o.DeliveryFee, o.Discount)
	if total.IsNegative() {
		return ErrNegativeTotal
	}
	o.Subtotal = subtotal.InexactFloat64()
	o.TotalAmount = total.InexactFloat64()
	return nil
}

// ComputeTotals returns Σ price×quantity and that sum plus tax and delivery fee
// minus discount, both rounded to cents.
func ComputeTotals(items []OrderItem, tax, deliveryFee, discount float64) (subtotal, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)
	total = subtotal.
		Add(decimal.NewFromFloat(tax)).
		Add(decimal.NewFromFloat(deliveryFee)).
		Sub(decimal.NewFromFloat(discount)).
		Round(2)
	return subtotal, total
}

// OwnedBy reports whether the order belongs to the given account, either
// through the user id captured at checkout or the snapshot email.
func (o *Order) OwnedBy(userID, email string) bool {
	if o.CustomerUserID != nil && *o.CustomerUserID == userID {
		return true
	}
	return email != "" && o.Customer.Email == NormalizeEmail(email)
}
