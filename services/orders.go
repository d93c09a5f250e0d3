package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"restaurant-ordering-api/apperrors"
	"restaurant-ordering-api/events"
	"restaurant-ordering-api/models"
	"restaurant-ordering-api/statemachine"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxLineQuantity       = 99
	maxInstructionsLength = 500
)

var customerFieldLimits = []struct {
	field string
	value func(models.CustomerInfo) string
	max   int
}{
	{"customer.name", func(c models.CustomerInfo) string { return c.Name }, 100},
	{"customer.phone", func(c models.CustomerInfo) string { return c.Phone }, 30},
	{"customer.street", func(c models.CustomerInfo) string { return c.Street }, 200},
	{"customer.city", func(c models.CustomerInfo) string { return c.City }, 100},
	{"customer.state", func(c models.CustomerInfo) string { return c.State }, 100},
	{"customer.postal_code", func(c models.CustomerInfo) string { return c.PostalCode }, 20},
}

type OrderLineInput struct {
	MenuItemID string
	Quantity   int
}

type CreateOrderInput struct {
	Customer            models.CustomerInfo
	Items               []OrderLineInput
	PaymentMethod       models.PaymentMethod
	SpecialInstructions string
}

type ChargesInput struct {
	Tax         *float64
	DeliveryFee *float64
	Discount    *float64
}

// OrderSummary is the dashboard block returned with the staff listing
type OrderSummary struct {
	Count    int                          `json:"count"`
	ByStatus map[models.OrderStatus]int64 `json:"by_status"`
	Revenue  float64                      `json:"revenue"`
}

type OrderService struct {
	db        *gorm.DB
	publisher events.Publisher
	metrics   *Metrics
	log       *zap.Logger
	eta       time.Duration
	now       func() time.Time
}

func NewOrderService(db *gorm.DB, publisher events.Publisher, metrics *Metrics, eta time.Duration, log *zap.Logger) *OrderService {
	return &OrderService{
		db:        db,
		publisher: publisher,
		metrics:   metrics,
		log:       log.Named("orders"),
		eta:       eta,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create resolves every requested menu item, snapshots name and price, and
// stores the order with its first history entry. Nothing is written if any
// item is missing or unavailable. actor is nil for guest checkout.
func (s *OrderService) Create(ctx context.Context, actor *Identity, in CreateOrderInput) (*models.Order, error) {
	if actor != nil {
		if err := s.fillFromProfile(ctx, actor, &in.Customer); err != nil {
			return nil, err
		}
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(in.Items))
	for _, line := range in.Items {
		ids = append(ids, line.MenuItemID)
	}
	var found []models.MenuItem
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, apperrors.Internal("load menu items", err)
	}
	byID := make(map[string]models.MenuItem, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}

	var missing []string
	var unavailable fieldErrors
	items := make([]models.OrderItem, 0, len(in.Items))
	for i, line := range in.Items {
		menuItem, ok := byID[line.MenuItemID]
		if !ok {
			missing = append(missing, line.MenuItemID)
			continue
		}
		if !menuItem.IsAvailable {
			unavailable.add(fmt.Sprintf("items[%d].menu_item", i), fmt.Sprintf("%s is not available", menuItem.Name))
			continue
		}
		items = append(items, models.OrderItem{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Quantity:   line.Quantity,
			Price:      menuItem.Price,
		})
	}
	if len(missing) > 0 {
		return nil, apperrors.NotFound("Menu item not found: " + strings.Join(missing, ", ")).
			WithDetail("missing_ids", missing)
	}
	if err := unavailable.err(); err != nil {
		return nil, err
	}

	now := s.now()
	order, err := models.NewOrder(in.Customer, items, in.PaymentMethod, in.SpecialInstructions, now, s.eta)
	if err != nil {
		return nil, apperrors.Field("items", err.Error())
	}
	changedBy := "guest"
	if actor != nil {
		order.CustomerUserID = &actor.UserID
		changedBy = actor.UserID
	}
	order.StatusHistory = []models.OrderStatusHistory{{
		ToStatus:  models.StatusPending,
		ChangedBy: changedBy,
		Note:      "Order placed",
		CreatedAt: now,
	}}

	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, apperrors.Internal("create order", err)
	}

	s.metrics.orderCreated()
	s.publish(ctx, events.OrderCreated, order, map[string]interface{}{"items": len(order.Items)})
	return order, nil
}

func (in CreateOrderInput) validate() error {
	var fields fieldErrors
	if strings.TrimSpace(in.Customer.Name) == "" {
		fields.add("customer.name", "is required")
	}
	if !looksLikeEmail(in.Customer.Email) {
		fields.add("customer.email", "must be a valid email address")
	}
	for _, lim := range customerFieldLimits {
		if utf8.RuneCountInString(lim.value(in.Customer)) > lim.max {
			fields.add(lim.field, fmt.Sprintf("must be at most %d characters", lim.max))
		}
	}
	if len(in.Items) == 0 {
		fields.add("items", "must contain at least one item")
	}
	for i, line := range in.Items {
		if strings.TrimSpace(line.MenuItemID) == "" {
			fields.add(fmt.Sprintf("items[%d].menu_item", i), "is required")
		}
		if line.Quantity < 1 || line.Quantity > maxLineQuantity {
			fields.add(fmt.Sprintf("items[%d].quantity", i), fmt.Sprintf("must be between 1 and %d", maxLineQuantity))
		}
	}
	if !in.PaymentMethod.Valid() {
		fields.add("payment_method", "must be one of cash, card, mobile")
	}
	if utf8.RuneCountInString(in.SpecialInstructions) > maxInstructionsLength {
		fields.add("special_instructions", fmt.Sprintf("must be at most %d characters", maxInstructionsLength))
	}
	return fields.err()
}

// fillFromProfile completes a signed-in customer's snapshot from their
// account: name and email when omitted, and the default delivery address.
func (s *OrderService) fillFromProfile(ctx context.Context, actor *Identity, c *models.CustomerInfo) error {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = actor.Name
	}
	if strings.TrimSpace(c.Email) == "" {
		c.Email = actor.Email
	}
	if strings.TrimSpace(c.Street) != "" {
		return nil
	}
	user, err := loadUser(s.db.WithContext(ctx), actor.UserID)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if c.Phone == "" {
		c.Phone = user.Phone
	}
	if addr, ok := models.DefaultAddress(user.Addresses); ok {
		c.Street, c.City, c.State, c.PostalCode = addr.Street, addr.City, addr.State, addr.PostalCode
	}
	return nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*models.Order, error) {
	return loadOrder(s.db.WithContext(ctx), id)
}

func loadOrder(db *gorm.DB, id string) (*models.Order, error) {
	var order models.Order
	err := db.
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("id asc") }).
		Preload("StatusHistory", func(q *gorm.DB) *gorm.DB { return q.Order("created_at asc, id asc") }).
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Order not found")
	}
	if err != nil {
		return nil, apperrors.Internal("load order", err)
	}
	return &order, nil
}

// ListAll returns every order, newest first, with counts per status and
// revenue of delivered orders.
func (s *OrderService) ListAll(ctx context.Context, actor *Identity, status string) ([]models.Order, *OrderSummary, error) {
	if err := RequireStaff(actor); err != nil {
		return nil, nil, err
	}
	q := s.db.WithContext(ctx).Preload("Items").Order("created_at desc")
	if status != "" {
		if !models.OrderStatus(status).Valid() {
			return nil, nil, apperrors.Field("status", "is not a known order status")
		}
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, nil, apperrors.Internal("list orders", err)
	}

	summary := &OrderSummary{Count: len(orders), ByStatus: map[models.OrderStatus]int64{}}
	revenue := decimal.Zero
	for _, o := range orders {
		summary.ByStatus[o.Status]++
		if o.Status == models.StatusDelivered {
			revenue = revenue.Add(decimal.NewFromFloat(o.TotalAmount))
		}
	}
	summary.Revenue = revenue.Round(2).InexactFloat64()
	return orders, summary, nil
}

// ListByCustomerEmail returns orders placed under email. Customers may only
// look up their own address.
func (s *OrderService) ListByCustomerEmail(ctx context.Context, actor *Identity, email string) ([]models.Order, error) {
	if actor == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	email = models.NormalizeEmail(email)
	if !actor.Role.IsStaff() && models.NormalizeEmail(actor.Email) != email {
		return nil, apperrors.Forbidden("You can only view your own orders")
	}
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("Items").
		Where("customer_email = ?", email).
		Order("created_at desc").
		Find(&orders).Error
	if err != nil {
		return nil, apperrors.Internal("list customer orders", err)
	}
	return orders, nil
}

// UpdateStatus moves an order one step along the lifecycle
func (s *OrderService) UpdateStatus(ctx context.Context, actor *Identity, id string, next models.OrderStatus, note string) (*models.Order, error) {
	if err := RequireStaff(actor); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, apperrors.Field("status", "is not a known order status")
	}
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := loadOrder(tx, id)
		if err != nil {
			return err
		}
		if err := statemachine.CanTransition(o.Status, next, statemachine.ActorStaff); err != nil {
			return apperrors.InvalidTransition(err.Error()).
				WithDetail("current_status", o.Status).
				WithDetail("requested", next).
				WithDetail("valid_next_states", statemachine.ValidTransitionsFrom(o.Status))
		}
		if err := s.transition(tx, o, next, actor.UserID, note); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	eventType := events.OrderStatusChanged
	if next == models.StatusCancelled {
		eventType = events.OrderCancelled
	}
	s.publish(ctx, eventType, order, nil)
	return order, nil
}

// Cancel is allowed while the kitchen has not started. Customers may cancel
// only orders they own; staff may cancel any.
func (s *OrderService) Cancel(ctx context.Context, actor *Identity, id, reason string) (*models.Order, error) {
	if actor == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := loadOrder(tx, id)
		if err != nil {
			return err
		}
		if !actor.Role.IsStaff() && !o.OwnedBy(actor.UserID, actor.Email) {
			return apperrors.Forbidden("You can only cancel your own orders")
		}
		if !statemachine.IsCancellable(o.Status) {
			return apperrors.Conflict("Order cannot be cancelled: it is already being prepared or delivered").
				WithDetail("current_status", o.Status)
		}
		if err := statemachine.CanTransition(o.Status, models.StatusCancelled, statemachine.ActorFor(actor.Role)); err != nil {
			return apperrors.InvalidTransition(err.Error())
		}
		note := strings.TrimSpace(reason)
		if note == "" {
			note = "Cancelled"
		}
		if err := s.transition(tx, o, models.StatusCancelled, actor.UserID, note); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.OrderCancelled, order, map[string]interface{}{"reason": reason})
	return order, nil
}

// transition writes the new status only if nobody moved the order since it
// was read, then appends a history entry. Cancelling a paid order refunds it.
func (s *OrderService) transition(tx *gorm.DB, o *models.Order, next models.OrderStatus, by, note string) error {
	now := s.now()
	updates := map[string]interface{}{"status": next, "updated_at": now}
	if next == models.StatusCancelled && o.PaymentStatus == models.PaymentPaid {
		updates["payment_status"] = models.PaymentRefunded
	}
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", o.ID, o.Status).
		Updates(updates)
	if res.Error != nil {
		return apperrors.Internal("update order status", res.Error)
	}
	if res.RowsAffected != 1 {
		return apperrors.InvalidTransition("Order status changed concurrently, reload and retry")
	}

	entry := models.OrderStatusHistory{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   next,
		ChangedBy:  by,
		Note:       strings.TrimSpace(note),
		CreatedAt:  now,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return apperrors.Internal("record status history", err)
	}

	o.Status = next
	o.UpdatedAt = now
	if v, ok := updates["payment_status"]; ok {
		o.PaymentStatus = v.(models.PaymentStatus)
	}
	o.StatusHistory = append(o.StatusHistory, entry)
	s.metrics.transition(string(next))
	return nil
}

// SetCharges updates tax, delivery fee and discount and recomputes the total
func (s *OrderService) SetCharges(ctx context.Context, actor *Identity, id string, in ChargesInput) (*models.Order, error) {
	if err := RequireStaff(actor); err != nil {
		return nil, err
	}
	var fields fieldErrors
	for name, v := range map[string]*float64{"tax": in.Tax, "delivery_fee": in.DeliveryFee, "discount": in.Discount} {
		if v != nil && *v < 0 {
			fields.add(name, "cannot be negative")
		}
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := loadOrder(tx, id)
		if err != nil {
			return err
		}
		if o.Status.IsTerminal() {
			return apperrors.Conflict("Charges cannot change once an order is delivered or cancelled").
				WithDetail("current_status", o.Status)
		}
		if in.Tax != nil {
			o.Tax = *in.Tax
		}
		if in.DeliveryFee != nil {
			o.DeliveryFee = *in.DeliveryFee
		}
		if in.Discount != nil {
			o.Discount = *in.Discount
		}
		if err := o.Recalculate(); err != nil {
			if errors.Is(err, models.ErrNegativeTotal) {
				return apperrors.Field("discount", "cannot exceed the order amount")
			}
			return apperrors.Internal("recalculate order", err)
		}
		o.UpdatedAt = s.now()
		err = tx.Model(&models.Order{}).Where("id = ?", o.ID).Updates(map[string]interface{}{
			"tax":          o.Tax,
			"delivery_fee": o.DeliveryFee,
			"discount":     o.Discount,
			"subtotal":     o.Subtotal,
			"total_amount": o.TotalAmount,
			"updated_at":   o.UpdatedAt,
		}).Error
		if err != nil {
			return apperrors.Internal("update charges", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) SetPaymentStatus(ctx context.Context, actor *Identity, id string, status models.PaymentStatus) (*models.Order, error) {
	if err := RequireStaff(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.Field("payment_status", "must be one of pending, paid, failed, refunded")
	}
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	err = s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).
		Updates(map[string]interface{}{"payment_status": status, "updated_at": now}).Error
	if err != nil {
		return nil, apperrors.Internal("update payment status", err)
	}
	order.PaymentStatus = status
	order.UpdatedAt = now
	return order, nil
}

// publish never fails the request; the order is already committed
func (s *OrderService) publish(ctx context.Context, eventType string, o *models.Order, data map[string]interface{}) {
	err := s.publisher.Publish(ctx, events.Event{
		Type:       eventType,
		OrderID:    o.ID,
		Status:     string(o.Status),
		Email:      o.Customer.Email,
		Total:      o.TotalAmount,
		OccurredAt: s.now(),
		Data:       data,
	})
	if err != nil {
		s.log.Warn("Order event not published", zap.String("type", eventType), zap.String("order_id", o.ID), zap.Error(err))
	}
}
