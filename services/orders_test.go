package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"restaurant-ordering-api/apperrors"
	"restaurant-ordering-api/events"
	"restaurant-ordering-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guestOrder(items ...OrderLineInput) CreateOrderInput {
	return CreateOrderInput{
		Customer:      models.CustomerInfo{Name: "Grace", Email: "grace@x.com", Street: "1 Main St", City: "Springfield"},
		Items:         items,
		PaymentMethod: models.PaymentCard,
	}
}

func TestCreateOrder_SnapshotsPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pizza := f.menuItem(t, "Pizza", 12.50)
	soda := f.menuItem(t, "Soda", 2.25)

	order, err := f.svc.Orders.Create(ctx, nil, guestOrder(
		OrderLineInput{MenuItemID: pizza.ID, Quantity: 2},
		OrderLineInput{MenuItemID: soda.ID, Quantity: 3},
	))
	require.NoError(t, err)
	assert.Equal(t, 31.75, order.TotalAmount)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Equal(t, f.clock.Now().Add(45*time.Minute), order.EstimatedDelivery)
	assert.Nil(t, order.CustomerUserID)

	newPrice := 99.0
	_, err = f.svc.Catalog.Update(ctx, pizza.ID, MenuItemInput{Price: &newPrice})
	require.NoError(t, err)

	stored, err := f.svc.Orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 31.75, stored.TotalAmount)
	assert.Equal(t, 12.50, stored.Items[0].Price)
	assert.Equal(t, "Pizza", stored.Items[0].Name)
	require.Len(t, stored.StatusHistory, 1)
	assert.Equal(t, "guest", stored.StatusHistory[0].ChangedBy)

	assert.Equal(t, []string{events.OrderCreated}, f.events.Types())
}

func TestCreateOrder_MissingItemCreatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pizza := f.menuItem(t, "Pizza", 12.50)

	_, err := f.svc.Orders.Create(ctx, nil, guestOrder(
		OrderLineInput{MenuItemID: pizza.ID, Quantity: 1},
		OrderLineInput{MenuItemID: "no-such-item", Quantity: 1},
	))
	appErr, ok := apperrors.From(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindNotFound, appErr.Kind)
	assert.Contains(t, appErr.Message, "no-such-item")

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.events.Types())
}

func TestCreateOrder_ValidationAndAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Orders.Create(ctx, nil, CreateOrderInput{})
	appErr, ok := apperrors.From(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Len(t, appErr.Fields, 4)

	pizza := f.menuItem(t, "Pizza", 12.50)
	_, err = f.svc.Catalog.ToggleAvailability(ctx, pizza.ID)
	require.NoError(t, err)
	_, err = f.svc.Orders.Create(ctx, nil, guestOrder(OrderLineInput{MenuItemID: pizza.ID, Quantity: 1}))
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestCreateOrder_LengthLimitsReportedTogether(t *testing.T) {
	f := newFixture(t)
	in := guestOrder(OrderLineInput{MenuItemID: "x", Quantity: 100})
	in.Customer.PostalCode = strings.Repeat("9", 21)
	in.SpecialInstructions = strings.Repeat("a", 501)

	_, err := f.svc.Orders.Create(context.Background(), nil, in)
	appErr, ok := apperrors.From(err)
	require.True(t, ok)
	fields := make([]string, len(appErr.Fields))
	for i, fe := range appErr.Fields {
		fields[i] = fe.Field
	}
	assert.ElementsMatch(t, []string{"customer.postal_code", "items[0].quantity", "special_instructions"}, fields)
}

func TestCreateOrder_SignedInUsesProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.register(t, "Ada", "ada@x.com")
	_, err := f.svc.Users.AddAddress(ctx, s.User.ID, AddressInput{Street: "2 Elm St", City: "Shelbyville"})
	require.NoError(t, err)
	pizza := f.menuItem(t, "Pizza", 10)

	order, err := f.svc.Orders.Create(ctx, identityOf(s), CreateOrderInput{
		Items:         []OrderLineInput{{MenuItemID: pizza.ID, Quantity: 1}},
		PaymentMethod: models.PaymentCash,
	})
	require.NoError(t, err)
	require.NotNil(t, order.CustomerUserID)
	assert.Equal(t, s.User.ID, *order.CustomerUserID)
	assert.Equal(t, "ada@x.com", order.Customer.Email)
	assert.Equal(t, "2 Elm St", order.Customer.Street)
}

func TestUpdateStatus_FollowsLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.withRole(t, "staff@x.com", models.RoleStaff)
	pizza := f.menuItem(t, "Pizza", 10)
	order, err := f.svc.Orders.Create(ctx, nil, guestOrder(OrderLineInput{MenuItemID: pizza.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.svc.Orders.UpdateStatus(ctx, staff, order.ID, models.StatusReady, "")
	appErr, ok := apperrors.From(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindConflict, appErr.Kind)
	assert.Equal(t, apperrors.CodeInvalidTransition, appErr.Code)

	steps := []models.OrderStatus{
		models.StatusConfirmed, models.StatusPreparing, models.StatusReady,
		models.StatusDelivering, models.StatusDelivered,
	}
	for _, next := range steps {
		order, err = f.svc.Orders.UpdateStatus(ctx, staff, order.ID, next, "")
		require.NoError(t, err)
		assert.Equal(t, next, order.Status)
	}

	_, err = f.svc.Orders.UpdateStatus(ctx, staff, order.ID, models.StatusPending, "")
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))

	stored, err := f.svc.Orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.StatusHistory, 6)
	assert.Equal(t, models.StatusDelivered, stored.Status)
}

func TestUpdateStatus_StaffOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := identityOf(f.register(t, "Ada", "ada@x.com"))
	pizza := f.menuItem(t, "Pizza", 10)
	order, err := f.svc.Orders.Create(ctx, nil, guestOrder(OrderLineInput{MenuItemID: pizza.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.svc.Orders.UpdateStatus(ctx, customer, order.ID, models.StatusConfirmed, "")
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
}

func TestCancel_OnlyBeforePreparation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.withRole(t, "staff@x.com", models.RoleStaff)
	pizza := f.menuItem(t, "Pizza", 10)

	cases := []struct {
		advanceTo   []models.OrderStatus
		cancellable bool
	}{
		{nil, true},
		{[]models.OrderStatus{models.StatusConfirmed}, true},
		{[]models.OrderStatus{models.StatusConfirmed, models.StatusPreparing}, false},
		{[]models.OrderStatus{models.StatusConfirmed, models.StatusPreparing, models.StatusReady}, false},
		{[]models.OrderStatus{models.StatusConfirmed, models.StatusPreparing, models.StatusReady, models.StatusDelivering}, false},
	}
	for _, tc := range cases {
		order, err := f.svc.Orders.Create(ctx, nil, guestOrder(OrderLineInput{MenuItemID: pizza.ID, Quantity: 1}))
		require.NoError(t, err)
		for _, s := range tc.advanceTo {
			_, err = f.svc.Orders.UpdateStatus(ctx, staff, order.ID, s, "")
			require.NoError(t, err)
		}
		before, err := f.svc.Orders.Get(ctx, order.ID)
		require.NoError(t, err)

		_, err = f.svc.Orders.Cancel(ctx, staff, order.ID, "customer called")
		after, getErr := f.svc.Orders.Get(ctx, order.ID)
		require.NoError(t, getErr)
		if tc.cancellable {
			require.NoError(t, err)
			assert.Equal(t, models.StatusCancelled, after.Status)
		} else {
			assert.True(t, apperrors.Is(err, apperrors.KindConflict), "from %s", before.Status)
			assert.Equal(t, before.Status, after.Status)
		}
	}
}

func TestCancel_OwnershipAndRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.withRole(t, "staff@x.com", models.RoleStaff)
	owner := identityOf(f.register(t, "Grace", "grace@x.com"))
	stranger := identityOf(f.register(t, "Mallory", "mallory@x.com"))
	pizza := f.menuItem(t, "Pizza", 10)

	order, err := f.svc.Orders.Create(ctx, nil, guestOrder(OrderLineInput{MenuItemID: pizza.ID, Quantity: 1}))
	require.NoError(t, err)
	_, err = f.svc.Orders.SetPaymentStatus(ctx, staff, order.ID, models.PaymentPaid)
	require.NoError(t, err)

	_, err = f.svc.Orders.Cancel(ctx, stranger, order.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	cancelled, err := f.svc.Orders.Cancel(ctx, owner, order.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, models.PaymentRefunded, cancelled.PaymentStatus)
	assert.Contains(t, f.events.Types(), events.OrderCancelled)
}

func TestSetCharges_RecomputesTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.withRole(t, "staff@x.com", models.RoleStaff)
	pizza := f.menuItem(t, "Pizza", 10)
	order, err := f.svc.Orders.Create(ctx, nil, guestOrder(OrderLineInput{MenuItemID: pizza.ID, Quantity: 2}))
	require.NoError(t, err)

	updated, err := f.svc.Orders.SetCharges(ctx, staff, order.ID, ChargesInput{Tax: ptr(1.6), DeliveryFee: ptr(3.0), Discount: ptr(2.5)})
	require.NoError(t, err)
	assert.Equal(t, 20.0, updated.Subtotal)
	assert.Equal(t, 22.1, updated.TotalAmount)

	_, err = f.svc.Orders.SetCharges(ctx, staff, order.ID, ChargesInput{Discount: ptr(500.0)})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	stored, err := f.svc.Orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 22.1, stored.TotalAmount)
}

func TestListAll_SummaryAndCustomerScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.withRole(t, "staff@x.com", models.RoleStaff)
	grace := identityOf(f.register(t, "Grace", "grace@x.com"))
	pizza := f.menuItem(t, "Pizza", 10)

	delivered, err := f.svc.Orders.Create(ctx, nil, guestOrder(OrderLineInput{MenuItemID: pizza.ID, Quantity: 3}))
	require.NoError(t, err)
	for _, s := range []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing, models.StatusReady, models.StatusDelivering, models.StatusDelivered} {
		_, err = f.svc.Orders.UpdateStatus(ctx, staff, delivered.ID, s, "")
		require.NoError(t, err)
	}
	_, err = f.svc.Orders.Create(ctx, nil, guestOrder(OrderLineInput{MenuItemID: pizza.ID, Quantity: 1}))
	require.NoError(t, err)

	orders, summary, err := f.svc.Orders.ListAll(ctx, staff, "")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, int64(1), summary.ByStatus[models.StatusDelivered])
	assert.Equal(t, int64(1), summary.ByStatus[models.StatusPending])
	assert.Equal(t, 30.0, summary.Revenue)

	pending, _, err := f.svc.Orders.ListAll(ctx, staff, "pending")
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, _, err = f.svc.Orders.ListAll(ctx, grace, "")
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	mine, err := f.svc.Orders.ListByCustomerEmail(ctx, grace, "GRACE@x.com")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.svc.Orders.ListByCustomerEmail(ctx, grace, "someone@x.com")
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
}
