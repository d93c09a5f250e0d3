package handlers

import (
	"net/http"

	"restaurant-ordering-api/middleware"
	"restaurant-ordering-api/models"
	"restaurant-ordering-api/services"

	"github.com/gin-gonic/gin"
)

// Order payloads have no binding rules; OrderService.Create checks every
// field after a signed-in customer's profile fills the missing ones.
type CustomerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

type OrderLineRequest struct {
	MenuItem string `json:"menu_item"`
	Quantity int    `json:"quantity"`
}

type CreateOrderRequest struct {
	Customer            CustomerRequest      `json:"customer"`
	Items               []OrderLineRequest   `json:"items"`
	PaymentMethod       models.PaymentMethod `json:"payment_method"`
	SpecialInstructions string               `json:"special_instructions"`
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note" binding:"max=500"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type ChargesRequest struct {
	Tax         *float64 `json:"tax" binding:"omitempty,gte=0"`
	DeliveryFee *float64 `json:"delivery_fee" binding:"omitempty,gte=0"`
	Discount    *float64 `json:"discount" binding:"omitempty,gte=0"`
}

type PaymentStatusRequest struct {
	PaymentStatus models.PaymentStatus `json:"payment_status" binding:"required,oneof=pending paid failed refunded"`
}

// CreateOrder places an order. Guests may order; a signed-in customer's
// account is linked to the order.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	lines := make([]services.OrderLineInput, len(req.Items))
	for i, it := range req.Items {
		lines[i] = services.OrderLineInput{MenuItemID: it.MenuItem, Quantity: it.Quantity}
	}
	order, err := h.svc.Orders.Create(c.Request.Context(), middleware.CurrentIdentity(c), services.CreateOrderInput{
		Customer: models.CustomerInfo{
			Name:       req.Customer.Name,
			Email:      req.Customer.Email,
			Phone:      req.Customer.Phone,
			Street:     req.Customer.Street,
			City:       req.Customer.City,
			State:      req.Customer.State,
			PostalCode: req.Customer.PostalCode,
		},
		Items:               lines,
		PaymentMethod:       req.PaymentMethod,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": order})
}

// ListOrders returns every order with a status summary (staff/admin)
func (h *Handler) ListOrders(c *gin.Context) {
	orders, summary, err := h.svc.Orders.ListAll(c.Request.Context(), middleware.CurrentIdentity(c), c.Query("status"))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(orders),
		"summary": summary,
		"data":    orders,
	})
}

// GetOrder returns one order with its status history, for order tracking
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.svc.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}

func (h *Handler) GetCustomerOrders(c *gin.Context) {
	orders, err := h.svc.Orders.ListByCustomerEmail(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("email"))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(orders), "data": orders})
}

// UpdateOrderStatus moves an order along the kitchen lifecycle (staff/admin)
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.UpdateStatus(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), req.Status, req.Note)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}

// CancelOrder cancels a pending or confirmed order
func (h *Handler) CancelOrder(c *gin.Context) {
	var req CancelOrderRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.Cancel(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), req.Reason)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}

func (h *Handler) UpdateOrderCharges(c *gin.Context) {
	var req ChargesRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.SetCharges(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), services.ChargesInput{
		Tax: req.Tax, DeliveryFee: req.DeliveryFee, Discount: req.Discount,
	})
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}

func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	var req PaymentStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.SetPaymentStatus(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), req.PaymentStatus)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}
