package handlers

import (
	"net/http"

	"restaurant-ordering-api/middleware"
	"restaurant-ordering-api/services"

	"github.com/gin-gonic/gin"
)

type UpdateProfileRequest struct {
	Name  *string `json:"name" binding:"omitempty,max=100"`
	Phone *string `json:"phone" binding:"omitempty,max=30"`
}

type AddressRequest struct {
	Street     string `json:"street" binding:"required,max=200"`
	City       string `json:"city" binding:"required,max=100"`
	State      string `json:"state" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"max=20"`
	IsDefault  bool   `json:"is_default"`
}

func (r AddressRequest) input() services.AddressInput {
	return services.AddressInput{
		Street: r.Street, City: r.City, State: r.State, PostalCode: r.PostalCode, IsDefault: r.IsDefault,
	}
}

// GetProfile returns the logged-in user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.svc.Users.Get(c.Request.Context(), middleware.CurrentIdentity(c).UserID)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Profile retrieved", "data": user})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Users.UpdateProfile(c.Request.Context(), middleware.CurrentIdentity(c).UserID,
		services.ProfileUpdate{Name: req.Name, Phone: req.Phone})
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Profile updated", "data": user})
}

func (h *Handler) AddAddress(c *gin.Context) {
	var req AddressRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Users.AddAddress(c.Request.Context(), middleware.CurrentIdentity(c).UserID, req.input())
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "message": "Address added", "data": user.Addresses})
}

func (h *Handler) UpdateAddress(c *gin.Context) {
	var req AddressRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Users.UpdateAddress(c.Request.Context(), middleware.CurrentIdentity(c).UserID,
		c.Param("addressId"), req.input())
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Address updated", "data": user.Addresses})
}

func (h *Handler) DeleteAddress(c *gin.Context) {
	user, err := h.svc.Users.DeleteAddress(c.Request.Context(), middleware.CurrentIdentity(c).UserID, c.Param("addressId"))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Address removed", "data": user.Addresses})
}

// GetActivity lists recent security events on the caller's account
func (h *Handler) GetActivity(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	entries, err := h.svc.Users.Activity(c.Request.Context(), id, id.UserID, 20)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Recent activity", "data": entries})
}
