package handlers

import (
	"net/http"

	"restaurant-ordering-api/middleware"
	"restaurant-ordering-api/models"

	"github.com/gin-gonic/gin"
)

type SetRoleRequest struct {
	Role models.UserRole `json:"role" binding:"required,oneof=customer staff admin"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// AdminListUsers returns all users, optionally filtered by role
func (h *Handler) AdminListUsers(c *gin.Context) {
	users, err := h.svc.Users.List(c.Request.Context(), c.Query("role"))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Users retrieved",
		"count":   len(users),
		"data":    users,
	})
}

func (h *Handler) AdminSetRole(c *gin.Context) {
	var req SetRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Users.SetRole(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), req.Role)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Role updated", "data": user})
}

// AdminSetActive enables or disables an account; disabling revokes its sessions
func (h *Handler) AdminSetActive(c *gin.Context) {
	var req SetActiveRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Users.SetActive(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), *req.Active)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	message := "Account activated"
	if !user.Active {
		message = "Account deactivated"
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": message, "data": user})
}

func (h *Handler) AdminRevokeSessions(c *gin.Context) {
	n, err := h.svc.Auth.RevokeAllSessions(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Sessions revoked",
		"data":    gin.H{"revoked": n},
	})
}

// AdminUserActivity lists recent security events for any account
func (h *Handler) AdminUserActivity(c *gin.Context) {
	entries, err := h.svc.Users.Activity(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), 50)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Recent activity", "data": entries})
}
