package handlers

import (
	"net/http"

	"restaurant-ordering-api/middleware"
	"restaurant-ordering-api/services"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Phone    string `json:"phone" binding:"max=30"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
}

// refresh cookie is only sent back to the auth endpoints
const refreshCookiePath = "/api/users"

// Register creates a new customer account and opens a session
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.svc.Auth.Register(c.Request.Context(), services.RegisterInput{
		Name: req.Name, Email: req.Email, Password: req.Password, Phone: req.Phone,
	}, clientInfo(c))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	h.setSessionCookies(c, session)
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Account created successfully",
		"data":    session,
	})
}

// Login authenticates a user and returns an access and refresh token
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	h.setSessionCookies(c, session)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Login successful",
		"data":    session,
	})
}

// RefreshToken rotates the refresh token from the body or cookie
func (h *Handler) RefreshToken(c *gin.Context) {
	token := h.presentedRefreshToken(c)
	session, err := h.svc.Auth.Refresh(c.Request.Context(), token, clientInfo(c))
	if err != nil {
		h.clearSessionCookies(c)
		middleware.WriteError(c, err)
		return
	}
	h.setSessionCookies(c, session)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Token refreshed",
		"data":    session,
	})
}

// Logout revokes the presented refresh token. Always succeeds.
func (h *Handler) Logout(c *gin.Context) {
	token := h.presentedRefreshToken(c)
	if err := h.svc.Auth.Logout(c.Request.Context(), token, clientInfo(c)); err != nil {
		middleware.WriteError(c, err)
		return
	}
	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Logged out"})
}

// ChangePassword sets a new password and signs the user out everywhere
func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	id := middleware.CurrentIdentity(c)
	err := h.svc.Auth.ChangePassword(c.Request.Context(), id.UserID, req.CurrentPassword, req.NewPassword, clientInfo(c))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Password changed. Please log in again on all devices",
	})
}

func (h *Handler) presentedRefreshToken(c *gin.Context) string {
	var req RefreshRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	if cookie, err := c.Cookie(middleware.RefreshCookie); err == nil {
		return cookie
	}
	return ""
}

func (h *Handler) setSessionCookies(c *gin.Context, s *services.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessCookie, s.AccessToken, int(h.auth.AccessTTL.Seconds()), "/", "", h.auth.CookieSecure, true)
	c.SetCookie(middleware.RefreshCookie, s.RefreshToken, int(h.auth.RefreshTTL.Seconds()), refreshCookiePath, "", h.auth.CookieSecure, true)
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessCookie, "", -1, "/", "", h.auth.CookieSecure, true)
	c.SetCookie(middleware.RefreshCookie, "", -1, refreshCookiePath, "", h.auth.CookieSecure, true)
}
