package middleware

import (
	"strings"

	"restaurant-ordering-api/apperrors"
	"restaurant-ordering-api/models"
	"restaurant-ordering-api/services"

	"github.com/gin-gonic/gin"
)

// Cookie names carrying the tokens for browser clients
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

const identityKey = "identity"

// AuthRequired validates the access token from the Authorization header or
// cookie and stores the caller's identity on the context.
func AuthRequired(tokens *services.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := tokens.Verify(extractToken(c))
		if err != nil {
			WriteError(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// OptionalAuth attaches an identity when a token is presented and lets
// anonymous requests through. A presented but invalid token is rejected so
// the client can refresh instead of silently acting as a guest.
func OptionalAuth(tokens *services.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)
		if raw == "" {
			c.Next()
			return
		}
		id, err := tokens.Verify(raw)
		if err != nil {
			WriteError(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RoleRequired enforces that caller has one of the allowed roles
func RoleRequired(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := CurrentIdentity(c)
		if id == nil {
			WriteError(c, apperrors.Unauthorized("Authentication required"))
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		WriteError(c, apperrors.Forbidden("Access denied. Required role(s): "+rolesString(roles)))
	}
}

// StaffOnly admits staff and admins
func StaffOnly() gin.HandlerFunc {
	return RoleRequired(models.RoleStaff, models.RoleAdmin)
}

// AdminOnly admits admins
func AdminOnly() gin.HandlerFunc {
	return RoleRequired(models.RoleAdmin)
}

func rolesString(roles []models.UserRole) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

// CurrentIdentity returns the verified caller, nil for anonymous requests
func CurrentIdentity(c *gin.Context) *services.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*services.Identity)
	return id
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(AccessCookie); err == nil {
		return cookie
	}
	return ""
}
