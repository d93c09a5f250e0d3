package services

import (
	"restaurant-ordering-api/apperrors"
	"restaurant-ordering-api/models"
)

// RequireAdmin fails with Forbidden unless id is an admin
func RequireAdmin(id *Identity) error {
	if id == nil {
		return apperrors.Unauthorized("Authentication required")
	}
	if id.Role != models.RoleAdmin {
		return apperrors.Forbidden("Admin access required")
	}
	return nil
}

// RequireStaff fails with Forbidden unless id is staff or admin
func RequireStaff(id *Identity) error {
	if id == nil {
		return apperrors.Unauthorized("Authentication required")
	}
	if !id.Role.IsStaff() {
		return apperrors.Forbidden("Staff access required")
	}
	return nil
}

// RequireOwnerOrAdmin fails with Forbidden unless id owns the resource or is an admin
func RequireOwnerOrAdmin(id *Identity, ownerID string) error {
	if id == nil {
		return apperrors.Unauthorized("Authentication required")
	}
	if id.Role == models.RoleAdmin || (ownerID != "" && id.UserID == ownerID) {
		return nil
	}
	return apperrors.Forbidden("You do not have access to this resource")
}
