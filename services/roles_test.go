package services

import (
	"testing"

	"restaurant-ordering-api/apperrors"
	"restaurant-ordering-api/models"

	"github.com/stretchr/testify/assert"
)

func TestRoleChecks(t *testing.T) {
	customer := &Identity{UserID: "u1", Role: models.RoleCustomer}
	staff := &Identity{UserID: "u2", Role: models.RoleStaff}
	admin := &Identity{UserID: "u3", Role: models.RoleAdmin}

	assert.True(t, apperrors.Is(RequireAdmin(nil), apperrors.KindUnauthorized))
	assert.True(t, apperrors.Is(RequireAdmin(staff), apperrors.KindForbidden))
	assert.NoError(t, RequireAdmin(admin))

	assert.True(t, apperrors.Is(RequireStaff(customer), apperrors.KindForbidden))
	assert.NoError(t, RequireStaff(staff))
	assert.NoError(t, RequireStaff(admin))

	assert.NoError(t, RequireOwnerOrAdmin(customer, "u1"))
	assert.NoError(t, RequireOwnerOrAdmin(admin, "u1"))
	assert.True(t, apperrors.Is(RequireOwnerOrAdmin(staff, "u1"), apperrors.KindForbidden))
	assert.True(t, apperrors.Is(RequireOwnerOrAdmin(customer, ""), apperrors.KindForbidden))
}
