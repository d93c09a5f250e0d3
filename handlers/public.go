package handlers

import (
	"context"
	"net/http"
	"time"

	"restaurant-ordering-api/middleware"
	"restaurant-ordering-api/models"
	"restaurant-ordering-api/statemachine"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Health reports liveness and whether the database answers
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	overall, dbStatus := "healthy", "up"
	status := http.StatusOK
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		middleware.Logger(c).Warn("Database ping failed", zap.Error(err))
		overall, dbStatus = "degraded", "down"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":   overall,
		"service":  "Restaurant Ordering API",
		"database": dbStatus,
		"time":     time.Now().UTC(),
	})
}

// GetStateMachineInfo returns the order lifecycle for documentation
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"state_machine":        statemachine.GetAllTransitions(),
		"cancellable_statuses": statemachine.CancellableStatuses,
		"terminal_states":      []models.OrderStatus{models.StatusDelivered, models.StatusCancelled},
		"description":          "Restaurant order lifecycle",
	})
}
