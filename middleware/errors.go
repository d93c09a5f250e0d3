package middleware

import (
	"net/http"

	"restaurant-ordering-api/apperrors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WriteError renders err as the JSON error body and aborts the chain.
// Internal failures are logged with full detail and reach the client as a
// generic message.
func WriteError(c *gin.Context, err error) {
	appErr, ok := apperrors.From(err)
	if !ok {
		appErr = apperrors.Internal("unhandled error", err)
	}
	log := Logger(c)
	status := appErr.Kind.HTTPStatus()

	body := gin.H{"success": false, "message": appErr.Message}
	if appErr.Kind == apperrors.KindInternal {
		log.Error("Request failed", zap.Error(err), zap.String("path", c.FullPath()))
		body["message"] = "Internal server error"
	} else {
		log.Info("Request rejected",
			zap.String("kind", string(appErr.Kind)),
			zap.String("message", appErr.Message),
			zap.Int("status", status),
		)
		if appErr.Code != "" {
			body["code"] = appErr.Code
		}
		if len(appErr.Fields) > 0 {
			body["errors"] = appErr.Fields
		}
		if appErr.Expired {
			body["expired"] = true
		}
		for k, v := range appErr.Details {
			body[k] = v
		}
	}
	c.AbortWithStatusJSON(status, body)
}

// Recovery turns panics into a logged 500 with the usual error body
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		Logger(c).Error("Panic recovered", zap.Any("panic", recovered), zap.Stack("stack"))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
	})
}
