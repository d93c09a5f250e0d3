// Package services holds the business rules of the ordering platform. Handlers
// translate HTTP to calls here; every method returns *apperrors.Error values
// for expected failures.
package services

import (
	"restaurant-ordering-api/audit"
	"restaurant-ordering-api/config"
	"restaurant-ordering-api/events"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	DB          *gorm.DB
	Config      *config.Config
	Audit       audit.Recorder
	AuditReader audit.Reader
	Publisher   events.Publisher
	Metrics     *Metrics
	Log         *zap.Logger
}

type Services struct {
	Auth    *AuthService
	Users   *UserService
	Orders  *OrderService
	Reviews *ReviewService
	Catalog *CatalogService
}

func New(d Deps) *Services {
	tokens := NewTokenManager(d.Config.Auth.JWTSecret, d.Config.Auth.AccessTTL)
	auth := NewAuthService(d.DB, tokens, d.Config.Auth, d.Audit, d.Metrics, d.Log)
	return &Services{
		Auth:    auth,
		Users:   NewUserService(d.DB, auth, d.Audit, d.AuditReader, d.Log),
		Orders:  NewOrderService(d.DB, d.Publisher, d.Metrics, d.Config.Orders.EstimatedDelivery, d.Log),
		Reviews: NewReviewService(d.DB, d.Metrics),
		Catalog: NewCatalogService(d.DB),
	}
}
