package routes

import (
	"restaurant-ordering-api/cache"
	"restaurant-ordering-api/config"
	"restaurant-ordering-api/handlers"
	"restaurant-ordering-api/middleware"
	"restaurant-ordering-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are the collaborators the router needs beyond the handlers
type Deps struct {
	Handler   *handlers.Handler
	Tokens    *services.TokenManager
	MenuCache cache.Store
	Metrics   *middleware.HTTPMetrics
	Log       *zap.Logger
	Config    *config.Config
}

// NewRouter builds the engine with global middleware and every route
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(d.Log), middleware.Recovery())
	if d.Metrics != nil {
		r.Use(d.Metrics.Handler())
	}
	r.Use(middleware.CORS(d.Config.Server.AllowedOrigins))
	r.Use(middleware.NewRateLimiter("global", d.Config.RateLimit.RPS, d.Config.RateLimit.Burst).Handler())

	r.GET("/health", d.Handler.Health)
	SetupRoutes(r, d)
	return r
}

func SetupRoutes(r *gin.Engine, d Deps) {
	h := d.Handler
	auth := middleware.AuthRequired(d.Tokens)
	authLimit := middleware.NewRateLimiter("auth", d.Config.RateLimit.AuthRPS, d.Config.RateLimit.AuthBurst).Handler()
	cached := middleware.CacheResponse(d.MenuCache)

	api := r.Group("/api")

	// ── Users & auth ───────────────────────────────────────────────
	users := api.Group("/users")
	{
		users.POST("/register", authLimit, h.Register)
		users.POST("/login", authLimit, h.Login)
		users.POST("/refresh-token", authLimit, h.RefreshToken)
		users.POST("/logout", h.Logout)

		users.GET("/profile", auth, h.GetProfile)
		users.PUT("/profile", auth, h.UpdateProfile)
		users.PUT("/password", auth, authLimit, h.ChangePassword)
		users.GET("/activity", auth, h.GetActivity)
		users.POST("/address", auth, h.AddAddress)
		users.PUT("/address/:addressId", auth, h.UpdateAddress)
		users.DELETE("/address/:addressId", auth, h.DeleteAddress)

		admin := users.Group("", auth, middleware.AdminOnly())
		admin.GET("", h.AdminListUsers)
		admin.PUT("/:id/role", h.AdminSetRole)
		admin.PUT("/:id/active", h.AdminSetActive)
		admin.POST("/:id/revoke-sessions", h.AdminRevokeSessions)
		admin.GET("/:id/activity", h.AdminUserActivity)
	}

	// ── Menu ───────────────────────────────────────────────────────
	menu := api.Group("/menu")
	{
		menu.GET("", cached, h.ListMenu)
		menu.GET("/admin", auth, middleware.AdminOnly(), h.AdminListMenu)
		menu.GET("/:id", cached, h.GetMenuItem)

		admin := menu.Group("", auth, middleware.AdminOnly())
		admin.POST("", h.CreateMenuItem)
		admin.PUT("/:id", h.UpdateMenuItem)
		admin.DELETE("/:id", h.DeleteMenuItem)
		admin.PATCH("/:id/availability", h.ToggleAvailability)
	}

	// ── Orders ─────────────────────────────────────────────────────
	orders := api.Group("/orders")
	{
		orders.POST("", middleware.OptionalAuth(d.Tokens), h.CreateOrder)
		orders.GET("/state-machine", h.GetStateMachineInfo)
		orders.GET("/customer/:email", auth, h.GetCustomerOrders)
		orders.GET("/:id", h.GetOrder)
		orders.POST("/:id/cancel", auth, h.CancelOrder)

		staff := orders.Group("", auth, middleware.StaffOnly())
		staff.GET("", h.ListOrders)
		staff.PUT("/:id/status", h.UpdateOrderStatus)
		staff.PUT("/:id/charges", h.UpdateOrderCharges)
		staff.PUT("/:id/payment", h.UpdatePaymentStatus)
	}

	// ── Reviews ────────────────────────────────────────────────────
	reviews := api.Group("/reviews")
	{
		reviews.GET("", h.ListReviews)
		reviews.POST("", authLimit, h.CreateReview)
		reviews.GET("/stats", h.ReviewStats)

		staff := reviews.Group("", auth, middleware.StaffOnly())
		staff.GET("/admin", h.AdminListReviews)
		staff.PUT("/:id/approve", h.ApproveReview)
		staff.PUT("/:id/flag", h.FlagReview)
		staff.PUT("/:id/reply", h.ReplyReview)
		staff.DELETE("/:id", h.DeleteReview)
	}
}
