package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hospital-registration/internal/config"
	"github.com/iliyamo/hospital-registration/internal/handler"
	"github.com/iliyamo/hospital-registration/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI wires the registration, availability and payment surfaces
// under /v1 behind JWT authentication. Calendar reads go through the
// Redis response cache; booking writes go through the per-account rate
// limiter. Both degrade to pass-through when rdb is nil.
func RegisterAPI(e *echo.Echo, reg *handler.RegistrationHandler, avail *handler.AvailabilityHandler, doc *handler.DoctorHandler, pay *handler.PaymentHandler, jwtSecret string, rdb *redis.Client) {
	cache := middleware.AvailabilityCache(config.LoadCacheConfig(), rdb)
	limit := middleware.BookingRateLimit(config.LoadRateLimitConfig(), rdb)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))

	// Booking surface: every authenticated role may book and cancel.
	v1.POST("/registrations", reg.Create, limit)
	v1.DELETE("/registrations/:id", reg.Cancel, limit)
	v1.GET("/registrations", reg.ListMine)

	// Catalog and calendar reads, cached.
	v1.GET("/doctors", doc.List, cache)
	v1.GET("/doctors/:id", doc.Get, cache)
	v1.GET("/doctors/:id/availability", avail.GetByDoctor, cache)

	// Doctor/admin self-service tooling.
	staff := middleware.RequireRole("doctor", "admin")
	v1.PUT("/doctors/:id/availability", avail.Upsert, staff)
	v1.GET("/doctors/:id/registrations", reg.ListForDoctor, staff)
	v1.GET("/availability", avail.ListAll, middleware.RequireRole("admin"))

	// Payments.
	v1.POST("/payments/:id/pay", pay.Pay)
	v1.GET("/payments/:id", pay.Get)
	v1.GET("/payments", pay.ListMine)
}
