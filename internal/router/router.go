package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/naruebet/cafe-reservation/internal/config"     // cache and rate-limit configuration
	"github.com/naruebet/cafe-reservation/internal/handler"    // import the handlers that implement business logic
	"github.com/naruebet/cafe-reservation/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems poll this endpoint.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the token-issuing routes.  There is no self-serve
// registration: the admin logs in with the staff password and the
// conversational front end exchanges its API key for customer tokens.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/admin-login", a.AdminLogin)
	g.POST("/service-token", a.ServiceToken)
}

// RegisterReservations registers the customer booking endpoints under /v1.
// All routes require a valid access token; both CUSTOMER and ADMIN roles may
// use them (an admin modifying any reservation passes the ownership check
// inside the engine).  The availability lookup additionally goes through the
// Redis response cache, and every route is rate limited.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, rdb *redis.Client) {
	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("CUSTOMER", "ADMIN"))
	// Rate limiting runs after auth so the bucket key can include the
	// authenticated user.
	auth.Use(rl)

	auth.GET("/availability", h.Availability, cache)
	auth.POST("/reservations", h.Create)
	auth.GET("/reservations", h.Mine)
	auth.PATCH("/reservations/:id", h.Modify)
	auth.DELETE("/reservations/:id", h.Cancel)
}

// RegisterAdmin registers the staff endpoints under /v1/admin.  Only the
// ADMIN role passes.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN"))

	g.GET("/reservations", h.ListAll)
	g.GET("/occupancy/:date", h.Occupancy)
	g.POST("/purge", h.Purge)
	g.POST("/rebuild", h.Rebuild)
}
