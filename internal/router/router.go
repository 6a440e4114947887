// Package router wires HTTP routes to their handlers and middleware.
package router

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/cmis-dev/event-registration/internal/config"
    "github.com/cmis-dev/event-registration/internal/handler"
    "github.com/cmis-dev/event-registration/internal/middleware"
    "github.com/cmis-dev/event-registration/internal/model"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the account endpoints.  /v1/auth/* is open;
// /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.GET("/verify", a.Verify)
    g.POST("/login", a.Login)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.GET("/me", a.Me)
}

// RegisterEvents registers event browsing for everyone and event
// management for faculty and admins.  The public listing is cached in
// Redis when a client is available.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, jwtSecret string, rdb *redis.Client) {
    e.GET("/v1/events", h.List, middleware.CacheListing(rdb, 30*time.Second))
    e.GET("/v1/events/:id", h.Get)

    manage := e.Group("/v1/events")
    manage.Use(middleware.JWTAuth(jwtSecret))
    manage.Use(middleware.RequireRole(model.RoleFaculty, model.RoleAdmin))
    manage.POST("", h.Create)
    manage.PUT("/:id", h.Update)
    manage.DELETE("/:id", h.Delete)
    manage.POST("/:id/sessions", h.CreateSession)
    manage.GET("/:id/registrations", h.Registrations)
    manage.POST("/:id/invite", h.Invite)
}

// RegisterRegistrations registers the registration flow.  Admin
// accounts manage events and do not register for them, so they are
// blocked here.  The admission endpoint is rate limited per user.
func RegisterRegistrations(e *echo.Echo, h *handler.RegistrationHandler, jwtSecret string, rl config.RateLimitConfig, rdb *redis.Client) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.ForbidRole(model.RoleAdmin))

    g.POST("/events/:id/register", h.Register, middleware.RateLimit(rl, rdb))
    g.DELETE("/events/:id/register", h.Unregister)
    g.GET("/registrations/me", h.Mine)
    g.POST("/registrations/:id/feedback", h.SubmitFeedback)
}
