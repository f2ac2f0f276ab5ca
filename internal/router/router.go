package router // package router defines how HTTP routes are registered for the API

import (
    "log/slog"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/tixcode/internal/config"
    "github.com/iliyamo/tixcode/internal/handler"
    "github.com/iliyamo/tixcode/internal/middleware"
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
    Auth     *handler.AuthHandler
    Codes    *handler.CodeHandler
    Payments *handler.PaymentHandler
    Events   *handler.EventHandler
    Admin    *handler.AdminHandler
    Health   echo.HandlerFunc
}

// Options carries what the route middleware needs.  A nil Redis client
// disables rate limiting and response caching.
type Options struct {
    JWTSecret string
    Policy    middleware.RolePolicy
    Redis     *redis.Client
    RateLimit config.RateLimitConfig
    Cache     config.CacheConfig
    Logger    *slog.Logger
}

// Register mounts every route on e.
func Register(e *echo.Echo, h Handlers, o Options) {
    e.GET("/healthz", h.Health)

    // Session-less auth operations; each issues or exchanges tokens.
    g := e.Group("/v1/auth")
    g.POST("/register", h.Auth.Register)
    g.POST("/login", h.Auth.Login)
    g.POST("/refresh", h.Auth.Refresh)
    g.POST("/refresh-access", h.Auth.RefreshAccess)
    g.POST("/logout", h.Auth.Logout)

    // Gateway server-to-server notice; authenticated by CheckMacValue.
    e.POST("/v1/payments/notify", h.Payments.Notify)

    // Public browse.  Cached responses are shared between callers.
    pub := e.Group("/v1/events")
    if o.Redis != nil {
        pub.Use(middleware.ResponseCache(o.Cache, o.Redis, o.Logger))
    }
    pub.GET("", h.Events.List)
    pub.GET("/:id", h.Events.Get)

    auth := e.Group("/v1", middleware.JWTAuth(o.JWTSecret, o.Logger))
    auth.GET("/me", h.Auth.Me)
    auth.PUT("/me/api-key", h.Auth.SetAPIKey)

    codes := auth.Group("/codes")
    codes.GET("", h.Codes.List)
    codes.POST("/purchase", h.Codes.Purchase)
    codes.PATCH("/:code/preferences", h.Codes.UpdatePreferences)

    // The agent endpoints are the ones worth guessing against, so they
    // carry the token bucket.
    agent := codes.Group("")
    if o.Redis != nil {
        agent.Use(middleware.RateLimit(o.RateLimit, o.Redis, o.Logger))
    }
    agent.POST("/redeem", h.Codes.Redeem)
    agent.POST("/bind", h.Codes.Bind)

    auth.POST("/payments/orders", h.Payments.CreateOrder)

    admin := auth.Group("/admin", middleware.RequireRole(o.Policy, middleware.RoleAdmin))
    admin.POST("/codes/sweep", h.Admin.Sweep)
}
