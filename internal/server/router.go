package server

import (
	"log/slog"
	"net/http"

	"calibri-dashboard/internal/auth"
	"calibri-dashboard/internal/handler"
	"calibri-dashboard/internal/middleware"
	"calibri-dashboard/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Store       *store.Store
	TokenConfig auth.TokenConfig
	Logger      *slog.Logger
	// AuthLimiter throttles register and login per client IP when set.
	AuthLimiter *middleware.RateLimiter
}

// NewRouter builds the backend REST API.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.CORS())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})

	healthHandler := &handler.HealthHandler{}
	r.GET("/", healthHandler.Index)
	r.GET("/api/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := &handler.AuthHandler{Store: deps.Store, TokenConfig: deps.TokenConfig, Logger: deps.Logger}
	requireAuth := middleware.RequireAuth(deps.TokenConfig, deps.Store)

	public := r.Group("/api/auth")
	if deps.AuthLimiter != nil {
		limit := middleware.RateLimitMiddleware(deps.AuthLimiter)
		public.POST("/register", limit, authHandler.Register)
		public.POST("/login", limit, authHandler.Login)
	} else {
		public.POST("/register", authHandler.Register)
		public.POST("/login", authHandler.Login)
	}
	public.POST("/logout", middleware.OptionalAuth(deps.TokenConfig), authHandler.Logout)
	public.GET("/me", requireAuth, authHandler.Me)

	emgHandler := &handler.EMGHandler{Store: deps.Store, Logger: deps.Logger}
	emg := r.Group("/api/emg", requireAuth)
	emg.POST("/data", emgHandler.Save)
	emg.GET("/sessions", emgHandler.Sessions)

	adminHandler := &handler.AdminHandler{Store: deps.Store, Logger: deps.Logger}
	admin := r.Group("/api/admin", requireAuth, middleware.RequireAdmin())
	admin.GET("/users", adminHandler.Users)
	admin.GET("/emg-data", adminHandler.EMGData)
	admin.GET("/stats", adminHandler.Stats)
	admin.DELETE("/users/:id", adminHandler.DeleteUser)

	return r
}
