package dashboard

import (
	"calibri-dashboard/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.CORS())

	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", a.stream)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", a.register)
	authGroup.POST("/login", a.login)
	authGroup.POST("/logout", a.logout)
	authGroup.GET("/me", a.me)

	dev := api.Group("/device")
	dev.GET("", a.deviceState)
	dev.POST("/connect", a.connect)
	dev.POST("/disconnect", a.disconnect)
	dev.POST("/recording/start", a.startRecording)
	dev.POST("/recording/stop", a.stopRecording)
	dev.GET("/history", a.history)
	dev.DELETE("/history", a.clearHistory)
	dev.GET("/settings", a.settings)
	dev.PUT("/settings", a.updateSettings)
	dev.GET("/stats", a.deviceStats)

	api.GET("/sessions", a.requireLogin(), a.sessions)

	admin := api.Group("/admin", a.requireAdmin())
	admin.GET("/users", a.adminUsers)
	admin.GET("/emg-data", a.adminEMGData)
	admin.GET("/stats", a.adminStats)
	admin.DELETE("/users/:id", a.adminDeleteUser)

	api.POST("/support/chat", a.supportChat)

	return r
}
