package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	Now func() time.Time
}

func (h *HealthHandler) Health(c *gin.Context) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": now().Format("2006-01-02T15:04:05.000000")})
}

// Index describes the API surface.
func (h *HealthHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "EMG Data Collection API",
		"version": "1.0.0",
		"health":  "/api/health",
		"endpoints": gin.H{
			"auth":  []string{"/api/auth/register", "/api/auth/login", "/api/auth/logout", "/api/auth/me"},
			"emg":   []string{"/api/emg/data", "/api/emg/sessions"},
			"admin": []string{"/api/admin/users", "/api/admin/emg-data", "/api/admin/stats"},
		},
	})
}
