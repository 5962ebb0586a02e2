package dashboard

import (
	"errors"
	"log/slog"
	"net/http"

	"calibri-dashboard/internal/authstate"
	"calibri-dashboard/internal/client"
	"calibri-dashboard/internal/device"
	"github.com/gin-gonic/gin"
)

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

// writeError maps core errors onto HTTP responses. Backend failures keep the
// backend's status and detail.
func (a *App) writeError(c *gin.Context, err error) {
	var (
		verr *client.ValidationError
		rf   *client.RequestFailedError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": verr.Message, "field": verr.Field})
	case errors.As(err, &rf):
		if rf.StatusCode == http.StatusUnauthorized {
			a.auth.Invalidate()
		}
		detail(c, rf.StatusCode, rf.Detail)
	case errors.Is(err, device.ErrAlreadyConnected),
		errors.Is(err, device.ErrNotConnected),
		errors.Is(err, device.ErrAlreadyRecording),
		errors.Is(err, device.ErrNotRecording):
		detail(c, http.StatusConflict, err.Error())
	case errors.Is(err, authstate.ErrNotAuthenticated):
		detail(c, http.StatusUnauthorized, "Not signed in")
	default:
		a.logger.Warn("backend request failed", slog.String("error", err.Error()))
		detail(c, http.StatusBadGateway, "Backend unavailable")
	}
}

func (a *App) requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.auth.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not signed in"})
			return
		}
		c.Next()
	}
}

func (a *App) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.auth.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not signed in"})
			return
		}
		if !a.auth.Admin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Admin access required"})
			return
		}
		c.Next()
	}
}
