package dashboard

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const backendHealthTimeout = 2 * time.Second

func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), backendHealthTimeout)
	defer cancel()

	backend := "ok"
	if _, err := a.client.Health(ctx); err != nil {
		backend = "unreachable"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"backend": backend,
		"device":  a.session.Snapshot().State,
	})
}

func (a *App) sessions(c *gin.Context) {
	sessions, err := a.client.Sessions(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (a *App) adminUsers(c *gin.Context) {
	users, err := a.client.Users(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (a *App) adminEMGData(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Limit must be a number", "field": "limit"})
			return
		}
		limit = n
	}

	records, err := a.client.EMGData(c.Request.Context(), limit)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (a *App) adminStats(c *gin.Context) {
	st, err := a.client.Stats(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (a *App) adminDeleteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid user id", "field": "id"})
		return
	}
	if err := a.client.DeleteUser(c.Request.Context(), id); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

type chatBody struct {
	Message string `json:"message"`
}

func (a *App) supportChat(c *gin.Context) {
	var body chatBody
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": a.bot.Reply(body.Message)})
}
