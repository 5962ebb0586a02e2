package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (a *App) register(c *gin.Context) {
	var body credentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request")
		return
	}
	user, err := a.auth.Register(c.Request.Context(), body.Email, body.Password, body.Name)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (a *App) login(c *gin.Context) {
	var body credentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request")
		return
	}
	user, err := a.auth.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// logout signs out locally even when the backend call fails.
func (a *App) logout(c *gin.Context) {
	if err := a.auth.Logout(c.Request.Context()); err != nil {
		a.logger.Warn("backend logout failed", slog.String("error", err.Error()))
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (a *App) me(c *gin.Context) {
	user, err := a.auth.User()
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
