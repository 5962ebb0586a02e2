package dashboard

import (
	"log/slog"
	"net/http"

	"calibri-dashboard/internal/device"
	"calibri-dashboard/internal/stats"
	"github.com/gin-gonic/gin"
)

func (a *App) deviceState(c *gin.Context) {
	c.JSON(http.StatusOK, a.session.Snapshot())
}

func (a *App) connect(c *gin.Context) {
	if _, err := a.session.Connect(); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.session.Snapshot())
}

func (a *App) disconnect(c *gin.Context) {
	a.session.Disconnect()
	c.JSON(http.StatusOK, a.session.Snapshot())
}

func (a *App) startRecording(c *gin.Context) {
	if err := a.session.StartRecording(); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.session.Snapshot())
}

func (a *App) stopRecording(c *gin.Context) {
	if err := a.session.StopRecording(); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.session.Snapshot())
}

func (a *App) history(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"samples": a.session.History()})
}

func (a *App) clearHistory(c *gin.Context) {
	a.session.ClearHistory()
	c.JSON(http.StatusOK, a.session.Snapshot())
}

func (a *App) settings(c *gin.Context) {
	c.JSON(http.StatusOK, a.session.Settings())
}

// updateSettings merges the body over the current settings, clamps the
// result and persists it.
func (a *App) updateSettings(c *gin.Context) {
	settings := a.session.Settings()
	if err := c.ShouldBindJSON(&settings); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request")
		return
	}
	settings = a.session.UpdateSettings(settings)

	if a.settingsFile != "" {
		if err := device.SaveSettings(a.settingsFile, settings); err != nil {
			a.logger.Error("saving settings failed", slog.String("path", a.settingsFile), slog.String("error", err.Error()))
			detail(c, http.StatusInternalServerError, "Saving settings failed")
			return
		}
	}
	c.JSON(http.StatusOK, settings)
}

func (a *App) deviceStats(c *gin.Context) {
	c.JSON(http.StatusOK, stats.Summarize(a.session.History(), a.session.Settings()))
}
