package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"calibri-dashboard/internal/middleware"
	"calibri-dashboard/internal/model"
	"calibri-dashboard/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var emgRecordsStored = promauto.NewCounter(prometheus.CounterOpts{
	Name: "calibri_backend_emg_records_total",
	Help: "EMG samples persisted by the backend",
})

type EMGHandler struct {
	Store  *store.Store
	Logger *slog.Logger
}

func (h *EMGHandler) Save(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		detail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var body model.SampleRecord
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusUnprocessableEntity, "Invalid request")
		return
	}
	if strings.TrimSpace(body.SessionID) == "" {
		detail(c, http.StatusUnprocessableEntity, "session_id is required")
		return
	}

	if err := h.Store.InsertSample(c.Request.Context(), user.ID, body); err != nil {
		h.logger().Error("saving sample failed", slog.Int64("userID", user.ID), slog.String("error", err.Error()))
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	emgRecordsStored.Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Data saved"})
}

func (h *EMGHandler) Sessions(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		detail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessions, err := h.Store.Sessions(c.Request.Context(), user.ID)
	if err != nil {
		h.logger().Error("listing sessions failed", slog.Int64("userID", user.ID), slog.String("error", err.Error()))
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *EMGHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}
