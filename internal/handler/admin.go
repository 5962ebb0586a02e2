package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"calibri-dashboard/internal/middleware"
	"calibri-dashboard/internal/store"
	"github.com/gin-gonic/gin"
)

const (
	defaultRecordLimit = 100
	maxRecordLimit     = 10000
)

type AdminHandler struct {
	Store  *store.Store
	Logger *slog.Logger
}

func (h *AdminHandler) Users(c *gin.Context) {
	users, err := h.Store.Users(c.Request.Context())
	if err != nil {
		h.fail(c, "listing users", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) EMGData(c *gin.Context) {
	limit := defaultRecordLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			detail(c, http.StatusUnprocessableEntity, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecordLimit)
	}

	records, err := h.Store.EMGRecords(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, "listing emg data", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *AdminHandler) Stats(c *gin.Context) {
	st, err := h.Store.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, "loading stats", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, "Invalid user id")
		return
	}
	admin, ok := middleware.UserFromContext(c)
	if !ok {
		detail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if id == admin.ID {
		detail(c, http.StatusBadRequest, "Cannot delete yourself")
		return
	}

	if err := h.Store.DeleteUser(c.Request.Context(), id); err != nil {
		h.fail(c, "deleting user", err)
		return
	}
	h.logger().Info("user deleted", slog.Int64("userID", id), slog.Int64("adminID", admin.ID))
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

func (h *AdminHandler) fail(c *gin.Context, op string, err error) {
	h.logger().Error(op+" failed", slog.String("error", err.Error()))
	detail(c, http.StatusInternalServerError, "Internal server error")
}

func (h *AdminHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}
