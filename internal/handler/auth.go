package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"calibri-dashboard/internal/auth"
	"calibri-dashboard/internal/middleware"
	"calibri-dashboard/internal/model"
	"calibri-dashboard/internal/store"
	"github.com/gin-gonic/gin"
)

const minPasswordLength = 6

type AuthHandler struct {
	Store       *store.Store
	TokenConfig auth.TokenConfig
	Logger      *slog.Logger
}

type registerBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var body registerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusUnprocessableEntity, "Invalid request")
		return
	}
	email, ok := normalizeEmail(body.Email)
	if !ok {
		detail(c, http.StatusUnprocessableEntity, "Invalid email address")
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		detail(c, http.StatusUnprocessableEntity, "Name is required")
		return
	}
	if len(body.Password) < minPasswordLength {
		detail(c, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		h.fail(c, "hashing password", err)
		return
	}

	user, err := h.Store.CreateUser(c.Request.Context(), email, hash, name)
	if errors.Is(err, store.ErrEmailExists) {
		detail(c, http.StatusBadRequest, "Email already exists")
		return
	}
	if err != nil {
		h.fail(c, "creating user", err)
		return
	}

	h.issue(c, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusUnprocessableEntity, "Invalid request")
		return
	}
	email, ok := normalizeEmail(body.Email)
	if !ok {
		detail(c, http.StatusUnprocessableEntity, "Invalid email address")
		return
	}

	user, hash, err := h.Store.UserByEmail(c.Request.Context(), email)
	if errors.Is(err, store.ErrUserNotFound) {
		detail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		h.fail(c, "looking up user", err)
		return
	}
	if err := auth.CheckPassword(hash, body.Password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			h.logger().Warn("password check failed", slog.Int64("userID", user.ID), slog.String("error", err.Error()))
		}
		detail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	h.issue(c, user)
}

// Logout revokes the presented token when it verifies. It always succeeds.
// Must run after middleware.OptionalAuth.
func (h *AuthHandler) Logout(c *gin.Context) {
	if claims, ok := middleware.ClaimsFromContext(c); ok {
		expiresAt := time.Now().Add(h.TokenConfig.Expiry)
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		if err := h.Store.RevokeToken(c.Request.Context(), claims.ID, expiresAt, time.Now()); err != nil {
			h.logger().Error("revoking token failed", slog.Int64("userID", claims.UserID), slog.String("error", err.Error()))
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		detail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	user.CreatedAt = ""
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) issue(c *gin.Context, user model.User) {
	token, _, err := auth.CreateToken(user.ID, h.TokenConfig)
	if err != nil {
		h.fail(c, "creating token", err)
		return
	}
	user.CreatedAt = ""
	c.JSON(http.StatusOK, tokenResponse{Token: token, User: user})
}

func (h *AuthHandler) fail(c *gin.Context, op string, err error) {
	h.logger().Error(op+" failed", slog.String("error", err.Error()))
	detail(c, http.StatusInternalServerError, "Internal server error")
}

func (h *AuthHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}
