package middleware

import (
	"context"
	"net/http"
	"strings"

	"calibri-dashboard/internal/auth"
	"calibri-dashboard/internal/model"
	"github.com/gin-gonic/gin"
)

const (
	userContextKey   = "user"
	claimsContextKey = "claims"
)

// Users resolves token holders. The SQLite store satisfies it.
type Users interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
	UserByID(ctx context.Context, id int64) (model.User, error)
}

func UserFromContext(c *gin.Context) (model.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return model.User{}, false
	}
	user, ok := v.(model.User)
	return user, ok && user.ID > 0
}

func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func RequireAuth(cfg auth.TokenConfig, users Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := BearerToken(c)
		if !ok {
			abortDetail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := auth.VerifyToken(tok, cfg)
		if err != nil {
			abortDetail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		revoked, err := users.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			abortDetail(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		if revoked {
			abortDetail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := users.UserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			abortDetail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		c.Set(claimsContextKey, claims)
		c.Set(userContextKey, user)
		c.Next()
	}
}

// OptionalAuth stores the claims of a verifying bearer token and never
// aborts. Handlers that accept anonymous callers read ClaimsFromContext.
func OptionalAuth(cfg auth.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok, ok := BearerToken(c); ok {
			if claims, err := auth.VerifyToken(tok, cfg); err == nil {
				c.Set(claimsContextKey, claims)
			}
		}
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := UserFromContext(c)
		if !ok {
			abortDetail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !user.IsAdmin {
			abortDetail(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}

func abortDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
