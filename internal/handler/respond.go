package handler

import (
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
)

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

// normalizeEmail accepts a bare address and returns it trimmed.
func normalizeEmail(raw string) (string, bool) {
	email := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}
