package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthHandler exposes the identity carried by the caller's access token.
// Tokens are issued by the identity service; this backend only verifies them.
type AuthHandler struct{}

// NewAuthHandler creates a new auth handler
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// GetCurrentUser handles GET /api/v1/auth/user
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, user)
}
