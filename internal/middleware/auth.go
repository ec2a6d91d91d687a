package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/orders-api/pkg/auth"
)

const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate verifies the bearer token and sets the user in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(c, http.StatusUnauthorized, "Invalid authorization header.")
			return
		}

		claims, err := m.jwt.ValidateToken(parts[1])
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("rejected bearer token")
			abort(c, http.StatusUnauthorized, "Invalid token.")
			return
		}

		userID, _ := claims.UserID()
		c.Set(ContextUserID, userID)
		c.Set(ContextUsername, claims.Username)
		c.Next()
	}
}
