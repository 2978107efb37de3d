package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/requestdata"
	"github.com/wellslab/s4m-api/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	return &AuthMiddleware{log: middlewareLogger, authService: authService}
}

// RequireAuth rejects requests that do not carry a valid access token.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		username, err := am.authService.VerifyToken(tokenString)
		if err != nil {
			am.log.Debug("Rejected access token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		rd := &requestdata.RequestData{TokenString: tokenString, Username: username}
		c.Request = c.Request.WithContext(requestdata.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

// Identify attaches the caller's identity when a valid token is present and
// lets the request continue anonymously otherwise. Read paths use it to
// decide whether private datasets are visible.
func (am *AuthMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := extractToken(c); tokenString != "" {
			if username, err := am.authService.VerifyToken(tokenString); err == nil {
				rd := &requestdata.RequestData{TokenString: tokenString, Username: username}
				c.Request = c.Request.WithContext(requestdata.WithRequestData(c.Request.Context(), rd))
			}
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
