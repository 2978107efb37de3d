package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wellslab/s4m-api/internal/requestdata"
	"github.com/wellslab/s4m-api/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body"))
		return
	}
	token, err := ah.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if err == services.ErrInvalidCredentials {
			RespondError(c, http.StatusUnauthorized, "invalid_credentials", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "login_failed", err)
		return
	}
	RespondOK(c, gin.H{"token": token})
}

// Logout is a stateless acknowledgement. Tokens are not tracked server side,
// the client discards its copy.
func (ah *AuthHandler) Logout(c *gin.Context) {
	RespondOK(c, gin.H{})
}

func (ah *AuthHandler) User(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.Username == "" {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing or invalid token"))
		return
	}
	RespondOK(c, gin.H{"username": rd.Username})
}
