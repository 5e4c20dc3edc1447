package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/auth"
)

// AuthHandler handles HTTP requests related to authentication
type AuthHandler struct {
	authService *auth.AuthService
}

// NewAuthHandler creates a new AuthHandler instance. The auth service is
// injected because its constructor validates startup configuration.
func NewAuthHandler(authService *auth.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login handles POST /api/v1/auth/login
// @Summary Login
// @Description Authenticate a dashboard user and return a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body models.LoginRequest true "Login credentials"
// @Success 200 {object} map[string]interface{} "success: true, data: models.AuthResponse"
// @Failure 400 {object} map[string]interface{} "success: false, message: error message"
// @Failure 401 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "email and password are required",
		})
		return
	}

	response, err := h.authService.Login(&req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Invalid email or password",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    response,
	})
}
