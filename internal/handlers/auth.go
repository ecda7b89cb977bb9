package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskhive/backend/internal/middleware"
	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type tokenResponse struct {
	AccessToken      string      `json:"access_token"`
	TokenType        string      `json:"token_type"`
	ExpiresAt        int64       `json:"expires_at"`
	RefreshToken     string      `json:"refresh_token"`
	RefreshExpiresAt int64       `json:"refresh_expires_at"`
	User             interface{} `json:"user,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register signs up a new applicant.
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.authService.Register(&req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, user)
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Login(&req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		services.LogWarning(services.LogModuleAuth, "Login", "login failed for "+req.Username, nil, c.ClientIP(), c.Request.UserAgent(), nil)
		fail(c, err)
		return
	}

	services.LogInfo(services.LogModuleAuth, "Login", "user logged in: "+result.User.Username, &result.User.ID, c.ClientIP(), c.Request.UserAgent(), nil)
	response.Success(c, tokenResponse{
		AccessToken:      result.AccessToken,
		TokenType:        "Bearer",
		ExpiresAt:        result.AccessExpireAt.Unix(),
		RefreshToken:     result.RefreshToken,
		RefreshExpiresAt: result.RefreshExpireAt.Unix(),
		User:             result.User,
	})
}

// Refresh rotates a refresh token.
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Refresh(req.RefreshToken, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, tokenResponse{
		AccessToken:      result.AccessToken,
		TokenType:        "Bearer",
		ExpiresAt:        result.AccessExpireAt.Unix(),
		RefreshToken:     result.RefreshToken,
		RefreshExpiresAt: result.RefreshExpireAt.Unix(),
	})
}

// Logout revokes the presented refresh token; the access token simply expires.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		_ = h.authService.RevokeRefreshToken(req.RefreshToken)
	}
	response.Success(c, gin.H{"message": "logged out"})
}

// GetCurrentUser returns the current logged-in user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.authService.GetUserByID(middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, user)
}

// ChangePassword
// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.authService.ChangePassword(userID, &req); err != nil {
		fail(c, err)
		return
	}
	services.LogInfo(services.LogModuleAuth, "ChangePassword", "password changed", &userID, c.ClientIP(), c.Request.UserAgent(), nil)
	response.Success(c, gin.H{"message": "password changed"})
}

// GetAuthConfig
// GET /api/auth/config
func (h *AuthHandler) GetAuthConfig(c *gin.Context) {
	response.Success(c, gin.H{
		"ldap_enabled":      h.authService.IsLDAPEnabled(),
		"registration_open": true,
	})
}
