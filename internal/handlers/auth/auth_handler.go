// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"

	"fieldmapper-service/internal/domain/session"
	"fieldmapper-service/internal/middleware"
	"fieldmapper-service/internal/pkg/response"
	authService "fieldmapper-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authService.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(svc *authService.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: svc,
		logger:      logger,
	}
}

// ========== Registration ==========

// Register handles sign-up (public endpoint)
func (h *AuthHandler) Register(c *gin.Context) {
	var req session.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("registration failed",
			zap.String("email", req.Email),
			zap.Error(err),
		)
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "registration successful", loginResp)
}

// ========== Login ==========

// Login handles email/password login
func (h *AuthHandler) Login(c *gin.Context) {
	var req session.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("email", req.Email),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		response.FromError(c, err)
		return
	}

	h.logger.Info("user logged in",
		zap.String("uid", loginResp.User.UID),
		zap.String("email", loginResp.User.Email),
	)

	response.Success(c, http.StatusOK, "login successful", loginResp)
}

// GoogleSignIn handles provider sign-in with a code or access token
func (h *AuthHandler) GoogleSignIn(c *gin.Context) {
	var req session.GoogleSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.GoogleSignIn(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("google sign-in failed", zap.Error(err))
		response.FromError(c, err)
		return
	}

	h.logger.Info("user signed in with provider",
		zap.String("uid", loginResp.User.UID),
	)

	response.Success(c, http.StatusOK, "login successful", loginResp)
}

// ========== Session ==========

// Me returns the current session's user info (requires auth)
func (h *AuthHandler) Me(c *gin.Context) {
	uid := middleware.MustGetUID(c)

	info, err := h.authService.CurrentSession(c.Request.Context(), uid)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "session", info)
}

// ChangePassword updates the local password (requires auth)
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	uid := middleware.MustGetUID(c)
	jti := middleware.MustGetJTI(c)

	var req session.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), uid, jti, &req); err != nil {
		h.logger.Warn("password change failed",
			zap.String("uid", uid),
			zap.Error(err),
		)
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "password changed", nil)
}

// Logout ends the current session (requires auth)
func (h *AuthHandler) Logout(c *gin.Context) {
	uid := middleware.MustGetUID(c)
	jti := middleware.MustGetJTI(c)

	if err := h.authService.Logout(c.Request.Context(), uid, jti); err != nil {
		h.logger.Error("logout failed",
			zap.String("uid", uid),
			zap.Error(err),
		)
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "logout successful", nil)
}

// LogoutAll ends every session the user holds (requires auth)
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	uid := middleware.MustGetUID(c)

	if err := h.authService.LogoutAllSessions(c.Request.Context(), uid); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "all sessions logged out", nil)
}
