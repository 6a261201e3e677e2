package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leadscout/backend/internal/middleware"
	"github.com/leadscout/backend/internal/models"
	"github.com/leadscout/backend/internal/services"
	"github.com/leadscout/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	authService *services.AuthService
	production  bool
	logger      *logrus.Logger
}

func NewAuthHandler(authService *services.AuthService, production bool, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		production:  production,
		logger:      logger,
	}
}

// secureRequest reports whether the session cookie must be Secure with
// SameSite=None, as required for cross-origin HTTPS front ends.
func (h *AuthHandler) secureRequest(c *gin.Context) bool {
	return h.production ||
		c.Request.TLS != nil ||
		strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, maxAge time.Duration) {
	cookie := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	} else {
		cookie.Expires = time.Now().Add(maxAge)
	}
	if h.secureRequest(c) {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(c.Writer, cookie)
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, token, err := h.authService.Signup(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err, "Failed to sign up")
		return
	}

	h.setSessionCookie(c, token, h.authService.SessionTTL())
	c.JSON(http.StatusOK, models.SessionResponse{User: models.NewUserView(user)})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err, "Failed to log in")
		return
	}

	h.setSessionCookie(c, token, h.authService.SessionTTL())
	c.JSON(http.StatusOK, models.SessionResponse{User: models.NewUserView(user)})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Session reports the signed-in user, or null. It never fails.
func (h *AuthHandler) Session(c *gin.Context) {
	user, err := h.authService.Authenticate(c.Request.Context(), middleware.SessionToken(c))
	if err != nil {
		c.JSON(http.StatusOK, models.SessionResponse{})
		return
	}
	c.JSON(http.StatusOK, models.SessionResponse{User: models.NewUserView(user)})
}
