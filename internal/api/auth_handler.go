package api

import (
	"alcyxob/fitness-dashboard/internal/dashboard"
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/gateway"
	"alcyxob/fitness-dashboard/internal/gateway/localauth"
	"alcyxob/fitness-dashboard/internal/service"
	"alcyxob/fitness-dashboard/internal/session"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves the auth panel.
type AuthHandler struct {
	authService service.AuthService
	guard       *session.Guard
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService, guard *session.Guard) *AuthHandler {
	return &AuthHandler{authService: authService, guard: guard}
}

// --- Request/Response Structs ---

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// SessionResponse is the auth panel's view of the guard.
type SessionResponse struct {
	HasConfig bool                    `json:"hasConfig"`
	Loading   bool                    `json:"loading"`
	SignedIn  bool                    `json:"signedIn"`
	User      *domain.SessionUser     `json:"user,omitempty"`
	Notice    *dashboard.ConfigNotice `json:"notice,omitempty"`
}

// MapStateToResponse converts a guard snapshot to a SessionResponse. Tokens
// are never included.
func MapStateToResponse(s session.State) SessionResponse {
	resp := SessionResponse{HasConfig: s.HasConfig, Loading: s.Loading, SignedIn: s.SignedIn()}
	if s.Session != nil {
		user := s.Session.User
		resp.User = &user
	}
	if !s.HasConfig {
		notice := dashboard.NewConfigNotice()
		resp.Notice = &notice
	}
	return resp
}

// --- Handler Methods ---

// Session returns the current auth state. It does not wait for the initial
// resolution; Loading tells the caller it is still in progress.
func (h *AuthHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, MapStateToResponse(h.guard.State()))
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	msg, err := h.authService.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.abortWithAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: msg})
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	msg, err := h.authService.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.abortWithAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: msg})
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	msg, err := h.authService.SignOut(c.Request.Context())
	if err != nil {
		h.abortWithAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: msg})
}

// abortWithAuthError reports the gateway's message to the panel; only the
// status code depends on the error kind.
func (h *AuthHandler) abortWithAuthError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, gateway.ErrNotConfigured):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, dashboard.NewConfigNotice())
	case errors.Is(err, service.ErrMissingCredentials), errors.Is(err, localauth.ErrWeakPassword):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, gateway.ErrInvalidCredentials):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, localauth.ErrUserAlreadyExists):
		abortWithError(c, http.StatusConflict, err.Error())
	default:
		abortWithError(c, http.StatusBadGateway, err.Error())
	}
}
