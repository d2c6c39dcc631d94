package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/talktojesus/api_server/internal/model/dto"
	"github.com/talktojesus/api_server/internal/pkg/response"
	"github.com/talktojesus/api_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// GoogleLogin signs in with a Google ID token
// POST /api/v1/auth/google
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req dto.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	h.login(c, req.IDToken)
}

// CreateOrGetUser is the legacy sign-in route kept for older app builds
// POST /api/v1/auth/create-or-get-user
func (h *AuthHandler) CreateOrGetUser(c *gin.Context) {
	var req dto.CreateOrGetUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	h.login(c, req.Token)
}

func (h *AuthHandler) login(c *gin.Context, idToken string) {
	resp, err := h.authService.LoginWithGoogle(c.Request.Context(), idToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidIDToken):
			response.AuthError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "login successful", resp)
}
