package controllers

import (
	"context"
	"net/http"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/middleware"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/gin-gonic/gin"
)

// TokenIssuer creates and revokes login tokens
type TokenIssuer interface {
	IssueUserToken(ctx context.Context, userID uint) (string, error)
	RevokeToken(ctx context.Context, access string) error
}

type AuthController struct {
	userService services.UserService
	tokens      TokenIssuer
}

func NewAuthController(userService services.UserService, tokens TokenIssuer) *AuthController {
	return &AuthController{
		userService: userService,
		tokens:      tokens,
	}
}

// LoginRequest exchanges credentials for a token
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login godoc
// @Summary Obtain an auth token
// @Description Exchange email and password for an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Credentials"
// @Success 200 {object} map[string]string "auth_token"
// @Failure 400 {object} models.APIError
// @Router /api/auth/token/login/ [post]
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := ac.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := ac.tokens.IssueUserToken(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"auth_token": token})
}

// Logout godoc
// @Summary Revoke the current token
// @Tags auth
// @Success 204
// @Failure 401 {object} models.OAuth2Error
// @Security BearerAuth
// @Router /api/auth/token/logout/ [post]
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.tokens.RevokeToken(c.Request.Context(), c.GetString(middleware.TokenKey)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
