package handler

import (
	"github.com/gin-gonic/gin"
	appidentity "github.com/pharmanet/backend/internal/application/identity"
	"github.com/pharmanet/backend/internal/interfaces/http/middleware"
)

// AuthHandler handles account and token HTTP requests
type AuthHandler struct {
	BaseHandler
	accounts *appidentity.AccountService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts *appidentity.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// RefreshTokenRequest carries the refresh token to rotate
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally names a refresh token to revoke with the access token
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register godoc
// @ID           registerAccount
// @Summary      Register an account
// @Description  Creates a BUYER (pharmacist) or SELLER (supplier) account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body appidentity.RegisterRequest true "Account details"
// @Success      201 {object} APIResponse[appidentity.AccountResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req appidentity.RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}
	account, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// Login godoc
// @ID           loginAccount
// @Summary      Login
// @Description  Authenticates with email and password and issues a token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body appidentity.LoginRequest true "Credentials"
// @Success      200 {object} APIResponse[appidentity.LoginResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req appidentity.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.accounts.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Refresh godoc
// @ID           refreshToken
// @Summary      Refresh tokens
// @Description  Rotates a refresh token into a new token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshTokenRequest true "Refresh token"
// @Success      200 {object} APIResponse[appidentity.TokenResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if !h.bindJSON(c, &req) {
		return
	}
	tokens, err := h.accounts.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tokens)
}

// Logout godoc
// @ID           logoutAccount
// @Summary      Logout
// @Description  Revokes the presented access token and, if given, a refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LogoutRequest false "Refresh token to revoke"
// @Success      204
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var body LogoutRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &body) {
		return
	}
	req := appidentity.LogoutRequest{RefreshToken: body.RefreshToken}
	if claims := middleware.GetJWTClaims(c); claims != nil {
		req.AccessTokenID = claims.ID
		req.AccessTokenTTL = claims.RemainingTTL()
	}
	if err := h.accounts.Logout(c.Request.Context(), caller, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Me godoc
// @ID           getCurrentAccount
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[appidentity.AccountResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	account, err := h.accounts.Me(c.Request.Context(), caller)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}
