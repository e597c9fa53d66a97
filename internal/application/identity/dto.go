package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/identity"
)

// RegisterRequest creates an account. Role accepts BUYER, SELLER and the
// PHARMACIST and SUPPLIER aliases.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"required,role"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// LoginRequest contains the input for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LogoutRequest names the tokens to revoke. The access token fields come
// from the validated claims; the refresh token is optional.
type LogoutRequest struct {
	AccessTokenID  string
	AccessTokenTTL time.Duration
	RefreshToken   string
}

// AccountResponse is the public profile of an account
type AccountResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Phone       string     `json:"phone,omitempty"`
	Address     string     `json:"address,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TokenResponse is an issued access and refresh token pair
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// LoginResponse is the result of a successful login
type LoginResponse struct {
	TokenResponse
	Account AccountResponse `json:"account"`
}

// ToAccountResponse converts a domain account to a response
func ToAccountResponse(a *identity.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Role:        a.Role.String(),
		Phone:       a.Phone,
		Address:     a.Address,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}
