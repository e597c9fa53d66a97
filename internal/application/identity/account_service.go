package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// Authentication error codes. The HTTP layer answers them with 401.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenInvalid       = "INVALID_TOKEN"
	CodeTokenRevoked       = "TOKEN_REVOKED"
	CodeTokenMaxRefresh    = "TOKEN_MAX_REFRESH"
)

var errInvalidCredentials = shared.NewDomainError(CodeInvalidCredentials, "Invalid email or password")

// AccountService registers accounts and issues, rotates and revokes tokens
type AccountService struct {
	accounts   identity.AccountRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	events     shared.EventPublisher
	logger     *zap.Logger
}

// NewAccountService creates a new AccountService. events may be nil.
func NewAccountService(
	accounts identity.AccountRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	events shared.EventPublisher,
	logger *zap.Logger,
) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		accounts:   accounts,
		jwtService: jwtService,
		blacklist:  blacklist,
		events:     events,
		logger:     logger,
	}
}

// Register creates a BUYER or SELLER account
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*AccountResponse, error) {
	role, err := identity.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	exists, err := s.accounts.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "An account with this email already exists").
			WithDetail("field", "email")
	}

	account, err := identity.NewAccount(req.Name, req.Email, req.Password, role)
	if err != nil {
		return nil, err
	}
	account.SetContact(req.Phone, req.Address)
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, err
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, account.PendingEvents()...); err != nil {
			s.logger.Warn("failed to publish account event", zap.String("account_id", account.ID.String()), zap.Error(err))
		}
	}
	account.ClearEvents()

	s.logger.Info("account registered",
		zap.String("account_id", account.ID.String()),
		zap.String("role", role.String()),
	)
	resp := ToAccountResponse(account)
	return &resp, nil
}

// Login checks credentials and issues a token pair
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("login for unknown email")
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !account.VerifyPassword(req.Password) {
		s.logger.Warn("invalid password", zap.String("account_id", account.ID.String()))
		return nil, errInvalidCredentials
	}

	pair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID: account.ID,
		Role:   account.Role,
		Name:   account.Name,
	})
	if err != nil {
		return nil, err
	}

	account.RecordLogin()
	if err := s.accounts.Save(ctx, account); err != nil {
		// The login itself succeeded
		s.logger.Error("failed to record login", zap.String("account_id", account.ID.String()), zap.Error(err))
	}

	s.logger.Info("account logged in", zap.String("account_id", account.ID.String()))
	return &LoginResponse{
		TokenResponse: toTokenResponse(pair),
		Account:       ToAccountResponse(account),
	}, nil
}

// Refresh rotates a refresh token. The old refresh token is revoked and the
// role is reloaded from the account.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, tokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return nil, tokenError(auth.ErrInvalidClaims)
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, tokenError(auth.ErrInvalidToken)
		}
		return nil, err
	}

	pair, err := s.jwtService.RefreshTokenPair(refreshToken, account.Role, account.Name)
	if err != nil {
		return nil, tokenError(err)
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		s.logger.Error("failed to revoke rotated refresh token", zap.Error(err))
	}

	resp := toTokenResponse(pair)
	return &resp, nil
}

// Logout revokes the access token and, if given, the refresh token
func (s *AccountService) Logout(ctx context.Context, caller identity.Caller, req LogoutRequest) error {
	if req.AccessTokenID != "" {
		if err := s.blacklist.Revoke(ctx, req.AccessTokenID, req.AccessTokenTTL); err != nil {
			return err
		}
	}
	if req.RefreshToken != "" {
		claims, err := s.jwtService.ValidateRefreshToken(req.RefreshToken)
		if err == nil && claims.UserID == caller.ID.String() {
			if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
				return err
			}
		}
	}
	s.logger.Info("account logged out", zap.String("account_id", caller.ID.String()))
	return nil
}

// Me returns the caller's profile
func (s *AccountService) Me(ctx context.Context, caller identity.Caller) (*AccountResponse, error) {
	if caller.ID == uuid.Nil {
		return nil, shared.NewUnauthorizedError("view profile", caller.ID)
	}
	account, err := s.accounts.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	resp := ToAccountResponse(account)
	return &resp, nil
}

// IsTokenRevoked reports whether an access token was revoked by logout or
// account-wide revocation
func (s *AccountService) IsTokenRevoked(ctx context.Context, claims *auth.Claims) (bool, error) {
	if err := s.checkRevoked(ctx, claims); err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) && de.Code == CodeTokenRevoked {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func (s *AccountService) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if !revoked {
		revoked, err = s.blacklist.IsAccountRevoked(ctx, claims.UserID, claims.IssuedAtTime())
		if err != nil {
			return err
		}
	}
	if revoked {
		return tokenError(auth.ErrTokenBlacklisted)
	}
	return nil
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError(CodeTokenExpired, "Token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError(CodeTokenMaxRefresh, "Maximum token refresh count exceeded. Please log in again")
	case errors.Is(err, auth.ErrTokenBlacklisted):
		return shared.NewDomainError(CodeTokenRevoked, "Token has been revoked")
	default:
		return shared.NewDomainError(CodeTokenInvalid, "Invalid token")
	}
}

func toTokenResponse(p *auth.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:           p.AccessToken,
		RefreshToken:          p.RefreshToken,
		AccessTokenExpiresAt:  p.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: p.RefreshTokenExpiresAt,
		TokenType:             p.TokenType,
	}
}
