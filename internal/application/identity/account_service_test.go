package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	appidentity "github.com/pharmanet/backend/internal/application/identity"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/internal/infrastructure/auth"
	"github.com/pharmanet/backend/internal/infrastructure/config"
	"github.com/pharmanet/backend/internal/infrastructure/persistence"
	"github.com/pharmanet/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type accountFixture struct {
	svc       *appidentity.AccountService
	jwt       *auth.JWTService
	blacklist *auth.InMemoryTokenBlacklist
	publisher *MockEventPublisher
}

func newAccountFixture(t *testing.T, maxRefresh int) *accountFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	f := &accountFixture{
		jwt: auth.NewJWTService(config.JWTConfig{
			Secret:                 "account-service-test-secret-32chars",
			AccessTokenExpiration:  15 * time.Minute,
			RefreshTokenExpiration: 24 * time.Hour,
			Issuer:                 "pharmanet-test",
			MaxRefreshCount:        maxRefresh,
		}),
		blacklist: auth.NewInMemoryTokenBlacklist(),
		publisher: &MockEventPublisher{},
	}
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	f.svc = appidentity.NewAccountService(persistence.NewGormAccountRepository(db), f.jwt, f.blacklist, f.publisher, zap.NewNop())
	return f
}

func (f *accountFixture) register(t *testing.T, email, role string) *appidentity.AccountResponse {
	t.Helper()
	acc, err := f.svc.Register(context.Background(), appidentity.RegisterRequest{
		Name:     "Farmacia San Roque",
		Email:    email,
		Password: "correct-horse",
		Role:     role,
		Phone:    " +34 600 000 000 ",
	})
	require.NoError(t, err)
	return acc
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *shared.DomainError
	require.True(t, errors.As(err, &de), "expected domain error, got %v", err)
	assert.Equal(t, code, de.Code)
}

func TestAccountService_Register(t *testing.T) {
	f := newAccountFixture(t, 5)
	ctx := context.Background()

	acc := f.register(t, "SanRoque@Example.com", "pharmacist")
	assert.Equal(t, "BUYER", acc.Role)
	assert.Equal(t, "sanroque@example.com", acc.Email)
	assert.Equal(t, "+34 600 000 000", acc.Phone)

	f.publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == identity.EventTypeAccountRegistered
	}))

	_, err := f.svc.Register(ctx, appidentity.RegisterRequest{
		Name: "Copy", Email: "sanroque@example.com", Password: "correct-horse", Role: "BUYER",
	})
	assert.True(t, errors.Is(err, shared.ErrAlreadyExists))

	_, err = f.svc.Register(ctx, appidentity.RegisterRequest{
		Name: "Admin", Email: "admin@example.com", Password: "correct-horse", Role: "ADMIN",
	})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	_, err = f.svc.Register(ctx, appidentity.RegisterRequest{
		Name: "Short", Email: "short@example.com", Password: "short", Role: "SUPPLIER",
	})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestAccountService_Login(t *testing.T) {
	f := newAccountFixture(t, 5)
	ctx := context.Background()
	acc := f.register(t, "norte@example.com", "SUPPLIER")

	resp, err := f.svc.Login(ctx, appidentity.LoginRequest{Email: "norte@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, acc.ID, resp.Account.ID)
	assert.NotNil(t, resp.Account.LastLoginAt)

	claims, err := f.jwt.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	caller, err := claims.Caller()
	require.NoError(t, err)
	assert.Equal(t, identity.NewCaller(acc.ID, identity.RoleSeller), caller)

	_, err = f.svc.Login(ctx, appidentity.LoginRequest{Email: "norte@example.com", Password: "wrong-horse"})
	requireCode(t, err, appidentity.CodeInvalidCredentials)
	_, err = f.svc.Login(ctx, appidentity.LoginRequest{Email: "nobody@example.com", Password: "correct-horse"})
	requireCode(t, err, appidentity.CodeInvalidCredentials)
}

func TestAccountService_RefreshRotates(t *testing.T) {
	f := newAccountFixture(t, 5)
	ctx := context.Background()
	f.register(t, "centro@example.com", "BUYER")
	login, err := f.svc.Login(ctx, appidentity.LoginRequest{Email: "centro@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	rotated, err := f.svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	claims, err := f.jwt.ValidateAccessToken(rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "BUYER", claims.Role)

	_, err = f.svc.Refresh(ctx, login.RefreshToken)
	requireCode(t, err, appidentity.CodeTokenRevoked)

	_, err = f.svc.Refresh(ctx, "garbage")
	requireCode(t, err, appidentity.CodeTokenInvalid)

	_, err = f.svc.Refresh(ctx, login.AccessToken)
	requireCode(t, err, appidentity.CodeTokenInvalid)
}

func TestAccountService_RefreshLimit(t *testing.T) {
	f := newAccountFixture(t, 1)
	ctx := context.Background()
	f.register(t, "limit@example.com", "BUYER")
	login, err := f.svc.Login(ctx, appidentity.LoginRequest{Email: "limit@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	once, err := f.svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	_, err = f.svc.Refresh(ctx, once.RefreshToken)
	requireCode(t, err, appidentity.CodeTokenMaxRefresh)
}

func TestAccountService_Logout(t *testing.T) {
	f := newAccountFixture(t, 5)
	ctx := context.Background()
	acc := f.register(t, "sur@example.com", "BUYER")
	login, err := f.svc.Login(ctx, appidentity.LoginRequest{Email: "sur@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	access, err := f.jwt.ValidateAccessToken(login.AccessToken)
	require.NoError(t, err)
	revoked, err := f.svc.IsTokenRevoked(ctx, access)
	require.NoError(t, err)
	assert.False(t, revoked)

	caller := identity.NewCaller(acc.ID, identity.RoleBuyer)
	require.NoError(t, f.svc.Logout(ctx, caller, appidentity.LogoutRequest{
		AccessTokenID:  access.ID,
		AccessTokenTTL: access.RemainingTTL(),
		RefreshToken:   login.RefreshToken,
	}))

	revoked, err = f.svc.IsTokenRevoked(ctx, access)
	require.NoError(t, err)
	assert.True(t, revoked)
	_, err = f.svc.Refresh(ctx, login.RefreshToken)
	requireCode(t, err, appidentity.CodeTokenRevoked)
}

func TestAccountService_Me(t *testing.T) {
	f := newAccountFixture(t, 5)
	ctx := context.Background()
	acc := f.register(t, "me@example.com", "SELLER")

	me, err := f.svc.Me(ctx, identity.NewCaller(acc.ID, identity.RoleSeller))
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", me.Email)

	_, err = f.svc.Me(ctx, identity.NewCaller(uuid.New(), identity.RoleSeller))
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	_, err = f.svc.Me(ctx, identity.Caller{})
	assert.True(t, errors.Is(err, shared.ErrUnauthorized))
}
