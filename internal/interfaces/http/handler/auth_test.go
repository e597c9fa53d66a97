package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	appidentity "github.com/pharmanet/backend/internal/application/identity"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/internal/interfaces/http/dto"
	"github.com/pharmanet/backend/internal/interfaces/http/middleware"
	"github.com/pharmanet/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) login(t *testing.T, email string) appidentity.LoginResponse {
	t.Helper()
	resp := testutil.RunHTTPTestCase(t, e.auth.Login, testutil.HTTPTestCase{
		Name:           "login " + email,
		Method:         http.MethodPost,
		Body:           map[string]string{"email": email, "password": "correct-horse"},
		ExpectedStatus: http.StatusOK,
	})
	return testutil.DecodeData[appidentity.LoginResponse](t, resp)
}

func TestAuthHandler_Register(t *testing.T) {
	e := newEnv(t)

	testutil.RunHTTPTestCases(t, e.auth.Register, []testutil.HTTPTestCase{
		{
			Name:   "pharmacist alias registers a buyer",
			Method: http.MethodPost,
			Body: map[string]string{
				"name":     "Farmacia Sur",
				"email":    "sur@example.com",
				"password": "correct-horse",
				"role":     "PHARMACIST",
			},
			ExpectedStatus: http.StatusCreated,
			Validate: func(t *testing.T, resp dto.Response) {
				acc := testutil.DecodeData[appidentity.AccountResponse](t, resp)
				assert.Equal(t, "sur@example.com", acc.Email)
				assert.Equal(t, identity.RoleBuyer.String(), acc.Role)
				assert.NotEqual(t, uuid.Nil, acc.ID)
			},
		},
		{
			Name:   "unknown role",
			Method: http.MethodPost,
			Body: map[string]string{
				"name":     "Somebody",
				"email":    "somebody@example.com",
				"password": "correct-horse",
				"role":     "ADMIN",
			},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedCode:   dto.ErrCodeValidation,
			Validate: func(t *testing.T, resp dto.Response) {
				require.NotEmpty(t, resp.Error.Fields)
				assert.Equal(t, "role", resp.Error.Fields[0].Field)
			},
		},
		{
			Name:   "short password",
			Method: http.MethodPost,
			Body: map[string]string{
				"name":     "Somebody",
				"email":    "somebody@example.com",
				"password": "short",
				"role":     "SELLER",
			},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedCode:   dto.ErrCodeValidation,
		},
		{
			Name:   "email already registered",
			Method: http.MethodPost,
			Body: map[string]string{
				"name":     "Distribuidora Norte",
				"email":    "norte@example.com",
				"password": "correct-horse",
				"role":     "SUPPLIER",
			},
			ExpectedStatus: http.StatusConflict,
			ExpectedCode:   shared.CodeAlreadyExists,
		},
	})
}

func TestAuthHandler_Login(t *testing.T) {
	e := newEnv(t)

	login := e.login(t, "centro@example.com")
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEmpty(t, login.RefreshToken)
	assert.Equal(t, e.buyer.ID, login.Account.ID)

	claims, err := e.jwt.ValidateAccessToken(login.AccessToken)
	require.NoError(t, err)
	caller, err := claims.Caller()
	require.NoError(t, err)
	assert.Equal(t, e.buyer, caller)

	testutil.RunHTTPTestCases(t, e.auth.Login, []testutil.HTTPTestCase{
		{
			Name:           "wrong password",
			Method:         http.MethodPost,
			Body:           map[string]string{"email": "centro@example.com", "password": "wrong-horse"},
			ExpectedStatus: http.StatusUnauthorized,
			ExpectedCode:   dto.ErrCodeBadCredentials,
		},
		{
			Name:           "unknown email",
			Method:         http.MethodPost,
			Body:           map[string]string{"email": "nobody@example.com", "password": "correct-horse"},
			ExpectedStatus: http.StatusUnauthorized,
			ExpectedCode:   dto.ErrCodeBadCredentials,
		},
		{
			Name:           "missing password",
			Method:         http.MethodPost,
			Body:           map[string]string{"email": "centro@example.com"},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedCode:   dto.ErrCodeValidation,
		},
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	e := newEnv(t)
	login := e.login(t, "norte@example.com")

	resp := testutil.RunHTTPTestCase(t, e.auth.Refresh, testutil.HTTPTestCase{
		Name:           "rotate",
		Method:         http.MethodPost,
		Body:           RefreshTokenRequest{RefreshToken: login.RefreshToken},
		ExpectedStatus: http.StatusOK,
	})
	tokens := testutil.DecodeData[appidentity.TokenResponse](t, resp)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEqual(t, login.RefreshToken, tokens.RefreshToken)

	testutil.RunHTTPTestCases(t, e.auth.Refresh, []testutil.HTTPTestCase{
		{
			Name:           "rotated token is revoked",
			Method:         http.MethodPost,
			Body:           RefreshTokenRequest{RefreshToken: login.RefreshToken},
			ExpectedStatus: http.StatusUnauthorized,
			ExpectedCode:   dto.ErrCodeTokenRevoked,
		},
		{
			Name:           "access token is not a refresh token",
			Method:         http.MethodPost,
			Body:           RefreshTokenRequest{RefreshToken: tokens.AccessToken},
			ExpectedStatus: http.StatusUnauthorized,
			ExpectedCode:   dto.ErrCodeTokenInvalid,
		},
		{
			Name:           "missing token",
			Method:         http.MethodPost,
			Body:           map[string]string{},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedCode:   dto.ErrCodeValidation,
		},
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	e := newEnv(t)
	login := e.login(t, "centro@example.com")
	claims, err := e.jwt.ValidateAccessToken(login.AccessToken)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout",
		testutil.ToJSONReader(t, LogoutRequest{RefreshToken: login.RefreshToken}))
	req.Header.Set("Content-Type", "application/json")
	tc := testutil.NewTestContext(t, req)
	tc.SetCaller(e.buyer)
	tc.Context.Set(middleware.JWTClaimsKey, claims)

	e.auth.Logout(tc.Context)
	assert.Equal(t, http.StatusNoContent, tc.ResponseCode())

	revoked, err := e.auth.accounts.IsTokenRevoked(context.Background(), claims)
	require.NoError(t, err)
	assert.True(t, revoked)

	testutil.RunHTTPTestCases(t, e.auth.Refresh, []testutil.HTTPTestCase{
		{
			Name:           "refresh token revoked with the session",
			Method:         http.MethodPost,
			Body:           RefreshTokenRequest{RefreshToken: login.RefreshToken},
			ExpectedStatus: http.StatusUnauthorized,
			ExpectedCode:   dto.ErrCodeTokenRevoked,
		},
	})
	testutil.RunHTTPTestCases(t, e.auth.Logout, []testutil.HTTPTestCase{
		{
			Name:           "anonymous",
			Method:         http.MethodPost,
			ExpectedStatus: http.StatusUnauthorized,
			ExpectedCode:   dto.ErrCodeUnauthenticated,
		},
	})
}

func TestAuthHandler_Me(t *testing.T) {
	e := newEnv(t)
	ghost := identity.NewCaller(uuid.New(), identity.RoleBuyer)

	testutil.RunHTTPTestCases(t, e.auth.Me, []testutil.HTTPTestCase{
		{
			Name:           "seller profile",
			Caller:         callerPtr(e.seller),
			ExpectedStatus: http.StatusOK,
			Validate: func(t *testing.T, resp dto.Response) {
				acc := testutil.DecodeData[appidentity.AccountResponse](t, resp)
				assert.Equal(t, "Distribuidora Norte", acc.Name)
				assert.Equal(t, identity.RoleSeller.String(), acc.Role)
			},
		},
		{
			Name:           "deleted account",
			Caller:         &ghost,
			ExpectedStatus: http.StatusNotFound,
			ExpectedCode:   shared.CodeNotFound,
		},
		{
			Name:           "anonymous",
			ExpectedStatus: http.StatusUnauthorized,
			ExpectedCode:   dto.ErrCodeUnauthenticated,
		},
	})
}
