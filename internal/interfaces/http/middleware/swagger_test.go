package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/stretchr/testify/assert"
)

func TestSwaggerProtection(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	pair, _ := newTestTokenPair(t, svc, identity.RoleBuyer)
	authenticate := JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{JWTService: svc})

	tests := []struct {
		name       string
		cfg        SwaggerConfig
		remoteAddr string
		token      string
		status     int
	}{
		{"disabled", SwaggerConfig{Enabled: false}, "192.0.2.1:1000", "", http.StatusNotFound},
		{"open", SwaggerConfig{Enabled: true}, "192.0.2.1:1000", "", http.StatusOK},
		{"exact ip allowed", SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.0.2.1"}}, "192.0.2.1:1000", "", http.StatusOK},
		{"cidr allowed", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}}, "10.20.30.40:1000", "", http.StatusOK},
		{"ip outside list", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8", "bogus"}}, "192.0.2.1:1000", "", http.StatusForbidden},
		{"auth without token", SwaggerConfig{Enabled: true, RequireAuth: true}, "192.0.2.1:1000", "", http.StatusUnauthorized},
		{"auth with token", SwaggerConfig{Enabled: true, RequireAuth: true}, "192.0.2.1:1000", pair.AccessToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/swagger/*any", SwaggerProtection(tt.cfg, authenticate), func(c *gin.Context) {
				c.String(http.StatusOK, "docs")
			})

			req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.token != "" {
				req.Header.Set(AuthHeaderKey, BearerPrefix+tt.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "docs", rec.Body.String())
			}
		})
	}
}

func TestIPAllowed_MappedIPv4(t *testing.T) {
	prefixes := parseAllowList([]string{"127.0.0.1", "2001:db8::/32"})
	assert.True(t, ipAllowed("::ffff:127.0.0.1", prefixes))
	assert.True(t, ipAllowed("2001:db8::1", prefixes))
	assert.False(t, ipAllowed("not-an-ip", prefixes))
}
