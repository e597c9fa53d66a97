package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/stretchr/testify/assert"
)

func TestProfiling_LabelsRequestContext(t *testing.T) {
	seller := identity.NewCaller(uuid.New(), identity.RoleSeller)
	got := map[string]string{}

	router := gin.New()
	router.Use(withCaller(seller), Profiling(true))
	router.POST("/api/v1/trade/orders/:id/status", func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(key, value string) bool {
			got[key] = value
			return true
		})
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/trade/orders/"+uuid.NewString()+"/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/v1/trade/orders/:id/status", got[ProfilingLabelRoute])
	assert.Equal(t, http.MethodPost, got[ProfilingLabelMethod])
	assert.Equal(t, "SELLER", got[ProfilingLabelCallerRole])
}

func TestProfiling_Disabled(t *testing.T) {
	labelled := false
	router := gin.New()
	router.Use(Profiling(false))
	router.GET("/health", func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(string, string) bool {
			labelled = true
			return false
		})
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, labelled)
}

func TestProfilingLabels_Anonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)

	labels := profilingLabels(c, "/api/v1/auth/login")
	assert.Equal(t, []string{ProfilingLabelRoute, "/api/v1/auth/login", ProfilingLabelMethod, http.MethodPost}, labels)
}
