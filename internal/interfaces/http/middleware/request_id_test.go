package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/orders", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})
	serve := func(inbound string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		if inbound != "" {
			req.Header.Set(RequestIDHeader, inbound)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("mints a uuid", func(t *testing.T) {
		rec := serve("")
		id := rec.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, rec.Body.String())
	})

	t.Run("keeps inbound id", func(t *testing.T) {
		rec := serve("gateway-123")
		assert.Equal(t, "gateway-123", rec.Body.String())
		assert.Equal(t, "gateway-123", rec.Header().Get(RequestIDHeader))
	})

	t.Run("replaces oversized inbound id", func(t *testing.T) {
		rec := serve(strings.Repeat("x", maxRequestIDLen+1))
		assert.Len(t, rec.Body.String(), 36)
	})
}
