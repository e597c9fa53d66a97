package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pharmanet/backend/internal/interfaces/http/dto"
)

// AllowIPs admits only clients whose address falls in one of the entries.
// Unlike the swagger guard an empty list admits nobody.
func AllowIPs(entries []string) gin.HandlerFunc {
	prefixes := parseAllowList(entries)
	return func(c *gin.Context) {
		if !ipAllowed(c.ClientIP(), prefixes) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				"FORBIDDEN", "Access is restricted to operator addresses", c.GetString(RequestIDKey)))
			return
		}
		c.Next()
	}
}
