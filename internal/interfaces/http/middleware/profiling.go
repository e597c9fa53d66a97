package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelCallerRole = "caller_role"
)

// Profiling tags CPU and allocation samples taken while a request runs with
// its route, method and caller role so flame graphs can be split per
// endpoint. Place it after JWT. Unmatched routes are not tagged.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return passThrough
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}
		pyroscope.TagWrapper(c.Request.Context(), pyroscope.Labels(profilingLabels(c, route)...), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func profilingLabels(c *gin.Context, route string) []string {
	labels := []string{
		ProfilingLabelRoute, route,
		ProfilingLabelMethod, c.Request.Method,
	}
	if caller, ok := GetCaller(c); ok {
		labels = append(labels, ProfilingLabelCallerRole, string(caller.Role))
	}
	return labels
}
