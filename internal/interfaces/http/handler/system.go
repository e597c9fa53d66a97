package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	appevent "github.com/pharmanet/backend/internal/application/event"
	"github.com/pharmanet/backend/internal/interfaces/http/dto"
)

// HealthCheck probes one dependency
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// SystemHandler serves the health endpoint
type SystemHandler struct {
	BaseHandler
	version   string
	startTime time.Time
	checks    []HealthCheck
	outbox    *appevent.OutboxService
	timeout   time.Duration
}

// NewSystemHandler creates a new SystemHandler. outbox may be nil.
func NewSystemHandler(version string, outbox *appevent.OutboxService, checks ...HealthCheck) *SystemHandler {
	sort.SliceStable(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })
	return &SystemHandler{
		version:   version,
		startTime: time.Now(),
		checks:    checks,
		outbox:    outbox,
		timeout:   2 * time.Second,
	}
}

// HealthResponse reports process and dependency health
// @name HandlerHealthResponse
type HealthResponse struct {
	Status    string                   `json:"status" example:"ok"`
	Version   string                   `json:"version" example:"1.0.0"`
	GoVersion string                   `json:"go_version" example:"go1.25.5"`
	Uptime    string                   `json:"uptime" example:"1h30m45s"`
	Checks    map[string]string        `json:"checks"`
	Outbox    *appevent.OutboxStatsDTO `json:"outbox,omitempty"`
}

// Health godoc
// @ID           getHealth
// @Summary      Health check
// @Description  Pings the database and cache and reports outbox backlog. Answers 503 when a dependency is down.
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthResponse]
// @Failure      503 {object} APIResponse[HealthResponse]
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    make(map[string]string, len(h.checks)),
	}
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			resp.Checks[check.Name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Checks[check.Name] = "ok"
	}
	if h.outbox != nil {
		if stats, err := h.outbox.GetStats(ctx); err == nil {
			resp.Outbox = stats
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.Response{Success: status == http.StatusOK, Data: resp})
}
