package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	appevent "github.com/pharmanet/backend/internal/application/event"
)

const defaultRequeueLimit = 100

// OutboxHandler serves the operator endpoints of the event outbox
type OutboxHandler struct {
	BaseHandler
	outbox *appevent.OutboxService
}

// NewOutboxHandler creates a new OutboxHandler
func NewOutboxHandler(outbox *appevent.OutboxService) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// RequeueDeadRequest bounds one requeue run
type RequeueDeadRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000" example:"100"`
}

// PurgeSentRequest carries the retention as a Go duration such as 72h
type PurgeSentRequest struct {
	Retention string `form:"retention" example:"168h"`
}

// OutboxCountResponse reports how many entries an operation touched
type OutboxCountResponse struct {
	Count int64 `json:"count" example:"3"`
}

// Stats godoc
// @ID           getOutboxStats
// @Summary      Outbox statistics
// @Description  Counts outbox entries per status
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[appevent.OutboxStatsDTO]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/stats [get]
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outbox.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// RequeueDead godoc
// @ID           requeueDeadOutboxEntries
// @Summary      Requeue dead letters
// @Description  Returns up to limit dead-lettered entries to PENDING with fresh attempts
// @Tags         system
// @Produce      json
// @Param        limit query int false "Maximum entries to requeue" default(100) maximum(1000)
// @Success      200 {object} APIResponse[OutboxCountResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/dead/requeue [post]
func (h *OutboxHandler) RequeueDead(c *gin.Context) {
	var req RequeueDeadRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultRequeueLimit
	}
	n, err := h.outbox.RequeueDead(c.Request.Context(), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, OutboxCountResponse{Count: int64(n)})
}

// PurgeSent godoc
// @ID           purgeSentOutboxEntries
// @Summary      Purge delivered entries
// @Description  Deletes SENT entries older than the retention, seven days when omitted
// @Tags         system
// @Produce      json
// @Param        retention query string false "Retention as a Go duration" default(168h)
// @Success      200 {object} APIResponse[OutboxCountResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/sent [delete]
func (h *OutboxHandler) PurgeSent(c *gin.Context) {
	var req PurgeSentRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	var retention time.Duration
	if req.Retention != "" {
		d, err := time.ParseDuration(req.Retention)
		if err != nil || d <= 0 {
			h.BadRequest(c, "Retention must be a positive duration")
			return
		}
		retention = d
	}
	n, err := h.outbox.PurgeSent(c.Request.Context(), retention)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, OutboxCountResponse{Count: n})
}
