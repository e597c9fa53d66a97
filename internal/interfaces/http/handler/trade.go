package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	apptrade "github.com/pharmanet/backend/internal/application/trade"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/shared"
)

// TradeHandler handles order, order line and delivery note requests
type TradeHandler struct {
	BaseHandler
	orders        *apptrade.OrderService
	deliveryNotes *apptrade.DeliveryNoteService
}

// NewTradeHandler creates a new trade handler. deliveryNotes may be nil.
func NewTradeHandler(orders *apptrade.OrderService, deliveryNotes *apptrade.DeliveryNoteService) *TradeHandler {
	return &TradeHandler{orders: orders, deliveryNotes: deliveryNotes}
}

// AdvanceStatusRequest names the status to move an order to
type AdvanceStatusRequest struct {
	Status string `json:"status" binding:"required" example:"PENDING"`
}

// CreateOrder godoc
// @ID           createOrder
// @Summary      Place an order
// @Description  The buyer places a DRAFTING order with a seller. Stock is not touched until shipping.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body apptrade.CreateOrderRequest true "Order"
// @Success      201 {object} APIResponse[apptrade.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /trade/orders [post]
func (h *TradeHandler) CreateOrder(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req apptrade.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.orders.Create(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// GetOrder godoc
// @ID           getOrder
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} APIResponse[apptrade.OrderResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /trade/orders/{id} [get]
func (h *TradeHandler) GetOrder(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.Get(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// AdvanceStatus godoc
// @ID           advanceOrderStatus
// @Summary      Advance an order
// @Description  DRAFTING to PENDING by the buyer, PENDING to IN_DELIVERY by the seller
// @Description  (reserving stock), IN_DELIVERY to DELIVERED by either party (merging into buyer stock)
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path string               true "Order ID"
// @Param        request body AdvanceStatusRequest true "Target status"
// @Success      200 {object} APIResponse[apptrade.OrderResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /trade/orders/{id}/status [post]
func (h *TradeHandler) AdvanceStatus(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req AdvanceStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.orders.AdvanceStatus(c.Request.Context(), caller, id, req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// ListPurchases godoc
// @ID           listOrdersForBuyer
// @Summary      List orders placed by the caller
// @Tags         orders
// @Produce      json
// @Param        status    query string false "Filter by status"
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Param        order_by  query string false "Sort field" default(created_at)
// @Param        order_dir query string false "asc or desc" default(desc)
// @Success      200 {object} APIResponse[[]apptrade.OrderResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /trade/orders/purchases [get]
func (h *TradeHandler) ListPurchases(c *gin.Context) {
	h.list(c, h.orders.ListForBuyer)
}

// ListSales godoc
// @ID           listOrdersForSeller
// @Summary      List orders received by the caller
// @Tags         orders
// @Produce      json
// @Param        status    query string false "Filter by status"
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Param        order_by  query string false "Sort field" default(created_at)
// @Param        order_dir query string false "asc or desc" default(desc)
// @Success      200 {object} APIResponse[[]apptrade.OrderResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /trade/orders/sales [get]
func (h *TradeHandler) ListSales(c *gin.Context) {
	h.list(c, h.orders.ListForSeller)
}

type orderLister func(ctx context.Context, caller identity.Caller, filter apptrade.OrderListFilter) (shared.Paginated[apptrade.OrderResponse], error)

func (h *TradeHandler) list(c *gin.Context, lister orderLister) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	list, ok := h.bindList(c)
	if !ok {
		return
	}
	page, err := lister(c.Request.Context(), caller, apptrade.OrderListFilter{
		Status:   c.Query("status"),
		Page:     list.Page,
		PageSize: list.PageSize,
		OrderBy:  list.OrderBy,
		OrderDir: list.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// AddLine godoc
// @ID           addOrderLine
// @Summary      Add an order line
// @Description  The buyer adds a line to a DRAFTING order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path string                  true "Order ID"
// @Param        request body apptrade.OrderLineInput true "Line"
// @Success      201 {object} APIResponse[apptrade.OrderLineResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /trade/orders/{id}/lines [post]
func (h *TradeHandler) AddLine(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req apptrade.OrderLineInput
	if !h.bindJSON(c, &req) {
		return
	}
	line, err := h.orders.AddLine(c.Request.Context(), caller, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, line)
}

// UpdateLine godoc
// @ID           updateOrderLine
// @Summary      Update an order line
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path string                          true "Order line ID"
// @Param        request body apptrade.UpdateOrderLineRequest true "Changes"
// @Success      200 {object} APIResponse[apptrade.OrderLineResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /trade/order-lines/{id} [put]
func (h *TradeHandler) UpdateLine(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	lineID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req apptrade.UpdateOrderLineRequest
	if !h.bindJSON(c, &req) {
		return
	}
	line, err := h.orders.UpdateLine(c.Request.Context(), caller, lineID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, line)
}

// DeleteLine godoc
// @ID           deleteOrderLine
// @Summary      Delete an order line
// @Tags         orders
// @Param        id path string true "Order line ID"
// @Success      204
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /trade/order-lines/{id} [delete]
func (h *TradeHandler) DeleteLine(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	lineID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.orders.DeleteLine(c.Request.Context(), caller, lineID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// DeliveryNote godoc
// @ID           getDeliveryNote
// @Summary      Delivery note
// @Description  Renders the delivery note of a shipped order to PDF and returns a short-lived download link
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} APIResponse[apptrade.DeliveryNoteResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /trade/orders/{id}/delivery-note [get]
func (h *TradeHandler) DeliveryNote(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if h.deliveryNotes == nil {
		h.HandleError(c, shared.ErrFeatureDisabled)
		return
	}
	note, err := h.deliveryNotes.Generate(c.Request.Context(), caller, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, note)
}
