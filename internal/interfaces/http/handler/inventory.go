package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appinv "github.com/pharmanet/backend/internal/application/inventory"
)

// InventoryHandler handles stock item and low-stock alert requests
type InventoryHandler struct {
	BaseHandler
	items  *appinv.StockItemService
	alerts *appinv.AlertService
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(items *appinv.StockItemService, alerts *appinv.AlertService) *InventoryHandler {
	return &InventoryHandler{items: items, alerts: alerts}
}

// RestockRequest adds quantity to an item
type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// CreateStockItem godoc
// @ID           createStockItem
// @Summary      Create a stock item
// @Description  Adds an item to the caller's own stock
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body appinv.CreateStockItemRequest true "Item"
// @Success      201 {object} APIResponse[appinv.StockItemResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/stock-items [post]
func (h *InventoryHandler) CreateStockItem(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req appinv.CreateStockItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.items.Create(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// ListMyStockItems godoc
// @ID           listMyStockItems
// @Summary      List own stock
// @Tags         inventory
// @Produce      json
// @Param        search    query string false "Name contains"
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Param        order_by  query string false "Sort field" default(name)
// @Param        order_dir query string false "asc or desc"
// @Success      200 {object} APIResponse[[]appinv.StockItemResponse]
// @Security     BearerAuth
// @Router       /inventory/stock-items [get]
func (h *InventoryHandler) ListMyStockItems(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	h.listByOwner(c, caller.ID)
}

// ListSellerStockItems godoc
// @ID           listSellerStockItems
// @Summary      Browse a seller's stock
// @Tags         inventory
// @Produce      json
// @Param        id        path  string true  "Seller account ID"
// @Param        search    query string false "Name contains"
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Success      200 {object} APIResponse[[]appinv.StockItemResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/sellers/{id}/stock-items [get]
func (h *InventoryHandler) ListSellerStockItems(c *gin.Context) {
	sellerID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	h.listByOwner(c, sellerID)
}

func (h *InventoryHandler) listByOwner(c *gin.Context, ownerID uuid.UUID) {
	list, ok := h.bindList(c)
	if !ok {
		return
	}
	page, err := h.items.ListByOwner(c.Request.Context(), ownerID, appinv.StockItemListFilter{
		Search:   c.Query("search"),
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

// GetStockItem godoc
// @ID           getStockItem
// @Summary      Get a stock item
// @Tags         inventory
// @Produce      json
// @Param        id path string true "Stock item ID"
// @Success      200 {object} APIResponse[appinv.StockItemResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/stock-items/{id} [get]
func (h *InventoryHandler) GetStockItem(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	item, err := h.items.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// UpdateStockItem godoc
// @ID           updateStockItem
// @Summary      Update a stock item
// @Description  Replaces descriptive fields and prices. Quantity is not editable here.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id      path string                        true "Stock item ID"
// @Param        request body appinv.UpdateStockItemRequest true "Fields"
// @Success      200 {object} APIResponse[appinv.StockItemResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/stock-items/{id} [put]
func (h *InventoryHandler) UpdateStockItem(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appinv.UpdateStockItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.items.Update(c.Request.Context(), caller, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// RestockStockItem godoc
// @ID           restockStockItem
// @Summary      Restock an item
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id      path string         true "Stock item ID"
// @Param        request body RestockRequest true "Quantity to add"
// @Success      200 {object} APIResponse[appinv.StockItemResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/stock-items/{id}/restock [post]
func (h *InventoryHandler) RestockStockItem(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req RestockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.items.Restock(c.Request.Context(), caller, id, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// CreateAlert godoc
// @ID           createStockAlert
// @Summary      Create a low-stock alert
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Param        request body appinv.StockAlertRequest true "Alert"
// @Success      201 {object} APIResponse[appinv.StockAlertResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/alerts [post]
func (h *InventoryHandler) CreateAlert(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req appinv.StockAlertRequest
	if !h.bindJSON(c, &req) {
		return
	}
	alert, err := h.alerts.Create(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, alert)
}

// ListAlerts godoc
// @ID           listStockAlerts
// @Summary      List own alerts
// @Tags         alerts
// @Produce      json
// @Success      200 {object} APIResponse[[]appinv.StockAlertResponse]
// @Security     BearerAuth
// @Router       /inventory/alerts [get]
func (h *InventoryHandler) ListAlerts(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	alerts, err := h.alerts.List(c.Request.Context(), caller)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, alerts)
}

// ListTriggeredAlerts godoc
// @ID           listTriggeredStockAlerts
// @Summary      List triggered alerts
// @Description  Alerts with at least one referenced item below the minimum, with those items
// @Tags         alerts
// @Produce      json
// @Success      200 {object} APIResponse[[]appinv.StockAlertResponse]
// @Security     BearerAuth
// @Router       /inventory/alerts/triggered [get]
func (h *InventoryHandler) ListTriggeredAlerts(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	alerts, err := h.alerts.ListTriggered(c.Request.Context(), caller)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, alerts)
}

// UpdateAlert godoc
// @ID           updateStockAlert
// @Summary      Update an alert
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Param        id      path string                   true "Alert ID"
// @Param        request body appinv.StockAlertRequest true "Alert"
// @Success      200 {object} APIResponse[appinv.StockAlertResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/alerts/{id} [put]
func (h *InventoryHandler) UpdateAlert(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appinv.StockAlertRequest
	if !h.bindJSON(c, &req) {
		return
	}
	alert, err := h.alerts.Update(c.Request.Context(), caller, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, alert)
}

// DeleteAlert godoc
// @ID           deleteStockAlert
// @Summary      Delete an alert
// @Tags         alerts
// @Param        id path string true "Alert ID"
// @Success      204
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/alerts/{id} [delete]
func (h *InventoryHandler) DeleteAlert(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.alerts.Delete(c.Request.Context(), caller, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
