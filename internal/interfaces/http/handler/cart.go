package handler

import (
	"github.com/gin-gonic/gin"
	appcart "github.com/pharmanet/backend/internal/application/cart"
)

// CartHandler handles cart reservation requests
type CartHandler struct {
	BaseHandler
	carts *appcart.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts *appcart.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// AddLine godoc
// @ID           addCartLine
// @Summary      Add a cart line
// @Description  Reserves stock from the buyer's own item into the open cart
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body appcart.CartLineInput true "Line"
// @Success      201 {object} APIResponse[appcart.CartLineResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/lines [post]
func (h *CartHandler) AddLine(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req appcart.CartLineInput
	if !h.bindJSON(c, &req) {
		return
	}
	line, err := h.carts.AddLine(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, line)
}

// UpdateLine godoc
// @ID           updateCartLine
// @Summary      Change a cart line quantity
// @Description  Reserves or releases only the difference from the current quantity
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        id      path string                        true "Cart line ID"
// @Param        request body appcart.UpdateCartLineRequest true "New quantity"
// @Success      200 {object} APIResponse[appcart.CartLineResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/lines/{id} [put]
func (h *CartHandler) UpdateLine(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	lineID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appcart.UpdateCartLineRequest
	if !h.bindJSON(c, &req) {
		return
	}
	line, err := h.carts.UpdateLine(c.Request.Context(), caller, lineID, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, line)
}

// DeleteLine godoc
// @ID           deleteCartLine
// @Summary      Delete a cart line
// @Description  Releases the reserved quantity back to the item
// @Tags         cart
// @Param        id path string true "Cart line ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/lines/{id} [delete]
func (h *CartHandler) DeleteLine(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	lineID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.carts.DeleteLine(c.Request.Context(), caller, lineID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListOpenLines godoc
// @ID           listOpenCartLines
// @Summary      List open cart lines
// @Tags         cart
// @Produce      json
// @Success      200 {object} APIResponse[[]appcart.CartLineResponse]
// @Security     BearerAuth
// @Router       /cart/lines [get]
func (h *CartHandler) ListOpenLines(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	lines, err := h.carts.ListOpenLines(c.Request.Context(), caller)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lines)
}

// Submit godoc
// @ID           submitCart
// @Summary      Submit a batch cart
// @Description  Reserves every item in one transaction and records a closed BATCH cart
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body appcart.SubmitCartRequest true "Items"
// @Success      201 {object} APIResponse[appcart.CartResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/submit [post]
func (h *CartHandler) Submit(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req appcart.SubmitCartRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cart, err := h.carts.Submit(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, cart)
}

// Checkout godoc
// @ID           checkoutCart
// @Summary      Check out the open cart
// @Description  Closes the open cart, keeping its reservations as sold
// @Tags         cart
// @Produce      json
// @Success      200 {object} APIResponse[appcart.CartResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/checkout [post]
func (h *CartHandler) Checkout(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	cart, err := h.carts.Checkout(c.Request.Context(), caller)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// Cancel godoc
// @ID           cancelCart
// @Summary      Cancel the open cart
// @Description  Releases every open line and discards the cart
// @Tags         cart
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart [delete]
func (h *CartHandler) Cancel(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	if err := h.carts.Cancel(c.Request.Context(), caller); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// History godoc
// @ID           listCarts
// @Summary      Cart history
// @Tags         cart
// @Produce      json
// @Param        mode      query string false "INCREMENTAL or BATCH"
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Success      200 {object} APIResponse[[]appcart.CartResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/history [get]
func (h *CartHandler) History(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	list, ok := h.bindList(c)
	if !ok {
		return
	}
	page, err := h.carts.List(c.Request.Context(), caller, appcart.CartListFilter{
		Mode:     c.Query("mode"),
		Page:     list.Page,
		PageSize: list.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}
