package router

import (
	"github.com/gin-gonic/gin"
	"github.com/pharmanet/backend/internal/interfaces/http/handler"
)

// Handlers groups the HTTP handlers mounted under the versioned API
type Handlers struct {
	Auth      *handler.AuthHandler
	Inventory *handler.InventoryHandler
	Trade     *handler.TradeHandler
	Cart      *handler.CartHandler
	System    *handler.SystemHandler
	Outbox    *handler.OutboxHandler
}

// APIOptions carries per-group middleware. AuthLimiter is applied to the
// /auth group only; nil skips it.
type APIOptions struct {
	AuthLimiter gin.HandlerFunc
	// OperatorGuard runs in front of the outbox admin routes, which are not
	// mounted without it
	OperatorGuard gin.HandlerFunc
}

// APIGroups builds the domain groups of the pharmacy API
func APIGroups(h Handlers, opts APIOptions) []RouteRegistrar {
	authRoutes := NewDomainGroup("auth", "/auth")
	if opts.AuthLimiter != nil {
		authRoutes.Use(opts.AuthLimiter)
	}
	authRoutes.POST("/register", h.Auth.Register).Describe("register account")
	authRoutes.POST("/login", h.Auth.Login).Describe("login")
	authRoutes.POST("/refresh", h.Auth.Refresh).Describe("rotate token pair")
	authRoutes.POST("/logout", h.Auth.Logout).Describe("revoke tokens")
	authRoutes.GET("/me", h.Auth.Me).Describe("current account")

	inventoryRoutes := NewDomainGroup("inventory", "/inventory")
	inventoryRoutes.POST("/stock-items", h.Inventory.CreateStockItem).Describe("create stock item")
	inventoryRoutes.GET("/stock-items", h.Inventory.ListMyStockItems).Describe("list own stock items")
	inventoryRoutes.GET("/stock-items/:id", h.Inventory.GetStockItem).Describe("get stock item")
	inventoryRoutes.PUT("/stock-items/:id", h.Inventory.UpdateStockItem).Describe("update descriptive fields")
	inventoryRoutes.POST("/stock-items/:id/restock", h.Inventory.RestockStockItem).Describe("add quantity to an owned item")
	inventoryRoutes.GET("/sellers/:id/stock-items", h.Inventory.ListSellerStockItems).Describe("browse a seller")
	inventoryRoutes.POST("/alerts", h.Inventory.CreateAlert).Describe("create alert")
	inventoryRoutes.GET("/alerts", h.Inventory.ListAlerts).Describe("list alerts")
	inventoryRoutes.GET("/alerts/triggered", h.Inventory.ListTriggeredAlerts).Describe("triggered alerts")
	inventoryRoutes.PUT("/alerts/:id", h.Inventory.UpdateAlert).Describe("update alert")
	inventoryRoutes.DELETE("/alerts/:id", h.Inventory.DeleteAlert).Describe("delete alert")

	tradeRoutes := NewDomainGroup("trade", "/trade")
	tradeRoutes.POST("/orders", h.Trade.CreateOrder).Describe("createOrder")
	tradeRoutes.GET("/orders/purchases", h.Trade.ListPurchases).Describe("listOrdersForBuyer")
	tradeRoutes.GET("/orders/sales", h.Trade.ListSales).Describe("listOrdersForSeller")
	tradeRoutes.GET("/orders/:id", h.Trade.GetOrder).Describe("getOrder")
	tradeRoutes.POST("/orders/:id/status", h.Trade.AdvanceStatus).Describe("advanceOrderStatus")
	tradeRoutes.POST("/orders/:id/lines", h.Trade.AddLine).Describe("addOrderLine")
	tradeRoutes.GET("/orders/:id/delivery-note", h.Trade.DeliveryNote).Describe("delivery note")
	tradeRoutes.PUT("/order-lines/:id", h.Trade.UpdateLine).Describe("updateOrderLine")
	tradeRoutes.DELETE("/order-lines/:id", h.Trade.DeleteLine).Describe("deleteOrderLine")

	cartRoutes := NewDomainGroup("cart", "/cart")
	cartRoutes.POST("/lines", h.Cart.AddLine).Describe("addCartLine")
	cartRoutes.GET("/lines", h.Cart.ListOpenLines).Describe("listOpenCartLines")
	cartRoutes.PUT("/lines/:id", h.Cart.UpdateLine).Describe("updateCartLine")
	cartRoutes.DELETE("/lines/:id", h.Cart.DeleteLine).Describe("deleteCartLine")
	cartRoutes.POST("/submit", h.Cart.Submit).Describe("submitCart")
	cartRoutes.POST("/checkout", h.Cart.Checkout).Describe("checkout")
	cartRoutes.DELETE("", h.Cart.Cancel).Describe("cancel")
	cartRoutes.GET("/history", h.Cart.History).Describe("listCarts")

	groups := []RouteRegistrar{authRoutes, inventoryRoutes, tradeRoutes, cartRoutes}
	if h.System != nil {
		systemRoutes := NewDomainGroup("system", "/")
		systemRoutes.GET("/health", h.System.Health).Describe("health")
		groups = append(groups, systemRoutes)
	}
	if h.Outbox != nil && opts.OperatorGuard != nil {
		outboxRoutes := NewDomainGroup("outbox", "/system/outbox").Use(opts.OperatorGuard)
		outboxRoutes.GET("/stats", h.Outbox.Stats).Describe("outbox stats")
		outboxRoutes.POST("/dead/requeue", h.Outbox.RequeueDead).Describe("requeue dead letters")
		outboxRoutes.DELETE("/sent", h.Outbox.PurgeSent).Describe("purge delivered entries")
		groups = append(groups, outboxRoutes)
	}
	return groups
}
