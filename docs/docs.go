// Package docs registers the OpenAPI document served by gin-swagger.
// Regenerate with: swag init --v3.1 -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "openapi": "3.1.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "servers": [{"url": "{{.BasePath}}"}],
    "components": {
        "securitySchemes": {
            "BearerAuth": {"type": "http", "scheme": "bearer", "bearerFormat": "JWT"}
        }
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/auth/register": {"post": {"operationId": "registerAccount", "tags": ["auth"], "security": []}},
        "/auth/login": {"post": {"operationId": "login", "tags": ["auth"], "security": []}},
        "/auth/refresh": {"post": {"operationId": "refreshToken", "tags": ["auth"], "security": []}},
        "/auth/logout": {"post": {"operationId": "logout", "tags": ["auth"]}},
        "/auth/me": {"get": {"operationId": "getCurrentAccount", "tags": ["auth"]}},
        "/inventory/stock-items": {
            "post": {"operationId": "createStockItem", "tags": ["inventory"]},
            "get": {"operationId": "listMyStockItems", "tags": ["inventory"]}
        },
        "/inventory/stock-items/{id}": {
            "get": {"operationId": "getStockItem", "tags": ["inventory"]},
            "put": {"operationId": "updateStockItem", "tags": ["inventory"]}
        },
        "/inventory/stock-items/{id}/restock": {"post": {"operationId": "restockStockItem", "tags": ["inventory"]}},
        "/inventory/sellers/{id}/stock-items": {"get": {"operationId": "listSellerStockItems", "tags": ["inventory"]}},
        "/inventory/alerts": {
            "post": {"operationId": "createStockAlert", "tags": ["inventory"]},
            "get": {"operationId": "listStockAlerts", "tags": ["inventory"]}
        },
        "/inventory/alerts/triggered": {"get": {"operationId": "listTriggeredStockAlerts", "tags": ["inventory"]}},
        "/inventory/alerts/{id}": {
            "put": {"operationId": "updateStockAlert", "tags": ["inventory"]},
            "delete": {"operationId": "deleteStockAlert", "tags": ["inventory"]}
        },
        "/trade/orders": {"post": {"operationId": "createOrder", "tags": ["orders"]}},
        "/trade/orders/purchases": {"get": {"operationId": "listOrdersForBuyer", "tags": ["orders"]}},
        "/trade/orders/sales": {"get": {"operationId": "listOrdersForSeller", "tags": ["orders"]}},
        "/trade/orders/{id}": {"get": {"operationId": "getOrder", "tags": ["orders"]}},
        "/trade/orders/{id}/status": {"post": {"operationId": "advanceOrderStatus", "tags": ["orders"]}},
        "/trade/orders/{id}/lines": {"post": {"operationId": "addOrderLine", "tags": ["orders"]}},
        "/trade/orders/{id}/delivery-note": {"get": {"operationId": "getDeliveryNote", "tags": ["orders"]}},
        "/trade/order-lines/{id}": {
            "put": {"operationId": "updateOrderLine", "tags": ["orders"]},
            "delete": {"operationId": "deleteOrderLine", "tags": ["orders"]}
        },
        "/cart": {"delete": {"operationId": "cancelCart", "tags": ["cart"]}},
        "/cart/lines": {
            "post": {"operationId": "addCartLine", "tags": ["cart"]},
            "get": {"operationId": "listOpenCartLines", "tags": ["cart"]}
        },
        "/cart/lines/{id}": {
            "put": {"operationId": "updateCartLine", "tags": ["cart"]},
            "delete": {"operationId": "deleteCartLine", "tags": ["cart"]}
        },
        "/cart/submit": {"post": {"operationId": "submitCart", "tags": ["cart"]}},
        "/cart/checkout": {"post": {"operationId": "checkoutCart", "tags": ["cart"]}},
        "/cart/history": {"get": {"operationId": "listCarts", "tags": ["cart"]}},
        "/health": {"get": {"operationId": "getHealth", "tags": ["system"], "security": []}},
        "/system/outbox/stats": {"get": {"operationId": "getOutboxStats", "tags": ["system"]}},
        "/system/outbox/dead/requeue": {"post": {"operationId": "requeueDeadOutboxEntries", "tags": ["system"]}},
        "/system/outbox/sent": {"delete": {"operationId": "purgeSentOutboxEntries", "tags": ["system"]}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "PharmaNet Backend API",
	Description:      "Supplier stock, pharmacist orders and cart reservations",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
