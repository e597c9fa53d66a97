// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: Row and VersionedRow
//   - identity.go: accounts
//   - inventory.go: stock items, stock alerts and their item links
//   - trade.go: orders and order lines
//   - cart.go: carts and cart lines
//   - outbox.go: outbox pattern model for event delivery
package models
