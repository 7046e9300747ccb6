// Package models contains GORM persistence models that map to database
// tables. They are kept apart from domain types so the domain layer stays
// free of ORM tags; each model carries ToDomain/FromDomain mappers.
//
//   - base.go: shared id, timestamp and version columns
//   - catalog.go: products
//   - cart.go: carts and cart_items
//   - order.go: orders and order_items
//   - outbox.go: outbox_events for relayed domain events
package models

// All returns every model, in dependency order, for AutoMigrate in tests
// and local development. Production schema is owned by the SQL migrations.
func All() []any {
	return []any{
		&ProductModel{},
		&CartModel{},
		&CartLineModel{},
		&OrderModel{},
		&OrderLineModel{},
		&OutboxEntryModel{},
	}
}
