/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package shop

import "context"

// OrderWithProducts is an order to create together with the ids of its products.
type OrderWithProducts struct {
	Order      *Order
	ProductIDs []uint
}

// Repository is the storage of shop entities.
// Getters return ErrNotFound for absent entities; invalid input is reported with ErrValidation.
type Repository interface {
	GetUser(ctx context.Context, id uint) (*User, error)
	CreateUser(ctx context.Context, user *User) error

	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	GetProduct(ctx context.Context, id uint) (*Product, error)
	CreateProduct(ctx context.Context, product *Product) error
	UpdateProduct(ctx context.Context, product *Product) error
	SetProductsArchived(ctx context.Context, ids []uint, archived bool) error
	// LatestProducts returns up to n non-archived products, newest first.
	LatestProducts(ctx context.Context, n int) ([]Product, error)

	// ListOrders returns orders with their products in storage order.
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
	GetOrder(ctx context.Context, id uint) (*Order, error)
	// CreateOrder stores the order linked to the existing products from productIDs. Unknown ids are skipped.
	CreateOrder(ctx context.Context, order *Order, productIDs []uint) error
	// CreateOrders stores all the orders atomically: if one of them fails, none is created.
	CreateOrders(ctx context.Context, orders []OrderWithProducts) error
	// UpdateOrder updates address and promocode. Products are replaced only if productIDs is not nil.
	UpdateOrder(ctx context.Context, order *Order, productIDs []uint) error
	DeleteOrder(ctx context.Context, id uint) error
}
