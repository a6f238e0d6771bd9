/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package shop

import (
	"fmt"
	"strings"
	"time"
)

// Field length limits.
const (
	ProductNameMaxLen = 100
	PromocodeMaxLen   = 20
)

// User is a shop customer or a staff member.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	IsStaff   bool      `gorm:"not null;default:false" json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName implements gorm's tabler.
func (User) TableName() string {
	return "users"
}

// Product is a sellable item. Archived products are hidden from listings and the feed.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"not null;default:''" json:"description"`
	Price       float64   `gorm:"type:numeric(8,2);not null;default:0" json:"price"`
	Discount    uint16    `gorm:"not null;default:0" json:"discount"`
	CreatedAt   time.Time `json:"created_at"`
	Archived    bool      `gorm:"not null;default:false" json:"archived"`
	CreatedByID uint      `gorm:"not null;index" json:"created_by"`
}

// TableName implements gorm's tabler.
func (Product) TableName() string {
	return "products"
}

// Validate checks the product fields.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if len([]rune(p.Name)) > ProductNameMaxLen {
		return fmt.Errorf("%w: name must be at most %d characters", ErrValidation, ProductNameMaxLen)
	}
	if p.Price < 0 || p.Price >= 1e6 {
		return fmt.Errorf("%w: price must be in range [0, 999999.99]", ErrValidation)
	}
	return nil
}

// Order is a set of products to be delivered to a user.
type Order struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	DeliveryAddress string    `gorm:"not null;default:''" json:"delivery_address"`
	Promocode       string    `gorm:"size:20;not null;default:''" json:"promocode"`
	CreatedAt       time.Time `json:"created_at"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	Products        []Product `gorm:"many2many:order_products" json:"products"`
}

// TableName implements gorm's tabler.
func (Order) TableName() string {
	return "orders"
}

// Validate checks the order fields.
func (o *Order) Validate() error {
	if len([]rune(o.Promocode)) > PromocodeMaxLen {
		return fmt.Errorf("%w: promocode must be at most %d characters", ErrValidation, PromocodeMaxLen)
	}
	return nil
}

// ProductIDs returns ids of the order products in stored order.
func (o *Order) ProductIDs() []uint {
	ids := make([]uint, 0, len(o.Products))
	for i := range o.Products {
		ids = append(ids, o.Products[i].ID)
	}
	return ids
}

// ProductFilter selects products for listing.
type ProductFilter struct {
	// Search matches name or description, case-insensitive.
	Search          string
	IncludeArchived bool
	// Ordering is a comma-separated list of fields, "-" prefix means descending ("-price,name").
	Ordering string
}

// OrderFilter selects orders for listing.
type OrderFilter struct {
	// UserID limits orders to one owner when not zero.
	UserID    uint
	Promocode string
	Ordering  string
}

var (
	productOrderingFields = map[string]string{
		"name": "name", "description": "description", "price": "price", "discount": "discount", "created_at": "created_at",
	}
	orderOrderingFields = map[string]string{
		"user": "user_id", "created_at": "created_at", "promocode": "promocode",
	}
)

type orderingTerm struct {
	column string
	desc   bool
}

func parseOrdering(ordering string, allowed map[string]string) ([]orderingTerm, error) {
	var terms []orderingTerm
	for _, field := range strings.Split(ordering, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		desc := strings.HasPrefix(field, "-")
		column, ok := allowed[strings.TrimPrefix(field, "-")]
		if !ok {
			return nil, fmt.Errorf("%w: unknown ordering field %q", ErrValidation, strings.TrimPrefix(field, "-"))
		}
		terms = append(terms, orderingTerm{column: column, desc: desc})
	}
	return terms, nil
}

// OrderExport is one order in the export document.
type OrderExport struct {
	PK              uint   `json:"pk"`
	DeliveryAddress string `json:"delivery_address"`
	Promocode       string `json:"promocode"`
	UserID          uint   `json:"user_id"`
	Products        []uint `json:"products"`
}

// OrdersExport is the export document: {"orders": [...]}.
type OrdersExport struct {
	Orders []OrderExport `json:"orders"`
}

// NewOrdersExport builds the export document keeping the order of orders and their products.
func NewOrdersExport(orders []Order) *OrdersExport {
	export := &OrdersExport{Orders: make([]OrderExport, 0, len(orders))}
	for i := range orders {
		export.Orders = append(export.Orders, OrderExport{
			PK:              orders[i].ID,
			DeliveryAddress: orders[i].DeliveryAddress,
			Promocode:       orders[i].Promocode,
			UserID:          orders[i].UserID,
			Products:        orders[i].ProductIDs(),
		})
	}
	return export
}
