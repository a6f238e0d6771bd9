/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package shop

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository. Entities are kept in insertion order.
type MemoryRepository struct {
	mu       sync.RWMutex
	now      func() time.Time
	users    []User
	products []Product
	orders   []memoryOrder
	nextID   struct{ user, product, order uint }
}

type memoryOrder struct {
	order      Order
	productIDs []uint
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates a new MemoryRepository. Clock is time.Now if nil.
func NewMemoryRepository(clock func() time.Time) *MemoryRepository {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryRepository{now: clock}
}

func (r *MemoryRepository) userIndex(id uint) int {
	for i := range r.users {
		if r.users[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *MemoryRepository) productIndex(id uint) int {
	for i := range r.products {
		if r.products[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *MemoryRepository) orderIndex(id uint) int {
	for i := range r.orders {
		if r.orders[i].order.ID == id {
			return i
		}
	}
	return -1
}

// GetUser implements Repository.
func (r *MemoryRepository) GetUser(_ context.Context, id uint) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.userIndex(id)
	if idx == -1 {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	user := r.users[idx]
	return &user, nil
}

// CreateUser implements Repository.
func (r *MemoryRepository) CreateUser(_ context.Context, user *User) error {
	if strings.TrimSpace(user.Username) == "" {
		return fmt.Errorf("%w: username must not be empty", ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.users {
		if r.users[i].Username == user.Username {
			return fmt.Errorf("%w: username %q is already taken", ErrValidation, user.Username)
		}
	}
	if user.ID == 0 {
		r.nextID.user++
		user.ID = r.nextID.user
	} else if r.userIndex(user.ID) != -1 {
		return fmt.Errorf("%w: user %d already exists", ErrValidation, user.ID)
	} else if user.ID > r.nextID.user {
		r.nextID.user = user.ID
	}
	user.CreatedAt = r.now()
	r.users = append(r.users, *user)
	return nil
}

func productMatches(p *Product, filter ProductFilter) bool {
	if p.Archived && !filter.IncludeArchived {
		return false
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), search) || strings.Contains(strings.ToLower(p.Description), search)
}

func compareProducts(a, b *Product, column string) int {
	switch column {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "description":
		return strings.Compare(a.Description, b.Description)
	case "price":
		return compareOrdered(a.Price, b.Price)
	case "discount":
		return compareOrdered(a.Discount, b.Discount)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return 0
}

func compareOrders(a, b *Order, column string) int {
	switch column {
	case "user_id":
		return compareOrdered(a.UserID, b.UserID)
	case "promocode":
		return strings.Compare(a.Promocode, b.Promocode)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return 0
}

func compareOrdered[T uint | uint16 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func lessByTerms(terms []orderingTerm, cmp func(column string) int) bool {
	for _, term := range terms {
		c := cmp(term.column)
		if c == 0 {
			continue
		}
		if term.desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

// ListProducts implements Repository.
func (r *MemoryRepository) ListProducts(_ context.Context, filter ProductFilter) ([]Product, error) {
	terms, err := parseOrdering(filter.Ordering, productOrderingFields)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var products []Product
	for i := range r.products {
		if productMatches(&r.products[i], filter) {
			products = append(products, r.products[i])
		}
	}
	sort.SliceStable(products, func(i, j int) bool {
		return lessByTerms(terms, func(column string) int { return compareProducts(&products[i], &products[j], column) })
	})
	return products, nil
}

// GetProduct implements Repository.
func (r *MemoryRepository) GetProduct(_ context.Context, id uint) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.productIndex(id)
	if idx == -1 {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	product := r.products[idx]
	return &product, nil
}

// CreateProduct implements Repository.
func (r *MemoryRepository) CreateProduct(_ context.Context, product *Product) error {
	if err := product.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.userIndex(product.CreatedByID) == -1 {
		return fmt.Errorf("user %d: %w", product.CreatedByID, ErrNotFound)
	}
	r.nextID.product++
	product.ID = r.nextID.product
	product.CreatedAt = r.now()
	r.products = append(r.products, *product)
	return nil
}

// UpdateProduct implements Repository.
func (r *MemoryRepository) UpdateProduct(_ context.Context, product *Product) error {
	if err := product.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.productIndex(product.ID)
	if idx == -1 {
		return fmt.Errorf("product %d: %w", product.ID, ErrNotFound)
	}
	stored := &r.products[idx]
	stored.Name = product.Name
	stored.Description = product.Description
	stored.Price = product.Price
	stored.Discount = product.Discount
	stored.Archived = product.Archived
	*product = *stored
	return nil
}

// SetProductsArchived implements Repository.
func (r *MemoryRepository) SetProductsArchived(_ context.Context, ids []uint, archived bool) error {
	if len(ids) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	updated := 0
	for _, id := range ids {
		if idx := r.productIndex(id); idx != -1 {
			r.products[idx].Archived = archived
			updated++
		}
	}
	if updated == 0 {
		return fmt.Errorf("products %v: %w", ids, ErrNotFound)
	}
	return nil
}

// LatestProducts implements Repository.
func (r *MemoryRepository) LatestProducts(_ context.Context, n int) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var products []Product
	for i := range r.products {
		if !r.products[i].Archived {
			products = append(products, r.products[i])
		}
	}
	sort.SliceStable(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		}
		return products[i].ID > products[j].ID
	})
	if len(products) > n {
		products = products[:n]
	}
	return products, nil
}

// resolveProducts returns existing products in id order. Unknown ids are skipped.
func (r *MemoryRepository) resolveProducts(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	resolved := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || r.productIndex(id) == -1 {
			continue
		}
		seen[id] = struct{}{}
		resolved = append(resolved, id)
	}
	sort.Slice(resolved, func(i, j int) bool { return resolved[i] < resolved[j] })
	return resolved
}

func (r *MemoryRepository) materialize(mo *memoryOrder) Order {
	order := mo.order
	order.Products = make([]Product, 0, len(mo.productIDs))
	for _, id := range mo.productIDs {
		if idx := r.productIndex(id); idx != -1 {
			order.Products = append(order.Products, r.products[idx])
		}
	}
	return order
}

// ListOrders implements Repository.
func (r *MemoryRepository) ListOrders(_ context.Context, filter OrderFilter) ([]Order, error) {
	terms, err := parseOrdering(filter.Ordering, orderOrderingFields)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	orders := []Order{}
	for i := range r.orders {
		o := &r.orders[i].order
		if filter.UserID != 0 && o.UserID != filter.UserID {
			continue
		}
		if filter.Promocode != "" && o.Promocode != filter.Promocode {
			continue
		}
		orders = append(orders, r.materialize(&r.orders[i]))
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return lessByTerms(terms, func(column string) int { return compareOrders(&orders[i], &orders[j], column) })
	})
	return orders, nil
}

// GetOrder implements Repository.
func (r *MemoryRepository) GetOrder(_ context.Context, id uint) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.orderIndex(id)
	if idx == -1 {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	order := r.materialize(&r.orders[idx])
	return &order, nil
}

// CreateOrder implements Repository.
func (r *MemoryRepository) CreateOrder(_ context.Context, order *Order, productIDs []uint) error {
	if err := order.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.userIndex(order.UserID) == -1 {
		return fmt.Errorf("user %d: %w", order.UserID, ErrNotFound)
	}
	r.appendOrder(order, productIDs)
	return nil
}

// CreateOrders implements Repository.
func (r *MemoryRepository) CreateOrders(_ context.Context, orders []OrderWithProducts) error {
	for i := range orders {
		if err := orders[i].Order.Validate(); err != nil {
			return fmt.Errorf("order #%d: %w", i+1, err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range orders {
		if userID := orders[i].Order.UserID; r.userIndex(userID) == -1 {
			return fmt.Errorf("order #%d: user %d: %w", i+1, userID, ErrNotFound)
		}
	}
	for i := range orders {
		r.appendOrder(orders[i].Order, orders[i].ProductIDs)
	}
	return nil
}

// appendOrder must be called with r.mu locked.
func (r *MemoryRepository) appendOrder(order *Order, productIDs []uint) {
	r.nextID.order++
	order.ID = r.nextID.order
	order.CreatedAt = r.now()
	order.Products = nil
	mo := memoryOrder{order: *order, productIDs: r.resolveProducts(productIDs)}
	r.orders = append(r.orders, mo)
	*order = r.materialize(&mo)
}

// UpdateOrder implements Repository.
func (r *MemoryRepository) UpdateOrder(_ context.Context, order *Order, productIDs []uint) error {
	if err := order.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.orderIndex(order.ID)
	if idx == -1 {
		return fmt.Errorf("order %d: %w", order.ID, ErrNotFound)
	}
	mo := &r.orders[idx]
	mo.order.DeliveryAddress = order.DeliveryAddress
	mo.order.Promocode = order.Promocode
	if productIDs != nil {
		mo.productIDs = r.resolveProducts(productIDs)
	}
	*order = r.materialize(mo)
	return nil
}

// DeleteOrder implements Repository.
func (r *MemoryRepository) DeleteOrder(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.orderIndex(id)
	if idx == -1 {
		return fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	r.orders = append(r.orders[:idx], r.orders[idx+1:]...)
	return nil
}
