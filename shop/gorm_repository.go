/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// GormRepository is a Repository on top of a SQL database.
type GormRepository struct {
	DB *gorm.DB
}

var _ Repository = (*GormRepository)(nil)

// NewGormRepository creates a new GormRepository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{DB: db}
}

// OpenGormRepository opens a database with the dialector and configures its connection pool.
func OpenGormRepository(dialector gorm.Dialector, cfg *DBConfig, gormLogger *GormLogger) (*GormRepository, error) {
	gormCfg := &gorm.Config{
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
	if gormLogger != nil {
		gormCfg.Logger = gormLogger
	}
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return &GormRepository{DB: db}, nil
}

// AutoMigrate creates or updates the schema of all shop tables.
func (r *GormRepository) AutoMigrate() error {
	return r.DB.AutoMigrate(&User{}, &Product{}, &Order{})
}

// Ping checks the database connection.
func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection pool.
func (r *GormRepository) Close() error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFoundErr(entity string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return err
}

// applyOrdering adds ORDER BY for the terms and then for defaultColumn, if it is not empty.
func applyOrdering(db *gorm.DB, terms []orderingTerm, defaultColumn string) *gorm.DB {
	for _, term := range terms {
		if term.desc {
			db = db.Order(term.column + " DESC")
		} else {
			db = db.Order(term.column)
		}
	}
	if defaultColumn == "" {
		return db
	}
	return db.Order(defaultColumn)
}

func preloadProducts(db *gorm.DB) *gorm.DB {
	return db.Preload("Products", func(db *gorm.DB) *gorm.DB {
		return db.Order("products.id")
	})
}

// GetUser implements Repository.
func (r *GormRepository) GetUser(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundErr("user", id, err)
	}
	return &user, nil
}

// CreateUser implements Repository.
func (r *GormRepository) CreateUser(ctx context.Context, user *User) error {
	if strings.TrimSpace(user.Username) == "" {
		return fmt.Errorf("%w: username must not be empty", ErrValidation)
	}
	return r.DB.WithContext(ctx).Create(user).Error
}

// ListProducts implements Repository.
func (r *GormRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	terms, err := parseOrdering(filter.Ordering, productOrderingFields)
	if err != nil {
		return nil, err
	}
	query := r.DB.WithContext(ctx).Model(&Product{})
	if !filter.IncludeArchived {
		query = query.Where("archived = ?", false)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	var products []Product
	if err = applyOrdering(query, terms, "id").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct implements Repository.
func (r *GormRepository) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var product Product
	if err := r.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, notFoundErr("product", id, err)
	}
	return &product, nil
}

// CreateProduct implements Repository.
func (r *GormRepository) CreateProduct(ctx context.Context, product *Product) error {
	if err := product.Validate(); err != nil {
		return err
	}
	if _, err := r.GetUser(ctx, product.CreatedByID); err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Create(product).Error
}

// UpdateProduct implements Repository.
func (r *GormRepository) UpdateProduct(ctx context.Context, product *Product) error {
	if err := product.Validate(); err != nil {
		return err
	}
	res := r.DB.WithContext(ctx).Model(&Product{ID: product.ID}).
		Select("name", "description", "price", "discount", "archived").
		Updates(product)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %d: %w", product.ID, ErrNotFound)
	}
	return r.DB.WithContext(ctx).First(product, product.ID).Error
}

// SetProductsArchived implements Repository.
func (r *GormRepository) SetProductsArchived(ctx context.Context, ids []uint, archived bool) error {
	if len(ids) == 0 {
		return nil
	}
	res := r.DB.WithContext(ctx).Model(&Product{}).Where("id IN ?", ids).Update("archived", archived)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("products %v: %w", ids, ErrNotFound)
	}
	return nil
}

// LatestProducts implements Repository.
func (r *GormRepository) LatestProducts(ctx context.Context, n int) ([]Product, error) {
	var products []Product
	err := r.DB.WithContext(ctx).
		Where("archived = ?", false).
		Order("created_at DESC").Order("id DESC").
		Limit(n).
		Find(&products).Error
	return products, err
}

// ListOrders implements Repository.
func (r *GormRepository) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	terms, err := parseOrdering(filter.Ordering, orderOrderingFields)
	if err != nil {
		return nil, err
	}
	query := preloadProducts(r.DB.WithContext(ctx))
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Promocode != "" {
		query = query.Where("promocode = ?", filter.Promocode)
	}
	// Without an explicit ordering the rows come in the order the database returns them.
	tieBreaker := ""
	if len(terms) != 0 {
		tieBreaker = "id"
	}
	var orders []Order
	if err = applyOrdering(query, terms, tieBreaker).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder implements Repository.
func (r *GormRepository) GetOrder(ctx context.Context, id uint) (*Order, error) {
	var order Order
	if err := preloadProducts(r.DB.WithContext(ctx)).First(&order, id).Error; err != nil {
		return nil, notFoundErr("order", id, err)
	}
	return &order, nil
}

func findProducts(tx *gorm.DB, ids []uint) ([]Product, error) {
	products := []Product{}
	if len(ids) == 0 {
		return products, nil
	}
	err := tx.Where("id IN ?", ids).Order("id").Find(&products).Error
	return products, err
}

// CreateOrder implements Repository.
func (r *GormRepository) CreateOrder(ctx context.Context, order *Order, productIDs []uint) error {
	if err := order.Validate(); err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createOrder(tx, order, productIDs)
	})
}

// CreateOrders implements Repository.
func (r *GormRepository) CreateOrders(ctx context.Context, orders []OrderWithProducts) error {
	for i := range orders {
		if err := orders[i].Order.Validate(); err != nil {
			return fmt.Errorf("order #%d: %w", i+1, err)
		}
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range orders {
			if err := createOrder(tx, orders[i].Order, orders[i].ProductIDs); err != nil {
				return fmt.Errorf("order #%d: %w", i+1, err)
			}
		}
		return nil
	})
}

func createOrder(tx *gorm.DB, order *Order, productIDs []uint) error {
	if err := tx.First(&User{}, order.UserID).Error; err != nil {
		return notFoundErr("user", order.UserID, err)
	}
	products, err := findProducts(tx, productIDs)
	if err != nil {
		return err
	}
	order.ID = 0
	order.Products = products
	return tx.Omit("Products.*").Create(order).Error
}

// UpdateOrder implements Repository.
func (r *GormRepository) UpdateOrder(ctx context.Context, order *Order, productIDs []uint) error {
	if err := order.Validate(); err != nil {
		return err
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Order{ID: order.ID}).Updates(map[string]interface{}{
			"delivery_address": order.DeliveryAddress,
			"promocode":        order.Promocode,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %d: %w", order.ID, ErrNotFound)
		}
		if productIDs == nil {
			return nil
		}
		products, err := findProducts(tx, productIDs)
		if err != nil {
			return err
		}
		assoc := tx.Model(&Order{ID: order.ID}).Association("Products")
		if len(products) == 0 {
			return assoc.Clear()
		}
		return assoc.Replace(products)
	})
	if err != nil {
		return err
	}
	updated, err := r.GetOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	*order = *updated
	return nil
}

// DeleteOrder implements Repository.
func (r *GormRepository) DeleteOrder(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&Order{}, id).Error; err != nil {
			return notFoundErr("order", id, err)
		}
		if err := tx.Model(&Order{ID: id}).Association("Products").Clear(); err != nil {
			return err
		}
		return tx.Delete(&Order{}, id).Error
	})
}
