/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package shop

import (
	"context"
	"fmt"
	"time"

	"github.com/acronis/shop-service/resultcache"
)

// OrdersExportCacheOperation is the operation part of per-user export cache keys ("orders_export:<user id>").
const OrdersExportCacheOperation = "orders_export"

// DefaultOrdersExportTTL is how long a per-user export is served from the cache.
const DefaultOrdersExportTTL = 300 * time.Second

// Exporter builds order export documents.
type Exporter struct {
	repo  Repository
	cache *resultcache.ResultCache[OrdersExport]
	ttl   time.Duration
}

// NewExporter creates a new Exporter. Per-user exports are cached for ttl.
func NewExporter(repo Repository, cache *resultcache.ResultCache[OrdersExport], ttl time.Duration) *Exporter {
	if ttl <= 0 {
		ttl = DefaultOrdersExportTTL
	}
	return &Exporter{repo: repo, cache: cache, ttl: ttl}
}

// ExportAll returns all orders. The result is never cached.
func (e *Exporter) ExportAll(ctx context.Context) (*OrdersExport, error) {
	orders, err := e.repo.ListOrders(ctx, OrderFilter{})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return NewOrdersExport(orders), nil
}

// ExportForUser returns orders of the user. A stored export is returned while it is fresh,
// even if the orders have changed since. ErrNotFound is returned for an unknown user and is not cached.
func (e *Exporter) ExportForUser(ctx context.Context, userID uint) (*OrdersExport, error) {
	export, err := e.cache.GetOrCompute(ctx, ExportCacheKey(userID), e.ttl,
		func(ctx context.Context) (OrdersExport, error) {
			if _, err := e.repo.GetUser(ctx, userID); err != nil {
				return OrdersExport{}, err
			}
			orders, err := e.repo.ListOrders(ctx, OrderFilter{UserID: userID})
			if err != nil {
				return OrdersExport{}, fmt.Errorf("list orders of user %d: %w", userID, err)
			}
			return *NewOrdersExport(orders), nil
		})
	if err != nil {
		return nil, err
	}
	return &export, nil
}

// InvalidateUser drops the cached export of the user.
func (e *Exporter) InvalidateUser(ctx context.Context, userID uint) error {
	return e.cache.Invalidate(ctx, ExportCacheKey(userID))
}

// ExportCacheKey returns the cache key of the user's export.
func ExportCacheKey(userID uint) string {
	return resultcache.Key(OrdersExportCacheOperation, userID)
}
