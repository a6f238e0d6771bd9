/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package shop contains the shop domain: users, products and orders, their storage,
// the per-user order export served through a result cache, CSV import of orders and the latest products feed.
package shop
