/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package lrucache provides a bounded in-memory LRU cache with optional per-entry TTL and Prometheus metrics.
// It backs the bounded variants of the rate guard and result cache stores.
package lrucache
