/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package resultcache provides a keyed write-through cache for results of deterministic read computations.
// An entry that is present and unexpired is returned as is; otherwise the computation runs and its
// successful result is stored with a fresh expiration time. Failed computations are never stored.
package resultcache
