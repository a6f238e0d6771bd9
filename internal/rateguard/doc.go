/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package rateguard implements a per-client admission filter for read requests.
//
// For every throttled request the guard looks at the time the client was last seen:
//   - no record: Allow, the record is created;
//   - at least Window passed: Allow, the record is updated;
//   - less than Window passed: Reject. With RearmOnReject the record is updated as well,
//     so a client that keeps retrying stays blocked until it pauses for a whole window.
//
// Requests with other methods are always allowed and never touch the store.
// The read-decide-write step is atomic per client key in every Store implementation.
package rateguard
