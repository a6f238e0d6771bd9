/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package rateguard

import (
	"errors"
	"fmt"
	"time"
)

// ErrThrottled matches any *ThrottledError via errors.Is.
var ErrThrottled = errors.New("request throttled")

// ThrottledError is the reason of a Reject decision.
type ThrottledError struct {
	ClientKey string
	Window    time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("client %q is throttled: less than %s since the previous request", e.ClientKey, e.Window)
}

func (e *ThrottledError) Is(target error) bool {
	return target == ErrThrottled
}
