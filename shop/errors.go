/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package shop

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input data is invalid. The details are wrapped around it.
var ErrValidation = errors.New("validation failed")
