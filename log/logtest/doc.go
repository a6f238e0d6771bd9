/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides loggers for tests: a JSON logger writing to a given output
// and a Recorder that keeps entries in memory for assertions.
package logtest
