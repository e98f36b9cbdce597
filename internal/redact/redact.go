// Package redact masks credential strings so they can be logged safely.
package redact

import (
	"errors"
	"strings"
)

// DefaultReveal is the number of leading characters kept visible in logs.
const DefaultReveal = 4

// Key returns key with everything after the first reveal characters
// replaced by 'x'. The result always has the same length as key.
func Key(key string, reveal int) (string, error) {
	if reveal < 0 {
		return "", errors.New("reveal length must be a non-negative integer")
	}
	if reveal >= len(key) {
		return key, nil
	}
	return key[:reveal] + strings.Repeat("x", len(key)-reveal), nil
}

// MustKey is Key with DefaultReveal, for use in log statements.
func MustKey(key string) string {
	s, _ := Key(key, DefaultReveal)
	return s
}
