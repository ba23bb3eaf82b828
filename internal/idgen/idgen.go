// Package idgen generates the time-ordered opaque identifiers used
// throughout the data model (spec §3): UUIDv7, which sorts
// lexicographically in creation order.
package idgen

import "github.com/google/uuid"

// New returns a new UUIDv7 string. It returns no error: the underlying
// generator only errors if the system clock or entropy source is broken,
// and New then falls back to a random v4 UUID.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fall back to a random v4 rather than panicking; ordering is a
		// best-effort property, not a correctness requirement.
		return uuid.New().String()
	}
	return id.String()
}
