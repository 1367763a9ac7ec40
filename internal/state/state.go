// Package state issues and consumes one-time OAuth state values.
package state

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is how long an issued state stays valid.
const DefaultTTL = 10 * time.Minute

// ErrInvalidState is returned when a state is unknown, expired or already used.
var ErrInvalidState = errors.New("invalid or expired oauth state")

// Store hands out state values for the login redirect and checks them at the callback.
type Store interface {
	// Issue creates and records a fresh state value.
	Issue(ctx context.Context) (string, error)

	// Consume removes value. It fails with ErrInvalidState if value was never
	// issued, has expired, or was consumed before.
	Consume(ctx context.Context, value string) error
}
