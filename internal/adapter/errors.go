package adapter

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")
)

// RemoteError is a failure reported by the storage provider.
// Message is the provider's own wording and is safe to show to the user.
type RemoteError struct {
	Op      string
	Code    int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is makes a provider 404 match ErrNotFound.
func (e *RemoteError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// ProviderMessage returns the provider's message carried by err, or fallback
// when err does not carry one.
func ProviderMessage(err error, fallback string) string {
	var rErr *RemoteError
	if errors.As(err, &rErr) && rErr.Message != "" {
		return rErr.Message
	}
	return fallback
}
