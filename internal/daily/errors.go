package daily

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotFound is matched by errors.Is for any 404 from the provider.
var ErrNotFound = errors.New("daily: not found")

const kindInvalidRequest = "invalid-request-error"

// APIError is a non-2xx reply from the provider. Kind and Info carry the raw
// {error, info} payload.
type APIError struct {
	Op     string
	Status int
	Kind   string
	Info   string
}

// Message is the provider's human-readable text.
func (e *APIError) Message() string {
	switch {
	case e.Info != "":
		return e.Info
	case e.Kind != "":
		return e.Kind
	default:
		return http.StatusText(e.Status)
	}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daily %s: %d %s", e.Op, e.Status, e.Message())
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// IsAlreadyExists reports whether the provider rejected a create because the
// name is taken.
func (e *APIError) IsAlreadyExists() bool {
	return e.Kind == kindInvalidRequest && strings.Contains(e.Info, "already exists")
}

// ConnectionError is a network-level failure reaching the provider.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("daily %s: provider unreachable: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProviderMessage returns the provider's text when err carries an APIError,
// and err's own text otherwise.
func ProviderMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}

// IsAlreadyExists reports whether err is a create conflict on an existing name.
func IsAlreadyExists(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsAlreadyExists()
}
