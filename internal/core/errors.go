package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMonthKey = errors.New("invalid month key")
	ErrEmptyColumn     = errors.New("empty column name")
)

// NetworkError reports a non-success upstream status or a transport failure.
type NetworkError struct {
	StatusCode int    // zero for transport failures
	Body       string // excerpt of the response body, if any
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("upstream returned HTTP %d: %s", e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("upstream returned HTTP %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("upstream request failed: %v", e.Err)
	default:
		return "upstream request failed"
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports an upstream body that is not a JSON array of rows.
type MalformedResponseError struct {
	Kind string // JSON kind actually received, e.g. "object"
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed upstream response: expected array, got %s", e.Kind)
}

// IsMalformed reports whether err carries a MalformedResponseError.
func IsMalformed(err error) bool {
	var m *MalformedResponseError
	return errors.As(err, &m)
}
