package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrMalformed    = errors.New("malformed payload")
)

// StatusError is a non-2xx answer from an outbound service that was not retried further.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: bad status %d", e.Service, e.Code)
	}
	return fmt.Sprintf("%s: bad status %d: %s", e.Service, e.Code, e.Body)
}
