package platform

import (
	"errors"
	"fmt"
)

// RequestError means the platform was reached and rejected the call, e.g. a
// row-level policy denial or a validation failure. Anything else returned by
// this package is a transport-level failure (the platform was unreachable).
// The sync engines branch on this distinction: request errors roll back
// optimistic state, transport errors keep it for later reconciliation.
type RequestError struct {
	Status  int
	Code    string
	Message string
}

func (e *RequestError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("platform request failed (%d %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("platform request failed (%d): %s", e.Status, e.Message)
}

// IsRequestError reports whether err is a rejection by the platform rather
// than a transport failure.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

// ErrNotFound is returned by single-row fetches that match nothing.
var ErrNotFound = &RequestError{Status: 404, Code: "not_found", Message: "row not found"}
