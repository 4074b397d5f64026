// Package lookup proxies browser requests to third-party services that do
// not allow cross-origin calls: the barcode database and remote images.
package lookup

import (
	"fmt"
	"net/http"
)

// Error is an upstream failure and the status the proxy answers with.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func upstreamError(status int, message string, err error) *Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &Error{Status: status, Message: message, Err: err}
}
