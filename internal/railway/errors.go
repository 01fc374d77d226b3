package railway

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDataMissing is returned when a response carries neither data nor errors.
var ErrDataMissing = errors.New("railway data missing")

// StatusError is returned when the API answers with a status other than 200.
type StatusError struct {
	// Code is the HTTP status code.
	Code int
	// Body is the (possibly truncated) response body.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("railway request failed with status %d: %s", e.Code, e.Body)
}

// ResponseError carries the messages of a GraphQL errors list.
type ResponseError struct {
	Messages []string
}

func (e *ResponseError) Error() string {
	return "railway responded with: " + strings.Join(e.Messages, "; ")
}
