package apperr

import "fmt"

// Error is the uniform application error: a human-readable message plus the
// HTTP status code the API layer should answer with. Lower layers translate
// their failures into this shape at their boundary.
type Error struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given message and HTTP status code.
func New(message string, statusCode int) *Error {
	return &Error{Message: message, StatusCode: statusCode}
}

// Wrap attaches an upstream error to a new Error.
func Wrap(message string, statusCode int, err error) *Error {
	return &Error{Message: message, StatusCode: statusCode, Err: err}
}

// From coerces any error into an *Error. Unknown errors become generic
// server errors so the API layer always has a status code to map.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*Error); ok {
		return ae
	}
	return &Error{Message: err.Error(), StatusCode: 500, Err: err}
}
