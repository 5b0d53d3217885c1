package constants

import "net/http"

// CodedError is an error that carries an HTTP status code. The API error
// handler unwraps down to it to pick the response code.
type CodedError struct {
	code    int
	message string
}

func NewCodedError(code int, message string) *CodedError {
	return &CodedError{code: code, message: message}
}

func (e *CodedError) Error() string {
	return e.message
}

func (e *CodedError) Code() int {
	return e.code
}

var (
	ErrDBNotFound        = NewCodedError(http.StatusNotFound, "not found")
	ErrUnauthorized      = NewCodedError(http.StatusUnauthorized, "unauthorized")
	ErrMissingAuthCookie = NewCodedError(http.StatusUnauthorized, "missing auth cookie")
	ErrBusy              = NewCodedError(http.StatusConflict, "operation of this type is already in progress")
	ErrInvalidTransition = NewCodedError(http.StatusConflict, "invalid staging status transition")
	ErrExternalFetch     = NewCodedError(http.StatusBadGateway, "external provider fetch failed")
)
