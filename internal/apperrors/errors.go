package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoToken        = errors.New("token not found")
	ErrEmptyToken     = errors.New("token is empty")
	ErrMalformedToken = errors.New("token is malformed")
	ErrExpiredToken   = errors.New("token is expired")

	ErrRefreshNotSupported = errors.New("refresh is not supported by this client")

	ErrNetworkFailure = errors.New("network failure")

	ErrKeyNotFound      = errors.New("key not found")
	ErrStoreUnavailable = errors.New("token store unavailable")
	ErrStoreNotMigrated = errors.New("token store schema is not migrated")
	ErrSealBroken       = errors.New("sealed value could not be opened")
)

// Backend answered with non-2xx status
// Body holds the raw response so callers may inspect backend error payloads
type ResponseError struct {
	StatusCode int
	Body       []byte
}

func NewResponseError(statusCode int, body []byte) *ResponseError {
	return &ResponseError{StatusCode: statusCode, Body: body}
}

func (e *ResponseError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s: status %d %s", ErrNetworkFailure, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: status %d %s, body: %s", ErrNetworkFailure, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Every backend rejection is a network failure for the caller
func (e *ResponseError) Unwrap() error {
	return ErrNetworkFailure
}

// Return status code if err holds ResponseError, 0 otherwise
func StatusCode(err error) int {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}
