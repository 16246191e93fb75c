package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork matches every *NetworkError.
	ErrNetwork = errors.New("network error")
	// ErrDecode matches every *DecodeError.
	ErrDecode = errors.New("response decode failed")
	// ErrHTTP matches every *HTTPError.
	ErrHTTP = errors.New("http error")
	// ErrUnauthorized matches an *HTTPError with status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden matches an *HTTPError with status 403.
	ErrForbidden = errors.New("forbidden")
	// ErrServer matches an *HTTPError with status >= 500.
	ErrServer = errors.New("server error")
)

// DefaultErrorMessage is stored in HTTPError.Data when the server's error
// payload cannot be parsed.
const DefaultErrorMessage = "unknown error"

// NetworkError reports that no response was obtained.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: network error: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// DecodeError reports a 2xx response whose body is not the expected JSON.
type DecodeError struct {
	Status int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response (status %d): %v", e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// HTTPError is returned for every non-2xx response.
type HTTPError struct {
	Status  int
	Message string
	// Data is the decoded error payload, or {"message": DefaultErrorMessage}
	// when the payload is not JSON.
	Data any
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Is matches ErrHTTP for every status and the status-band sentinels.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrHTTP:
		return true
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrServer:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

// AsHTTPError unwraps err to an *HTTPError.
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

func newHTTPError(status int, payload any, parsed bool) *HTTPError {
	if !parsed {
		payload = map[string]any{"message": DefaultErrorMessage}
	}
	msg := fmt.Sprintf("http error: %d", status)
	if m, ok := payload.(map[string]any); ok {
		if s, ok := m["message"].(string); ok && s != "" {
			msg = s
		}
	}
	return &HTTPError{Status: status, Message: msg, Data: payload}
}
