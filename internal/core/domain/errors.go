package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden indicates the signed-in user may not access the entity.
	ErrForbidden = errors.New("forbidden")

	// Authentication Errors.

	// ErrAuthRequired indicates no session is stored. Run `runit login`.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthExpired indicates the stored token has expired.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrAuthInvalid indicates the server rejected the token or OTP.
	ErrAuthInvalid = errors.New("authentication invalid")

	// Transport Errors.

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrServer indicates the platform returned a 5xx response.
	ErrServer = errors.New("server error")

	// ErrUnexpectedResponse indicates a response body could not be understood.
	ErrUnexpectedResponse = errors.New("unexpected response")

	// Streaming Errors.

	// ErrRequestInFlight indicates a chat request is already running on the session.
	ErrRequestInFlight = errors.New("request already in flight")

	// ErrSessionClosed indicates the chat session was closed.
	ErrSessionClosed = errors.New("chat session closed")

	// ErrStreamClosed indicates the log stream was closed.
	ErrStreamClosed = errors.New("stream closed")
)

// APIError is a non-2xx response from the platform API.
// It unwraps to the sentinel matching the status code so callers can use errors.Is.
type APIError struct {
	// StatusCode is the HTTP status returned by the server.
	StatusCode int

	// Message is the server's error text, if the body carried one.
	Message string

	// Err is the sentinel for the status class.
	Err error
}

// Error returns the server message when present.
func (e *APIError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Err.Error() + ": " + e.Message
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "api error"
	}
}

// Unwrap returns the sentinel error.
func (e *APIError) Unwrap() error {
	return e.Err
}
