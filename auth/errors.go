package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for the auth package.
// Use errors.Is() to check for these errors.
var (
	// ErrAuthentication is the root of all token acquisition failures.
	ErrAuthentication = errors.New("auth: authentication failed")

	// ErrMissingAccessToken is returned when the identity response has
	// no access_token field.
	ErrMissingAccessToken = errors.New("auth: token response missing access_token")

	// ErrMissingExpiry is returned when the identity response has no
	// expires_in field. A missing expiry is treated as a configuration
	// error rather than silently assuming a default lifetime.
	ErrMissingExpiry = errors.New("auth: token response missing expires_in")

	// ErrClientIDRequired is returned when no client ID is configured.
	ErrClientIDRequired = errors.New("auth: client ID is required")

	// ErrClientSecretRequired is returned when no client secret is configured.
	ErrClientSecretRequired = errors.New("auth: client secret is required")

	// ErrBaseURLRequired is returned when no identity base URL is configured.
	ErrBaseURLRequired = errors.New("auth: base URL is required")
)

// Error is returned when the identity endpoint rejects a token request
// or answers with a malformed response. Use errors.As() to extract the
// details.
type Error struct {
	// StatusCode is the identity endpoint's HTTP status, or 0 when the
	// request never produced a response.
	StatusCode int
	// Body is the response body text, captured for diagnostics.
	Body string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("auth: token request failed (HTTP %d): %s", e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("auth: token request failed: %v", e.Err)
	}
	return "auth: token request failed"
}

// Unwrap makes the error match ErrAuthentication and its underlying
// cause via errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrAuthentication, e.Err}
	}
	return []error{ErrAuthentication}
}
