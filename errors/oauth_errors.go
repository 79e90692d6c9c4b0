package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the token lifecycle packages.
var (
	// ErrInvalidState signals a callback state token that is missing,
	// malformed, forged, expired, or minted for a different service.
	ErrInvalidState = errors.New("invalid state token")

	// ErrNotAuthorized signals that no token record exists for the service
	// and the caller must initiate the authorization URL flow.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrTokenNotFound is returned by token stores when no record exists
	// under the requested service name.
	ErrTokenNotFound = errors.New("token record not found")
)

// ConfigError reports a required configuration field that was not set
// before an operation needing it was invoked.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", e.Field)
}

func NewConfigError(field string) *ConfigError {
	return &ConfigError{Field: field}
}

// TokenExchangeError is returned when the provider answered a token request
// with a non-success status. The status code and raw body are preserved so
// the caller can inspect the provider's verdict; the exchange is never
// retried by the core.
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange rejected: status %d: %s", e.StatusCode, e.Body)
}

// TokenParseError is returned when a token response body could not be
// decoded in the declared response format.
type TokenParseError struct {
	Format string
	Err    error
}

func (e *TokenParseError) Error() string {
	return fmt.Sprintf("cannot parse %s token response: %v", e.Format, e.Err)
}

func (e *TokenParseError) Unwrap() error { return e.Err }

// TokenRefreshError wraps a failed refresh attempt. The previously stored
// record is left untouched so a later retry remains possible.
type TokenRefreshError struct {
	Err error
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// OAuth2Error represents a standardized OAuth 2.0 error body returned by a
// provider's token endpoint.
type OAuth2Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Standard OAuth2 error codes (RFC 6749 §5.2).
const (
	InvalidRequest         = "invalid_request"
	UnauthorizedClient     = "unauthorized_client"
	AccessDenied           = "access_denied"
	UnsupportedGrantType   = "unsupported_grant_type"
	InvalidScope           = "invalid_scope"
	InvalidClient          = "invalid_client"
	InvalidGrant           = "invalid_grant"
	ServerError            = "server_error"
	TemporarilyUnavailable = "temporarily_unavailable"
)
