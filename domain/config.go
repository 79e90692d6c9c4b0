package domain

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ResponseFormat selects how a provider's token response body is parsed.
type ResponseFormat string

const (
	FormatJSON           ResponseFormat = "json"
	FormatFormURLEncoded ResponseFormat = "form_url_encoded"
)

// GrantType identifies the OAuth2 grant a service is configured for.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantRefreshToken      GrantType = "refresh_token"
	GrantJWTBearer         GrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// PayloadHook mutates the token request form after the default grant
// parameters have been set. It lets callers add provider-specific fields
// without the core needing provider knowledge.
type PayloadHook func(form url.Values) url.Values

// HeaderHook mutates the default token request headers before sending.
type HeaderHook func(header http.Header) http.Header

// ServiceConfig is the immutable-per-flow configuration of one OAuth2
// service. It is constructed fresh per invocation and never persisted; the
// ServiceName keys the token record in the store's namespace.
type ServiceConfig struct {
	ServiceName      string
	AuthorizationURL string
	TokenURL         string
	ClientID         string
	ClientSecret     string
	Scope            string

	// CallbackID identifies the host's callback entry point. The redirect
	// URI is derived from CallbackBaseURL + CallbackID; when no base URL is
	// set the CallbackID is used verbatim as the redirect URI.
	CallbackID      string
	CallbackBaseURL string

	ExtraAuthParams map[string]string
	TokenHeaders    map[string]string
	ResponseFormat  ResponseFormat
	GrantType       GrantType
	PayloadHook     PayloadHook
	HeaderHook      HeaderHook

	// ExpiryBuffer shortens the cached token's usable window so it is
	// refreshed slightly before the provider-reported expiry.
	ExpiryBuffer time.Duration

	// PrivateKey holds the PEM-encoded signing key for the service-account
	// (JWT bearer) flow. KeyID names it for the signing collaborator.
	PrivateKey []byte
	KeyID      string
}

// ConfigOption mutates a ServiceConfig under construction.
type ConfigOption func(*ServiceConfig)

const DefaultExpiryBuffer = 30 * time.Second

// NewServiceConfig builds a ServiceConfig for the named service. The zero
// configuration defaults to the authorization-code grant with a JSON token
// response and a 30 second expiry buffer.
func NewServiceConfig(serviceName string, opts ...ConfigOption) *ServiceConfig {
	cfg := &ServiceConfig{
		ServiceName:    serviceName,
		ResponseFormat: FormatJSON,
		GrantType:      GrantAuthorizationCode,
		ExpiryBuffer:   DefaultExpiryBuffer,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func WithEndpoints(authorizationURL, tokenURL string) ConfigOption {
	return func(c *ServiceConfig) {
		c.AuthorizationURL = authorizationURL
		c.TokenURL = tokenURL
	}
}

func WithClient(clientID, clientSecret string) ConfigOption {
	return func(c *ServiceConfig) {
		c.ClientID = clientID
		c.ClientSecret = clientSecret
	}
}

func WithScope(scope string) ConfigOption {
	return func(c *ServiceConfig) { c.Scope = scope }
}

func WithCallback(baseURL, callbackID string) ConfigOption {
	return func(c *ServiceConfig) {
		c.CallbackBaseURL = baseURL
		c.CallbackID = callbackID
	}
}

func WithExtraAuthParams(params map[string]string) ConfigOption {
	return func(c *ServiceConfig) { c.ExtraAuthParams = params }
}

func WithTokenHeaders(headers map[string]string) ConfigOption {
	return func(c *ServiceConfig) { c.TokenHeaders = headers }
}

func WithResponseFormat(format ResponseFormat) ConfigOption {
	return func(c *ServiceConfig) { c.ResponseFormat = format }
}

func WithGrantType(grant GrantType) ConfigOption {
	return func(c *ServiceConfig) { c.GrantType = grant }
}

func WithPayloadHook(hook PayloadHook) ConfigOption {
	return func(c *ServiceConfig) { c.PayloadHook = hook }
}

func WithHeaderHook(hook HeaderHook) ConfigOption {
	return func(c *ServiceConfig) { c.HeaderHook = hook }
}

func WithExpiryBuffer(buffer time.Duration) ConfigOption {
	return func(c *ServiceConfig) { c.ExpiryBuffer = buffer }
}

func WithSigningKey(keyID string, pemKey []byte) ConfigOption {
	return func(c *ServiceConfig) {
		c.KeyID = keyID
		c.PrivateKey = pemKey
	}
}

// RedirectURI derives the redirect URI deterministically from the callback
// identifier.
func (c *ServiceConfig) RedirectURI() string {
	if c.CallbackBaseURL == "" {
		return c.CallbackID
	}
	return strings.TrimSuffix(c.CallbackBaseURL, "/") + "/" + url.PathEscape(c.CallbackID)
}
