// Package oauthkit manages the OAuth2 token lifecycle for server-side and
// script-driven applications: authorization-URL construction, CSRF-safe
// stateless callback correlation, code and assertion exchange, and token
// caching with refresh-on-expiry semantics.
package oauthkit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/oauthkit/domain"
	oautherrors "go.pilab.hu/oauthkit/errors"
	"go.pilab.hu/oauthkit/exchange"
	"go.pilab.hu/oauthkit/serviceaccount"
	"go.pilab.hu/oauthkit/statetoken"
	"go.pilab.hu/oauthkit/store"
)

// CallbackRequest carries the query parameters the provider's redirect
// delivered to the host's callback entry point, forwarded verbatim.
type CallbackRequest struct {
	Code  string
	State string
	Error string
}

// CallbackFromValues extracts a CallbackRequest from redirect query values.
func CallbackFromValues(values url.Values) CallbackRequest {
	return CallbackRequest{
		Code:  values.Get("code"),
		State: values.Get("state"),
		Error: values.Get("error"),
	}
}

// Service drives the token lifecycle of one configured OAuth2 service. All
// operations run synchronously in the caller's invocation; concurrent
// refreshes are not serialized, the store's last writer wins.
type Service struct {
	cfg        *domain.ServiceConfig
	codec      *statetoken.Codec
	store      store.TokenStore
	transport  exchange.Doer
	exchanger  *exchange.Exchanger
	assertions *serviceaccount.AssertionBuilder
	logger     zerolog.Logger
	now        func() time.Time
}

// Option mutates a Service under construction.
type Option func(*Service)

// WithStore sets the token record store. Required before HandleCallback,
// AccessToken, HasAccess, or Reset are used.
func WithStore(s store.TokenStore) Option {
	return func(svc *Service) { svc.store = s }
}

// WithStateCodec sets the state token codec used for callback correlation.
func WithStateCodec(codec *statetoken.Codec) Option {
	return func(svc *Service) { svc.codec = codec }
}

// WithTransport sets the HTTP transport the exchanger posts through. Any
// timeout policy belongs to this transport; the core never retries.
func WithTransport(transport exchange.Doer) Option {
	return func(svc *Service) { svc.transport = transport }
}

// WithLogger overrides the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(svc *Service) { svc.logger = logger }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// WithExchanger sets a fully constructed exchanger, overriding the
// transport and clock options.
func WithExchanger(e *exchange.Exchanger) Option {
	return func(svc *Service) { svc.exchanger = e }
}

// New creates a Service for the given configuration. Configurations with
// the JWT bearer grant and a private key get an assertion builder for the
// service-account flow.
func New(cfg *domain.ServiceConfig, opts ...Option) (*Service, error) {
	if cfg == nil || cfg.ServiceName == "" {
		return nil, oautherrors.NewConfigError("service name")
	}

	svc := &Service{
		cfg:    cfg,
		logger: log.With().Str("service", cfg.ServiceName).Logger(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.exchanger == nil {
		svc.exchanger = exchange.NewExchanger(svc.transport, exchange.WithClock(svc.now))
	}

	if cfg.GrantType == domain.GrantJWTBearer {
		if len(cfg.PrivateKey) == 0 {
			return nil, oautherrors.NewConfigError("private key")
		}

		builder, err := serviceaccount.NewAssertionBuilder(
			cfg.ClientID, cfg.KeyID, cfg.PrivateKey,
			serviceaccount.WithClock(svc.now))
		if err != nil {
			return nil, err
		}
		svc.assertions = builder
	}

	return svc, nil
}

// Name returns the service name keying this configuration in the store.
func (s *Service) Name() string {
	return s.cfg.ServiceName
}

// AuthorizationURL produces the URL the caller must surface to the user,
// with a signed state token correlating the eventual callback. The payload
// is round-tripped opaquely through the state token.
func (s *Service) AuthorizationURL(payload string) (string, error) {
	switch {
	case s.cfg.ClientID == "":
		return "", oautherrors.NewConfigError("client ID")
	case s.cfg.AuthorizationURL == "":
		return "", oautherrors.NewConfigError("authorization endpoint URL")
	case s.cfg.CallbackID == "":
		return "", oautherrors.NewConfigError("callback identifier")
	case s.codec == nil:
		return "", oautherrors.NewConfigError("state token codec")
	}

	state, err := s.codec.Encode(s.cfg.ServiceName, s.cfg.CallbackID, payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode state token: %w", err)
	}

	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", s.cfg.ClientID)
	params.Set("redirect_uri", s.cfg.RedirectURI())
	if s.cfg.Scope != "" {
		params.Set("scope", s.cfg.Scope)
	}
	params.Set("state", state)
	for key, value := range s.cfg.ExtraAuthParams {
		if params.Has(key) {
			s.logger.Warn().Str("param", key).
				Msg("ignoring extra authorization parameter shadowing a core parameter")
			continue
		}
		params.Set(key, value)
	}

	separator := "?"
	if strings.Contains(s.cfg.AuthorizationURL, "?") {
		separator = "&"
	}

	return s.cfg.AuthorizationURL + separator + params.Encode(), nil
}

// HandleCallback validates the provider redirect and exchanges its
// authorization code for a token record. A missing, forged, expired, or
// mismatched state, a provider error parameter, a missing code, or a
// rejected exchange all yield (false, nil): a hostile or stale callback is
// an expected occurrence, not a programming error. A non-nil error is only
// returned for configuration or storage failures.
func (s *Service) HandleCallback(ctx context.Context, cb CallbackRequest) (bool, error) {
	if s.store == nil {
		return false, oautherrors.NewConfigError("token store")
	}
	if s.codec == nil {
		return false, oautherrors.NewConfigError("state token codec")
	}

	if cb.Error != "" {
		s.logger.Info().Str("error", cb.Error).Msg("provider denied authorization")
		return false, nil
	}
	if cb.State == "" {
		s.logger.Warn().Msg("callback is missing state parameter")
		return false, nil
	}

	state, err := s.codec.Decode(cb.State)
	if err != nil {
		s.logger.Warn().Err(err).Msg("rejecting callback with invalid state")
		return false, nil
	}
	if state.ServiceName != s.cfg.ServiceName {
		s.logger.Warn().
			Str("state_service", state.ServiceName).
			Msg("rejecting state token minted for another service")
		return false, nil
	}

	if cb.Code == "" {
		s.logger.Warn().Msg("callback is missing authorization code")
		return false, nil
	}

	record, err := s.exchanger.Exchange(ctx, exchange.Request{
		TokenURL: s.cfg.TokenURL,
		Grant: exchange.AuthorizationCodeGrant{
			Code:         cb.Code,
			RedirectURI:  s.cfg.RedirectURI(),
			ClientID:     s.cfg.ClientID,
			ClientSecret: s.cfg.ClientSecret,
		},
		Headers:     s.cfg.TokenHeaders,
		Format:      s.cfg.ResponseFormat,
		PayloadHook: s.cfg.PayloadHook,
		HeaderHook:  s.cfg.HeaderHook,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("authorization code exchange failed")
		return false, nil
	}

	if err := s.store.Put(ctx, s.cfg.ServiceName, record); err != nil {
		return false, fmt.Errorf("failed to persist token record: %w", err)
	}

	s.logger.Info().Msg("authorization completed")

	return true, nil
}

// AccessToken returns the current valid access token, refreshing it first
// when the cached record has expired. Without any record it fails with
// errors.ErrNotAuthorized; a failed refresh leaves the prior record
// untouched so a later retry remains possible.
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	if s.store == nil {
		return "", oautherrors.NewConfigError("token store")
	}

	record, err := s.store.Get(ctx, s.cfg.ServiceName)
	switch {
	case errors.Is(err, oautherrors.ErrTokenNotFound):
		// The service-account flow needs no prior record: every fetch can
		// mint a fresh assertion.
		if s.assertions == nil {
			return "", oautherrors.ErrNotAuthorized
		}
		record = nil
	case err != nil:
		return "", fmt.Errorf("failed to load token record: %w", err)
	}

	if record != nil && record.Valid(s.now(), s.cfg.ExpiryBuffer) {
		return record.AccessToken, nil
	}

	fresh, err := s.refresh(ctx, record)
	if err != nil {
		if record == nil {
			return "", err
		}
		return "", &oautherrors.TokenRefreshError{Err: err}
	}

	fresh.CarryRefreshFrom(record)

	if err := s.store.Put(ctx, s.cfg.ServiceName, fresh); err != nil {
		return "", &oautherrors.TokenRefreshError{
			Err: fmt.Errorf("failed to persist refreshed record: %w", err),
		}
	}

	s.logger.Debug().Msg("token refreshed")

	return fresh.AccessToken, nil
}

// HasAccess reports whether a token record exists and either is unexpired
// or could be refreshed just now. Callers use it to decide whether to show
// an authorization link; the refresh attempt is a deliberate side effect.
func (s *Service) HasAccess(ctx context.Context) bool {
	_, err := s.AccessToken(ctx)
	return err == nil
}

// Reset deletes the stored token record, returning the service to the
// unauthorized state.
func (s *Service) Reset(ctx context.Context) error {
	if s.store == nil {
		return oautherrors.NewConfigError("token store")
	}

	return s.store.Delete(ctx, s.cfg.ServiceName)
}

// refresh obtains a replacement record for an expired one: a fresh signed
// assertion for service-account configurations, otherwise the stored
// refresh token.
func (s *Service) refresh(ctx context.Context, record *domain.TokenRecord) (*domain.TokenRecord, error) {
	var grant exchange.Grant

	switch {
	case s.assertions != nil:
		assertion, err := s.assertions.Assertion(s.cfg.Scope, s.cfg.TokenURL)
		if err != nil {
			return nil, err
		}
		grant = exchange.JWTBearerGrant{Assertion: assertion}

	case record != nil && record.RefreshToken != "":
		grant = exchange.RefreshTokenGrant{
			RefreshToken: record.RefreshToken,
			ClientID:     s.cfg.ClientID,
			ClientSecret: s.cfg.ClientSecret,
		}

	default:
		return nil, errors.New("no refresh token available")
	}

	return s.exchanger.Exchange(ctx, exchange.Request{
		TokenURL:    s.cfg.TokenURL,
		Grant:       grant,
		Headers:     s.cfg.TokenHeaders,
		Format:      s.cfg.ResponseFormat,
		PayloadHook: s.cfg.PayloadHook,
		HeaderHook:  s.cfg.HeaderHook,
	})
}
