// Package exchange performs the HTTP exchange of an authorization code,
// refresh token, or signed assertion for an access token, normalizing
// provider response formats into a token record.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"go.pilab.hu/oauthkit/domain"
	oautherrors "go.pilab.hu/oauthkit/errors"
)

// Doer issues a single HTTP request. *http.Client satisfies it; the
// exchanger never retries, so any retry or timeout policy belongs to the
// transport supplied here.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes one token exchange.
type Request struct {
	TokenURL    string
	Grant       Grant
	Headers     map[string]string
	Format      domain.ResponseFormat
	PayloadHook domain.PayloadHook
	HeaderHook  domain.HeaderHook
}

// Exchanger posts grant requests to a provider's token endpoint and parses
// the response into a domain.TokenRecord.
type Exchanger struct {
	transport Doer
	now       func() time.Time
}

// ExchangerOption mutates an Exchanger under construction.
type ExchangerOption func(*Exchanger)

// WithClock overrides the time source used to stamp issued tokens.
func WithClock(now func() time.Time) ExchangerOption {
	return func(e *Exchanger) { e.now = now }
}

// NewExchanger creates an Exchanger over the given transport. A nil
// transport falls back to http.DefaultClient.
func NewExchanger(transport Doer, opts ...ExchangerOption) *Exchanger {
	if transport == nil {
		transport = http.DefaultClient
	}
	e := &Exchanger{
		transport: transport,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Exchange submits the grant and returns the normalized token record. A
// provider rejection surfaces as *errors.TokenExchangeError, a malformed
// body as *errors.TokenParseError; neither is retried.
func (e *Exchanger) Exchange(ctx context.Context, req Request) (*domain.TokenRecord, error) {
	if req.TokenURL == "" {
		return nil, oautherrors.NewConfigError("token endpoint URL")
	}
	if req.Grant == nil {
		return nil, oautherrors.NewConfigError("grant")
	}

	form := req.Grant.Values()
	if req.PayloadHook != nil {
		form = req.PayloadHook(form)
	}

	issuedAt := e.now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json, application/x-www-form-urlencoded")
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.HeaderHook != nil {
		httpReq.Header = req.HeaderHook(httpReq.Header)
	}

	resp, err := e.transport.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		logProviderError(resp.StatusCode, body)
		return nil, &oautherrors.TokenExchangeError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	fields, err := parseBody(req.Format, body)
	if err != nil {
		return nil, err
	}

	return newTokenRecord(fields, issuedAt)
}

// logProviderError surfaces the standard OAuth2 error body, when present,
// in the log before the raw rejection is returned to the caller.
func logProviderError(status int, body []byte) {
	var oauthErr oautherrors.OAuth2Error
	if json.Unmarshal(body, &oauthErr) == nil && oauthErr.Code != "" {
		log.Debug().
			Int("status", status).
			Str("error", oauthErr.Code).
			Str("description", oauthErr.Description).
			Msg("provider rejected token request")
	}
}

func parseBody(format domain.ResponseFormat, body []byte) (map[string]string, error) {
	switch format {
	case domain.FormatFormURLEncoded:
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, &oautherrors.TokenParseError{Format: string(format), Err: err}
		}
		fields := make(map[string]string, len(values))
		for key := range values {
			fields[key] = values.Get(key)
		}
		return fields, nil

	case domain.FormatJSON, "":
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()

		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, &oautherrors.TokenParseError{Format: string(domain.FormatJSON), Err: err}
		}

		fields := make(map[string]string, len(raw))
		for key, value := range raw {
			switch v := value.(type) {
			case string:
				fields[key] = v
			case json.Number:
				fields[key] = v.String()
			case bool:
				fields[key] = strconv.FormatBool(v)
			case nil:
				// dropped
			default:
				nested, err := json.Marshal(v)
				if err != nil {
					continue
				}
				fields[key] = string(nested)
			}
		}
		return fields, nil

	default:
		return nil, &oautherrors.TokenParseError{
			Format: string(format),
			Err:    fmt.Errorf("unsupported response format"),
		}
	}
}

func newTokenRecord(fields map[string]string, issuedAt time.Time) (*domain.TokenRecord, error) {
	accessToken, ok := fields["access_token"]
	if !ok || accessToken == "" {
		return nil, &oautherrors.TokenParseError{
			Format: "token response",
			Err:    fmt.Errorf("response is missing access_token"),
		}
	}

	record := &domain.TokenRecord{
		AccessToken:  accessToken,
		RefreshToken: fields["refresh_token"],
		TokenType:    fields["token_type"],
		Scope:        fields["scope"],
		IssuedAt:     issuedAt,
	}

	// Absent expires_in means the token is treated as non-expiring until an
	// error response says otherwise.
	if raw, ok := fields["expires_in"]; ok && raw != "" {
		expiresIn, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &oautherrors.TokenParseError{
				Format: "token response",
				Err:    fmt.Errorf("invalid expires_in %q: %w", raw, err),
			}
		}
		record.ExpiresIn = expiresIn
	}

	for key, value := range fields {
		switch key {
		case "access_token", "refresh_token", "token_type", "scope", "expires_in":
		default:
			if record.Extra == nil {
				record.Extra = make(map[string]string)
			}
			record.Extra[key] = value
		}
	}

	return record, nil
}
