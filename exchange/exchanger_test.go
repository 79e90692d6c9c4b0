package exchange_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/oauthkit/domain"
	oautherrors "go.pilab.hu/oauthkit/errors"
	"go.pilab.hu/oauthkit/exchange"
)

func TestExchange_AuthorizationCodeJSON(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "at-123",
			"refresh_token": "rt-456",
			"token_type": "Bearer",
			"scope": "read write",
			"expires_in": 3600,
			"id_token": "idt-789"
		}`))
	}))
	defer server.Close()

	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	exchanger := exchange.NewExchanger(server.Client(),
		exchange.WithClock(func() time.Time { return issuedAt }))

	record, err := exchanger.Exchange(context.Background(), exchange.Request{
		TokenURL: server.URL,
		Grant: exchange.AuthorizationCodeGrant{
			Code:         "auth-code",
			RedirectURI:  "https://app.example.com/cb",
			ClientID:     "client-id",
			ClientSecret: "client-secret",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "auth-code", gotForm.Get("code"))
	assert.Equal(t, "https://app.example.com/cb", gotForm.Get("redirect_uri"))
	assert.Equal(t, "client-id", gotForm.Get("client_id"))
	assert.Equal(t, "client-secret", gotForm.Get("client_secret"))

	assert.Equal(t, "at-123", record.AccessToken)
	assert.Equal(t, "rt-456", record.RefreshToken)
	assert.Equal(t, "Bearer", record.TokenType)
	assert.Equal(t, "read write", record.Scope)
	assert.Equal(t, int64(3600), record.ExpiresIn)
	assert.Equal(t, issuedAt, record.IssuedAt)
	assert.Equal(t, "idt-789", record.Extra["id_token"])
}

func TestExchange_FormURLEncodedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		_, _ = w.Write([]byte("access_token=at-form&token_type=bearer&expires_in=7200"))
	}))
	defer server.Close()

	exchanger := exchange.NewExchanger(server.Client())

	record, err := exchanger.Exchange(context.Background(), exchange.Request{
		TokenURL: server.URL,
		Grant:    exchange.RefreshTokenGrant{RefreshToken: "rt"},
		Format:   domain.FormatFormURLEncoded,
	})
	require.NoError(t, err)
	assert.Equal(t, "at-form", record.AccessToken)
	assert.Equal(t, int64(7200), record.ExpiresIn)
}

func TestExchange_StringExpiresIn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "at", "expires_in": "1800"}`))
	}))
	defer server.Close()

	record, err := exchange.NewExchanger(server.Client()).Exchange(context.Background(),
		exchange.Request{TokenURL: server.URL, Grant: exchange.JWTBearerGrant{Assertion: "a"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1800), record.ExpiresIn)
}

func TestExchange_MissingExpiresInMeansNonExpiring(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "forever"}`))
	}))
	defer server.Close()

	record, err := exchange.NewExchanger(server.Client()).Exchange(context.Background(),
		exchange.Request{TokenURL: server.URL, Grant: exchange.RefreshTokenGrant{RefreshToken: "rt"}})
	require.NoError(t, err)
	assert.Zero(t, record.ExpiresIn)
	assert.True(t, record.Valid(time.Now().Add(100*365*24*time.Hour), 0))
}

func TestExchange_ProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "invalid_grant", "error_description": "code expired"}`))
	}))
	defer server.Close()

	_, err := exchange.NewExchanger(server.Client()).Exchange(context.Background(),
		exchange.Request{TokenURL: server.URL, Grant: exchange.AuthorizationCodeGrant{Code: "stale"}})
	require.Error(t, err)

	var exchangeErr *oautherrors.TokenExchangeError
	require.True(t, errors.As(err, &exchangeErr))
	assert.Equal(t, http.StatusBadRequest, exchangeErr.StatusCode)
	assert.Contains(t, exchangeErr.Body, "invalid_grant")
}

func TestExchange_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	_, err := exchange.NewExchanger(server.Client()).Exchange(context.Background(),
		exchange.Request{TokenURL: server.URL, Grant: exchange.RefreshTokenGrant{RefreshToken: "rt"}})

	var parseErr *oautherrors.TokenParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestExchange_MissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type": "Bearer"}`))
	}))
	defer server.Close()

	_, err := exchange.NewExchanger(server.Client()).Exchange(context.Background(),
		exchange.Request{TokenURL: server.URL, Grant: exchange.RefreshTokenGrant{RefreshToken: "rt"}})

	var parseErr *oautherrors.TokenParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Contains(t, parseErr.Error(), "access_token")
}

func TestExchange_HooksApplied(t *testing.T) {
	var gotForm url.Values
	var gotHeader http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		gotHeader = r.Header.Clone()
		_, _ = w.Write([]byte(`{"access_token": "at"}`))
	}))
	defer server.Close()

	_, err := exchange.NewExchanger(server.Client()).Exchange(context.Background(), exchange.Request{
		TokenURL: server.URL,
		Grant:    exchange.AuthorizationCodeGrant{Code: "c", ClientID: "id", ClientSecret: "sec"},
		Headers:  map[string]string{"X-Provider": "custom"},
		PayloadHook: func(form url.Values) url.Values {
			// Provider-specific extra field, set after the defaults.
			form.Set("sig", form.Get("client_id")+"-hash")
			return form
		},
		HeaderHook: func(header http.Header) http.Header {
			header.Set("X-Hooked", "yes")
			return header
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "id-hash", gotForm.Get("sig"))
	assert.Equal(t, "custom", gotHeader.Get("X-Provider"))
	assert.Equal(t, "yes", gotHeader.Get("X-Hooked"))
	assert.Equal(t, "application/x-www-form-urlencoded", gotHeader.Get("Content-Type"))
}

func TestExchange_MissingTokenURL(t *testing.T) {
	_, err := exchange.NewExchanger(nil).Exchange(context.Background(),
		exchange.Request{Grant: exchange.RefreshTokenGrant{RefreshToken: "rt"}})

	var cfgErr *oautherrors.ConfigError
	require.True(t, errors.As(err, &cfgErr))
}
