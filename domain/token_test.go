package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go.pilab.hu/oauthkit/domain"
)

func TestTokenRecord_Valid(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	record := &domain.TokenRecord{
		AccessToken: "at",
		IssuedAt:    issued,
		ExpiresIn:   3600,
	}

	assert.True(t, record.Valid(issued, 0))
	assert.True(t, record.Valid(issued.Add(59*time.Minute), 0))
	assert.False(t, record.Valid(issued.Add(time.Hour), 0))
	assert.False(t, record.Valid(issued.Add(2*time.Hour), 0))

	// The buffer shortens the usable window.
	assert.False(t, record.Valid(issued.Add(56*time.Minute), 5*time.Minute))
	assert.True(t, record.Valid(issued.Add(54*time.Minute), 5*time.Minute))
}

func TestTokenRecord_NonExpiring(t *testing.T) {
	record := &domain.TokenRecord{AccessToken: "at", IssuedAt: time.Now()}

	assert.True(t, record.Valid(time.Now().Add(10*365*24*time.Hour), time.Hour))
	assert.True(t, record.ExpiresAt().IsZero())
}

func TestTokenRecord_EmptyAccessTokenInvalid(t *testing.T) {
	record := &domain.TokenRecord{IssuedAt: time.Now(), ExpiresIn: 3600}
	assert.False(t, record.Valid(time.Now(), 0))
}

func TestTokenRecord_CarryRefreshFrom(t *testing.T) {
	prev := &domain.TokenRecord{AccessToken: "old", RefreshToken: "rt-old"}

	fresh := &domain.TokenRecord{AccessToken: "new"}
	fresh.CarryRefreshFrom(prev)
	assert.Equal(t, "rt-old", fresh.RefreshToken)

	reissued := &domain.TokenRecord{AccessToken: "new", RefreshToken: "rt-new"}
	reissued.CarryRefreshFrom(prev)
	assert.Equal(t, "rt-new", reissued.RefreshToken)

	unowned := &domain.TokenRecord{AccessToken: "new"}
	unowned.CarryRefreshFrom(nil)
	assert.Empty(t, unowned.RefreshToken)
}

func TestServiceConfig_Defaults(t *testing.T) {
	cfg := domain.NewServiceConfig("github")

	assert.Equal(t, "github", cfg.ServiceName)
	assert.Equal(t, domain.FormatJSON, cfg.ResponseFormat)
	assert.Equal(t, domain.GrantAuthorizationCode, cfg.GrantType)
	assert.Equal(t, domain.DefaultExpiryBuffer, cfg.ExpiryBuffer)
}

func TestServiceConfig_RedirectURI(t *testing.T) {
	cfg := domain.NewServiceConfig("github",
		domain.WithCallback("https://app.example.com/oauth/", "cb main"))
	assert.Equal(t, "https://app.example.com/oauth/cb%20main", cfg.RedirectURI())

	// Without a base URL the callback identifier is the redirect URI.
	bare := domain.NewServiceConfig("github",
		domain.WithCallback("", "https://app.example.com/callback"))
	assert.Equal(t, "https://app.example.com/callback", bare.RedirectURI())
}
