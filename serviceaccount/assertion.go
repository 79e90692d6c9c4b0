package serviceaccount

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go.pilab.hu/oauthkit/signing"
)

// DefaultAssertionLifetime is the validity window of a signed assertion.
const DefaultAssertionLifetime = time.Hour

// AssertionBuilder mints signed JWT assertions for the
// urn:ietf:params:oauth:grant-type:jwt-bearer grant.
type AssertionBuilder struct {
	signer   *signing.TokenSigner
	keyID    string
	issuer   string
	lifetime time.Duration
	now      func() time.Time
}

// BuilderOption mutates an AssertionBuilder under construction.
type BuilderOption func(*AssertionBuilder)

// WithLifetime overrides the assertion validity window.
func WithLifetime(lifetime time.Duration) BuilderOption {
	return func(b *AssertionBuilder) { b.lifetime = lifetime }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *AssertionBuilder) { b.now = now }
}

// NewAssertionBuilder registers the issuer's PEM private key with the
// signing collaborator and returns a builder minting assertions on its
// behalf.
func NewAssertionBuilder(issuer, keyID string, pemKey []byte, opts ...BuilderOption) (*AssertionBuilder, error) {
	signer := signing.NewTokenSigner()
	if err := signer.AddRSAKey(keyID, pemKey); err != nil {
		return nil, err
	}

	b := &AssertionBuilder{
		signer:   signer,
		keyID:    keyID,
		issuer:   issuer,
		lifetime: DefaultAssertionLifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// NewAssertionBuilderFromKey builds an AssertionBuilder from a parsed
// service account JSON key.
func NewAssertionBuilderFromKey(key *Key, opts ...BuilderOption) (*AssertionBuilder, error) {
	return NewAssertionBuilder(key.ClientEmail, key.PrivateKeyID, []byte(key.PrivateKey), opts...)
}

// Assertion signs a fresh claim set scoped to the given audience, which is
// the provider's token endpoint. Each call produces a distinct assertion;
// the jti claim guards against replay classification by the provider.
func (b *AssertionBuilder) Assertion(scope, audience string) (string, error) {
	issuedAt := b.now()

	claims := jwt.MapClaims{
		"iss": b.issuer,
		"aud": audience,
		"iat": issuedAt.Unix(),
		"exp": issuedAt.Add(b.lifetime).Unix(),
		"jti": uuid.NewString(),
	}
	if scope != "" {
		claims["scope"] = scope
	}

	assertion, err := b.signer.Sign(claims, b.keyID)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}

	return assertion, nil
}
