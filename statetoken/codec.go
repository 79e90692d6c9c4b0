// Package statetoken signs and verifies the opaque state parameter that
// correlates an authorization request with its callback. All correlation
// data round-trips through the token itself, so callbacks can be verified on
// any server instance without shared session state.
package statetoken

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	oautherrors "go.pilab.hu/oauthkit/errors"
	"go.pilab.hu/oauthkit/signing"
)

// DefaultMaxAge bounds the lifetime of a state token. A stale authorization
// link must not be exchangeable, even with a valid signature.
const DefaultMaxAge = 10 * time.Minute

// clockSkewLeeway tolerates small clock drift between the instance that
// minted the token and the one verifying it.
const clockSkewLeeway = time.Minute

// stateKeyID names the HMAC key a codec registers on its own signer when no
// shared signer is supplied.
const stateKeyID = "state"

// State carries the per-flow correlation data embedded in a state token.
type State struct {
	ServiceName string
	CallbackID  string
	Payload     string
	IssuedAt    time.Time
}

type stateClaims struct {
	ServiceName string `json:"svc"`
	CallbackID  string `json:"cb"`
	Payload     string `json:"data,omitempty"`
	jwt.RegisteredClaims
}

// Codec encodes and decodes signed state tokens with an HS256 deployment
// secret. Signing dispatches through a signing.TokenSigner; the raw secret
// is retained for verification. The codec keeps no per-flow storage.
type Codec struct {
	signer *signing.TokenSigner
	keyID  string
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// CodecOption mutates a Codec under construction.
type CodecOption func(*Codec)

// WithMaxAge overrides the maximum accepted token age.
func WithMaxAge(maxAge time.Duration) CodecOption {
	return func(c *Codec) { c.maxAge = maxAge }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// WithSigner routes signing through a shared TokenSigner. The key named by
// keyID must be an HMAC key over the codec's verification secret, or
// decoding the codec's own tokens will fail.
func WithSigner(signer *signing.TokenSigner, keyID string) CodecOption {
	return func(c *Codec) {
		c.signer = signer
		c.keyID = keyID
	}
}

// NewCodec creates a Codec signing with the given deployment secret. Without
// WithSigner the codec registers the secret on a signer of its own.
func NewCodec(secret []byte, opts ...CodecOption) *Codec {
	c := &Codec{
		secret: secret,
		maxAge: DefaultMaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.signer == nil {
		c.signer = signing.NewTokenSigner()
		c.signer.AddHMACKey(stateKeyID, secret)
		c.keyID = stateKeyID
	}
	return c
}

// Encode produces a signed state token binding the service name, callback
// identifier, and caller payload to the current instant.
func (c *Codec) Encode(serviceName, callbackID, payload string) (string, error) {
	claims := stateClaims{
		ServiceName: serviceName,
		CallbackID:  callbackID,
		Payload:     payload,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(c.now()),
		},
	}

	signed, err := c.signer.Sign(claims, c.keyID)
	if err != nil {
		return "", fmt.Errorf("failed to sign state token: %w", err)
	}

	return signed, nil
}

// Decode verifies a state token and returns its correlation data. It fails
// with a wrapped errors.ErrInvalidState when the signature does not verify,
// the token is malformed, or the token's age exceeds the maximum lifetime.
func (c *Codec) Decode(state string) (*State, error) {
	claims := &stateClaims{}

	_, err := jwt.ParseWithClaims(state, claims,
		func(token *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", oautherrors.ErrInvalidState, err)
	}

	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing issue timestamp", oautherrors.ErrInvalidState)
	}

	age := c.now().Sub(claims.IssuedAt.Time)
	if age > c.maxAge {
		return nil, fmt.Errorf("%w: token expired %s ago", oautherrors.ErrInvalidState, age-c.maxAge)
	}
	if age < -clockSkewLeeway {
		return nil, fmt.Errorf("%w: token issued in the future", oautherrors.ErrInvalidState)
	}

	return &State{
		ServiceName: claims.ServiceName,
		CallbackID:  claims.CallbackID,
		Payload:     claims.Payload,
		IssuedAt:    claims.IssuedAt.Time,
	}, nil
}
