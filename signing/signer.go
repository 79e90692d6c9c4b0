package signing

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidKeyID = errors.New("invalid key id")

// SignerFunc signs a claim set and returns the compact serialized token.
type SignerFunc func(claims jwt.Claims) (string, error)

// TokenSigner dispatches claim signing to registered keys. HMAC keys serve
// symmetric state tokens; RSA keys serve service-account assertions.
type TokenSigner struct {
	keys map[string]SignerFunc
}

// NewTokenSigner creates an empty TokenSigner.
func NewTokenSigner() *TokenSigner {
	return &TokenSigner{
		keys: make(map[string]SignerFunc),
	}
}

// AddHMACKey registers a symmetric key signing with HS256.
func (s *TokenSigner) AddHMACKey(keyID string, secret []byte) {
	s.keys[keyID] = func(claims jwt.Claims) (string, error) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

		signed, err := token.SignedString(secret)
		if err != nil {
			return "", fmt.Errorf("failed to sign token: %w", err)
		}

		return signed, nil
	}
}

// AddRSAKey registers a PEM-encoded RSA private key signing with RS256.
func (s *TokenSigner) AddRSAKey(keyID string, pemKey []byte) error {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(pemKey)
	if err != nil {
		return fmt.Errorf("failed to parse RSA private key: %w", err)
	}

	s.keys[keyID] = func(claims jwt.Claims) (string, error) {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

		signed, err := token.SignedString(privateKey)
		if err != nil {
			return "", fmt.Errorf("failed to sign token: %w", err)
		}

		return signed, nil
	}

	return nil
}

// Sign signs the claims with the key named by keyID. An empty keyID falls
// back to any registered key, which is the common single-key deployment.
func (s *TokenSigner) Sign(claims jwt.Claims, keyID string) (string, error) {
	if keyID == "" { // using default signer
		for _, signer := range s.keys {
			if signer != nil {
				return signer(claims)
			}
		}

		return "", ErrInvalidKeyID
	}

	if signer, ok := s.keys[keyID]; ok {
		return signer(claims)
	}

	return "", ErrInvalidKeyID
}
