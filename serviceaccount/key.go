// Package serviceaccount implements the two-legged JWT bearer flow: a claim
// set signed client-side replaces the user-mediated redirect, so there is no
// refresh token and expiry simply triggers a freshly minted assertion.
package serviceaccount

import (
	"encoding/json"
	"fmt"

	"go.pilab.hu/oauthkit/domain"
)

// Key represents the structure of a downloadable service account JSON key,
// similar to Google Cloud's format.
type Key struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	AuthURI      string `json:"auth_uri"`
	TokenURI     string `json:"token_uri"`
}

// ParseKey decodes a service account JSON key.
func ParseKey(data []byte) (*Key, error) {
	var key Key
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}
	if key.PrivateKey == "" {
		return nil, fmt.Errorf("service account key has no private_key")
	}
	if key.ClientEmail == "" {
		return nil, fmt.Errorf("service account key has no client_email")
	}
	return &key, nil
}

// ServiceConfig builds a JWT-bearer ServiceConfig from the key, naming the
// token record after serviceName in the store's namespace.
func (k *Key) ServiceConfig(serviceName, scope string, opts ...domain.ConfigOption) *domain.ServiceConfig {
	base := []domain.ConfigOption{
		domain.WithGrantType(domain.GrantJWTBearer),
		domain.WithEndpoints(k.AuthURI, k.TokenURI),
		domain.WithClient(k.ClientEmail, ""),
		domain.WithScope(scope),
		domain.WithSigningKey(k.PrivateKeyID, []byte(k.PrivateKey)),
	}
	return domain.NewServiceConfig(serviceName, append(base, opts...)...)
}
