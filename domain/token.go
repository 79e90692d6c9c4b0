package domain

import "time"

// TokenRecord is the persisted unit of the token lifecycle: the access token
// plus the metadata needed to decide validity and to perform a refresh.
// Provider fields the core does not interpret are preserved in Extra so they
// survive a refresh round trip.
type TokenRecord struct {
	AccessToken  string            `bson:"access_token"            json:"access_token"`
	RefreshToken string            `bson:"refresh_token,omitempty" json:"refresh_token,omitempty"`
	TokenType    string            `bson:"token_type,omitempty"    json:"token_type,omitempty"`
	Scope        string            `bson:"scope,omitempty"         json:"scope,omitempty"`
	IssuedAt     time.Time         `bson:"issued_at"               json:"issued_at"`
	ExpiresIn    int64             `bson:"expires_in,omitempty"    json:"expires_in,omitempty"` // seconds; 0 means non-expiring
	Extra        map[string]string `bson:"extra,omitempty"         json:"extra,omitempty"`
}

// ExpiresAt returns the absolute expiry of the record, or the zero time for
// a non-expiring record.
func (t *TokenRecord) ExpiresAt() time.Time {
	if t.ExpiresIn <= 0 {
		return time.Time{}
	}
	return t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Valid reports whether the record may still be handed to a caller at the
// given instant. The buffer shortens the usable window so a token is never
// returned moments before the provider stops honoring it.
func (t *TokenRecord) Valid(now time.Time, buffer time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}
	if t.ExpiresIn <= 0 {
		return true
	}
	return now.Before(t.ExpiresAt().Add(-buffer))
}

// CarryRefreshFrom copies the previous refresh token into the record when
// the provider did not reissue one on refresh.
func (t *TokenRecord) CarryRefreshFrom(prev *TokenRecord) {
	if t.RefreshToken == "" && prev != nil {
		t.RefreshToken = prev.RefreshToken
	}
}
