package exchange

import "net/url"

// Grant builds the form parameters of one OAuth2 token request.
type Grant interface {
	Values() url.Values
}

// AuthorizationCodeGrant trades an authorization code, obtained through the
// callback round trip, for a token.
type AuthorizationCodeGrant struct {
	Code         string
	RedirectURI  string
	ClientID     string
	ClientSecret string
}

func (g AuthorizationCodeGrant) Values() url.Values {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", g.Code)
	if g.RedirectURI != "" {
		form.Set("redirect_uri", g.RedirectURI)
	}
	if g.ClientID != "" {
		form.Set("client_id", g.ClientID)
	}
	if g.ClientSecret != "" {
		form.Set("client_secret", g.ClientSecret)
	}
	return form
}

// RefreshTokenGrant trades a stored refresh token for a fresh access token.
type RefreshTokenGrant struct {
	RefreshToken string
	ClientID     string
	ClientSecret string
}

func (g RefreshTokenGrant) Values() url.Values {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", g.RefreshToken)
	if g.ClientID != "" {
		form.Set("client_id", g.ClientID)
	}
	if g.ClientSecret != "" {
		form.Set("client_secret", g.ClientSecret)
	}
	return form
}

// JWTBearerGrant submits a freshly signed service-account assertion.
type JWTBearerGrant struct {
	Assertion string
}

func (g JWTBearerGrant) Values() url.Values {
	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", g.Assertion)
	return form
}
