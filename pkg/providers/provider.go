package providers

import (
	"fmt"
	"net/url"
	"strings"
)

// Provider holds the endpoint configuration for an OAuth2/OIDC identity
// provider. It is pure data; all protocol behavior lives in the oidcflow
// package.
type Provider struct {
	Name         string   `json:"name"`
	DisplayName  string   `json:"display_name"`
	Issuer       string   `json:"issuer"`
	AuthURL      string   `json:"auth_url"`
	TokenURL     string   `json:"token_url"`
	UserInfoURL  string   `json:"user_info_url"`
	JwksURL      string   `json:"jwks_url"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
}

// Validate checks that the provider carries everything the authorization
// code flow needs.
func (p *Provider) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("provider name is required")
	}
	if p.ClientID == "" {
		return fmt.Errorf("client ID is required")
	}
	if p.Issuer == "" {
		return fmt.Errorf("issuer is required")
	}
	if p.AuthURL == "" {
		return fmt.Errorf("authorization URL is required")
	}
	if p.TokenURL == "" {
		return fmt.Errorf("token URL is required")
	}
	if p.JwksURL == "" {
		return fmt.Errorf("JWKS URL is required")
	}

	for _, raw := range []string{p.Issuer, p.AuthURL, p.TokenURL, p.JwksURL} {
		if _, err := url.Parse(raw); err != nil {
			return fmt.Errorf("invalid provider URL %q: %w", raw, err)
		}
	}
	return nil
}

// BuildAuthURL builds the authorization URL for an authorization-code
// request with PKCE. state and the S256 challenge come from the caller.
func (p *Provider) BuildAuthURL(redirectURI, state, codeChallenge, challengeMethod string) (string, error) {
	authURL, err := url.Parse(p.AuthURL)
	if err != nil {
		return "", fmt.Errorf("invalid auth URL: %w", err)
	}

	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", p.ClientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)
	params.Set("code_challenge", codeChallenge)
	params.Set("code_challenge_method", challengeMethod)
	params.Set("scope", strings.Join(p.ScopesOrDefault(), " "))

	authURL.RawQuery = params.Encode()
	return authURL.String(), nil
}

// ScopesOrDefault returns the configured scopes, or the standard OIDC set
// when none are configured.
func (p *Provider) ScopesOrDefault() []string {
	if len(p.Scopes) > 0 {
		return p.Scopes
	}
	return []string{"openid", "profile", "email"}
}
