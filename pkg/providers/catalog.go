package providers

import "fmt"

// Google returns the endpoint configuration for Google Identity.
func Google(clientID, clientSecret string) Provider {
	return Provider{
		Name:         "google",
		DisplayName:  "Google",
		Issuer:       "https://accounts.google.com",
		AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:     "https://oauth2.googleapis.com/token",
		UserInfoURL:  "https://openidconnect.googleapis.com/v1/userinfo",
		JwksURL:      "https://www.googleapis.com/oauth2/v3/certs",
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
}

// AzureAD returns the endpoint configuration for a Microsoft Entra ID
// (Azure AD) tenant.
func AzureAD(tenant, clientID, clientSecret string) Provider {
	base := fmt.Sprintf("https://login.microsoftonline.com/%s", tenant)
	return Provider{
		Name:         "azure",
		DisplayName:  "Microsoft Entra ID",
		Issuer:       base + "/v2.0",
		AuthURL:      base + "/oauth2/v2.0/authorize",
		TokenURL:     base + "/oauth2/v2.0/token",
		UserInfoURL:  "https://graph.microsoft.com/oidc/userinfo",
		JwksURL:      base + "/discovery/v2.0/keys",
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
}

// Okta returns the endpoint configuration for an Okta org using the default
// authorization server.
func Okta(domain, clientID, clientSecret string) Provider {
	base := fmt.Sprintf("https://%s/oauth2/default", domain)
	return Provider{
		Name:         "okta",
		DisplayName:  "Okta",
		Issuer:       base,
		AuthURL:      base + "/v1/authorize",
		TokenURL:     base + "/v1/token",
		UserInfoURL:  base + "/v1/userinfo",
		JwksURL:      base + "/v1/keys",
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
}

// Keycloak returns the endpoint configuration for a Keycloak realm.
func Keycloak(baseURL, realm, clientID, clientSecret string) Provider {
	base := fmt.Sprintf("%s/realms/%s", baseURL, realm)
	return Provider{
		Name:         "keycloak",
		DisplayName:  "Keycloak",
		Issuer:       base,
		AuthURL:      base + "/protocol/openid-connect/auth",
		TokenURL:     base + "/protocol/openid-connect/token",
		UserInfoURL:  base + "/protocol/openid-connect/userinfo",
		JwksURL:      base + "/protocol/openid-connect/certs",
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
}

// Custom returns a fully caller-specified provider for identity providers
// without a preset.
func Custom(name, issuer, authURL, tokenURL, userInfoURL, jwksURL, clientID, clientSecret string, scopes []string) Provider {
	return Provider{
		Name:         name,
		DisplayName:  name,
		Issuer:       issuer,
		AuthURL:      authURL,
		TokenURL:     tokenURL,
		UserInfoURL:  userInfoURL,
		JwksURL:      jwksURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       scopes,
	}
}
