package config

import (
	"fmt"

	"github.com/llm4s/rag-in-a-box/pkg/providers"
)

// BuildProvider turns the provider settings into a catalog entry.
func (p ProviderConfig) BuildProvider() (providers.Provider, error) {
	var provider providers.Provider

	switch p.Name {
	case "google":
		provider = providers.Google(p.ClientID, p.ClientSecret)
	case "azure":
		if p.AzureTenant == "" {
			return providers.Provider{}, fmt.Errorf("AUTHBOX_AZURE_TENANT is required for the azure provider")
		}
		provider = providers.AzureAD(p.AzureTenant, p.ClientID, p.ClientSecret)
	case "okta":
		if p.OktaDomain == "" {
			return providers.Provider{}, fmt.Errorf("AUTHBOX_OKTA_DOMAIN is required for the okta provider")
		}
		provider = providers.Okta(p.OktaDomain, p.ClientID, p.ClientSecret)
	case "keycloak":
		if p.KeycloakURL == "" || p.KeycloakRealm == "" {
			return providers.Provider{}, fmt.Errorf("AUTHBOX_KEYCLOAK_URL and AUTHBOX_KEYCLOAK_REALM are required for the keycloak provider")
		}
		provider = providers.Keycloak(p.KeycloakURL, p.KeycloakRealm, p.ClientID, p.ClientSecret)
	case "custom":
		provider = providers.Custom(p.Name, p.Issuer, p.AuthURL, p.TokenURL, p.UserInfoURL, p.JwksURL, p.ClientID, p.ClientSecret, nil)
	default:
		return providers.Provider{}, fmt.Errorf("unknown provider: %s", p.Name)
	}

	if err := provider.Validate(); err != nil {
		return providers.Provider{}, err
	}
	return provider, nil
}
