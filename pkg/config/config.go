// Package config holds the environment-driven configuration for the auth
// service. Structs carry cleanenv tags; cmd/authbox reads them with
// cleanenv.ReadEnv.
package config

import (
	"fmt"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Provider ProviderConfig
	Session  SessionConfig
	Jwks     JwksConfig
	Admin    AdminConfig
}

// ServerConfig covers the HTTP listener and store selection.
type ServerConfig struct {
	Host      string `env:"AUTHBOX_HOST" env-default:"localhost"`
	Port      uint16 `env:"AUTHBOX_PORT" env-default:"4000"`
	BaseURL   string `env:"AUTHBOX_BASE_URL" env-default:"http://localhost:4000"`
	StoreKind string `env:"AUTHBOX_STORE" env-default:"memory"` // memory | postgres

	// TrustProxyHeaders keys rate limiting by X-Forwarded-For / X-Real-IP.
	// Enable only when a proxy in front of this service overwrites them.
	TrustProxyHeaders bool `env:"AUTHBOX_TRUST_PROXY_HEADERS" env-default:"false"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CallbackURL is the redirect URI registered with the identity provider.
func (s ServerConfig) CallbackURL() string {
	return s.BaseURL + "/oauth/callback"
}

// DatabaseConfig holds PostgreSQL settings for the durable store.
type DatabaseConfig struct {
	Host     string `env:"AUTHBOX_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"AUTHBOX_PG_PORT" env-default:"5432"`
	Database string `env:"AUTHBOX_PG_DATABASE" env-default:"authbox_db"`
	User     string `env:"AUTHBOX_PG_USER" env-default:"authbox"`
	Password string `env:"AUTHBOX_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"AUTHBOX_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL.
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// ProviderConfig selects and parameterizes the identity provider.
type ProviderConfig struct {
	Name         string `env:"AUTHBOX_PROVIDER" env-default:"google"`
	ClientID     string `env:"AUTHBOX_CLIENT_ID"`
	ClientSecret string `env:"AUTHBOX_CLIENT_SECRET"`

	// Provider-specific settings; only the relevant one is read.
	AzureTenant   string `env:"AUTHBOX_AZURE_TENANT"`
	OktaDomain    string `env:"AUTHBOX_OKTA_DOMAIN"`
	KeycloakURL   string `env:"AUTHBOX_KEYCLOAK_URL"`
	KeycloakRealm string `env:"AUTHBOX_KEYCLOAK_REALM"`

	// Custom provider endpoints, used when Name is "custom".
	Issuer      string `env:"AUTHBOX_ISSUER"`
	AuthURL     string `env:"AUTHBOX_AUTH_URL"`
	TokenURL    string `env:"AUTHBOX_TOKEN_URL"`
	UserInfoURL string `env:"AUTHBOX_USERINFO_URL"`
	JwksURL     string `env:"AUTHBOX_JWKS_URL"`
}

// SessionConfig covers the session cookie and lifetimes.
type SessionConfig struct {
	CookieName    string        `env:"AUTHBOX_COOKIE_NAME" env-default:"ragbox_session"`
	CookieSecure  bool          `env:"AUTHBOX_COOKIE_SECURE" env-default:"true"`
	MaxSessionAge time.Duration `env:"AUTHBOX_SESSION_MAX_AGE" env-default:"24h"`
	StateTTL      time.Duration `env:"AUTHBOX_STATE_TTL" env-default:"5m"`
	SweepInterval time.Duration `env:"AUTHBOX_SWEEP_INTERVAL" env-default:"5m"`
}

// JwksConfig bounds the key-set cache.
type JwksConfig struct {
	RefreshInterval        time.Duration `env:"AUTHBOX_JWKS_REFRESH_INTERVAL" env-default:"15m"`
	ForcedRefreshPerMinute int           `env:"AUTHBOX_JWKS_FORCED_REFRESH_PER_MINUTE" env-default:"2"`
}

// AdminConfig configures verification of the admin JWTs guarding the token
// management surface. The tokens themselves are issued elsewhere.
type AdminConfig struct {
	JwtSecret string `env:"AUTHBOX_ADMIN_JWT_SECRET"`
}
