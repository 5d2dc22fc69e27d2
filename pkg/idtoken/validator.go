package idtoken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/llm4s/rag-in-a-box/pkg/autherrors"
	"github.com/llm4s/rag-in-a-box/pkg/ratelimit"
)

// ValidatedIDToken is the result of verifying a provider ID token. It is
// transient: produced per callback, handed to the claim mapper, never
// persisted.
type ValidatedIDToken struct {
	Subject   string
	Email     string
	Name      string
	Groups    []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Claims    map[string]interface{}
}

// Config configures a Validator.
type Config struct {
	// Issuer is the exact issuer the token must carry.
	Issuer string

	// ClientID must appear in the token's audience list.
	ClientID string

	// JwksURL is the provider's published key set.
	JwksURL string

	// RefreshInterval bounds how often the cache re-fetches the key set
	// on its own. Zero means the jwk.Cache default (respecting the
	// provider's cache headers, floor of 15 minutes).
	RefreshInterval time.Duration

	// ForcedRefreshPerMinute caps operator/recovery triggered refreshes
	// so a validation-failure burst cannot hammer the provider. Zero
	// means 2 per minute.
	ForcedRefreshPerMinute int
}

// Validator verifies ID tokens against the provider's rotating key set.
// Keys are cached and refreshed in the background; a fetch failure serves
// the existing cache until its TTL lapses.
type Validator struct {
	issuer   string
	clientID string
	jwksURL  string
	cache    *jwk.Cache
	refresh  *ratelimit.TokenBucket
}

// NewValidator creates a validator and registers the JWKS URL with an
// auto-refreshing cache. The context bounds the lifetime of the background
// refresh goroutine.
func NewValidator(ctx context.Context, cfg Config) (*Validator, error) {
	if cfg.JwksURL == "" {
		return nil, autherrors.New(autherrors.KindConfigurationError, "missing JWKS URL")
	}
	if cfg.Issuer == "" {
		return nil, autherrors.New(autherrors.KindConfigurationError, "missing issuer")
	}

	var cacheOpts []jwk.RegisterOption
	if cfg.RefreshInterval > 0 {
		cacheOpts = append(cacheOpts, jwk.WithRefreshInterval(cfg.RefreshInterval))
	}

	cache := jwk.NewCache(ctx)
	if err := cache.Register(cfg.JwksURL, cacheOpts...); err != nil {
		return nil, autherrors.Wrap(autherrors.KindJwksError, "failed to register JWKS URL", err)
	}

	perMinute := cfg.ForcedRefreshPerMinute
	if perMinute <= 0 {
		perMinute = 2
	}

	return &Validator{
		issuer:   cfg.Issuer,
		clientID: cfg.ClientID,
		jwksURL:  cfg.JwksURL,
		cache:    cache,
		refresh:  ratelimit.PerMinute(perMinute),
	}, nil
}

// Validate verifies the token signature against the cached key set, then
// checks issuer, audience and expiry. Every failure carries a distinct
// error kind so callers can branch on it.
func (v *Validator) Validate(ctx context.Context, raw string) (*ValidatedIDToken, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return v.signingKey(ctx, token)
	})
	if err != nil {
		// key lookup failures keep their own kind
		if autherrors.IsKind(err, autherrors.KindJwksError) {
			return nil, err
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherrors.Wrap(autherrors.KindTokenExpired, "ID token is expired", err)
		}
		return nil, autherrors.Wrap(autherrors.KindInvalidToken, "failed to parse ID token", err)
	}
	if !token.Valid {
		return nil, autherrors.New(autherrors.KindInvalidToken, "ID token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, autherrors.New(autherrors.KindInvalidToken, "ID token carries no claims")
	}

	if err := v.checkClaims(claims); err != nil {
		return nil, err
	}
	return tokenFromClaims(claims), nil
}

// RefreshJWKS forces a cache bust, used operationally when a provider
// rotates keys faster than the refresh interval or after a verification
// failure. Calls beyond the configured rate serve the existing cache.
func (v *Validator) RefreshJWKS(ctx context.Context) error {
	if !v.refresh.Allow() {
		slog.Warn("JWKS refresh rate limit reached, serving cached keys", "jwks_url", v.jwksURL)
		return nil
	}
	if _, err := v.cache.Refresh(ctx, v.jwksURL); err != nil {
		return autherrors.Wrap(autherrors.KindJwksError, "failed to refresh JWKS", err)
	}
	slog.Info("JWKS refreshed", "jwks_url", v.jwksURL)
	return nil
}

// signingKey resolves the public key for the token's kid header.
func (v *Validator) signingKey(ctx context.Context, token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	kid, ok := token.Header["kid"].(string)
	if !ok {
		return nil, fmt.Errorf("token header missing kid")
	}

	keySet, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		return nil, autherrors.Wrap(autherrors.KindJwksError, "failed to fetch JWKS", err)
	}

	key, found := keySet.LookupKeyID(kid)
	if !found {
		return nil, autherrors.New(autherrors.KindJwksError, fmt.Sprintf("key %s not found in JWKS", kid))
	}

	var rawKey interface{}
	if err := key.Raw(&rawKey); err != nil {
		return nil, autherrors.Wrap(autherrors.KindJwksError, "failed to materialize JWKS key", err)
	}
	return rawKey, nil
}

// checkClaims verifies issuer, audience and expiry.
func (v *Validator) checkClaims(claims jwt.MapClaims) error {
	issuer, err := claims.GetIssuer()
	if err != nil || issuer != v.issuer {
		return autherrors.New(autherrors.KindInvalidIssuer,
			fmt.Sprintf("issuer %q does not match configured issuer", issuer))
	}

	if v.clientID != "" {
		audiences, err := claims.GetAudience()
		if err != nil {
			return autherrors.Wrap(autherrors.KindInvalidAudience, "failed to read audience", err)
		}
		found := false
		for _, aud := range audiences {
			if aud == v.clientID {
				found = true
				break
			}
		}
		if !found {
			return autherrors.New(autherrors.KindInvalidAudience, "audience does not include client ID")
		}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || exp.Before(time.Now()) {
		return autherrors.New(autherrors.KindTokenExpired, "ID token is expired")
	}
	return nil
}

// tokenFromClaims extracts the identity fields the claim mapper consumes.
func tokenFromClaims(claims jwt.MapClaims) *ValidatedIDToken {
	tok := &ValidatedIDToken{
		Subject: stringClaim(claims, "sub"),
		Email:   stringClaim(claims, "email"),
		Name:    stringClaim(claims, "name"),
		Groups:  stringSliceClaim(claims, "groups"),
		Claims:  map[string]interface{}(claims),
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		tok.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tok.ExpiresAt = exp.Time
	}
	return tok
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}

func stringSliceClaim(claims jwt.MapClaims, key string) []string {
	raw, ok := claims[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
