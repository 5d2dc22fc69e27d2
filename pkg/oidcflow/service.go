// Package oidcflow implements the authorization-code-with-PKCE protocol
// state machine: login initiation, the provider callback, session
// validation and logout.
package oidcflow

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/llm4s/rag-in-a-box/pkg/autherrors"
	"github.com/llm4s/rag-in-a-box/pkg/claimmap"
	"github.com/llm4s/rag-in-a-box/pkg/idtoken"
	"github.com/llm4s/rag-in-a-box/pkg/oauthstore"
	"github.com/llm4s/rag-in-a-box/pkg/pkce"
	"github.com/llm4s/rag-in-a-box/pkg/providers"
)

// TokenValidator verifies a raw ID token. Satisfied by *idtoken.Validator.
type TokenValidator interface {
	Validate(ctx context.Context, raw string) (*idtoken.ValidatedIDToken, error)
}

// LoginRedirect is the result of initiating a login: send the browser to
// AuthorizationURL and expect State back on the callback.
type LoginRedirect struct {
	AuthorizationURL string `json:"authorizationUrl"`
	State            string `json:"state"`
}

// Service drives one login attempt from initiation through callback, plus
// session validation and logout for established sessions.
type Service struct {
	provider   providers.Provider
	validator  TokenValidator
	store      oauthstore.Store
	mapper     *claimmap.Mapper
	callback   string
	stateTTL   time.Duration
	httpClient *http.Client
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithStateTTL overrides how long an authorization state stays consumable.
func WithStateTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.stateTTL = ttl
	}
}

// WithHTTPClient sets the client used for the token exchange.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.httpClient = client
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the orchestrator. callbackURL is this deployment's
// /oauth/callback endpoint as registered with the provider.
func NewService(provider providers.Provider, validator TokenValidator, store oauthstore.Store, mapper *claimmap.Mapper, callbackURL string, opts ...Option) *Service {
	s := &Service{
		provider:   provider,
		validator:  validator,
		store:      store,
		mapper:     mapper,
		callback:   callbackURL,
		stateTTL:   5 * time.Minute,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitiateLogin generates the PKCE material and state for a new login
// attempt, persists the one-time state record and returns the provider
// authorization URL.
func (s *Service) InitiateLogin(ctx context.Context, redirectAfter string) (*LoginRedirect, error) {
	state, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	verifier, err := pkce.GenerateVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	now := s.now()
	record := oauthstore.AuthState{
		State:         state,
		CodeVerifier:  verifier,
		RedirectAfter: redirectAfter,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.stateTTL),
	}
	if err := s.store.PutState(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store auth state: %w", err)
	}

	authURL, err := s.provider.BuildAuthURL(s.callback, state, pkce.Challenge(verifier), pkce.MethodS256)
	if err != nil {
		return nil, autherrors.Wrap(autherrors.KindConfigurationError, "failed to build authorization URL", err)
	}

	slog.Info("login initiated", "provider", s.provider.Name, "state", state)
	return &LoginRedirect{AuthorizationURL: authURL, State: state}, nil
}

// CallbackResult is a successful callback: the persisted session plus the
// post-login redirect target captured at initiation, if any.
type CallbackResult struct {
	Session       *oauthstore.Session
	RedirectAfter string
}

// HandleCallback consumes the authorization state, exchanges the code with
// the provider, validates the ID token and creates a session. Every failure
// surfaces a kinded error; the exchange is never retried because providers
// treat authorization codes as single-use.
func (s *Service) HandleCallback(ctx context.Context, code, state string) (*CallbackResult, error) {
	record, err := s.store.ConsumeState(ctx, state)
	if errors.Is(err, oauthstore.ErrStateNotFound) {
		return nil, autherrors.New(autherrors.KindInvalidState, "unknown or already used state")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume auth state: %w", err)
	}

	// The record is already gone from the store; an expired attempt has
	// no retry path.
	if s.now().After(record.ExpiresAt) {
		return nil, autherrors.New(autherrors.KindStateExpired, "authorization state expired")
	}

	rawIDToken, err := s.exchangeCode(ctx, code, record.CodeVerifier)
	if err != nil {
		return nil, err
	}

	tok, err := s.validator.Validate(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}

	session := s.mapper.ToSession(tok, s.provider.Name)
	if err := s.store.PutSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	slog.Info("login completed", "provider", s.provider.Name, "user_id", session.UserID, "session_id", session.ID)
	return &CallbackResult{Session: &session, RedirectAfter: record.RedirectAfter}, nil
}

// ValidateSession looks up a session and deletes it lazily when expired.
// Expired and absent sessions are indistinguishable to the caller.
func (s *Service) ValidateSession(ctx context.Context, sessionID string) (*oauthstore.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, oauthstore.ErrSessionNotFound) {
		return nil, autherrors.New(autherrors.KindSessionNotFound, "no session")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session.Expired(s.now()) {
		if err := s.store.DeleteSession(ctx, sessionID); err != nil {
			slog.Warn("failed to delete expired session", "session_id", sessionID, "err", err)
		}
		return nil, autherrors.New(autherrors.KindSessionNotFound, "session expired")
	}
	return session, nil
}

// Authorization validates the session and maps its identity through the
// claim mapper to the authorization value the search path consumes.
func (s *Service) Authorization(ctx context.Context, sessionID string) (*claimmap.Authorization, error) {
	session, err := s.ValidateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToAuthorization(ctx, claimmap.TokenView(session))
}

// Logout deletes the session; absent sessions are a no-op.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	slog.Info("session logged out", "session_id", sessionID)
	return nil
}

// exchangeCode redeems the authorization code and PKCE verifier at the
// provider's token endpoint and returns the raw ID token.
func (s *Service) exchangeCode(ctx context.Context, code, verifier string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", s.callback)
	form.Set("client_id", s.provider.ClientID)
	form.Set("client_secret", s.provider.ClientSecret)
	form.Set("code_verifier", verifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.provider.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", autherrors.Wrap(autherrors.KindTokenExchangeError, "failed to build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", autherrors.Wrap(autherrors.KindTokenExchangeError, "token request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", autherrors.Wrap(autherrors.KindTokenExchangeError, "failed to read token response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", autherrors.New(autherrors.KindTokenExchangeError,
			fmt.Sprintf("token endpoint returned status %d: %s", resp.StatusCode, string(body)))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		IDToken     string `json:"id_token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", autherrors.Wrap(autherrors.KindTokenExchangeError, "failed to parse token response", err)
	}
	if tokenResp.IDToken == "" {
		return "", autherrors.New(autherrors.KindTokenExchangeError, "token response carries no ID token")
	}
	return tokenResp.IDToken, nil
}

// randomToken returns n cryptographically random bytes, base64url encoded
// without padding.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
