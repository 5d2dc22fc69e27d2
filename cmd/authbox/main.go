package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/llm4s/rag-in-a-box/pkg/accesstoken"
	accesstokenapi "github.com/llm4s/rag-in-a-box/pkg/accesstoken/api"
	"github.com/llm4s/rag-in-a-box/pkg/claimmap"
	"github.com/llm4s/rag-in-a-box/pkg/config"
	"github.com/llm4s/rag-in-a-box/pkg/idtoken"
	"github.com/llm4s/rag-in-a-box/pkg/oauthstore"
	"github.com/llm4s/rag-in-a-box/pkg/oidcflow"
	oidcflowapi "github.com/llm4s/rag-in-a-box/pkg/oidcflow/api"
	"github.com/llm4s/rag-in-a-box/pkg/principal"
	"github.com/llm4s/rag-in-a-box/pkg/ratelimit"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	var cfg config.Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("failed to read configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := cfg.Provider.BuildProvider()
	if err != nil {
		slog.Error("invalid provider configuration", "err", err)
		os.Exit(1)
	}

	var store oauthstore.Store
	var tokenRepo accesstoken.Repository
	switch cfg.Server.StoreKind {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.ToDatabaseURL())
		if err != nil {
			slog.Error("failed to create database pool", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = oauthstore.NewPostgresStore(pool)
		tokenRepo = accesstoken.NewPostgresRepository(pool)
	case "memory":
		store = oauthstore.NewInMemoryStore()
		tokenRepo = accesstoken.NewInMemoryRepository()
	default:
		slog.Error("unknown store kind", "store", cfg.Server.StoreKind)
		os.Exit(1)
	}

	validator, err := idtoken.NewValidator(ctx, idtoken.Config{
		Issuer:                 provider.Issuer,
		ClientID:               provider.ClientID,
		JwksURL:                provider.JwksURL,
		RefreshInterval:        cfg.Jwks.RefreshInterval,
		ForcedRefreshPerMinute: cfg.Jwks.ForcedRefreshPerMinute,
	})
	if err != nil {
		slog.Error("failed to create token validator", "err", err)
		os.Exit(1)
	}

	mapper := claimmap.NewMapper(principal.NewInMemoryRegistry(), cfg.Session.MaxSessionAge)
	flow := oidcflow.NewService(provider, validator, store, mapper,
		cfg.Server.CallbackURL(),
		oidcflow.WithStateTTL(cfg.Session.StateTTL),
	)
	tokens := accesstoken.NewService(tokenRepo)

	oauthHandler := oidcflowapi.NewHandler(flow, oidcflowapi.CookieConfig{
		Name:     cfg.Session.CookieName,
		Secure:   cfg.Session.CookieSecure,
		MaxAge:   cfg.Session.MaxSessionAge,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	tokenHandler := accesstokenapi.NewHandler(tokens, adminOnly(cfg.Admin))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	var limitOpts []ratelimit.MiddlewareOption
	if cfg.Server.TrustProxyHeaders {
		limitOpts = append(limitOpts, ratelimit.TrustProxyHeaders())
	}
	r.Route("/oauth", func(r chi.Router) {
		r.Use(ratelimit.PerIP(20, 20.0/60.0, limitOpts...))
		oauthHandler.RegisterRoutes(r)
	})
	r.Route("/api/tokens", tokenHandler.RegisterRoutes)

	// Abandoned logins, expired sessions and expired access tokens are
	// reclaimed out of band; per-request latency never pays for cleanup.
	sweeper := oauthstore.NewSweeper(cfg.Session.SweepInterval,
		store.CleanupExpired, tokenRepo.DeleteExpired)
	go sweeper.Run(ctx)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "err", err)
		}
	}()

	slog.Info("authbox listening", "addr", cfg.Server.Addr(), "provider", provider.Name, "store", cfg.Server.StoreKind)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// adminOnly verifies the admin JWT guarding the token-management surface
// and requires an "admin" role claim. Admin tokens are issued by the
// deployment's own identity tooling, not by this service.
func adminOnly(cfg config.AdminConfig) func(http.Handler) http.Handler {
	auth := jwtauth.New("HS256", []byte(cfg.JwtSecret), nil)

	return func(next http.Handler) http.Handler {
		return jwtauth.Verifier(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if role, _ := claims["role"].(string); role != "admin" {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
