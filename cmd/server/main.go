package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"minichat/internal/app"
	"minichat/internal/config"
	"minichat/internal/identity"
	"minichat/internal/ratelimit"
	"minichat/internal/server"
	"minichat/internal/util"
	"minichat/pkg/ai"
	"minichat/pkg/store"
)

func main() {
	cfg, err := config.LoadServer(os.Getenv("MINICHAT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	verifier, err := identity.NewVerifier(identity.VerifierConfig{
		JWKSURL:    cfg.JWKSURL,
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	})
	if err != nil {
		util.Fatal("failed to init jwks verifier", "err", err)
	}
	provider, err := identity.NewProviderClient(cfg.UserinfoURL)
	if err != nil {
		util.Fatal("failed to init identity provider client", "err", err)
	}
	var cache *identity.ProfileCache
	if cfg.RedisAddr != "" {
		ttl := time.Duration(cfg.ProfileCacheTTLSeconds) * time.Second
		cache = identity.NewProfileCache(cfg.RedisAddr, os.Getenv("REDIS_PASSWORD"), ttl)
		slog.Info("profile cache enabled", "addr", cfg.RedisAddr)
	}
	auth := identity.NewAuthenticator(verifier, provider, cache)

	chatStore, err := newStore(cfg)
	if err != nil {
		util.Fatal("failed to init store", "err", err)
	}
	generator, err := newGenerator(cfg)
	if err != nil {
		util.Fatal("failed to init text generator", "err", err)
	}

	appCore, err := app.New(app.Config{
		Store:     chatStore,
		Generator: generator,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		util.Fatal("failed to parse trusted proxies", "err", err)
	}

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.AskModelRateLimit > 0 {
		window := time.Duration(cfg.AskModelRateWindowSeconds) * time.Second
		if window <= 0 {
			window = time.Minute
		}
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, os.Getenv("REDIS_PASSWORD"), "", cfg.AskModelRateLimit, window)
		if err != nil {
			util.Fatal("failed to init rate limiter", "err", err)
		}
	}

	httpServer := server.New(server.Config{
		App:            appCore,
		Auth:           auth,
		AskLimiter:     limiter,
		TrustedProxies: trusted,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("chat server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func newStore(cfg config.ServerConfig) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("no databaseURL configured, using in-memory store")
		return store.NewMemoryStore(), nil
	}
	return store.NewGormStore(cfg.DatabaseURL)
}

func newGenerator(cfg config.ServerConfig) (ai.TextGenerator, error) {
	switch cfg.ModelProvider {
	case "", "gemini":
		client, err := ai.NewGeminiClient(cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return ai.NewGeminiGenerator(client, cfg.GenerationModel), nil
	case "openai":
		return ai.NewOpenAIGenerator("", cfg.OpenAIAPIKey, cfg.OpenAIModel)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.ModelProvider)
	}
}
