// Command jwtgate-demo serves a small API protected by jwtgate.
//
// Configuration is read from the environment:
//
//	JWTGATE_ADDR                 listen address (default :8080)
//	JWTGATE_SECRET               HMAC secret
//	JWTGATE_SECRET_FILE          HMAC secret file, reloaded on change
//	JWTGATE_JWKS_URL             JWKS endpoint for asymmetric tokens
//	JWTGATE_AUDIENCE             accepted audiences, separated by ';'
//	JWTGATE_ISSUER               required issuer
//	JWTGATE_CREDENTIALS_OPTIONAL let requests without a token through
//	JWTGATE_REVOCATION           enable the Redis revocation check (REVOCATION_REDIS_* variables)
//
// Exactly one of JWTGATE_SECRET, JWTGATE_SECRET_FILE and JWTGATE_JWKS_URL must be set.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joeshaw/envdecode"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/alexlup06-authgate/jwtgate-go/jwtgate"
	"github.com/alexlup06-authgate/jwtgate-go/jwtgate/redisrevoke"
)

type config struct {
	Addr                string        `env:"JWTGATE_ADDR,default=:8080"`
	Secret              string        `env:"JWTGATE_SECRET"`
	SecretFile          string        `env:"JWTGATE_SECRET_FILE"`
	JWKSURL             string        `env:"JWTGATE_JWKS_URL"`
	Audience            []string      `env:"JWTGATE_AUDIENCE"`
	Issuer              string        `env:"JWTGATE_ISSUER"`
	ClockTolerance      time.Duration `env:"JWTGATE_CLOCK_TOLERANCE,default=30s"`
	CredentialsOptional bool          `env:"JWTGATE_CREDENTIALS_OPTIONAL,default=false"`
	Revocation          bool          `env:"JWTGATE_REVOCATION,default=false"`
}

type requestIDKeyType struct{}

var requestIDKey = requestIDKeyType{}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("jwtgate-demo failed", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	var cfg config
	if err := envdecode.Decode(&cfg); err != nil {
		return fmt.Errorf("decode env: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	secret, closeSecret, err := buildSecret(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSecret()

	metrics, err := jwtgate.NewMetrics("demo", prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	gateCfg := jwtgate.Config{
		Secret:              secret,
		CredentialsOptional: cfg.CredentialsOptional,
		Audience:            cfg.Audience,
		Issuer:              cfg.Issuer,
		ClockTolerance:      cfg.ClockTolerance,
		Logger:              logger.Named("jwtgate"),
		Metrics:             metrics,
	}

	if cfg.Revocation {
		checker, err := redisrevoke.DialFromEnv(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = checker.Close() }()
		gateCfg.IsRevoked = checker.IsRevoked
	}

	gate, err := jwtgate.New(gateCfg)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /me", handleMe)

	protect := gate.Unless(jwtgate.UnlessOptions{
		Paths: []jwtgate.PathRule{
			jwtgate.ExactPath("/healthz"),
			jwtgate.ExactPath("/metrics"),
		},
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           withRequestID(logger, protect(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// buildSecret picks the key source from cfg. The returned func releases it.
func buildSecret(ctx context.Context, cfg config, logger *zap.Logger) (jwtgate.SecretProvider, func(), error) {
	noop := func() {}

	switch {
	case cfg.JWKSURL != "":
		s, err := jwtgate.NewJWKSSecret(ctx, cfg.JWKSURL)
		return s, noop, err

	case cfg.SecretFile != "":
		s, err := jwtgate.NewFileSecret(cfg.SecretFile,
			jwtgate.WithFileSecretLogger(logger.Named("secret")),
		)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil

	case cfg.Secret != "":
		return jwtgate.StaticSecret(cfg.Secret), noop, nil
	}

	return nil, noop, errors.New("one of JWTGATE_SECRET, JWTGATE_SECRET_FILE or JWTGATE_JWKS_URL is required")
}

func handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := jwtgate.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "anonymous", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"request_id": r.Context().Value(requestIDKey),
		"user":       user,
	})
}

// withRequestID tags each request with an ID and logs its completion.
func withRequestID(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

		logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
