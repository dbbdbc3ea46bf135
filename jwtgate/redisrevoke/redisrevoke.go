// Package redisrevoke provides a jwtgate.RevocationChecker backed by Redis.
//
// A token is revoked when the key <prefix><jti> exists. Populating and expiring
// those keys is left to whatever issues revocations.
package redisrevoke

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix is prepended to the jti to form the Redis key.
const DefaultKeyPrefix = "jwtgate:revoked:"

// Config for a Redis-backed Checker. Defaults can be loaded via envdecode.
type Config struct {
	// Addr like "localhost:6379". ENV: REVOCATION_REDIS_ADDR
	Addr string `env:"REVOCATION_REDIS_ADDR,default=localhost:6379"`
	// Password for AUTH. ENV: REVOCATION_REDIS_PASSWORD
	Password string `env:"REVOCATION_REDIS_PASSWORD"`
	// DB index. ENV: REVOCATION_REDIS_DB
	DB int `env:"REVOCATION_REDIS_DB,default=0"`
	// KeyPrefix for revocation keys. ENV: REVOCATION_KEY_PREFIX
	KeyPrefix string `env:"REVOCATION_KEY_PREFIX,default=jwtgate:revoked:"`
}

// Checker looks up token IDs in Redis.
type Checker struct {
	client    redis.UniversalClient
	keyPrefix string
}

// New wraps an existing client. An empty prefix uses DefaultKeyPrefix.
func New(client redis.UniversalClient, keyPrefix string) *Checker {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Checker{client: client, keyPrefix: keyPrefix}
}

// Dial connects to Redis as described by cfg and verifies the connection.
func Dial(ctx context.Context, cfg Config) (*Checker, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}

	cl := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("redisrevoke: ping: %w", err)
	}

	return New(cl, cfg.KeyPrefix), nil
}

// DialFromEnv builds a Checker using envdecode to populate Config.
func DialFromEnv(ctx context.Context) (*Checker, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("redisrevoke: decode env: %w", err)
	}
	return Dial(ctx, cfg)
}

// Close closes the Redis client.
func (c *Checker) Close() error { return c.client.Close() }

// IsRevoked implements jwtgate.RevocationChecker. Payloads without a string
// "jti" claim are never revoked.
func (c *Checker) IsRevoked(r *http.Request, payload any) (bool, error) {
	claims, ok := payload.(map[string]any)
	if !ok {
		return false, nil
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return false, nil
	}

	n, err := c.client.Exists(r.Context(), c.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redisrevoke: lookup %q: %w", jti, err)
	}
	return n > 0, nil
}

func (c *Checker) key(jti string) string { return c.keyPrefix + jti }
