package redisrevoke

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexlup06-authgate/jwtgate-go/jwtgate"
)

func newTestChecker(t *testing.T) (*Checker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, ""), mr
}

func TestChecker_IsRevoked(t *testing.T) {
	checker, mr := newTestChecker(t)

	revoked := uuid.NewString()
	require.NoError(t, mr.Set(DefaultKeyPrefix+revoked, "1"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	got, err := checker.IsRevoked(req, map[string]any{"jti": revoked})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = checker.IsRevoked(req, map[string]any{"jti": uuid.NewString()})
	require.NoError(t, err)
	assert.False(t, got)
}

func TestChecker_IsRevoked_NoJTI(t *testing.T) {
	checker, _ := newTestChecker(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	for _, payload := range []any{
		map[string]any{"foo": "bar"},
		map[string]any{"jti": 1234},
		"string-payload",
	} {
		got, err := checker.IsRevoked(req, payload)
		require.NoError(t, err)
		assert.False(t, got, "payload %v", payload)
	}
}

func TestChecker_CustomPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	checker := New(client, "tenant-a:revoked:")
	require.NoError(t, mr.Set("tenant-a:revoked:1234", "1"))
	require.NoError(t, mr.Set(DefaultKeyPrefix+"5678", "1"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	got, err := checker.IsRevoked(req, map[string]any{"jti": "1234"})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = checker.IsRevoked(req, map[string]any{"jti": "5678"})
	require.NoError(t, err)
	assert.False(t, got)
}

func TestChecker_IsRevoked_RedisDown(t *testing.T) {
	checker, mr := newTestChecker(t)
	mr.Close()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := checker.IsRevoked(req, map[string]any{"jti": "1234"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redisrevoke: lookup")
}

func TestChecker_WithGate(t *testing.T) {
	checker, mr := newTestChecker(t)
	require.NoError(t, mr.Set(DefaultKeyPrefix+"1234", "1"))

	secret := []byte("shhhhhh")
	gate, err := jwtgate.New(jwtgate.Config{
		Secret:    jwtgate.BinarySecret(secret),
		IsRevoked: checker.IsRevoked,
	})
	require.NoError(t, err)

	sign := func(jti string) *http.Request {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"jti": jti, "foo": "bar"}).SignedString(secret)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	_, err = gate.Authenticate(sign("1234"))
	rej, ok := jwtgate.AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, jwtgate.CodeRevokedToken, rej.Code())
	assert.Equal(t, http.StatusUnauthorized, rej.Status())

	authed, err := gate.Authenticate(sign("1233"))
	require.NoError(t, err)
	user, ok := jwtgate.UserFromContext(authed.Context())
	require.True(t, ok)
	assert.Equal(t, "bar", user["foo"])
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)

	checker, err := Dial(context.Background(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = checker.Close() })

	assert.Equal(t, DefaultKeyPrefix, checker.keyPrefix)
}

func TestDial_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Dial(context.Background(), Config{Addr: addr})
	assert.Error(t, err)
}

func TestDialFromEnv(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REVOCATION_REDIS_ADDR", mr.Addr())
	t.Setenv("REVOCATION_KEY_PREFIX", "env:revoked:")

	checker, err := DialFromEnv(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = checker.Close() })

	assert.Equal(t, "env:revoked:", checker.keyPrefix)
}
