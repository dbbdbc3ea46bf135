package jwtgate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSSecret resolves public keys by "kid" from a JSON Web Key Set.
type JWKSSecret struct {
	kf keyfunc.Keyfunc
}

// NewJWKSSecret fetches the key sets at the given URLs and keeps them
// refreshed in the background until ctx is cancelled.
func NewJWKSSecret(ctx context.Context, urls ...string) (*JWKSSecret, error) {
	if len(urls) == 0 {
		return nil, errors.New("jwtgate: jwks url required")
	}

	kf, err := keyfunc.NewDefaultCtx(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("jwtgate: jwks init failed: %w", err)
	}

	return &JWKSSecret{kf: kf}, nil
}

// NewJWKSSecretFromJSON builds a provider from a static JWK Set document.
func NewJWKSSecretFromJSON(raw []byte) (*JWKSSecret, error) {
	kf, err := keyfunc.NewJWKSetJSON(json.RawMessage(raw))
	if err != nil {
		return nil, fmt.Errorf("jwtgate: invalid jwk set: %w", err)
	}

	return &JWKSSecret{kf: kf}, nil
}

// ResolveSecret implements SecretProvider. The key is chosen by the header's
// "kid"; tokens without one are tried against every key in the set. Lookup
// failures are reported as missing_secret.
func (s *JWKSSecret) ResolveSecret(r *http.Request, header map[string]any, _ any) (any, error) {
	key, err := s.kf.KeyfuncCtx(r.Context())(&jwt.Token{Header: header})
	if err != nil {
		return nil, NewUnauthorizedError(CodeMissingSecret, "Could not find secret for key id.", err)
	}
	return key, nil
}
