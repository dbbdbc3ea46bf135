package jwtgate

import (
	"net/http"
)

// SecretProvider resolves the key a token is verified against.
//
// header and payload come from an unverified parse of the token. They may
// only be used to pick a key (for example by "kid" or "iss"); nothing read
// from them is trusted until the signature has been checked.
//
// An error returned by ResolveSecret reaches the caller unchanged, so
// providers can signal their own rejection codes.
type SecretProvider interface {
	ResolveSecret(r *http.Request, header map[string]any, payload any) (any, error)
}

// StaticSecret is an HMAC secret given as a string.
type StaticSecret string

// ResolveSecret implements SecretProvider.
func (s StaticSecret) ResolveSecret(*http.Request, map[string]any, any) (any, error) {
	return []byte(s), nil
}

// BinarySecret is an HMAC secret given as raw bytes.
type BinarySecret []byte

// ResolveSecret implements SecretProvider.
func (s BinarySecret) ResolveSecret(*http.Request, map[string]any, any) (any, error) {
	return []byte(s), nil
}

// PublicKey is a verification key used as is, such as *rsa.PublicKey,
// *ecdsa.PublicKey or ed25519.PublicKey.
type PublicKey struct {
	Key any
}

// ResolveSecret implements SecretProvider.
func (k PublicKey) ResolveSecret(*http.Request, map[string]any, any) (any, error) {
	return k.Key, nil
}

// HeaderPayloadFunc resolves a key from the token alone, without access to
// the request.
type HeaderPayloadFunc func(header map[string]any, payload any) (any, error)

// ResolveSecret implements SecretProvider.
func (f HeaderPayloadFunc) ResolveSecret(_ *http.Request, header map[string]any, payload any) (any, error) {
	return normalizeKey(f(header, payload))
}

// SecretFunc resolves a key with access to the request, which allows tenant
// scoped lookups. Blocking implementations should honour r.Context().
type SecretFunc func(r *http.Request, header map[string]any, payload any) (any, error)

// ResolveSecret implements SecretProvider.
func (f SecretFunc) ResolveSecret(r *http.Request, header map[string]any, payload any) (any, error) {
	return normalizeKey(f(r, header, payload))
}

// IssuerSecrets maps an issuer ("iss" claim) to its key. Tokens from an
// unknown issuer are rejected with missing_secret.
type IssuerSecrets map[string]any

// ResolveSecret implements SecretProvider.
func (m IssuerSecrets) ResolveSecret(_ *http.Request, _ map[string]any, payload any) (any, error) {
	claims, _ := payload.(map[string]any)
	iss, _ := claims["iss"].(string)

	key, ok := m[iss]
	if !ok {
		return nil, NewUnauthorizedError(CodeMissingSecret, "Could not find secret for issuer.", nil)
	}
	return normalizeKey(key, nil)
}

// normalizeKey converts string secrets returned by callbacks to the []byte
// form the HMAC verifier expects.
func normalizeKey(key any, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if s, ok := key.(string); ok {
		return []byte(s), nil
	}
	return key, nil
}
