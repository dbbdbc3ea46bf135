package jwtgate

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RevocationChecker reports whether an otherwise valid token must still be
// rejected. It only ever receives payloads whose signature and claims have
// been verified. A returned error reaches the caller unchanged.
type RevocationChecker func(r *http.Request, payload any) (bool, error)

// ErrorHandler writes the response for a request the gate rejected.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Config defines the configuration of a Gate.
//
// Only Secret is required. The Gate does not modify Config after New returns.
type Config struct {
	// Secret resolves the key tokens are verified against.
	//
	// Use StaticSecret or BinarySecret for a fixed HMAC secret, PublicKey for
	// asymmetric keys, SecretFunc or HeaderPayloadFunc for lookups, and
	// IssuerSecrets, JWKSSecret or FileSecret for the common cases.
	Secret SecretProvider

	// CredentialsOptional lets requests without a token through
	// unauthenticated. A presented token that fails verification is rejected
	// regardless.
	CredentialsOptional bool

	// Property is the dotted State path the verified payload is stored at.
	// Defaults to "user". "auth.token" stores it at State["auth"]["token"].
	Property string

	// GetToken overrides how the token is read from the request.
	// Defaults to the Authorization header with the Bearer scheme.
	//
	// An empty token with a nil error means no credentials were presented.
	// A Rejection is returned to the caller unchanged, and any other error is
	// reported as invalid_token. FirstOf combines several extractors, e.g.
	// FirstOf(FromAuthHeader(false), FromCookie("access_token")).
	GetToken TokenExtractor

	// IsRevoked is consulted after successful verification.
	//
	// Returning true rejects the request with revoked_token. A returned error
	// aborts the request unchanged, so a Rejection keeps its own code and
	// status while a plain error becomes a 500 in WriteError.
	// redisrevoke.Checker.IsRevoked is a ready-made implementation.
	IsRevoked RevocationChecker

	// Audience lists accepted "aud" values. A token must carry one of them.
	Audience []string

	// Issuer is the required "iss" value.
	Issuer string

	// Subject is the required "sub" value.
	Subject string

	// Algorithms restricts accepted signing algorithms, e.g. "HS256", "RS256".
	Algorithms []string

	// ClockTolerance is the leeway applied to exp, nbf and iat.
	ClockTolerance time.Duration

	// Logger receives rejection details at debug level. Defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics records request outcomes when set.
	Metrics *Metrics

	// ErrorHandler answers rejected requests in Middleware.
	// Defaults to WriteError.
	ErrorHandler ErrorHandler
}
