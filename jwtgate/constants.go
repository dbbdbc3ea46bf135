package jwtgate

import "time"

const (
	// DefaultProperty is the state bag path the verified payload is attached to
	// when Config.Property is empty.
	DefaultProperty = "user"

	// AuthorizationHeader is the header read by the default token extractor.
	AuthorizationHeader = "Authorization"

	// BearerScheme is the only scheme accepted by the default token extractor.
	// The comparison is case-sensitive.
	BearerScheme = "Bearer"

	// preflightHeader carries the list of headers a browser intends to send
	// on the actual request of a CORS preflight.
	preflightHeader = "Access-Control-Request-Headers"

	// revokedMessage is the message of every revoked_token rejection.
	revokedMessage = "The token has been revoked."

	// defaultDebounce is how long FileSecret waits for writes to settle
	// before reloading the secret.
	defaultDebounce = 100 * time.Millisecond
)
