package jwtgate

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Gate authenticates requests carrying a bearer JWT.
type Gate struct {
	secret              SecretProvider
	getToken            TokenExtractor
	isRevoked           RevocationChecker
	credentialsOptional bool
	property            string

	verifier     *verifier
	logger       *zap.Logger
	metrics      *Metrics
	errorHandler ErrorHandler
}

// New validates cfg and returns a Gate.
//
// It returns ErrSecretRequired when cfg.Secret is nil and ErrInvalidPath when
// cfg.Property has an empty segment. Unset fields take their defaults: the
// payload is stored under "user", tokens are read from the Authorization
// header with the Bearer scheme, rejections are written by WriteError and
// nothing is logged.
//
// A Gate is safe for concurrent use. Build it once at startup and share it
// across handlers:
//
//	gate, err := jwtgate.New(jwtgate.Config{
//		Secret:   jwtgate.StaticSecret(os.Getenv("JWT_SECRET")),
//		Audience: []string{"api"},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	http.Handle("/api/", gate.Middleware(apiHandler))
func New(cfg Config) (*Gate, error) {
	if cfg.Secret == nil {
		return nil, ErrSecretRequired
	}

	property := cfg.Property
	if property == "" {
		property = DefaultProperty
	}
	if _, err := splitPath(property); err != nil {
		return nil, err
	}

	getToken := cfg.GetToken
	if getToken == nil {
		getToken = FromAuthHeader(cfg.CredentialsOptional)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	errorHandler := cfg.ErrorHandler
	if errorHandler == nil {
		errorHandler = WriteError
	}

	return &Gate{
		secret:              cfg.Secret,
		getToken:            getToken,
		isRevoked:           cfg.IsRevoked,
		credentialsOptional: cfg.CredentialsOptional,
		property:            property,
		verifier:            newVerifier(cfg),
		logger:              logger,
		metrics:             cfg.Metrics,
		errorHandler:        errorHandler,
	}, nil
}

// Authenticate runs the gate for r.
//
// The token is read with the configured extractor and decoded without
// verification only to pick the key: the header and payload are handed to
// the SecretProvider and nothing else. The token is then verified against
// that key and the configured algorithms, audience, issuer, subject and
// clock tolerance. IsRevoked is asked last and only about verified payloads.
//
// Rejections raised by the gate are *UnauthorizedError values with one of
// the Code constants. Rejections and plain errors from a SecretProvider or
// RevocationChecker are returned unchanged.
//
// On success it returns the request to continue with: r itself when the
// request was let through without a token, or a copy whose context carries a
// State holding the verified payload. On failure it returns a nil request and
// the error; the request must not proceed.
func (g *Gate) Authenticate(r *http.Request) (*http.Request, error) {
	if isPreflight(r) {
		g.metrics.observe(OutcomePreflight)
		return r, nil
	}

	token, err := g.getToken(r)
	if err != nil {
		if _, ok := AsRejection(err); !ok {
			err = NewUnauthorizedError(CodeInvalidToken, err.Error(), err)
		}
		return nil, g.fail(r, err)
	}

	if token == "" {
		if g.credentialsOptional {
			g.metrics.observe(OutcomeAnonymous)
			return r, nil
		}
		return nil, g.fail(r, NewUnauthorizedError(
			CodeCredentialsRequired,
			"No authorization token was found",
			nil,
		))
	}

	start := time.Now()

	// The unverified header and payload only select the key.
	header, unverified, err := g.verifier.decode(token)
	if err != nil {
		return nil, g.fail(r, err)
	}

	key, err := g.secret.ResolveSecret(r, header, unverified)
	if err != nil {
		return nil, g.fail(r, err)
	}

	verified, err := g.verifier.verify(token, key)
	g.metrics.observeVerify(start)
	if err != nil {
		return nil, g.fail(r, err)
	}

	if g.isRevoked != nil {
		revoked, err := g.isRevoked(r, verified)
		if err != nil {
			return nil, g.fail(r, err)
		}
		if revoked {
			return nil, g.fail(r, NewUnauthorizedError(CodeRevokedToken, revokedMessage, nil))
		}
	}

	authed, err := g.attach(r, verified)
	if err != nil {
		return nil, g.fail(r, err)
	}

	g.metrics.observe(OutcomeAuthenticated)
	return authed, nil
}

// attach stores payload at the configured property of the request State,
// installing a new State on the request context when there is none.
func (g *Gate) attach(r *http.Request, payload any) (*http.Request, error) {
	state, ok := StateFromContext(r.Context())
	if !ok {
		state = State{}
		r = r.WithContext(WithState(r.Context(), state))
	}
	if err := state.Set(g.property, payload); err != nil {
		return nil, err
	}
	return r, nil
}

func (g *Gate) fail(r *http.Request, err error) error {
	rej, ok := AsRejection(err)
	if !ok {
		g.metrics.observe(outcomeError)
		g.logger.Debug("request rejected by extension point",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		return err
	}

	g.metrics.observe(rejectionOutcome(rej.Code()))
	g.logger.Debug("request rejected",
		zap.String("path", r.URL.Path),
		zap.String("code", rej.Code()),
		zap.String("message", rejectionMessage(rej)),
	)
	return err
}

// isPreflight reports whether r is a CORS preflight announcing an
// Authorization header. Browsers never send credentials on preflights.
func isPreflight(r *http.Request) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	for _, value := range r.Header.Values(preflightHeader) {
		for _, name := range strings.Split(value, ",") {
			if strings.EqualFold(strings.TrimSpace(name), "authorization") {
				return true
			}
		}
	}
	return false
}
