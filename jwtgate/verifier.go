package jwtgate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// payload decodes a JWT payload that is either a JSON object of claims or,
// for legacy tokens, a bare JSON string.
type payload struct {
	value  any
	claims jwt.MapClaims
}

func (p *payload) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch t := v.(type) {
	case map[string]any:
		p.claims = jwt.MapClaims(t)
		p.value = t
	case string:
		p.value = t
	default:
		return errors.New("payload is neither an object nor a string")
	}
	return nil
}

// String payloads carry no registered claims; the nil MapClaims getters
// report every claim as absent.

func (p *payload) GetExpirationTime() (*jwt.NumericDate, error) { return p.claims.GetExpirationTime() }
func (p *payload) GetIssuedAt() (*jwt.NumericDate, error)       { return p.claims.GetIssuedAt() }
func (p *payload) GetNotBefore() (*jwt.NumericDate, error)      { return p.claims.GetNotBefore() }
func (p *payload) GetIssuer() (string, error)                   { return p.claims.GetIssuer() }
func (p *payload) GetSubject() (string, error)                  { return p.claims.GetSubject() }
func (p *payload) GetAudience() (jwt.ClaimStrings, error)       { return p.claims.GetAudience() }

type verifier struct {
	parser   *jwt.Parser
	audience []string
	issuer   string
	subject  string
}

func newVerifier(cfg Config) *verifier {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(cfg.ClockTolerance),
	}
	if len(cfg.Algorithms) > 0 {
		opts = append(opts, jwt.WithValidMethods(cfg.Algorithms))
	}
	if len(cfg.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(cfg.Audience...))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Subject != "" {
		opts = append(opts, jwt.WithSubject(cfg.Subject))
	}

	return &verifier{
		parser:   jwt.NewParser(opts...),
		audience: cfg.Audience,
		issuer:   cfg.Issuer,
		subject:  cfg.Subject,
	}
}

// decode reads the header and payload without checking the signature. The
// result is only fit for choosing a verification key.
func (v *verifier) decode(tokenString string) (map[string]any, any, error) {
	p := &payload{}
	token, _, err := v.parser.ParseUnverified(tokenString, p)
	if err != nil {
		return nil, nil, v.reject(err)
	}
	return token.Header, p.value, nil
}

// verify checks the signature against key and validates the registered
// claims. It returns the payload as map[string]any or string.
func (v *verifier) verify(tokenString string, key any) (any, error) {
	p := &payload{}
	token, err := v.parser.ParseWithClaims(tokenString, p, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return nil, v.reject(err)
	}
	if !token.Valid {
		return nil, NewUnauthorizedError(CodeInvalidToken, "invalid token", nil)
	}
	return p.value, nil
}

func (v *verifier) reject(err error) *UnauthorizedError {
	return NewUnauthorizedError(CodeInvalidToken, v.message(err), err)
}

// message renders a parser error the way clients of the gate expect to see it.
func (v *verifier) message(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		if strings.Contains(err.Error(), "invalid number of segments") {
			return "jwt malformed"
		}
		return "invalid token"

	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "invalid algorithm"

	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		if strings.Contains(err.Error(), "signing method") {
			return "invalid algorithm"
		}
		return "invalid signature"

	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return "jwt not active"

	case errors.Is(err, jwt.ErrTokenExpired):
		return "jwt expired"

	case errors.Is(err, jwt.ErrTokenInvalidAudience), missingClaim(err, "aud"):
		return "jwt audience invalid. expected: " + strings.Join(v.audience, " or ")

	case errors.Is(err, jwt.ErrTokenInvalidIssuer), missingClaim(err, "iss"):
		return "jwt issuer invalid. expected: " + v.issuer

	case errors.Is(err, jwt.ErrTokenInvalidSubject), missingClaim(err, "sub"):
		return "jwt subject invalid. expected: " + v.subject

	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "jwt issued in the future"
	}

	return fmt.Sprintf("invalid token: %v", err)
}

func missingClaim(err error, claim string) bool {
	return errors.Is(err, jwt.ErrTokenRequiredClaimMissing) &&
		strings.Contains(err.Error(), claim+" claim is required")
}
