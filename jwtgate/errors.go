package jwtgate

import (
	"errors"
	"net/http"
)

// Rejection codes raised by the gate itself.
const (
	CodeCredentialsRequired  = "credentials_required"
	CodeCredentialsBadFormat = "credentials_bad_format"
	CodeCredentialsBadScheme = "credentials_bad_scheme"
	CodeInvalidToken         = "invalid_token"
	CodeRevokedToken         = "revoked_token"

	// CodeMissingSecret is raised by IssuerSecrets when no key is registered
	// for the token's issuer.
	CodeMissingSecret = "missing_secret"
)

var (
	ErrSecretRequired = errors.New("jwtgate: secret should be set")
	ErrInvalidPath    = errors.New("jwtgate: property path is invalid")
)

// Rejection is an error that carries a machine readable code and the HTTP
// status the host should answer with.
//
// Token extractors, secret providers and revocation checkers may return their
// own Rejection implementations; the gate passes them through untouched.
type Rejection interface {
	error
	Code() string
	Status() int
}

// UnauthorizedError is the Rejection raised by the gate.
type UnauthorizedError struct {
	code    string
	message string
	inner   error
}

// NewUnauthorizedError returns a 401 rejection with the given code and message.
// inner may be nil.
func NewUnauthorizedError(code, message string, inner error) *UnauthorizedError {
	return &UnauthorizedError{code: code, message: message, inner: inner}
}

func (e *UnauthorizedError) Error() string {
	return "UnauthorizedError: " + e.message
}

// Code returns the rejection code, e.g. "invalid_token".
func (e *UnauthorizedError) Code() string { return e.code }

// Message returns the human readable message without the error label.
func (e *UnauthorizedError) Message() string { return e.message }

// Status always returns 401.
func (e *UnauthorizedError) Status() int { return http.StatusUnauthorized }

// Unwrap returns the error reported by the verifier, if any.
func (e *UnauthorizedError) Unwrap() error { return e.inner }

// AsRejection reports whether err is or wraps a Rejection.
func AsRejection(err error) (Rejection, bool) {
	var r Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// rejectionMessage returns the label-free message of a rejection. Rejections
// that do not expose a Message method fall back to Error.
func rejectionMessage(r Rejection) string {
	if m, ok := r.(interface{ Message() string }); ok {
		return m.Message()
	}
	return r.Error()
}
