package jwtgate

import (
	"net/http"
	"strings"
)

// TokenExtractor returns the raw token presented by a request.
//
// An empty string with a nil error means no token was presented. A returned
// Rejection is passed to the caller unchanged; any other error is reported as
// invalid_token.
type TokenExtractor func(r *http.Request) (string, error)

// FromAuthHeader returns the default extractor reading "Authorization: Bearer <token>".
//
// When credentialsOptional is true a scheme other than Bearer is treated as
// "no token" instead of a credentials_bad_scheme rejection.
func FromAuthHeader(credentialsOptional bool) TokenExtractor {
	return func(r *http.Request) (string, error) {
		header := r.Header.Get(AuthorizationHeader)
		if header == "" {
			return "", nil
		}

		parts := strings.Split(header, " ")
		if len(parts) != 2 {
			return "", NewUnauthorizedError(
				CodeCredentialsBadFormat,
				"Format is Authorization: Bearer [token]",
				nil,
			)
		}

		if parts[0] != BearerScheme {
			if credentialsOptional {
				return "", nil
			}
			return "", NewUnauthorizedError(
				CodeCredentialsBadScheme,
				"Format is Authorization: Bearer [token]",
				nil,
			)
		}

		return parts[1], nil
	}
}

// FromQuery returns an extractor reading the token from a query parameter.
func FromQuery(name string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		return r.URL.Query().Get(name), nil
	}
}

// FromCookie returns an extractor reading the token from a cookie.
func FromCookie(name string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		c, err := r.Cookie(name)
		if err != nil {
			return "", nil
		}
		return c.Value, nil
	}
}

// FirstOf tries each extractor in order and returns the first token found.
// An error from any extractor stops the search.
func FirstOf(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) (string, error) {
		for _, ex := range extractors {
			token, err := ex(r)
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}
		return "", nil
	}
}
