package jwtgate

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON document written for rejected requests.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse maps a gate error to a status and body. Rejections keep their
// own status and code; any other error is reported as a 500.
func ErrorResponse(err error) (int, ErrorBody) {
	if rej, ok := AsRejection(err); ok {
		return rej.Status(), ErrorBody{Code: rej.Code(), Message: rejectionMessage(rej)}
	}
	return http.StatusInternalServerError, ErrorBody{
		Code:    "internal_error",
		Message: http.StatusText(http.StatusInternalServerError),
	}
}

// WriteError is the default ErrorHandler. It answers with the status from
// ErrorResponse and a JSON ErrorBody. 401 responses advertise the Bearer
// scheme in WWW-Authenticate.
func WriteError(w http.ResponseWriter, _ *http.Request, err error) {
	status, body := ErrorResponse(err)

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", BearerScheme)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Middleware returns middleware that enforces authentication.
//
// Every request runs through Authenticate. CORS preflights announcing an
// Authorization header, and tokenless requests when CredentialsOptional is
// set, reach next unchanged. Requests with a valid token reach next exactly
// once, carrying a State with the verified payload at the configured
// Property (see StateFromContext and UserFromContext).
//
// Rejected requests never reach next. The configured ErrorHandler answers
// them instead; the default, WriteError, sends the rejection's status with a
// JSON ErrorBody and a 500 for errors that are not Rejections.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authed, err := g.Authenticate(r)
		if err != nil {
			g.errorHandler(w, r, err)
			return
		}

		next.ServeHTTP(w, authed)
	})
}

// Unless returns the gate middleware wrapped so that requests matching opts
// skip authentication entirely.
//
// Excluded requests reach next as they arrived: the token is neither read
// nor verified, and no State is attached even when a valid token is present.
// Everything else goes through Middleware. Exclusions are counted under the
// "excluded" outcome when Metrics is configured.
//
//	protect := gate.Unless(jwtgate.UnlessOptions{
//		Paths: []jwtgate.PathRule{jwtgate.ExactPath("/healthz")},
//	})
//	http.ListenAndServe(":8080", protect(mux))
func (g *Gate) Unless(opts UnlessOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		gated := g.Middleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.Excluded(r, opts) {
				next.ServeHTTP(w, r)
				return
			}
			gated.ServeHTTP(w, r)
		})
	}
}

// Excluded reports whether opts exempts r from the gate and records the
// exclusion. Adapters for other routers call it before Authenticate.
func (g *Gate) Excluded(r *http.Request, opts UnlessOptions) bool {
	if !opts.Excludes(r) {
		return false
	}
	g.metrics.observe(OutcomeExcluded)
	return true
}
