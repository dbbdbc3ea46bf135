package ginjwt

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/alexlup06-authgate/jwtgate-go/jwtgate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret-key-for-unit-tests"

func newRouter(t *testing.T, cfg jwtgate.Config, opts *jwtgate.UnlessOptions) *gin.Engine {
	t.Helper()

	gate, err := jwtgate.New(cfg)
	if err != nil {
		t.Fatalf("failed to create gate: %v", err)
	}

	mw := New(gate)
	if opts != nil {
		mw = Unless(gate, *opts)
	}

	r := gin.New()
	r.Use(mw)
	r.GET("/me", func(c *gin.Context) {
		user, ok := Payload(c, "user")
		if !ok {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		c.JSON(http.StatusOK, user)
	})
	r.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func TestNew(t *testing.T) {
	t.Parallel()

	r := newRouter(t, jwtgate.Config{Secret: jwtgate.StaticSecret(testSecret)}, nil)

	t.Run("valid token sets user", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"user_id": "user-123"}))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body["user_id"] != "user-123" {
			t.Errorf("user_id = %v, want %q", body["user_id"], "user-123")
		}
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		var body jwtgate.ErrorBody
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body.Code != jwtgate.CodeCredentialsRequired {
			t.Errorf("code = %q, want %q", body.Code, jwtgate.CodeCredentialsRequired)
		}
		if got := w.Header().Get("WWW-Authenticate"); got != "Bearer" {
			t.Errorf("WWW-Authenticate = %q, want %q", got, "Bearer")
		}
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		t.Parallel()

		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "x"}).SignedString([]byte("wrong"))
		if err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		var body jwtgate.ErrorBody
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if w.Code != http.StatusUnauthorized || body.Message != "invalid signature" {
			t.Errorf("got %d %+v, want 401 invalid signature", w.Code, body)
		}
	})
}

func TestNew_CredentialsOptional(t *testing.T) {
	t.Parallel()

	r := newRouter(t, jwtgate.Config{
		Secret:              jwtgate.StaticSecret(testSecret),
		CredentialsOptional: true,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["anonymous"] != true {
		t.Errorf("body = %v, want anonymous", body)
	}
}

func TestUnless(t *testing.T) {
	t.Parallel()

	r := newRouter(t,
		jwtgate.Config{Secret: jwtgate.StaticSecret(testSecret)},
		&jwtgate.UnlessOptions{Paths: []jwtgate.PathRule{jwtgate.ExactPath("/health")}},
	)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Authorization", "garbage")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestUnless_CountsExclusions(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := jwtgate.NewMetrics("ginjwt", reg)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	r := newRouter(t,
		jwtgate.Config{Secret: jwtgate.StaticSecret(testSecret), Metrics: m},
		&jwtgate.UnlessOptions{Paths: []jwtgate.PathRule{jwtgate.ExactPath("/health")}},
	)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	want := `
# HELP ginjwt_jwtgate_requests_total Total number of requests seen by the gate, by outcome
# TYPE ginjwt_jwtgate_requests_total counter
ginjwt_jwtgate_requests_total{outcome="credentials_required"} 1
ginjwt_jwtgate_requests_total{outcome="excluded"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "ginjwt_jwtgate_requests_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}
