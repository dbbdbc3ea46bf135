package jwtgate

import (
	"context"
	"errors"
	"testing"
)

func TestState_SetSingleSegment(t *testing.T) {
	s := State{"user": "old"}

	if err := s.Set("user", map[string]any{"foo": "bar"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, ok := s.Get("user.foo")
	if !ok || v != "bar" {
		t.Fatalf("expected user.foo = bar, got %v", v)
	}
}

func TestState_SetCreatesIntermediateMaps(t *testing.T) {
	s := State{"other": 1}

	if err := s.Set("auth.token", "t"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	auth, ok := s["auth"].(map[string]any)
	if !ok {
		t.Fatalf("expected auth to be a map, got %T", s["auth"])
	}
	if auth["token"] != "t" {
		t.Fatalf("expected auth.token = t, got %v", auth["token"])
	}
	if s["other"] != 1 {
		t.Fatalf("expected other key untouched, got %v", s["other"])
	}
}

func TestState_SetKeepsSiblings(t *testing.T) {
	s := State{"auth": map[string]any{"scheme": "bearer"}}

	if err := s.Set("auth.token", "t"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v, _ := s.Get("auth.scheme"); v != "bearer" {
		t.Fatalf("expected auth.scheme kept, got %v", v)
	}
}

func TestState_SetReplacesNonMapSegment(t *testing.T) {
	s := State{"auth": "string"}

	if err := s.Set("auth.token", "t"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v, _ := s.Get("auth.token"); v != "t" {
		t.Fatalf("expected auth.token = t, got %v", v)
	}
}

func TestState_InvalidPath(t *testing.T) {
	s := State{}

	for _, p := range []string{"", ".", "a.", ".a", "a..b"} {
		if err := s.Set(p, 1); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("path %q: expected ErrInvalidPath, got %v", p, err)
		}
		if _, ok := s.Get(p); ok {
			t.Fatalf("path %q: expected Get to miss", p)
		}
	}
}

func TestState_GetMissing(t *testing.T) {
	s := State{"auth": "string"}

	if _, ok := s.Get("user"); ok {
		t.Fatal("expected missing key")
	}
	if _, ok := s.Get("auth.token"); ok {
		t.Fatal("expected miss through a non-map value")
	}
}

func TestStateFromContext(t *testing.T) {
	if _, ok := StateFromContext(context.Background()); ok {
		t.Fatal("expected no state on a bare context")
	}

	s := State{}
	ctx := WithState(context.Background(), s)

	got, ok := StateFromContext(ctx)
	if !ok {
		t.Fatal("expected state")
	}
	got["k"] = "v"
	if s["k"] != "v" {
		t.Fatal("expected the same state to be returned")
	}
}

func TestUserFromContext(t *testing.T) {
	ctx := WithState(context.Background(), State{"user": "just-a-string"})
	if _, ok := UserFromContext(ctx); ok {
		t.Fatal("expected string payloads not to be returned as claims")
	}

	ctx = WithState(context.Background(), State{"user": map[string]any{"sub": "42"}})
	user, ok := UserFromContext(ctx)
	if !ok || user["sub"] != "42" {
		t.Fatalf("unexpected user: %v", user)
	}
}
