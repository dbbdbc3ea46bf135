package jwtgate

import (
	"context"
	"strings"
)

type stateKeyType struct{}

var stateKey = stateKeyType{}

// State is the per-request attachment bag the gate writes the verified
// payload into. Handlers further down the chain read it with StateFromContext.
type State map[string]any

// WithState returns a context carrying s. Middleware that runs before the gate
// can install its own State so that values it stores survive attachment.
func WithState(ctx context.Context, s State) context.Context {
	return context.WithValue(ctx, stateKey, s)
}

// StateFromContext returns the State attached to ctx.
//
// The boolean return value is false if no State has been attached, which is
// the case for requests the gate skipped or let through without a token.
func StateFromContext(ctx context.Context) (State, bool) {
	s, ok := ctx.Value(stateKey).(State)
	return s, ok
}

// PayloadFromContext returns the value stored at path in the request State.
func PayloadFromContext(ctx context.Context, path string) (any, bool) {
	s, ok := StateFromContext(ctx)
	if !ok {
		return nil, false
	}
	return s.Get(path)
}

// UserFromContext returns the verified claims stored at DefaultProperty.
// It returns false for string payloads and unauthenticated requests.
func UserFromContext(ctx context.Context) (map[string]any, bool) {
	v, ok := PayloadFromContext(ctx, DefaultProperty)
	if !ok {
		return nil, false
	}
	claims, ok := v.(map[string]any)
	return claims, ok
}

// Set stores v at the dotted path. Intermediate maps are created as needed and
// replace any non-map value found on the way; the last segment is overwritten.
func (s State) Set(path string, v any) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}

	cur := map[string]any(s)
	for _, seg := range segments[:len(segments)-1] {
		next, ok := asMap(cur[seg])
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	cur[segments[len(segments)-1]] = v
	return nil
}

// Get returns the value at the dotted path.
func (s State) Get(path string) (any, bool) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, false
	}

	cur := map[string]any(s)
	for i, seg := range segments {
		v, ok := cur[seg]
		if !ok {
			return nil, false
		}
		if i == len(segments)-1 {
			return v, true
		}
		if cur, ok = asMap(v); !ok {
			return nil, false
		}
	}
	return nil, false
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	segments := strings.Split(path, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, ErrInvalidPath
		}
	}
	return segments, nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case State:
		return m, true
	}
	return nil, false
}
