// Package session provides the per-session key/value storage the thanks
// flow keeps its dedup cache in. A Manager hands out a Store bound to one
// session id; the Store is read-then-written by a single request at a time.
package session

import (
	"context"
	"errors"
)

// ErrNoSession is returned when an operation needs a session and has none.
var ErrNoSession = errors.New("no session")

// Store is the key/value view of one session. Values are ordered string
// lists; Get reports whether the key was present.
type Store interface {
	Get(ctx context.Context, key string) ([]string, bool, error)
	Set(ctx context.Context, key string, values []string) error
}

// Manager opens session-scoped stores.
type Manager interface {
	Open(sessionID string) Store
	Close() error
}

func clone(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
