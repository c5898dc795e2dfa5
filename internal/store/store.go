// Package store persists per-session state and in-progress experiment data.
//
// Experiment data is stored as the collection exchange-format payload, keyed by
// an opaque test identifier. Nothing in the statistics code depends on this package.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no stored value
var ErrNotFound = errors.New("not found")

// Settings are the per-session analysis preferences
type Settings struct {
	Language string  `json:"language" yaml:"language" validate:"oneof=eng rus"`
	Alpha    float64 `json:"alpha" yaml:"alpha" validate:"gt=0,lt=1"`
	Epsilon  float64 `json:"epsilon" yaml:"epsilon" validate:"gt=0,lt=1"`
}

// DefaultSettings returns english, alpha 0.05 and epsilon 0.9
func DefaultSettings() Settings {
	return Settings{
		Language: "eng",
		Alpha:    0.05,
		Epsilon:  0.9,
	}
}

// Session is the state kept for one operator session
type Session struct {
	ID        string    `json:"id"`
	TestID    string    `json:"test_id"` // in-progress test, empty when none
	Settings  Settings  `json:"settings"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionStore keeps sessions by id
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*Session, error)
	PutSession(ctx context.Context, s *Session) error
	DeleteSession(ctx context.Context, id string) error
}

// TestStore keeps exchange-format payloads by test id
type TestStore interface {
	LoadTest(ctx context.Context, testID string) (string, error)
	SaveTest(ctx context.Context, testID, payload string) error
	DeleteTest(ctx context.Context, testID string) error
}

// Store is a complete storage backend
type Store interface {
	SessionStore
	TestStore
	Ping(ctx context.Context) error
	Close() error
}
