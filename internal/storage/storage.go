package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwebster45206/archetype-engine/pkg/state"
)

// SessionStore persists session state as one opaque blob per session.
type SessionStore interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// SaveSession stores st under its ID, refreshing its expiry
	SaveSession(ctx context.Context, st *state.SessionState) error

	// LoadSession returns nil, nil when the session does not exist
	LoadSession(ctx context.Context, id uuid.UUID) (*state.SessionState, error)

	// DeleteSession removes a session; deleting a missing session is not an error
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// SessionLocker guards a session against concurrent turn submissions.
type SessionLocker interface {
	// TryLock takes the session's in-flight lock without waiting. When ok is
	// false another request holds it. release is safe to call more than once.
	TryLock(ctx context.Context, id uuid.UUID) (release func(), ok bool, err error)
}

// Storage is everything the API needs from the persistence layer.
type Storage interface {
	SessionStore
	SessionLocker
}
