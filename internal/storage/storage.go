package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/parlorgames/mystery-engine/pkg/character"
	"github.com/parlorgames/mystery-engine/pkg/state"
)

// ErrNotFound marks a resource that does not exist, as opposed to one that
// failed to load. Callers distinguish the two with errors.Is.
var ErrNotFound = errors.New("not found")

// Storage defines a unified interface for all storage operations.
// It combines session persistence (Redis) with resource loading (filesystem).
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Session operations (Redis-backed)
	SaveSession(ctx context.Context, id uuid.UUID, s *state.Session) error
	LoadSession(ctx context.Context, id uuid.UUID) (*state.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// Character operations (filesystem-backed)
	GetCharacter(ctx context.Context, characterID string) (*character.Character, error)
	ListCharacters(ctx context.Context) ([]string, error)
}
