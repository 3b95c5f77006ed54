package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/parlorgames/mystery-engine/pkg/character"
	"github.com/parlorgames/mystery-engine/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu         sync.RWMutex
	sessions       map[uuid.UUID]*state.Session
	characters     map[string]*character.Character
	pingError      error
	saveError      error
	characterError error
}

var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions:   make(map[uuid.UUID]*state.Session),
		characters: make(map[string]*character.Character),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail on SaveSession with the given error
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// SetCharacterError configures the mock to fail on GetCharacter with the given error
func (m *MockStorage) SetCharacterError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characterError = err
}

// AddCharacter registers a character profile with the mock
func (m *MockStorage) AddCharacter(c *character.Character) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characters[c.ID] = c
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveSession mocks saving a session
func (m *MockStorage) SaveSession(ctx context.Context, id uuid.UUID, s *state.Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.sessions[id] = s
	return nil
}

// LoadSession mocks loading a session
func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*state.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, exists := m.sessions[id]
	if !exists {
		return nil, nil // Return nil for not found
	}
	return s, nil
}

// DeleteSession mocks deleting a session
func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// GetCharacter mocks loading a character profile
func (m *MockStorage) GetCharacter(ctx context.Context, characterID string) (*character.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.characterError != nil {
		return nil, m.characterError
	}
	c, exists := m.characters[characterID]
	if !exists {
		return nil, fmt.Errorf("character %s: %w", characterID, ErrNotFound)
	}
	return c, nil
}

// ListCharacters mocks listing character IDs
func (m *MockStorage) ListCharacters(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.characters))
	for id := range m.characters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
