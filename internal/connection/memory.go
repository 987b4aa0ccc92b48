package connection

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps connections in process memory. Claiming a phone number is
// atomic with the write.
type MemoryStore struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]*Connection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUser: make(map[uuid.UUID]*Connection)}
}

func (s *MemoryStore) Get(_ context.Context, userID uuid.UUID) (*Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, ok := s.byUser[userID]
	if !ok {
		return nil, ErrNotFound
	}

	return conn.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, conn *Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conn.IsActive {
		for id, other := range s.byUser {
			if id != conn.UserID && other.IsActive && other.PhoneNumber == conn.PhoneNumber {
				return ErrPhoneClaimed
			}
		}
	}

	s.byUser[conn.UserID] = conn.Clone()

	return nil
}

func (s *MemoryStore) FindActiveByPhone(_ context.Context, phone string) (*Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, conn := range s.byUser {
		if conn.IsActive && conn.PhoneNumber == phone {
			return conn.Clone(), nil
		}
	}

	return nil, ErrNotFound
}

func (s *MemoryStore) IncrementProcessed(_ context.Context, userID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.byUser[userID]
	if !ok {
		return ErrNotFound
	}

	conn.TotalProcessed++
	conn.LastSyncTime = &at

	return nil
}

func (s *MemoryStore) UpdateSettings(_ context.Context, userID uuid.UUID, settings Settings, at time.Time) (*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.byUser[userID]
	if !ok {
		return nil, ErrNotFound
	}

	conn.Settings = settings
	conn.Settings.Categories = slices.Clone(settings.Categories)
	conn.Settings.ExcludeKeywords = slices.Clone(settings.ExcludeKeywords)
	conn.UpdatedAt = at

	return conn.Clone(), nil
}

func (s *MemoryStore) SetActive(_ context.Context, userID uuid.UUID, active bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.byUser[userID]
	if !ok {
		return ErrNotFound
	}

	if active {
		for id, other := range s.byUser {
			if id != userID && other.IsActive && other.PhoneNumber == conn.PhoneNumber {
				return ErrPhoneClaimed
			}
		}
	}

	conn.IsActive = active
	conn.UpdatedAt = at

	return nil
}
