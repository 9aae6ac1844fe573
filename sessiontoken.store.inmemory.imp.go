// File: sessiontoken.store.inmemory.imp.go

package sessiontoken

import (
	"context"
	"sync"
	"time"
)

type sessionEntry struct {
	attrs     SessionAttributes
	expiresAt time.Time
}

type challengeEntry struct {
	loginID   string
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of Store.
// Suitable for development, testing, or single-instance deployments.
type MemoryStore struct {
	mu              sync.RWMutex
	sessions        map[string]sessionEntry
	challenges      map[string]challengeEntry
	sessionTTL      time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
}

// NewMemoryStore creates an in-memory store. Non-positive arguments fall
// back to the 7-day session TTL and a one-minute cleanup interval.
func NewMemoryStore(sessionTTL, cleanupInterval time.Duration) *MemoryStore {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	store := &MemoryStore{
		sessions:        make(map[string]sessionEntry),
		challenges:      make(map[string]challengeEntry),
		sessionTTL:      sessionTTL,
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	go store.cleanupLoop()
	return store
}

func (m *MemoryStore) Put(ctx context.Context, sessionID string, attrs SessionAttributes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = sessionEntry{
		attrs:     attrs,
		expiresAt: time.Now().Add(m.sessionTTL),
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (SessionAttributes, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[sessionID]
	if !ok || time.Now().After(entry.expiresAt) {
		return SessionAttributes{}, nil
	}
	return entry.attrs, nil
}

func (m *MemoryStore) Take(ctx context.Context, sessionID string) (SessionAttributes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[sessionID]
	if !ok || time.Now().After(entry.expiresAt) {
		return SessionAttributes{}, nil
	}
	delete(m.sessions, sessionID)
	return entry.attrs, nil
}

func (m *MemoryStore) Remove(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStore) PutChallenge(ctx context.Context, key, loginID, code string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[key] = challengeEntry{
		loginID:   loginID,
		code:      code,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (m *MemoryStore) ChallengeExists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.challenges[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return false, nil
	}
	return entry.code != "" && entry.loginID != "", nil
}

func (m *MemoryStore) ConsumeChallenge(ctx context.Context, key, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.challenges[key]
	if !ok || time.Now().After(entry.expiresAt) || entry.code != code {
		return "", ErrActivationFailed
	}
	if entry.loginID == "" {
		return "", ErrChallengeConsumed
	}
	delete(m.challenges, key)
	return entry.loginID, nil
}

// Close stops the background cleanup goroutine. Safe to call multiple times.
func (m *MemoryStore) Close() {
	m.cleanupOnce.Do(func() {
		close(m.stopCleanup)
	})
}

func (m *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.removeExpired()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *MemoryStore) removeExpired() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, entry := range m.sessions {
		if now.After(entry.expiresAt) {
			delete(m.sessions, id)
		}
	}
	for key, entry := range m.challenges {
		if now.After(entry.expiresAt) {
			delete(m.challenges, key)
		}
	}
}
