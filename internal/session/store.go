// Package session holds pending food analyses awaiting the user's
// save/discard decision.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/lipo-out/linebot/internal/model"
	"github.com/lipo-out/linebot/pkg/metrics"
)

// Store keeps at most one pending analysis per user.
type Store interface {
	// Put stores a pending analysis, unconditionally replacing any existing
	// entry for the user. A new image analysis cancels an unconfirmed prior
	// one.
	Put(userID string, analysis *model.FoodAnalysis)

	// Take atomically reads and removes the user's entry. The second return
	// is false when no live entry exists.
	Take(userID string) (*model.FoodAnalysis, bool)

	// Peek reads the user's entry without removing it.
	Peek(userID string) (*model.FoodAnalysis, bool)

	// Remove deletes the user's entry only while it still holds analysis,
	// so a slow save cannot discard a newer photo's entry.
	Remove(userID string, analysis *model.FoodAnalysis)

	// Len returns the number of live entries.
	Len() int
}

type entry struct {
	analysis  *model.FoodAnalysis
	expiresAt time.Time
}

// MemoryStore is an in-memory Store with per-entry TTL. Entries survive only
// for the lifetime of the process; multi-instance deployments need an
// external shared store behind the same interface.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
}

// NewMemoryStore creates a store whose entries expire after ttl. A zero ttl
// disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
}

// Put stores a pending analysis for the user.
func (s *MemoryStore) Put(userID string, analysis *model.FoodAnalysis) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{analysis: analysis}
	if s.ttl > 0 {
		e.expiresAt = time.Now().Add(s.ttl)
	}
	s.entries[userID] = e
	metrics.PendingSessions.Set(float64(len(s.entries)))
}

// Take reads and removes the user's entry. Expired entries count as absent
// even if the janitor has not swept them yet.
func (s *MemoryStore) Take(userID string) (*model.FoodAnalysis, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return nil, false
	}
	delete(s.entries, userID)
	metrics.PendingSessions.Set(float64(len(s.entries)))

	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.analysis, true
}

// Peek reads the user's entry without removing it. Expired entries read as
// absent; the janitor disposes of them.
func (s *MemoryStore) Peek(userID string) (*model.FoodAnalysis, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.analysis, true
}

// Remove deletes the user's entry only if it still holds analysis.
func (s *MemoryStore) Remove(userID string, analysis *model.FoodAnalysis) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[userID]; ok && e.analysis == analysis {
		delete(s.entries, userID)
		metrics.PendingSessions.Set(float64(len(s.entries)))
	}
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Janitor periodically sweeps expired entries until ctx is canceled.
func (s *MemoryStore) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, e := range s.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(s.entries, userID)
		}
	}
	metrics.PendingSessions.Set(float64(len(s.entries)))
}
