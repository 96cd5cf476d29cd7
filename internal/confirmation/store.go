// Package confirmation implements the hard gate between "the validator
// decided what to do" and "fulfillment is allowed to act on it". A pending
// PipelineState is checked in with a one-time token; fulfillment may only
// proceed after that exact token is consumed exactly once, and a consumed
// or expired token can never be reused. The clock is injectable so tests
// can advance past the TTL without sleeping in real time.
package confirmation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"

	"github.com/arogya-path/kernel/internal/domain"
)

// DefaultTTL is how long a pending confirmation stays valid before a sweep
// removes it and a Consume call returns ErrExpired.
const DefaultTTL = 5 * time.Minute

// Store holds pending confirmations keyed by session ID, one per session at
// a time — checking in a new one for the same session replaces the last.
type Store struct {
	clock clockz.Clock
	mu    sync.Mutex
	bySession map[string]*domain.ConfirmationEntry
	byToken   map[string]*domain.ConfirmationEntry
	ttl       time.Duration

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// New creates a Store with ttl (DefaultTTL if zero) using clock for all
// time comparisons.
func New(clock clockz.Clock, ttl time.Duration) *Store {
	if clock == nil {
		clock = clockz.RealClock
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		clock:     clock,
		bySession: make(map[string]*domain.ConfirmationEntry),
		byToken:   make(map[string]*domain.ConfirmationEntry),
		ttl:       ttl,
		stopSweep: make(chan struct{}),
	}
}

// Create parks state behind a new token, replacing any prior pending entry
// for the same session. Returns the token the caller must relay to the user
// and which Consume will later require back.
func (s *Store) Create(sessionID string, state domain.PipelineState, replacement *domain.ReplacementInfo) string {
	token := uuid.NewString()
	now := s.clock.Now()
	entry := &domain.ConfirmationEntry{
		SessionID:    sessionID,
		Token:        token,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
		PendingState: state.Clone(),
		Replacement:  replacement,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.bySession[sessionID]; ok {
		delete(s.byToken, old.Token)
	}
	s.bySession[sessionID] = entry
	s.byToken[token] = entry
	return token
}

// GetPending returns the entry currently parked for sessionID, if any and
// not yet expired.
func (s *Store) GetPending(sessionID string) (domain.ConfirmationEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.bySession[sessionID]
	if !ok || entry.Consumed || entry.Expired(s.clock.Now()) {
		return domain.ConfirmationEntry{}, false
	}
	return *entry, true
}

// IsPending reports whether sessionID has a live, unconsumed confirmation.
func (s *Store) IsPending(sessionID string) bool {
	_, ok := s.GetPending(sessionID)
	return ok
}

// Consume atomically checks a token in, marking it consumed so no second
// caller can ever redeem it. This is the single operation the fulfillment
// gate relies on: it is linearizable with respect to Create and every other
// Consume call, under the one mutex guarding both maps.
func (s *Store) Consume(token string) (domain.ConfirmationEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byToken[token]
	if !ok {
		return domain.ConfirmationEntry{}, ErrNotFound
	}
	if entry.Consumed {
		return domain.ConfirmationEntry{}, ErrAlreadyConsumed
	}
	if entry.Expired(s.clock.Now()) {
		return domain.ConfirmationEntry{}, ErrExpired
	}

	entry.Consumed = true
	return *entry, nil
}

// Cancel removes any pending confirmation for sessionID without consuming
// it — used when the user declines or changes the request.
func (s *Store) Cancel(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.bySession[sessionID]; ok {
		delete(s.byToken, entry.Token)
		delete(s.bySession, sessionID)
	}
}

// StartSweeper launches a background goroutine that evicts expired entries
// every interval, until Close is called. Eviction is a hygiene measure only
// — Consume and GetPending already reject expired entries on their own.
func (s *Store) StartSweeper(interval time.Duration) {
	go func() {
		for {
			select {
			case <-s.clock.After(interval):
				s.sweep()
			case <-s.stopSweep:
				return
			}
		}
	}()
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for sessionID, entry := range s.bySession {
		if entry.Expired(now) {
			delete(s.byToken, entry.Token)
			delete(s.bySession, sessionID)
		}
	}
}

// Close stops the background sweeper, if running.
func (s *Store) Close() {
	s.sweepOnce.Do(func() { close(s.stopSweep) })
}
