package app

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/pinrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

const randomPINAttempts = 32

// SessionRegistry is the in-memory PIN -> Session store.
// Every mutation runs under one lock, so check-and-set on a slot is atomic.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[domain.PIN]*domain.Session
	now      func() time.Time
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[domain.PIN]*domain.Session),
		now:      time.Now,
	}
}

func (r *SessionRegistry) Create(pin domain.PIN, host domain.ConnID) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(pin, host)
}

func (r *SessionRegistry) createLocked(pin domain.PIN, host domain.ConnID) (domain.Session, error) {
	if _, ok := r.sessions[pin]; ok {
		return domain.Session{}, fmt.Errorf("create %s: %w", pin, domain.ErrDuplicatePIN)
	}
	now := r.now()
	s := &domain.Session{PIN: pin, Host: host, CreatedAt: now, UpdatedAt: now}
	r.sessions[pin] = s
	log.Info().Str("module", "app.registry").Str("pin", string(pin)).Str("host", string(host)).Msg("session created")
	return *s, nil
}

// CreateRandom picks an unused PIN for hosts that did not bring one.
func (r *SessionRegistry) CreateRandom(host domain.ConnID) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for range randomPINAttempts {
		pin := domain.PIN(fmt.Sprintf("%06d", rand.IntN(1_000_000)))
		if _, taken := r.sessions[pin]; taken {
			continue
		}
		return r.createLocked(pin, host)
	}
	return domain.Session{}, domain.ErrPINSpaceExhausted
}

func (r *SessionRegistry) Get(pin domain.PIN) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[pin]
	if !ok {
		return domain.Session{}, fmt.Errorf("get %s: %w", pin, domain.ErrSessionNotFound)
	}
	return *s, nil
}

// SetViewer fills the viewer slot only if it is empty.
func (r *SessionRegistry) SetViewer(pin domain.PIN, viewer domain.ConnID) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[pin]
	if !ok {
		return domain.Session{}, fmt.Errorf("join %s: %w", pin, domain.ErrSessionNotFound)
	}
	if s.HasViewer() {
		return domain.Session{}, fmt.Errorf("join %s: %w", pin, domain.ErrViewerPresent)
	}
	s.Viewer = viewer
	s.UpdatedAt = r.now()
	log.Info().Str("module", "app.registry").Str("pin", string(pin)).Str("viewer", string(viewer)).Msg("viewer set")
	return *s, nil
}

// ClearViewer is idempotent; the session itself survives.
func (r *SessionRegistry) ClearViewer(pin domain.PIN) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[pin]
	if !ok {
		return fmt.Errorf("clear viewer %s: %w", pin, domain.ErrSessionNotFound)
	}
	r.clearViewerLocked(s)
	return nil
}

// ClearViewerOf clears the slot only while viewer still occupies it.
func (r *SessionRegistry) ClearViewerOf(pin domain.PIN, viewer domain.ConnID) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[pin]
	if !ok {
		return domain.Session{}, fmt.Errorf("clear viewer %s: %w", pin, domain.ErrSessionNotFound)
	}
	if !s.Holds(domain.RoleViewer, viewer) {
		return domain.Session{}, fmt.Errorf("clear viewer %s: %w", pin, domain.ErrNotOwner)
	}
	r.clearViewerLocked(s)
	return *s, nil
}

func (r *SessionRegistry) clearViewerLocked(s *domain.Session) {
	if !s.HasViewer() {
		return
	}
	s.Viewer = ""
	s.UpdatedAt = r.now()
	log.Info().Str("module", "app.registry").Str("pin", string(s.PIN)).Msg("viewer cleared")
}

func (r *SessionRegistry) Remove(pin domain.PIN) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[pin]
	if !ok {
		return domain.Session{}, fmt.Errorf("remove %s: %w", pin, domain.ErrSessionNotFound)
	}
	return r.removeLocked(s), nil
}

// RemoveHostedBy deletes the session only if host still owns it.
func (r *SessionRegistry) RemoveHostedBy(pin domain.PIN, host domain.ConnID) (domain.Session, error) {
	return r.removeIf(pin, func(s *domain.Session) bool { return s.Holds(domain.RoleHost, host) })
}

// EndBy deletes the session if conn is either of its parties.
func (r *SessionRegistry) EndBy(pin domain.PIN, conn domain.ConnID) (domain.Session, error) {
	return r.removeIf(pin, func(s *domain.Session) bool {
		return s.Holds(domain.RoleHost, conn) || s.Holds(domain.RoleViewer, conn)
	})
}

func (r *SessionRegistry) removeIf(pin domain.PIN, allowed func(*domain.Session) bool) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[pin]
	if !ok {
		return domain.Session{}, fmt.Errorf("remove %s: %w", pin, domain.ErrSessionNotFound)
	}
	if !allowed(s) {
		return domain.Session{}, fmt.Errorf("remove %s: %w", pin, domain.ErrNotOwner)
	}
	return r.removeLocked(s), nil
}

func (r *SessionRegistry) removeLocked(s *domain.Session) domain.Session {
	delete(r.sessions, s.PIN)
	log.Info().Str("module", "app.registry").Str("pin", string(s.PIN)).Msg("session removed")
	return *s
}

// RemoveIdle drops viewer-less sessions untouched since before cutoff.
func (r *SessionRegistry) RemoveIdle(cutoff time.Time) []domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.sessions {
		if s.HasViewer() || s.UpdatedAt.After(cutoff) {
			continue
		}
		out = append(out, r.removeLocked(s))
	}
	return out
}

func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// PINs returns the active PINs in ascending order.
func (r *SessionRegistry) PINs() []domain.PIN {
	r.mu.RLock()
	out := make([]domain.PIN, 0, len(r.sessions))
	for pin := range r.sessions {
		out = append(out, pin)
	}
	r.mu.RUnlock()
	slices.Sort(out)
	return out
}
