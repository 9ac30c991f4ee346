package app

import (
	"fmt"
	"sync"

	"github.com/dkeye/pinrelay/internal/core"
	"github.com/dkeye/pinrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Connection is the router-owned record of one live socket.
type Connection struct {
	ID          domain.ConnID
	ClientToken string
	Role        domain.Role
	PIN         domain.PIN
	Signal      core.SignalConnection
}

func (c Connection) Bound() bool { return c.Role != domain.RoleUnbound }

// ConnTable maps connection identity to its record.
type ConnTable struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*Connection
}

func NewConnTable() *ConnTable {
	return &ConnTable{conns: make(map[domain.ConnID]*Connection)}
}

func (t *ConnTable) Attach(id domain.ConnID, token string, sig core.SignalConnection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[id] = &Connection{ID: id, ClientToken: token, Signal: sig}
	log.Info().Str("module", "app.conns").Str("conn", string(id)).Msg("attached")
}

func (t *ConnTable) Get(id domain.ConnID) (Connection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.conns[id]
	if !ok {
		return Connection{}, false
	}
	return *c, true
}

// Bind assigns role and pin exactly once.
func (t *ConnTable) Bind(id domain.ConnID, role domain.Role, pin domain.PIN) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[id]
	if !ok {
		return fmt.Errorf("bind %s: unknown connection", id)
	}
	if c.Bound() {
		return fmt.Errorf("bind %s: %w", id, domain.ErrAlreadyBound)
	}
	c.Role = role
	c.PIN = pin
	log.Info().Str("module", "app.conns").Str("conn", string(id)).Str("role", role.String()).Str("pin", string(pin)).Msg("bound")
	return nil
}

func (t *ConnTable) Detach(id domain.ConnID) (Connection, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[id]
	if !ok {
		return Connection{}, false
	}
	delete(t.conns, id)
	log.Info().Str("module", "app.conns").Str("conn", string(id)).Msg("detached")
	return *c, true
}

func (t *ConnTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns)
}
