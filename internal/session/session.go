// Package session owns the wallet session: who is connected, since when,
// and whether they own the token contract.
package session

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
	"github.com/Mohsinsiddi/tokendash/internal/token"
)

// Errors.
var (
	ErrAlreadyActive = errors.New("session already active")
	ErrAborted       = errors.New("connect aborted by disconnect")
)

// State is the connection lifecycle.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Session describes the connected account. The zero value is "no session".
// Privilege is sampled once at connect and not re-evaluated.
type Session struct {
	ID           uuid.UUID
	Address      common.Address
	Owner        common.Address
	Connected    bool
	IsPrivileged bool
	ConnectedAt  time.Time
}

// Same reports whether s and o are the same connect, not merely the same
// address.
func (s Session) Same(o Session) bool {
	return s.ID != uuid.Nil && s.ID == o.ID
}

// Gateway is the part of chain.Gateway the manager drives.
type Gateway interface {
	chain.Caller
	Acquire(ctx context.Context) (chain.Binding, error)
	Bind(b chain.Binding) common.Address
	Disconnect()
}

// Cache is the snapshot store bound to a session.
type Cache interface {
	Reset(s Session)
	Prime(ctx context.Context, s Session) error
	Clear()
}

// Manager runs the Disconnected → Connecting → Connected state machine.
type Manager struct {
	gw    Gateway
	cache Cache

	mu        sync.Mutex
	state     State
	current   Session
	attempt   uint64
	listeners []func(State, Session)
}

// NewManager returns a disconnected manager.
func NewManager(gw Gateway, cache Cache) *Manager {
	return &Manager{gw: gw, cache: cache}
}

// OnChange registers fn to be called after every state transition.
func (m *Manager) OnChange(fn func(State, Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the active session, if any.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.current.Connected
}

// Connect establishes a session. It is only valid from Disconnected. On any
// failure the gateway is disconnected, the cache cleared and the manager
// returns to Disconnected; no partial session is ever visible.
func (m *Manager) Connect(ctx context.Context) (Session, error) {
	m.mu.Lock()
	if m.state != Disconnected {
		m.mu.Unlock()
		return Session{}, ErrAlreadyActive
	}
	m.state = Connecting
	m.attempt++
	attempt := m.attempt
	m.mu.Unlock()
	m.notify()

	s, err := m.connect(ctx, attempt)

	m.mu.Lock()
	if m.attempt != attempt {
		// Superseded by Disconnect, and possibly by a newer Connect. This
		// attempt bound nothing after it was superseded, and Disconnect
		// already cleaned up what it bound before.
		m.mu.Unlock()
		log.Debug("Discarding superseded connect", "err", err)
		return Session{}, ErrAborted
	}
	if err != nil {
		m.state = Disconnected
		m.current = Session{}
		m.gw.Disconnect()
		m.cache.Clear()
		m.mu.Unlock()
		m.notify()
		log.Warn("Wallet connect failed", "reason", chain.Classify(err), "err", err)
		return Session{}, err
	}
	m.state = Connected
	m.current = s
	m.mu.Unlock()
	m.notify()

	log.Info("Session started", "id", s.ID, "address", s.Address, "privileged", s.IsPrivileged)
	return s, nil
}

func (m *Manager) connect(ctx context.Context, attempt uint64) (Session, error) {
	b, err := m.gw.Acquire(ctx)
	if err != nil {
		return Session{}, err
	}
	// Bind only while this attempt is current, so a superseded connect can
	// never replace the signer of a newer one.
	m.mu.Lock()
	if m.attempt != attempt {
		m.mu.Unlock()
		return Session{}, ErrAborted
	}
	addr := m.gw.Bind(b)
	m.mu.Unlock()

	owner, err := chain.CallOne[common.Address](ctx, m.gw, token.MethodOwner)
	if err != nil {
		return Session{}, err
	}
	s := Session{
		ID:           uuid.New(),
		Address:      addr,
		Owner:        owner,
		Connected:    true,
		IsPrivileged: strings.EqualFold(owner.Hex(), addr.Hex()),
		ConnectedAt:  time.Now(),
	}

	m.mu.Lock()
	if m.attempt != attempt {
		m.mu.Unlock()
		return Session{}, ErrAborted
	}
	m.cache.Reset(s)
	m.mu.Unlock()

	if err := m.cache.Prime(ctx, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Disconnect ends the session from any state. Calling it again is a no-op.
// A connect still in flight is abandoned and its result discarded.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	was := m.state
	prev := m.current
	m.attempt++
	m.state = Disconnected
	m.current = Session{}
	m.gw.Disconnect()
	m.cache.Clear()
	m.mu.Unlock()

	if was == Disconnected {
		return
	}
	if prev.Connected {
		log.Info("Session ended", "id", prev.ID, "address", prev.Address)
	}
	m.notify()
}

func (m *Manager) notify() {
	m.mu.Lock()
	state, cur := m.state, m.current
	fns := slices.Clone(m.listeners)
	m.mu.Unlock()
	for _, fn := range fns {
		fn(state, cur)
	}
}
