// Package tokenstate keeps the latest token snapshot for the active session
// and guarantees that results from an old session never overwrite it.
package tokenstate

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
	"github.com/Mohsinsiddi/tokendash/internal/session"
	"github.com/Mohsinsiddi/tokendash/internal/token"
)

// ErrStaleSession is returned when a refresh finishes for a session that is
// no longer the bound one. Its result is discarded.
var ErrStaleSession = errors.New("session changed during refresh")

// Snapshot is an immutable view of the token as seen by one session.
type Snapshot struct {
	SessionID       uuid.UUID
	Name            string
	Symbol          string
	Decimals        uint8
	TotalSupply     string
	CallerBalance   string
	ContractAddress string
	Paused          bool
	FetchedAt       time.Time

	RawTotalSupply *big.Int
	RawBalance     *big.Int
}

// Cache holds the snapshot for the bound session. Writes swap the whole
// snapshot pointer; readers never see a partial update.
type Cache struct {
	gw       chain.Caller
	contract common.Address

	mu       sync.Mutex
	bound    uuid.UUID
	pinned   bool
	decimals uint8
	// started numbers refreshes as they begin; stored is the number of the
	// one whose reads the current snapshot holds.
	started uint64
	stored  uint64

	snap atomic.Pointer[Snapshot]
}

var _ session.Cache = (*Cache)(nil)

// New returns an unbound cache reading through gw.
func New(gw chain.Caller, contract common.Address) *Cache {
	return &Cache{gw: gw, contract: contract}
}

// Reset binds the cache to s, dropping any previous snapshot and pinned
// decimals.
func (c *Cache) Reset(s session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bound = s.ID
	c.pinned = false
	c.decimals = 0
	c.snap.Store(nil)
}

// Clear unbinds the cache.
func (c *Cache) Clear() {
	c.Reset(session.Session{})
}

// Snapshot returns the current snapshot, if any.
func (c *Cache) Snapshot() (Snapshot, bool) {
	p := c.snap.Load()
	if p == nil {
		return Snapshot{}, false
	}
	return *p, true
}

// Decimals returns the decimals pinned for s at its first refresh.
func (c *Cache) Decimals(s session.Session) (uint8, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isBound(s) || !c.pinned {
		return 0, false
	}
	return c.decimals, true
}

func (c *Cache) isBound(s session.Session) bool {
	return c.bound != uuid.Nil && c.bound == s.ID
}

// Prime performs the first refresh for a newly bound session.
func (c *Cache) Prime(ctx context.Context, s session.Session) error {
	_, err := c.Refresh(ctx, s)
	return err
}

// Refresh reads the snapshot fields concurrently and swaps the result in if
// s is still the bound session. Overlapping refreshes are ordered by start:
// one that began before the stored snapshot's refresh is dropped and the
// newer snapshot returned.
func (c *Cache) Refresh(ctx context.Context, s session.Session) (Snapshot, error) {
	c.mu.Lock()
	bound := c.isBound(s)
	c.started++
	seq := c.started
	c.mu.Unlock()
	if !bound {
		return Snapshot{}, ErrStaleSession
	}

	var (
		name, symbol string
		decimals     uint8
		supply, bal  *big.Int
		paused       bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		name, err = chain.CallOne[string](gctx, c.gw, token.MethodName)
		return err
	})
	g.Go(func() (err error) {
		symbol, err = chain.CallOne[string](gctx, c.gw, token.MethodSymbol)
		return err
	})
	g.Go(func() (err error) {
		decimals, err = chain.CallOne[uint8](gctx, c.gw, token.MethodDecimals)
		return err
	})
	g.Go(func() (err error) {
		supply, err = chain.CallOne[*big.Int](gctx, c.gw, token.MethodTotalSupply)
		return err
	})
	g.Go(func() (err error) {
		bal, err = chain.CallOne[*big.Int](gctx, c.gw, token.MethodBalanceOf, s.Address)
		return err
	})
	g.Go(func() (err error) {
		paused, err = chain.CallOne[bool](gctx, c.gw, token.MethodPaused)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isBound(s) {
		log.Debug("Discarding stale snapshot", "session", s.ID)
		return Snapshot{}, ErrStaleSession
	}
	if seq < c.stored {
		log.Debug("Discarding superseded snapshot", "session", s.ID, "seq", seq, "stored", c.stored)
		if cur := c.snap.Load(); cur != nil {
			return *cur, nil
		}
	}
	if !c.pinned {
		c.pinned = true
		c.decimals = decimals
	} else if decimals != c.decimals {
		log.Warn("Token decimals changed on chain, keeping pinned value", "pinned", c.decimals, "read", decimals)
	}

	snap := &Snapshot{
		SessionID:       s.ID,
		Name:            name,
		Symbol:          symbol,
		Decimals:        c.decimals,
		TotalSupply:     token.FormatUnits(supply, c.decimals),
		CallerBalance:   token.FormatUnits(bal, c.decimals),
		ContractAddress: c.contract.Hex(),
		Paused:          paused,
		FetchedAt:       time.Now(),
		RawTotalSupply:  supply,
		RawBalance:      bal,
	}
	c.snap.Store(snap)
	c.stored = seq
	log.Debug("Snapshot refreshed", "symbol", symbol, "supply", snap.TotalSupply, "balance", snap.CallerBalance, "paused", paused)
	return *snap, nil
}

// SetPaused flips the cached pause flag ahead of the next refresh. It is a
// no-op unless s is bound and a snapshot exists.
func (c *Cache) SetPaused(s session.Session, paused bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.snap.Load()
	if !c.isBound(s) || cur == nil {
		return false
	}
	next := *cur
	next.Paused = paused
	c.snap.Store(&next)
	return true
}
