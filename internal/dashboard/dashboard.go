// Package dashboard wires the gateway, session, token state, operation forms
// and view router into the one object the TUI and CLI talk to.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
	"github.com/Mohsinsiddi/tokendash/internal/ens"
	"github.com/Mohsinsiddi/tokendash/internal/metrics"
	"github.com/Mohsinsiddi/tokendash/internal/operation"
	"github.com/Mohsinsiddi/tokendash/internal/session"
	"github.com/Mohsinsiddi/tokendash/internal/token"
	"github.com/Mohsinsiddi/tokendash/internal/tokenstate"
	"github.com/Mohsinsiddi/tokendash/internal/view"
)

// Options tune a Dashboard. Zero values fall back to package defaults.
type Options struct {
	Contract        common.Address
	Network         *chain.Network
	Mode            string
	RateLimit       float64
	PollInterval    time.Duration
	FinalityTimeout time.Duration
	StatusDisplay   time.Duration
	Metrics         *metrics.Metrics
}

// State is everything a view renders from.
type State struct {
	Session      session.Session
	SessionState session.State
	Snapshot     tokenstate.Snapshot
	HasSnapshot  bool
	Statuses     map[operation.Kind]operation.Result
	View         view.View
	Notice       string
	Network      string
	Contract     common.Address
}

// Dashboard is the presentation contract: State out; Connect, Disconnect,
// Navigate and Submit in.
type Dashboard struct {
	gw       *chain.Gateway
	sessions *session.Manager
	cache    *tokenstate.Cache
	ops      *operation.Set
	router   view.Router
	names    *ens.Resolver
	network  *chain.Network
	mode     string
	closer   func()

	mu        sync.Mutex
	current   view.View
	notice    string
	listeners []func()
}

// New builds a dashboard over backend. provider supplies the signer on
// Connect.
func New(backend chain.Backend, provider chain.Provider, opts Options) *Dashboard {
	if opts.Contract == (common.Address{}) {
		opts.Contract = common.HexToAddress(token.DefaultContractAddress)
	}
	if opts.Metrics != nil {
		backend = opts.Metrics.Instrument(backend)
	}
	backend = chain.Throttle(backend, opts.RateLimit)

	var gwOpts []chain.Option
	if opts.PollInterval > 0 {
		gwOpts = append(gwOpts, chain.WithPollInterval(opts.PollInterval))
	}
	if opts.FinalityTimeout > 0 {
		gwOpts = append(gwOpts, chain.WithFinalityTimeout(opts.FinalityTimeout))
	}
	gw := chain.NewGateway(backend, provider, opts.Contract, gwOpts...)
	cache := tokenstate.New(gw, opts.Contract)
	sessions := session.NewManager(gw, cache)
	ops := operation.NewSet(operation.Deps{
		Sessions:      sessions,
		Gateway:       gw,
		Cache:         cache,
		StatusDisplay: opts.StatusDisplay,
	})

	d := &Dashboard{
		gw:       gw,
		sessions: sessions,
		cache:    cache,
		ops:      ops,
		names:    ens.NewResolver(backend),
		network:  opts.Network,
		mode:     opts.Mode,
	}
	if opts.Metrics != nil {
		sessions.OnChange(opts.Metrics.ObserveSession)
		ops.OnChange(opts.Metrics.ObserveOperation)
	}
	sessions.OnChange(func(session.State, session.Session) { d.changed() })
	ops.OnChange(func(operation.Event) { d.changed() })
	return d
}

// OnChange registers fn to be called whenever State may have changed.
func (d *Dashboard) OnChange(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

func (d *Dashboard) changed() {
	d.mu.Lock()
	fns := slices.Clone(d.listeners)
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Close releases the RPC connection, if the dashboard owns one.
func (d *Dashboard) Close() {
	d.sessions.Disconnect()
	if d.closer != nil {
		d.closer()
	}
}

// State returns a consistent copy of everything the views need.
func (d *Dashboard) State() State {
	s, _ := d.sessions.Current()
	snap, ok := d.cache.Snapshot()
	if ok && snap.SessionID != s.ID {
		snap, ok = tokenstate.Snapshot{}, false
	}

	d.mu.Lock()
	cur, notice := d.current, d.notice
	d.mu.Unlock()

	st := State{
		Session:      s,
		SessionState: d.sessions.State(),
		Snapshot:     snap,
		HasSnapshot:  ok,
		Statuses:     d.ops.Statuses(),
		View:         d.router.Resolve(cur, s),
		Notice:       notice,
		Contract:     d.gw.Contract(),
	}
	if d.network != nil {
		st.Network = d.network.DisplayName
	}
	return st
}

// Connect starts a session. A failure is also kept as the header notice.
func (d *Dashboard) Connect(ctx context.Context) (session.Session, error) {
	s, err := d.sessions.Connect(ctx)
	switch {
	case errors.Is(err, session.ErrAlreadyActive), errors.Is(err, session.ErrAborted):
		return s, err
	case err != nil:
		d.setNotice(Notice(err))
		return s, err
	}
	d.mu.Lock()
	d.current = view.User
	d.notice = ""
	d.mu.Unlock()
	d.changed()
	return s, nil
}

// Disconnect ends the session and returns to Home.
func (d *Dashboard) Disconnect() {
	d.mu.Lock()
	d.current = view.Home
	d.mu.Unlock()
	d.sessions.Disconnect()
	d.changed()
}

// Navigate requests a view change and returns what will be rendered.
func (d *Dashboard) Navigate(requested view.View) view.View {
	s, _ := d.sessions.Current()
	d.mu.Lock()
	d.current = d.router.Navigate(d.current, requested, s)
	cur := d.current
	d.mu.Unlock()
	d.changed()
	return d.router.Resolve(cur, s)
}

// Submit runs req on its form and blocks until Success or Error.
func (d *Dashboard) Submit(ctx context.Context, req operation.Request) (bool, error) {
	return d.ops.Submit(ctx, req)
}

// Refresh re-reads the snapshot for the active session.
func (d *Dashboard) Refresh(ctx context.Context) error {
	s, ok := d.sessions.Current()
	if !ok {
		return chain.ErrNotConnected
	}
	_, err := d.cache.Refresh(ctx, s)
	d.changed()
	return err
}

// Allowance returns how much spender may move on owner's behalf, scaled by
// the session's decimals.
func (d *Dashboard) Allowance(ctx context.Context, owner, spender common.Address) (string, error) {
	decimals, err := d.decimals(ctx)
	if err != nil {
		return "", err
	}
	raw, err := chain.CallOne[*big.Int](ctx, d.gw, token.MethodAllowance, owner, spender)
	if err != nil {
		return "", err
	}
	return token.FormatUnits(raw, decimals), nil
}

// IsBlacklisted reports whether addr is on the contract blacklist.
func (d *Dashboard) IsBlacklisted(ctx context.Context, addr common.Address) (bool, error) {
	return chain.CallOne[bool](ctx, d.gw, token.MethodIsBlacklisted, addr)
}

// ResolveAddress returns s unchanged unless it is an ENS name, in which case
// it returns the name's address record in hex.
func (d *Dashboard) ResolveAddress(ctx context.Context, s string) (string, error) {
	if !ens.IsName(s) {
		return s, nil
	}
	addr, err := d.names.Resolve(ctx, s)
	if err != nil {
		return "", err
	}
	log.Debug("Resolved ENS name", "name", s, "address", addr)
	return addr.Hex(), nil
}

// NameOf returns the primary ENS name of addr, or "" when it has none.
func (d *Dashboard) NameOf(ctx context.Context, addr common.Address) string {
	name, err := d.names.Lookup(ctx, addr)
	if err != nil {
		log.Debug("No ENS name", "address", addr, "err", err)
		return ""
	}
	return name
}

func (d *Dashboard) decimals(ctx context.Context) (uint8, error) {
	if s, ok := d.sessions.Current(); ok {
		if dec, ok := d.cache.Decimals(s); ok {
			return dec, nil
		}
	}
	return chain.CallOne[uint8](ctx, d.gw, token.MethodDecimals)
}

// TxURL links hash on the network's explorer, or "" when there is none.
func (d *Dashboard) TxURL(hash common.Hash) string {
	if d.network == nil || hash == (common.Hash{}) {
		return ""
	}
	return d.network.TxURL(d.mode, hash.Hex())
}

func (d *Dashboard) setNotice(msg string) {
	d.mu.Lock()
	d.notice = msg
	d.mu.Unlock()
	d.changed()
	log.Debug("Header notice", "msg", msg)
}

// Notice turns a connect failure into the one-line header message.
func Notice(err error) string {
	switch chain.Classify(err) {
	case "no_wallet":
		return "No signing wallet configured. Run `tokendash wallet add` first."
	case "rejected":
		return "Connection request was rejected."
	case "timeout":
		return "Timed out talking to the network."
	case "rpc":
		return fmt.Sprintf("Network error: %v", err)
	}
	return fmt.Sprintf("Connect failed: %v", err)
}
