package operation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
	"github.com/Mohsinsiddi/tokendash/internal/session"
	"github.com/Mohsinsiddi/tokendash/internal/tokenstate"
)

// DefaultStatusDisplay is how long Success/Error stays before Idle.
const DefaultStatusDisplay = 3 * time.Second

// ErrNotReady is returned when the session has no snapshot to scale amounts with.
var ErrNotReady = errors.New("token state not loaded")

// Sessions exposes the active session.
type Sessions interface {
	Current() (session.Session, bool)
}

// Gateway submits and confirms transactions.
type Gateway interface {
	Send(ctx context.Context, method string, args ...any) (*chain.Pending, error)
	AwaitFinality(ctx context.Context, p *chain.Pending) (*types.Receipt, error)
}

// Cache is the token state the forms read and refresh.
type Cache interface {
	Snapshot() (tokenstate.Snapshot, bool)
	Decimals(s session.Session) (uint8, bool)
	Refresh(ctx context.Context, s session.Session) (tokenstate.Snapshot, error)
	SetPaused(s session.Session, paused bool) bool
}

// Deps are shared by every controller.
type Deps struct {
	Sessions      Sessions
	Gateway       Gateway
	Cache         Cache
	StatusDisplay time.Duration
}

// Env is what a form sees when preparing its call.
type Env struct {
	Session  session.Session
	Decimals uint8
	Snapshot tokenstate.Snapshot
}

// Form describes one operation: how to read its params and which contract
// call they turn into.
type Form[P any] struct {
	Kind Kind
	// Decode reports false when a required field is missing or blank.
	Decode func(params map[string]string) (P, bool)
	// Prepare validates p and returns the contract call.
	Prepare func(p P, env Env) (method string, args []any, err error)
	// OnSuccess runs after finality, before the refresh.
	OnSuccess func(env Env, cache Cache)
}

// Result is the outcome of the latest submission.
type Result struct {
	Status   Status
	Err      error
	TxHash   common.Hash
	Duration time.Duration
	At       time.Time
}

// Event is published on every status change.
type Event struct {
	Kind Kind
	Result
}

// Controller runs one form. Submissions are serialized by status: while a
// form is not Idle, further submissions are ignored.
type Controller[P any] struct {
	form Form[P]
	deps Deps

	mu        sync.Mutex
	result    Result
	gen       uint64
	timer     *time.Timer
	listeners []func(Event)
}

// NewController returns an idle controller for form.
func NewController[P any](form Form[P], deps Deps) *Controller[P] {
	if deps.StatusDisplay <= 0 {
		deps.StatusDisplay = DefaultStatusDisplay
	}
	return &Controller[P]{form: form, deps: deps}
}

// Kind returns the form kind.
func (c *Controller[P]) Kind() Kind { return c.form.Kind }

// Status returns the current lifecycle state.
func (c *Controller[P]) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result.Status
}

// Last returns the latest result, including Idle after auto-revert.
func (c *Controller[P]) Last() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// OnChange registers fn for every status change.
func (c *Controller[P]) OnChange(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Submit decodes req and runs it. It returns accepted=false, err=nil when
// a field is blank, no session is active or the form is busy.
func (c *Controller[P]) Submit(ctx context.Context, req Request) (bool, error) {
	if req.Kind != c.form.Kind {
		return false, fmt.Errorf("%w: %q sent to %q form", ErrUnknownKind, req.Kind, c.form.Kind)
	}
	p, ok := c.form.Decode(req.Params)
	if !ok {
		return false, nil
	}
	return c.SubmitParams(ctx, p)
}

// SubmitParams runs an already decoded submission and blocks until it
// reaches Success or Error.
func (c *Controller[P]) SubmitParams(ctx context.Context, p P) (bool, error) {
	s, ok := c.deps.Sessions.Current()
	if !ok {
		return false, nil
	}

	c.mu.Lock()
	if c.result.Status != Idle {
		c.mu.Unlock()
		return false, nil
	}
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.result = Result{Status: Processing, At: time.Now()}
	c.mu.Unlock()
	c.emit()

	start := time.Now()
	env, hash, err := c.run(ctx, s, p)
	if err != nil {
		log.Warn("Operation failed", "kind", c.form.Kind, "reason", chain.Classify(err), "err", err)
		c.finish(Result{Status: Error, Err: err, TxHash: hash, Duration: time.Since(start)})
		return true, err
	}

	log.Info("Operation confirmed", "kind", c.form.Kind, "tx", hash, "elapsed", time.Since(start).Round(time.Millisecond))
	c.finish(Result{Status: Success, TxHash: hash, Duration: time.Since(start)})

	if c.form.OnSuccess != nil {
		c.form.OnSuccess(env, c.deps.Cache)
	}
	if _, err := c.deps.Cache.Refresh(ctx, s); err != nil {
		if errors.Is(err, tokenstate.ErrStaleSession) {
			log.Debug("Skipped refresh for ended session", "kind", c.form.Kind)
		} else {
			log.Warn("Refresh after operation failed", "kind", c.form.Kind, "err", err)
		}
	}
	return true, nil
}

func (c *Controller[P]) run(ctx context.Context, s session.Session, p P) (Env, common.Hash, error) {
	decimals, ok := c.deps.Cache.Decimals(s)
	if !ok {
		return Env{}, common.Hash{}, ErrNotReady
	}
	snap, _ := c.deps.Cache.Snapshot()
	env := Env{Session: s, Decimals: decimals, Snapshot: snap}

	method, args, err := c.form.Prepare(p, env)
	if err != nil {
		return env, common.Hash{}, err
	}
	pending, err := c.deps.Gateway.Send(ctx, method, args...)
	if err != nil {
		return env, common.Hash{}, err
	}
	if _, err := c.deps.Gateway.AwaitFinality(ctx, pending); err != nil {
		return env, pending.Hash, err
	}
	return env, pending.Hash, nil
}

// finish records a terminal result and schedules the revert to Idle.
func (c *Controller[P]) finish(r Result) {
	r.At = time.Now()
	c.mu.Lock()
	c.result = r
	gen := c.gen
	c.timer = time.AfterFunc(c.deps.StatusDisplay, func() { c.revert(gen) })
	c.mu.Unlock()
	c.emit()
}

func (c *Controller[P]) revert(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || !c.result.Status.Terminal() {
		c.mu.Unlock()
		return
	}
	last := c.result
	c.result = Result{Status: Idle, TxHash: last.TxHash, At: time.Now()}
	c.timer = nil
	c.mu.Unlock()
	c.emit()
}

func (c *Controller[P]) emit() {
	c.mu.Lock()
	ev := Event{Kind: c.form.Kind, Result: c.result}
	fns := slices.Clone(c.listeners)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
