package operation

import (
	"context"
	"fmt"
)

// Runner is the kind-erased face of a Controller.
type Runner interface {
	Kind() Kind
	Submit(ctx context.Context, req Request) (bool, error)
	Status() Status
	Last() Result
	OnChange(fn func(Event))
}

var (
	_ Runner = (*Controller[TransferParams])(nil)
	_ Runner = (*Controller[NoParams])(nil)
)

// Set holds one controller per form.
type Set struct {
	runners map[Kind]Runner
}

// NewSet builds the nine form controllers over deps.
func NewSet(deps Deps) *Set {
	rs := []Runner{
		NewController(TransferForm, deps),
		NewController(ApproveForm, deps),
		NewController(TransferFromForm, deps),
		NewController(MintForm, deps),
		NewController(BurnForm, deps),
		NewController(BlacklistForm, deps),
		NewController(UnblacklistForm, deps),
		NewController(TransferOwnershipForm, deps),
		NewController(TogglePauseForm, deps),
	}
	s := &Set{runners: make(map[Kind]Runner, len(rs))}
	for _, r := range rs {
		s.runners[r.Kind()] = r
	}
	return s
}

// Get returns the controller for k.
func (s *Set) Get(k Kind) (Runner, bool) {
	r, ok := s.runners[k]
	return r, ok
}

// Submit routes req to its form's controller.
func (s *Set) Submit(ctx context.Context, req Request) (bool, error) {
	r, ok := s.runners[req.Kind]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}
	return r.Submit(ctx, req)
}

// Statuses returns the latest result of every form.
func (s *Set) Statuses() map[Kind]Result {
	out := make(map[Kind]Result, len(s.runners))
	for k, r := range s.runners {
		out[k] = r.Last()
	}
	return out
}

// OnChange registers fn on every controller.
func (s *Set) OnChange(fn func(Event)) {
	for _, r := range s.runners {
		r.OnChange(fn)
	}
}
