// Package operation drives mutating token operations through the
// Idle → Processing → Success/Error → Idle lifecycle, one controller per form.
package operation

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names a mutating operation form.
type Kind string

const (
	Transfer          Kind = "transfer"
	Approve           Kind = "approve"
	TransferFrom      Kind = "transfer-from"
	Mint              Kind = "mint"
	Burn              Kind = "burn"
	Blacklist         Kind = "blacklist"
	Unblacklist       Kind = "unblacklist"
	TransferOwnership Kind = "transfer-ownership"
	TogglePause       Kind = "toggle-pause"
)

// Param keys used in Request.Params.
const (
	FieldTo       = "to"
	FieldFrom     = "from"
	FieldAmount   = "amount"
	FieldSpender  = "spender"
	FieldAddress  = "address"
	FieldNewOwner = "newOwner"
)

// ErrUnknownKind is returned for a Kind with no form.
var ErrUnknownKind = errors.New("unknown operation")

var kindFields = map[Kind][]string{
	Transfer:          {FieldTo, FieldAmount},
	Approve:           {FieldSpender, FieldAmount},
	TransferFrom:      {FieldFrom, FieldTo, FieldAmount},
	Mint:              {FieldTo, FieldAmount},
	Burn:              {FieldFrom, FieldAmount},
	Blacklist:         {FieldAddress},
	Unblacklist:       {FieldAddress},
	TransferOwnership: {FieldNewOwner},
	TogglePause:       {},
}

// Kinds returns every kind, user forms first.
func Kinds() []Kind {
	return []Kind{Transfer, Approve, TransferFrom, Mint, Burn, Blacklist, Unblacklist, TogglePause, TransferOwnership}
}

// ParseKind accepts the kind name in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kindFields[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Fields lists the params the form requires.
func (k Kind) Fields() []string { return kindFields[k] }

// Privileged reports whether the form belongs on the admin view. The
// contract enforces ownership; the controller does not check it.
func (k Kind) Privileged() bool {
	switch k {
	case Mint, Burn, Blacklist, Unblacklist, TogglePause, TransferOwnership:
		return true
	}
	return false
}

// Status is a form's lifecycle state.
type Status int

const (
	Idle Status = iota
	Processing
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Processing:
		return "processing"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

// Terminal reports whether s ends a submission.
func (s Status) Terminal() bool { return s == Success || s == Error }

// Request is one submission of a form.
type Request struct {
	Kind   Kind
	Params map[string]string
}
