package operation

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/tokendash/internal/token"
)

// ErrInvalidParams wraps every form validation failure.
var ErrInvalidParams = errors.New("invalid parameters")

// Param shapes, one per form.
type (
	TransferParams     struct{ To, Amount string }
	ApproveParams      struct{ Spender, Amount string }
	TransferFromParams struct{ From, To, Amount string }
	MintParams         struct{ To, Amount string }
	BurnParams         struct{ From, Amount string }
	AccountParams      struct{ Address string }
	OwnershipParams    struct{ NewOwner string }
	NoParams           struct{}
)

// TransferForm moves the caller's tokens.
var TransferForm = Form[TransferParams]{
	Kind: Transfer,
	Decode: func(m map[string]string) (TransferParams, bool) {
		v, ok := fields(m, FieldTo, FieldAmount)
		if !ok {
			return TransferParams{}, false
		}
		return TransferParams{To: v[0], Amount: v[1]}, true
	},
	Prepare: func(p TransferParams, env Env) (string, []any, error) {
		to, err := address(FieldTo, p.To)
		if err != nil {
			return "", nil, err
		}
		amt, err := amount(p.Amount, env.Decimals)
		if err != nil {
			return "", nil, err
		}
		return token.MethodTransfer, []any{to, amt}, nil
	},
}

// ApproveForm sets a spender allowance.
var ApproveForm = Form[ApproveParams]{
	Kind: Approve,
	Decode: func(m map[string]string) (ApproveParams, bool) {
		v, ok := fields(m, FieldSpender, FieldAmount)
		if !ok {
			return ApproveParams{}, false
		}
		return ApproveParams{Spender: v[0], Amount: v[1]}, true
	},
	Prepare: func(p ApproveParams, env Env) (string, []any, error) {
		spender, err := address(FieldSpender, p.Spender)
		if err != nil {
			return "", nil, err
		}
		amt, err := amount(p.Amount, env.Decimals)
		if err != nil {
			return "", nil, err
		}
		return token.MethodApprove, []any{spender, amt}, nil
	},
}

// TransferFromForm spends an allowance granted to the caller.
var TransferFromForm = Form[TransferFromParams]{
	Kind: TransferFrom,
	Decode: func(m map[string]string) (TransferFromParams, bool) {
		v, ok := fields(m, FieldFrom, FieldTo, FieldAmount)
		if !ok {
			return TransferFromParams{}, false
		}
		return TransferFromParams{From: v[0], To: v[1], Amount: v[2]}, true
	},
	Prepare: func(p TransferFromParams, env Env) (string, []any, error) {
		from, err := address(FieldFrom, p.From)
		if err != nil {
			return "", nil, err
		}
		to, err := address(FieldTo, p.To)
		if err != nil {
			return "", nil, err
		}
		amt, err := amount(p.Amount, env.Decimals)
		if err != nil {
			return "", nil, err
		}
		return token.MethodTransferFrom, []any{from, to, amt}, nil
	},
}

// MintForm creates new supply.
var MintForm = Form[MintParams]{
	Kind: Mint,
	Decode: func(m map[string]string) (MintParams, bool) {
		v, ok := fields(m, FieldTo, FieldAmount)
		if !ok {
			return MintParams{}, false
		}
		return MintParams{To: v[0], Amount: v[1]}, true
	},
	Prepare: func(p MintParams, env Env) (string, []any, error) {
		to, err := address(FieldTo, p.To)
		if err != nil {
			return "", nil, err
		}
		amt, err := amount(p.Amount, env.Decimals)
		if err != nil {
			return "", nil, err
		}
		return token.MethodMint, []any{to, amt}, nil
	},
}

// BurnForm destroys supply held by an account.
var BurnForm = Form[BurnParams]{
	Kind: Burn,
	Decode: func(m map[string]string) (BurnParams, bool) {
		v, ok := fields(m, FieldFrom, FieldAmount)
		if !ok {
			return BurnParams{}, false
		}
		return BurnParams{From: v[0], Amount: v[1]}, true
	},
	Prepare: func(p BurnParams, env Env) (string, []any, error) {
		from, err := address(FieldFrom, p.From)
		if err != nil {
			return "", nil, err
		}
		amt, err := amount(p.Amount, env.Decimals)
		if err != nil {
			return "", nil, err
		}
		return token.MethodBurn, []any{from, amt}, nil
	},
}

func accountForm(kind Kind, method string) Form[AccountParams] {
	return Form[AccountParams]{
		Kind: kind,
		Decode: func(m map[string]string) (AccountParams, bool) {
			v, ok := fields(m, FieldAddress)
			if !ok {
				return AccountParams{}, false
			}
			return AccountParams{Address: v[0]}, true
		},
		Prepare: func(p AccountParams, _ Env) (string, []any, error) {
			a, err := address(FieldAddress, p.Address)
			if err != nil {
				return "", nil, err
			}
			return method, []any{a}, nil
		},
	}
}

// BlacklistForm and UnblacklistForm toggle an account's blacklist flag.
var (
	BlacklistForm   = accountForm(Blacklist, token.MethodBlacklist)
	UnblacklistForm = accountForm(Unblacklist, token.MethodUnblacklist)
)

// TransferOwnershipForm hands the contract to a new owner.
var TransferOwnershipForm = Form[OwnershipParams]{
	Kind: TransferOwnership,
	Decode: func(m map[string]string) (OwnershipParams, bool) {
		v, ok := fields(m, FieldNewOwner)
		if !ok {
			return OwnershipParams{}, false
		}
		return OwnershipParams{NewOwner: v[0]}, true
	},
	Prepare: func(p OwnershipParams, _ Env) (string, []any, error) {
		owner, err := address(FieldNewOwner, p.NewOwner)
		if err != nil {
			return "", nil, err
		}
		return token.MethodTransferOwnership, []any{owner}, nil
	},
}

// TogglePauseForm calls unpause when the snapshot says paused, else pause.
// On success the cached flag is flipped ahead of the refresh.
var TogglePauseForm = Form[NoParams]{
	Kind:   TogglePause,
	Decode: func(map[string]string) (NoParams, bool) { return NoParams{}, true },
	Prepare: func(_ NoParams, env Env) (string, []any, error) {
		if env.Snapshot.Paused {
			return token.MethodUnpause, nil, nil
		}
		return token.MethodPause, nil, nil
	},
	OnSuccess: func(env Env, cache Cache) {
		cache.SetPaused(env.Session, !env.Snapshot.Paused)
	},
}

// --- helpers ---

// fields returns the trimmed values of keys, or false if any is blank.
func fields(params map[string]string, keys ...string) ([]string, bool) {
	out := make([]string, len(keys))
	for i, k := range keys {
		v := strings.TrimSpace(params[k])
		if v == "" {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func address(field, v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%w: %s %q is not an address", ErrInvalidParams, field, v)
	}
	return common.HexToAddress(v), nil
}

func amount(v string, decimals uint8) (*big.Int, error) {
	raw, err := token.ParseUnits(v, decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return raw, nil
}
