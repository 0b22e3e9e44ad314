package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Failure taxonomy surfaced by the gateway. Callers classify with errors.Is.
var (
	ErrNoWalletFound = errors.New("no wallet found")
	ErrUserRejected  = errors.New("user rejected request")
	ErrRPC           = errors.New("rpc error")
	ErrReverted      = errors.New("execution reverted")
	ErrTimeout       = errors.New("transaction not final before timeout")
	ErrNotConnected  = errors.New("wallet not connected")
)

// Classify maps err to a short label for logs and metrics.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoWalletFound):
		return "no_wallet"
	case errors.Is(err, ErrUserRejected):
		return "rejected"
	case errors.Is(err, ErrReverted):
		return "reverted"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrNotConnected):
		return "not_connected"
	case errors.Is(err, ErrRPC):
		return "rpc"
	default:
		return "invalid"
	}
}

func wrapRPC(op string, err error) error {
	if isRevert(err) {
		return fmt.Errorf("%w: %s", ErrReverted, revertReason(err.Error()))
	}
	return fmt.Errorf("%w: %s: %v", ErrRPC, op, err)
}

func isRevert(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "revert")
}

// revertReason tries to pull the revert reason out of an RPC error message.
func revertReason(errMsg string) string {
	// Common pattern: "execution reverted: <reason>"
	if idx := strings.Index(errMsg, "execution reverted:"); idx >= 0 {
		return strings.TrimSpace(errMsg[idx+len("execution reverted:"):])
	}
	if idx := strings.Index(errMsg, "revert"); idx >= 0 {
		return strings.TrimSpace(errMsg[idx:])
	}
	return errMsg
}
