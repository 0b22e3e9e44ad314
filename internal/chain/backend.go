package chain

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

// Backend is the slice of the node API the gateway needs. *ethclient.Client
// satisfies it; tests substitute an in-memory chain.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var _ Backend = (*ethclient.Client)(nil)

// throttledBackend rate-limits read calls so a dashboard refresh loop cannot
// exhaust a public endpoint's quota.
type throttledBackend struct {
	Backend
	limiter *rate.Limiter
}

// Throttle wraps b so that CallContract is limited to perSecond calls per
// second. A non-positive rate returns b unchanged.
func Throttle(b Backend, perSecond float64) Backend {
	if perSecond <= 0 {
		return b
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &throttledBackend{Backend: b, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (t *throttledBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.Backend.CallContract(ctx, msg, blockNumber)
}
