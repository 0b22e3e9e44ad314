package chain_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
	"github.com/Mohsinsiddi/tokendash/internal/chain/chaintest"
	"github.com/Mohsinsiddi/tokendash/internal/token"
)

type fixture struct {
	backend *chaintest.Backend
	wallet  *chaintest.Wallet
	gw      *chain.Gateway
}

func newFixture(t *testing.T, opts ...chain.Option) *fixture {
	t.Helper()
	w := chaintest.NewWallet()
	b := chaintest.NewBackend(chaintest.NewToken(w.Address()))
	opts = append([]chain.Option{chain.WithPollInterval(5 * time.Millisecond)}, opts...)
	return &fixture{
		backend: b,
		wallet:  w,
		gw:      chain.NewGateway(b, chaintest.NewProvider(w), chaintest.Contract, opts...),
	}
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	_, err := f.gw.Connect(context.Background())
	require.NoError(t, err)
}

// ---------------------------------------------------------------------------
// Connect / Disconnect
// ---------------------------------------------------------------------------

func TestConnectBindsSignerAndChain(t *testing.T) {
	f := newFixture(t)

	addr, err := f.gw.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.wallet.Address(), addr)
	assert.True(t, f.gw.Connected())
	assert.Equal(t, chaintest.ChainID, f.gw.ChainID())

	f.gw.Disconnect()
	assert.False(t, f.gw.Connected())
	assert.Nil(t, f.gw.ChainID())

	// Idempotent.
	f.gw.Disconnect()
	assert.False(t, f.gw.Connected())
}

func TestAcquireDoesNotBind(t *testing.T) {
	f := newFixture(t)

	b, err := f.gw.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.wallet.Address(), b.Signer.Address())
	assert.Equal(t, chaintest.ChainID, b.ChainID)
	assert.False(t, f.gw.Connected())
	_, ok := f.gw.Address()
	assert.False(t, ok)

	assert.Equal(t, f.wallet.Address(), f.gw.Bind(b))
	addr, ok := f.gw.Address()
	require.True(t, ok)
	assert.Equal(t, f.wallet.Address(), addr)
}

func TestConnectFailures(t *testing.T) {
	t.Run("no wallet", func(t *testing.T) {
		b := chaintest.NewBackend(chaintest.NewToken(common.Address{}))
		gw := chain.NewGateway(b, chaintest.NewProvider(nil), chaintest.Contract)
		_, err := gw.Connect(context.Background())
		assert.ErrorIs(t, err, chain.ErrNoWalletFound)
		assert.False(t, gw.Connected())
	})

	t.Run("nil provider", func(t *testing.T) {
		gw := chain.NewGateway(chaintest.NewBackend(chaintest.NewToken(common.Address{})), nil, chaintest.Contract)
		_, err := gw.Connect(context.Background())
		assert.ErrorIs(t, err, chain.ErrNoWalletFound)
	})

	t.Run("rejected", func(t *testing.T) {
		w := chaintest.NewWallet()
		p := chaintest.NewProvider(w)
		p.Fail(chain.ErrUserRejected)
		gw := chain.NewGateway(chaintest.NewBackend(chaintest.NewToken(w.Address())), p, chaintest.Contract)
		_, err := gw.Connect(context.Background())
		assert.ErrorIs(t, err, chain.ErrUserRejected)
		assert.False(t, gw.Connected())
	})

	t.Run("chain id rpc failure", func(t *testing.T) {
		f := newFixture(t)
		f.backend.FailChainID(errors.New("dial tcp: connection refused"))
		_, err := f.gw.Connect(context.Background())
		assert.ErrorIs(t, err, chain.ErrRPC)
		assert.False(t, f.gw.Connected())
	})
}

// ---------------------------------------------------------------------------
// Call
// ---------------------------------------------------------------------------

func TestCallDecodesOutputs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	name, err := chain.CallOne[string](ctx, f.gw, token.MethodName)
	require.NoError(t, err)
	assert.Equal(t, "Indian Rupee Coin", name)

	decimals, err := chain.CallOne[uint8](ctx, f.gw, token.MethodDecimals)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), decimals)

	bal, err := chain.CallOne[*big.Int](ctx, f.gw, token.MethodBalanceOf, f.wallet.Address())
	require.NoError(t, err)
	assert.Equal(t, chaintest.Units(1_000_000, 6), bal)

	owner, err := chain.CallOne[common.Address](ctx, f.gw, token.MethodOwner)
	require.NoError(t, err)
	assert.Equal(t, f.wallet.Address(), owner)
}

func TestCallWorksBeforeConnect(t *testing.T) {
	f := newFixture(t)
	paused, err := chain.CallOne[bool](context.Background(), f.gw, token.MethodPaused)
	require.NoError(t, err)
	assert.False(t, paused)
}

func TestCallErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.gw.Call(ctx, token.MethodTransfer, common.Address{}, big.NewInt(1))
	assert.ErrorContains(t, err, "not a read method")

	_, err = f.gw.Call(ctx, "nope")
	assert.Error(t, err)

	_, err = chain.CallOne[bool](ctx, f.gw, token.MethodName)
	assert.ErrorIs(t, err, chain.ErrRPC, "type mismatch is reported as a bad response")

	f.backend.FailCalls(errors.New("503 service unavailable"))
	_, err = f.gw.Call(ctx, token.MethodSymbol)
	assert.ErrorIs(t, err, chain.ErrRPC)
}

// ---------------------------------------------------------------------------
// Send / AwaitFinality
// ---------------------------------------------------------------------------

func TestSendRequiresConnect(t *testing.T) {
	f := newFixture(t)
	_, err := f.gw.Send(context.Background(), token.MethodPause)
	assert.ErrorIs(t, err, chain.ErrNotConnected)
}

func TestSendRejectsReadMethod(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	_, err := f.gw.Send(context.Background(), token.MethodPaused)
	assert.ErrorContains(t, err, "not a write method")
}

func TestSendAndAwaitFinality(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	ctx := context.Background()
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	p, err := f.gw.Send(ctx, token.MethodTransfer, to, chaintest.Units(5, 6))
	require.NoError(t, err)
	assert.Equal(t, token.MethodTransfer, p.Method)
	assert.Equal(t, f.wallet.Address(), p.From)
	assert.Equal(t, uint64(0), p.Nonce)

	receipt, err := f.gw.AwaitFinality(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, chaintest.Units(5, 6), f.backend.BalanceOf(to))

	sent := f.backend.Sent()
	require.Len(t, sent, 1)
	tx := sent[0]
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, chaintest.ChainID, tx.ChainId())
	assert.Equal(t, uint64(55_000), tx.Gas())
	// baseFee*2 + tip
	assert.Equal(t, big.NewInt(21_000_000_000), tx.GasFeeCap())

	// Nonce advances for the next send.
	p2, err := f.gw.Send(ctx, token.MethodPause)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p2.Nonce)
}

func TestSendEstimateRevert(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	// Unpause while not paused reverts in preflight.
	_, err := f.gw.Send(context.Background(), token.MethodUnpause)
	require.ErrorIs(t, err, chain.ErrReverted)
	assert.ErrorContains(t, err, "pause state unchanged")
	assert.Empty(t, f.backend.Sent())
}

func TestSendUserRejected(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.wallet.Reject(true)

	_, err := f.gw.Send(context.Background(), token.MethodPause)
	assert.ErrorIs(t, err, chain.ErrUserRejected)
	assert.Empty(t, f.backend.Sent())
	assert.False(t, f.backend.Paused())
}

func TestSendBroadcastFailure(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.backend.FailSend(errors.New("insufficient funds for gas * price + value"))

	_, err := f.gw.Send(context.Background(), token.MethodPause)
	assert.ErrorIs(t, err, chain.ErrRPC)
}

func TestAwaitFinalityRevertedReceipt(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.backend.SkipPreflight(true)
	ctx := context.Background()

	p, err := f.gw.Send(ctx, token.MethodUnpause)
	require.NoError(t, err)

	receipt, err := f.gw.AwaitFinality(ctx, p)
	assert.ErrorIs(t, err, chain.ErrReverted)
	require.NotNil(t, receipt)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
}

func TestAwaitFinalityTimeout(t *testing.T) {
	f := newFixture(t, chain.WithFinalityTimeout(40*time.Millisecond))
	f.connect(t)
	f.backend.HoldReceipts(true)
	ctx := context.Background()

	p, err := f.gw.Send(ctx, token.MethodPause)
	require.NoError(t, err)

	_, err = f.gw.AwaitFinality(ctx, p)
	assert.ErrorIs(t, err, chain.ErrTimeout)
	assert.Equal(t, "timeout", chain.Classify(err))
}

func TestAwaitFinalityWaitsForMining(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.backend.HoldReceipts(true)
	ctx := context.Background()

	p, err := f.gw.Send(ctx, token.MethodPause)
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		f.backend.Release()
	}()

	receipt, err := f.gw.AwaitFinality(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, p.Hash, receipt.TxHash)
}

func TestAwaitFinalityGivesUpOnRepeatedRPCErrors(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	ctx := context.Background()

	p, err := f.gw.Send(ctx, token.MethodPause)
	require.NoError(t, err)

	f.backend.FailReceipts(errors.New("connection reset by peer"))
	_, err = f.gw.AwaitFinality(ctx, p)
	assert.ErrorIs(t, err, chain.ErrRPC)
}

func TestAwaitFinalityCallerCancel(t *testing.T) {
	f := newFixture(t, chain.WithFinalityTimeout(0))
	f.connect(t)
	f.backend.HoldReceipts(true)

	p, err := f.gw.Send(context.Background(), token.MethodPause)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err = f.gw.AwaitFinality(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
}

// ---------------------------------------------------------------------------
// Amount scaling
// ---------------------------------------------------------------------------

func TestScaleAndFormatAmount(t *testing.T) {
	f := newFixture(t)

	raw, err := f.gw.ScaleAmount("12.5", 6)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(12_500_000), raw)
	assert.Equal(t, "12.5", f.gw.FormatAmount(raw, 6))

	_, err = f.gw.ScaleAmount("abc", 6)
	assert.ErrorIs(t, err, token.ErrInvalidAmount)
}
