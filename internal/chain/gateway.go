// Package chain is the gateway between the dashboard and the token contract:
// it binds a wallet signer, issues read calls and drives write transactions
// to finality.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/Mohsinsiddi/tokendash/internal/token"
)

const (
	// DefaultPollInterval is how often AwaitFinality asks for the receipt.
	DefaultPollInterval = 2 * time.Second
	// DefaultFinalityTimeout bounds AwaitFinality.
	DefaultFinalityTimeout = 3 * time.Minute

	// Consecutive receipt lookups that may fail before polling gives up.
	maxReceiptErrors = 3
)

// Gas limits used when estimation fails for a reason other than a revert.
var fallbackGas = map[string]uint64{
	token.MethodTransfer:          65_000,
	token.MethodApprove:           50_000,
	token.MethodTransferFrom:      80_000,
	token.MethodMint:              90_000,
	token.MethodBurn:              60_000,
	token.MethodBlacklist:         50_000,
	token.MethodUnblacklist:       35_000,
	token.MethodPause:             50_000,
	token.MethodUnpause:           35_000,
	token.MethodTransferOwnership: 40_000,
}

// SignRequest is what the wallet holder is asked to approve.
type SignRequest struct {
	Method  string
	Args    []any
	Tx      *types.Transaction
	ChainID *big.Int
}

// Signer holds the key of a connected account.
type Signer interface {
	Address() common.Address
	// SignTx asks the holder to approve req and returns the signed
	// transaction. A decline is reported as ErrUserRejected.
	SignTx(ctx context.Context, req SignRequest) (*types.Transaction, error)
}

// Provider hands out a Signer on connect. It reports ErrNoWalletFound when
// no signing wallet is available and ErrUserRejected when the holder
// refuses to unlock it.
type Provider interface {
	RequestSigner(ctx context.Context) (Signer, error)
}

// Pending is a broadcast transaction that has not been confirmed yet.
type Pending struct {
	Hash   common.Hash
	Method string
	From   common.Address
	Nonce  uint64
	SentAt time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(g *Gateway) { g.pollInterval = d }
}

// WithFinalityTimeout overrides DefaultFinalityTimeout. Zero disables the
// bound and leaves cancellation to the caller's context.
func WithFinalityTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.finalityTimeout = d }
}

// Gateway talks to one token contract through a Backend.
type Gateway struct {
	backend  Backend
	provider Provider
	contract common.Address
	abi      abi.ABI

	pollInterval    time.Duration
	finalityTimeout time.Duration

	mu      sync.RWMutex
	signer  Signer
	chainID *big.Int
}

// NewGateway returns a gateway for the token deployed at contract.
func NewGateway(backend Backend, provider Provider, contract common.Address, opts ...Option) *Gateway {
	g := &Gateway{
		backend:         backend,
		provider:        provider,
		contract:        contract,
		abi:             token.ABI(),
		pollInterval:    DefaultPollInterval,
		finalityTimeout: DefaultFinalityTimeout,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Contract returns the bound token address.
func (g *Gateway) Contract() common.Address { return g.contract }

// Binding is a signer and the chain it signs for, acquired but not yet
// bound to the gateway.
type Binding struct {
	Signer  Signer
	ChainID *big.Int
}

// Connect requests a signer from the provider and binds it together with
// the backend's chain ID.
func (g *Gateway) Connect(ctx context.Context) (common.Address, error) {
	b, err := g.Acquire(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return g.Bind(b), nil
}

// Acquire asks the provider for a signer and resolves the chain ID without
// binding either.
func (g *Gateway) Acquire(ctx context.Context) (Binding, error) {
	if g.provider == nil {
		return Binding{}, ErrNoWalletFound
	}
	signer, err := g.provider.RequestSigner(ctx)
	if err != nil {
		return Binding{}, err
	}
	chainID, err := g.backend.ChainID(ctx)
	if err != nil {
		return Binding{}, wrapRPC("eth_chainId", err)
	}
	return Binding{Signer: signer, ChainID: chainID}, nil
}

// Bind makes b the gateway's signer and returns its address.
func (g *Gateway) Bind(b Binding) common.Address {
	g.mu.Lock()
	g.signer = b.Signer
	g.chainID = b.ChainID
	g.mu.Unlock()

	log.Info("Wallet connected", "address", b.Signer.Address(), "chain", b.ChainID, "contract", g.contract)
	return b.Signer.Address()
}

// Disconnect drops the bound signer. Safe to call when not connected.
func (g *Gateway) Disconnect() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.signer != nil {
		log.Info("Wallet disconnected", "address", g.signer.Address())
	}
	g.signer = nil
	g.chainID = nil
}

// Connected reports whether a signer is bound.
func (g *Gateway) Connected() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.signer != nil
}

// Address returns the bound signer's address.
func (g *Gateway) Address() (common.Address, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.signer == nil {
		return common.Address{}, false
	}
	return g.signer.Address(), true
}

// ChainID returns the chain ID resolved at connect, or nil.
func (g *Gateway) ChainID() *big.Int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.chainID
}

func (g *Gateway) bound() (Signer, *big.Int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.signer, g.chainID, g.signer != nil
}

// Call executes a read-only contract method and returns its decoded outputs.
func (g *Gateway) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	m, ok := g.abi.Methods[method]
	if !ok || !m.IsConstant() {
		return nil, fmt.Errorf("%q is not a read method", method)
	}
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &g.contract, Data: data}
	if signer, _, ok := g.bound(); ok {
		msg.From = signer.Address()
	}
	out, err := g.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, wrapRPC(method, err)
	}
	res, err := g.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrRPC, method, err)
	}
	return res, nil
}

// Caller issues read-only contract calls. *Gateway implements it.
type Caller interface {
	Call(ctx context.Context, method string, args ...any) ([]any, error)
}

// CallOne calls a single-output read method and asserts its Go type.
func CallOne[T any](ctx context.Context, c Caller, method string, args ...any) (T, error) {
	var zero T
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return zero, err
	}
	if len(out) != 1 {
		return zero, fmt.Errorf("%w: %s returned %d values", ErrRPC, method, len(out))
	}
	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T, want %T", ErrRPC, method, out[0], zero)
	}
	return v, nil
}

// Send builds, signs and broadcasts a state-changing call.
func (g *Gateway) Send(ctx context.Context, method string, args ...any) (*Pending, error) {
	signer, chainID, ok := g.bound()
	if !ok {
		return nil, ErrNotConnected
	}
	m, ok := g.abi.Methods[method]
	if !ok || m.IsConstant() {
		return nil, fmt.Errorf("%q is not a write method", method)
	}
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	from := signer.Address()

	gas, err := g.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &g.contract, Data: data})
	if err != nil {
		if isRevert(err) {
			return nil, fmt.Errorf("%w: %s: %s", ErrReverted, method, revertReason(err.Error()))
		}
		gas = fallbackGas[method]
		log.Warn("Gas estimation failed, using fallback", "method", method, "gas", gas, "err", err)
	}

	tip, err := g.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, wrapRPC("eth_maxPriorityFeePerGas", err)
	}
	head, err := g.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, wrapRPC("eth_getBlockByNumber", err)
	}
	nonce, err := g.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, wrapRPC("eth_getTransactionCount", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap(head.BaseFee, tip),
		Gas:       gas,
		To:        &g.contract,
		Value:     new(big.Int),
		Data:      data,
	})

	signed, err := signer.SignTx(ctx, SignRequest{Method: method, Args: args, Tx: tx, ChainID: chainID})
	if err != nil {
		return nil, err
	}
	if err := g.backend.SendTransaction(ctx, signed); err != nil {
		return nil, wrapRPC("eth_sendRawTransaction", err)
	}

	log.Info("Transaction submitted", "method", method, "hash", signed.Hash(), "nonce", nonce, "gas", gas)
	return &Pending{
		Hash:   signed.Hash(),
		Method: method,
		From:   from,
		Nonce:  nonce,
		SentAt: time.Now(),
	}, nil
}

// feeCap leaves room for the base fee to double before the tx is priced out.
func feeCap(baseFee, tip *big.Int) *big.Int {
	if baseFee == nil {
		return new(big.Int).Mul(tip, big.NewInt(2))
	}
	c := new(big.Int).Mul(baseFee, big.NewInt(2))
	return c.Add(c, tip)
}

// AwaitFinality polls until p is mined. A failed receipt is ErrReverted;
// running past the finality timeout is ErrTimeout.
func (g *Gateway) AwaitFinality(ctx context.Context, p *Pending) (*types.Receipt, error) {
	if g.finalityTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.finalityTimeout)
		defer cancel()
	}
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		receipt, err := g.backend.TransactionReceipt(ctx, p.Hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w: %s (tx %s)", ErrReverted, p.Method, p.Hash.Hex())
			}
			log.Info("Transaction confirmed", "method", p.Method, "hash", p.Hash, "block", receipt.BlockNumber, "elapsed", time.Since(p.SentAt).Round(time.Millisecond))
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
			failures = 0
		case ctx.Err() == nil:
			failures++
			log.Debug("Receipt lookup failed", "hash", p.Hash, "attempt", failures, "err", err)
			if failures >= maxReceiptErrors {
				return nil, wrapRPC("eth_getTransactionReceipt", err)
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s (tx %s)", ErrTimeout, p.Method, p.Hash.Hex())
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ScaleAmount converts a human amount into base units.
func (g *Gateway) ScaleAmount(amount string, decimals uint8) (*big.Int, error) {
	return token.ParseUnits(amount, decimals)
}

// FormatAmount renders base units as a human amount.
func (g *Gateway) FormatAmount(raw *big.Int, decimals uint8) string {
	return token.FormatUnits(raw, decimals)
}
