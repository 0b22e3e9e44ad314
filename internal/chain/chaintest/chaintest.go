// Package chaintest provides an in-memory token chain and wallet for tests.
// The backend decodes real ABI calldata and recovers real transaction
// senders, so everything above chain.Backend runs unmodified against it.
package chaintest

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
	"github.com/Mohsinsiddi/tokendash/internal/token"
)

// ChainID of the simulated chain.
var ChainID = big.NewInt(31337)

// Contract is the address the simulated token lives at.
var Contract = common.HexToAddress(token.DefaultContractAddress)

// Token is the state of the simulated contract.
type Token struct {
	Name        string
	Symbol      string
	Decimals    uint8
	Owner       common.Address
	Paused      bool
	Supply      *big.Int
	Balances    map[common.Address]*big.Int
	Allowances  map[common.Address]map[common.Address]*big.Int
	Blacklisted map[common.Address]bool
}

// NewToken returns a 6-decimal token with 1,000,000 units minted to owner.
func NewToken(owner common.Address) *Token {
	supply := Units(1_000_000, 6)
	return &Token{
		Name:        "Indian Rupee Coin",
		Symbol:      "INRC",
		Decimals:    6,
		Owner:       owner,
		Supply:      new(big.Int).Set(supply),
		Balances:    map[common.Address]*big.Int{owner: supply},
		Allowances:  map[common.Address]map[common.Address]*big.Int{},
		Blacklisted: map[common.Address]bool{},
	}
}

// Units returns n whole tokens in base units.
func Units(n int64, decimals uint8) *big.Int {
	exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return exp.Mul(exp, big.NewInt(n))
}

func (t *Token) balance(a common.Address) *big.Int {
	if b, ok := t.Balances[a]; ok {
		return b
	}
	return new(big.Int)
}

func (t *Token) allowance(owner, spender common.Address) *big.Int {
	if m, ok := t.Allowances[owner]; ok {
		if v, ok := m[spender]; ok {
			return v
		}
	}
	return new(big.Int)
}

// Backend is an in-memory chain.Backend hosting one Token at Contract.
type Backend struct {
	mu      sync.Mutex
	token   *Token
	nonces  map[common.Address]uint64
	mined   map[common.Hash]*types.Receipt
	held    []*types.Receipt
	sent    []*types.Transaction
	block   uint64
	calls   atomic.Int64
	gate    chan struct{}
	hold    bool
	noCheck bool

	callErr    error
	failAfter  int64
	chainIDErr error
	sendErr    error
	receiptErr error
}

var _ chain.Backend = (*Backend)(nil)

// NewBackend returns a backend hosting tok.
func NewBackend(tok *Token) *Backend {
	return &Backend{
		token:  tok,
		nonces: map[common.Address]uint64{},
		mined:  map[common.Hash]*types.Receipt{},
		block:  1,
	}
}

// --- failure injection ---

// FailCalls makes every CallContract return err (nil restores).
func (b *Backend) FailCalls(err error) {
	b.mu.Lock()
	b.callErr, b.failAfter = err, 0
	b.mu.Unlock()
}

// FailCallsAfter lets n more CallContract requests succeed, then fails the
// rest with err.
func (b *Backend) FailCallsAfter(n int64, err error) {
	b.mu.Lock()
	b.failAfter = b.calls.Load() + n
	b.callErr = err
	b.mu.Unlock()
}

// FailChainID makes ChainID return err.
func (b *Backend) FailChainID(err error) { b.mu.Lock(); b.chainIDErr = err; b.mu.Unlock() }

// FailSend makes SendTransaction return err.
func (b *Backend) FailSend(err error) { b.mu.Lock(); b.sendErr = err; b.mu.Unlock() }

// FailReceipts makes TransactionReceipt return err.
func (b *Backend) FailReceipts(err error) { b.mu.Lock(); b.receiptErr = err; b.mu.Unlock() }

// SkipPreflight stops EstimateGas from simulating, so a reverting call is
// mined with a failed receipt instead of being rejected up front.
func (b *Backend) SkipPreflight(on bool) { b.mu.Lock(); b.noCheck = on; b.mu.Unlock() }

// HoldReceipts keeps new transactions unmined until Release.
func (b *Backend) HoldReceipts(on bool) { b.mu.Lock(); b.hold = on; b.mu.Unlock() }

// Release mines every held transaction.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.held {
		b.mined[r.TxHash] = r
	}
	b.held = nil
	b.hold = false
}

// BlockCalls parks every CallContract until the returned func is called.
func (b *Backend) BlockCalls() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gate = gate
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.gate = nil
			b.mu.Unlock()
			close(gate)
		})
	}
}

// --- inspection ---

// Mutate runs fn against the token state under the backend lock.
func (b *Backend) Mutate(fn func(*Token)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.token)
}

// BalanceOf returns the simulated balance of a.
func (b *Backend) BalanceOf(a common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.token.balance(a))
}

// Paused returns the simulated pause flag.
func (b *Backend) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token.Paused
}

// Owner returns the simulated owner.
func (b *Backend) Owner() common.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token.Owner
}

// IsBlacklisted returns the simulated blacklist flag for a.
func (b *Backend) IsBlacklisted(a common.Address) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token.Blacklisted[a]
}

// Sent returns the transactions broadcast so far.
func (b *Backend) Sent() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.sent...)
}

// CallCount returns how many CallContract requests were served.
func (b *Backend) CallCount() int64 { return b.calls.Load() }

// --- chain.Backend ---

func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.chainIDErr != nil {
		return nil, b.chainIDErr
	}
	return new(big.Int).Set(ChainID), nil
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	b.mu.Lock()
	err := b.callErr
	if err != nil && b.failAfter > 0 && b.calls.Load() < b.failAfter {
		err = nil
	}
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	b.calls.Add(1)
	if msg.To == nil || *msg.To != Contract {
		return nil, nil
	}

	m, args, err := decode(msg.Data)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.token
	var out []any
	switch m {
	case token.MethodName:
		out = []any{t.Name}
	case token.MethodSymbol:
		out = []any{t.Symbol}
	case token.MethodDecimals:
		out = []any{t.Decimals}
	case token.MethodTotalSupply:
		out = []any{new(big.Int).Set(t.Supply)}
	case token.MethodBalanceOf:
		out = []any{new(big.Int).Set(t.balance(args[0].(common.Address)))}
	case token.MethodAllowance:
		out = []any{new(big.Int).Set(t.allowance(args[0].(common.Address), args[1].(common.Address)))}
	case token.MethodOwner:
		out = []any{t.Owner}
	case token.MethodIsBlacklisted:
		out = []any{t.Blacklisted[args[0].(common.Address)]}
	case token.MethodPaused:
		out = []any{t.Paused}
	default:
		return nil, fmt.Errorf("execution reverted: %s is not a view", m)
	}
	return token.ABI().Methods[m].Outputs.Pack(out...)
}

func (b *Backend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.noCheck {
		return 70_000, nil
	}
	m, args, err := decode(msg.Data)
	if err != nil {
		return 0, err
	}
	if err := b.exec(msg.From, m, args, false); err != nil {
		return 0, err
	}
	return 55_000, nil
}

func (b *Backend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *Backend) HeaderByNumber(ctx context.Context, _ *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(b.block), BaseFee: big.NewInt(10_000_000_000)}, nil
}

func (b *Backend) PendingNonceAt(ctx context.Context, a common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[a], nil
}

func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return b.sendErr
	}
	from, err := types.Sender(types.LatestSignerForChainID(ChainID), tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if tx.Nonce() != b.nonces[from] {
		return fmt.Errorf("nonce too low: have %d, want %d", tx.Nonce(), b.nonces[from])
	}
	b.nonces[from]++
	b.sent = append(b.sent, tx)

	status := types.ReceiptStatusSuccessful
	if m, args, err := decode(tx.Data()); err != nil || b.exec(from, m, args, true) != nil {
		status = types.ReceiptStatusFailed
	}
	b.block++
	r := &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		GasUsed:     tx.Gas(),
		BlockNumber: new(big.Int).SetUint64(b.block),
	}
	if b.hold {
		b.held = append(b.held, r)
	} else {
		b.mined[r.TxHash] = r
	}
	return nil
}

func (b *Backend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.receiptErr != nil {
		return nil, b.receiptErr
	}
	r, ok := b.mined[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

// --- contract rules ---

func decode(data []byte) (string, []any, error) {
	if len(data) < 4 {
		return "", nil, errors.New("execution reverted: no selector")
	}
	parsed := token.ABI()
	m, err := parsed.MethodById(data[:4])
	if err != nil {
		return "", nil, fmt.Errorf("execution reverted: %v", err)
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return "", nil, fmt.Errorf("execution reverted: %v", err)
	}
	return m.Name, args, nil
}

func revert(reason string) error {
	return fmt.Errorf("execution reverted: %s", reason)
}

// exec applies the contract rules for a write call. With commit false it
// only reports whether the call would revert.
func (b *Backend) exec(from common.Address, method string, args []any, commit bool) error {
	t := b.token
	onlyOwner := func() error {
		if from != t.Owner {
			return revert("caller is not the owner")
		}
		return nil
	}
	move := func(src, dst common.Address, amount *big.Int) error {
		if t.Paused {
			return revert("token is paused")
		}
		if t.Blacklisted[src] || t.Blacklisted[dst] {
			return revert("account is blacklisted")
		}
		if t.balance(src).Cmp(amount) < 0 {
			return revert("insufficient balance")
		}
		if commit {
			t.Balances[src] = new(big.Int).Sub(t.balance(src), amount)
			t.Balances[dst] = new(big.Int).Add(t.balance(dst), amount)
		}
		return nil
	}

	switch method {
	case token.MethodTransfer:
		return move(from, args[0].(common.Address), args[1].(*big.Int))

	case token.MethodApprove:
		if commit {
			spender := args[0].(common.Address)
			if t.Allowances[from] == nil {
				t.Allowances[from] = map[common.Address]*big.Int{}
			}
			t.Allowances[from][spender] = new(big.Int).Set(args[1].(*big.Int))
		}
		return nil

	case token.MethodTransferFrom:
		src, dst, amount := args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int)
		allowed := t.allowance(src, from)
		if allowed.Cmp(amount) < 0 {
			return revert("insufficient allowance")
		}
		if err := move(src, dst, amount); err != nil {
			return err
		}
		if commit {
			if t.Allowances[src] == nil {
				t.Allowances[src] = map[common.Address]*big.Int{}
			}
			t.Allowances[src][from] = new(big.Int).Sub(allowed, amount)
		}
		return nil

	case token.MethodMint:
		if err := onlyOwner(); err != nil {
			return err
		}
		to, amount := args[0].(common.Address), args[1].(*big.Int)
		if t.Blacklisted[to] {
			return revert("account is blacklisted")
		}
		if commit {
			t.Balances[to] = new(big.Int).Add(t.balance(to), amount)
			t.Supply = new(big.Int).Add(t.Supply, amount)
		}
		return nil

	case token.MethodBurn:
		if err := onlyOwner(); err != nil {
			return err
		}
		src, amount := args[0].(common.Address), args[1].(*big.Int)
		if t.balance(src).Cmp(amount) < 0 {
			return revert("burn amount exceeds balance")
		}
		if commit {
			t.Balances[src] = new(big.Int).Sub(t.balance(src), amount)
			t.Supply = new(big.Int).Sub(t.Supply, amount)
		}
		return nil

	case token.MethodBlacklist, token.MethodUnblacklist:
		if err := onlyOwner(); err != nil {
			return err
		}
		if commit {
			t.Blacklisted[args[0].(common.Address)] = method == token.MethodBlacklist
		}
		return nil

	case token.MethodPause, token.MethodUnpause:
		if err := onlyOwner(); err != nil {
			return err
		}
		want := method == token.MethodPause
		if t.Paused == want {
			return revert("pause state unchanged")
		}
		if commit {
			t.Paused = want
		}
		return nil

	case token.MethodTransferOwnership:
		if err := onlyOwner(); err != nil {
			return err
		}
		next := args[0].(common.Address)
		if next == (common.Address{}) {
			return revert("new owner is the zero address")
		}
		if commit {
			t.Owner = next
		}
		return nil
	}
	return revert(method + " is not a write method")
}

// --- wallet ---

// Wallet is a chain.Signer over a throwaway key.
type Wallet struct {
	key    *ecdsa.PrivateKey
	reject atomic.Bool
	signed atomic.Int64
}

var _ chain.Signer = (*Wallet)(nil)

// NewWallet generates a fresh key.
func NewWallet() *Wallet {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return &Wallet{key: key}
}

func (w *Wallet) Address() common.Address { return crypto.PubkeyToAddress(w.key.PublicKey) }

// Reject makes every following SignTx decline.
func (w *Wallet) Reject(on bool) { w.reject.Store(on) }

// Signed returns how many transactions the wallet signed.
func (w *Wallet) Signed() int64 { return w.signed.Load() }

func (w *Wallet) SignTx(ctx context.Context, req chain.SignRequest) (*types.Transaction, error) {
	if w.reject.Load() {
		return nil, fmt.Errorf("%w: %s declined", chain.ErrUserRejected, req.Method)
	}
	tx, err := types.SignTx(req.Tx, types.LatestSignerForChainID(req.ChainID), w.key)
	if err != nil {
		return nil, err
	}
	w.signed.Add(1)
	return tx, nil
}

// Provider hands out one Wallet, or a configured error.
type Provider struct {
	mu     sync.Mutex
	wallet *Wallet
	err    error
	hold   chan struct{}
}

var _ chain.Provider = (*Provider)(nil)

// NewProvider returns a provider for w. A nil wallet yields ErrNoWalletFound.
func NewProvider(w *Wallet) *Provider { return &Provider{wallet: w} }

// Fail makes RequestSigner return err (nil restores).
func (p *Provider) Fail(err error) { p.mu.Lock(); p.err = err; p.mu.Unlock() }

// Use swaps the wallet handed out on the next connect.
func (p *Provider) Use(w *Wallet) { p.mu.Lock(); p.wallet = w; p.mu.Unlock() }

// HoldNext makes the next RequestSigner pick its wallet and then wait until
// release is called. Later requests are not held.
func (p *Provider) HoldNext() (release func()) {
	hold := make(chan struct{})
	p.mu.Lock()
	p.hold = hold
	p.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(hold) }) }
}

func (p *Provider) RequestSigner(ctx context.Context) (chain.Signer, error) {
	p.mu.Lock()
	w, err, hold := p.wallet, p.err, p.hold
	p.hold = nil
	p.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, chain.ErrNoWalletFound
	}
	return w, nil
}
