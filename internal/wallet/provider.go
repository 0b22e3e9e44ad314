package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
)

// Provider resolves the configured signing wallet and hands its Signer to
// the gateway on connect.
type Provider struct {
	mgr     *Manager
	cache   *KeyCache
	approve Approver
	name    string
}

var _ chain.Provider = (*Provider)(nil)

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithWalletName pins the wallet to connect instead of the default one.
func WithWalletName(name string) ProviderOption {
	return func(p *Provider) { p.name = name }
}

// WithKeyCache lets the provider use keys unlocked by `wallet unlock`.
func WithKeyCache(c *KeyCache) ProviderOption {
	return func(p *Provider) { p.cache = c }
}

// NewProvider returns a provider over mgr. approve is consulted before every
// signature.
func NewProvider(mgr *Manager, approve Approver, opts ...ProviderOption) *Provider {
	p := &Provider{mgr: mgr, approve: approve}
	for _, o := range opts {
		o(p)
	}
	return p
}

// SetApprover swaps the approval prompt, e.g. when the TUI takes over the
// terminal from the CLI.
func (p *Provider) SetApprover(a Approver) { p.approve = a }

// RequestSigner unlocks the selected wallet. A missing or watch-only wallet
// is ErrNoWalletFound; a keychain that refuses to hand out the key is
// ErrUserRejected.
func (p *Provider) RequestSigner(ctx context.Context) (chain.Signer, error) {
	w, err := p.selectWallet()
	if err != nil {
		return nil, err
	}
	if !w.CanSign() {
		return nil, fmt.Errorf("%w: wallet %q is watch-only", chain.ErrNoWalletFound, w.Name)
	}

	hexKey, err := p.unlock(w)
	if err != nil {
		return nil, err
	}
	signer, err := NewSigner(w.Name, hexKey, p.approve)
	if err != nil {
		return nil, err
	}
	if signer.Address().Hex() != w.Address {
		return nil, fmt.Errorf("%w: key for %q does not match %s", ErrInvalidKey, w.Name, w.Address)
	}
	return signer, nil
}

func (p *Provider) selectWallet() (*Wallet, error) {
	if p.mgr == nil {
		return nil, chain.ErrNoWalletFound
	}
	if p.name != "" {
		w, err := p.mgr.Get(p.name)
		if errors.Is(err, ErrWalletNotFound) {
			return nil, fmt.Errorf("%w: %v", chain.ErrNoWalletFound, err)
		}
		return w, err
	}
	w := p.mgr.Default()
	if w == nil {
		return nil, fmt.Errorf("%w: add one with `tokendash wallet add`", chain.ErrNoWalletFound)
	}
	return w, nil
}

func (p *Provider) unlock(w *Wallet) (string, error) {
	if p.cache != nil {
		if hexKey, ok := p.cache.Get(w.KeyRef); ok {
			return hexKey, nil
		}
	}
	hexKey, err := p.mgr.Keystore().Retrieve(w.KeyRef)
	if err != nil {
		log.Warn("Keychain refused key", "wallet", w.Name, "err", err)
		return "", fmt.Errorf("%w: %v", chain.ErrUserRejected, err)
	}
	return hexKey, nil
}
