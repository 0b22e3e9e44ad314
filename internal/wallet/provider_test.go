package wallet

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
)

func TestProviderNoWallets(t *testing.T) {
	p := NewProvider(NewManager(WithInMemoryStore()), AutoApprove)
	_, err := p.RequestSigner(context.Background())
	assert.ErrorIs(t, err, chain.ErrNoWalletFound)
}

func TestProviderNilManager(t *testing.T) {
	_, err := NewProvider(nil, AutoApprove).RequestSigner(context.Background())
	assert.ErrorIs(t, err, chain.ErrNoWalletFound)
}

func TestProviderWatchOnlyIsNotAWallet(t *testing.T) {
	mgr := NewManager(WithInMemoryStore())
	require.NoError(t, mgr.AddWatchOnly("watch", testSignerAddr))

	_, err := NewProvider(mgr, AutoApprove).RequestSigner(context.Background())
	assert.ErrorIs(t, err, chain.ErrNoWalletFound)
}

func TestProviderDefaultSigningWallet(t *testing.T) {
	mgr := NewManager(WithInMemoryStore())
	_, err := mgr.AddWithKey("main", testPrivKeyHex)
	require.NoError(t, err)

	s, err := NewProvider(mgr, AutoApprove).RequestSigner(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, s.Address().Hex())
}

func TestProviderNamedWallet(t *testing.T) {
	mgr := NewManager(WithInMemoryStore())
	_, err := mgr.AddWithKey("main", testPrivKeyHex)
	require.NoError(t, err)
	_, err = mgr.Generate("other")
	require.NoError(t, err)

	s, err := NewProvider(mgr, AutoApprove, WithWalletName("main")).RequestSigner(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, s.Address().Hex())

	_, err = NewProvider(mgr, AutoApprove, WithWalletName("ghost")).RequestSigner(context.Background())
	assert.ErrorIs(t, err, chain.ErrNoWalletFound)
}

func TestProviderKeychainRefusalIsRejection(t *testing.T) {
	ks := NewInMemoryKeystore()
	mgr := NewManager(WithInMemoryStore(), WithKeystore(ks))
	w, err := mgr.AddWithKey("main", testPrivKeyHex)
	require.NoError(t, err)
	require.NoError(t, ks.Delete(w.KeyRef))

	_, err = NewProvider(mgr, AutoApprove).RequestSigner(context.Background())
	assert.ErrorIs(t, err, chain.ErrUserRejected)
}

func TestProviderPrefersUnlockedKey(t *testing.T) {
	ks := NewInMemoryKeystore()
	mgr := NewManager(WithInMemoryStore(), WithKeystore(ks))
	w, err := mgr.AddWithKey("main", testPrivKeyHex)
	require.NoError(t, err)

	cache := NewKeyCache(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, cache.Put(w.KeyRef, testPrivKeyHex))
	// Keychain now unavailable; the cached key still unlocks the wallet.
	require.NoError(t, ks.Delete(w.KeyRef))

	s, err := NewProvider(mgr, AutoApprove, WithKeyCache(cache)).RequestSigner(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, s.Address().Hex())
}
