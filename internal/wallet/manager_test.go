package wallet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/tokendash/internal/wallet"
)

// Well-known Hardhat/Anvil test account #0, never fund on mainnet.
const (
	anvilKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	anvilAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestAddWatchOnlyWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	require.NoError(t, mgr.AddWatchOnly("watcher", "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"))

	w, err := mgr.Get("watcher")
	require.NoError(t, err)
	assert.Equal(t, wallet.TypeWatchOnly, w.Type)
	assert.Equal(t, anvilAddr, w.Address, "address is stored checksummed")
	assert.False(t, w.CanSign())
	assert.NotEmpty(t, w.CreatedAt)
}

func TestAddWatchOnlyRejectsBadAddress(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	err := mgr.AddWatchOnly("bad", "0x123")
	assert.ErrorIs(t, err, wallet.ErrInvalidAddress)
}

func TestAddDuplicateWalletErrors(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	require.NoError(t, mgr.AddWatchOnly("dup", anvilAddr))
	assert.ErrorIs(t, mgr.AddWatchOnly("dup", anvilAddr), wallet.ErrWalletExists)

	_, err := mgr.AddWithKey("dup", anvilKey)
	assert.ErrorIs(t, err, wallet.ErrWalletExists)
}

func TestAddSigningWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	w, err := mgr.AddWithKey("signer", anvilKey)
	require.NoError(t, err)
	assert.Equal(t, wallet.TypeSigning, w.Type)
	assert.Equal(t, anvilAddr, w.Address)
	assert.True(t, w.CanSign())

	stored, err := mgr.Keystore().Retrieve(w.KeyRef)
	require.NoError(t, err)
	assert.Equal(t, anvilKey[2:], stored, "key is stored without 0x prefix")
}

func TestInvalidPrivateKey(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := mgr.AddWithKey("bad", "not-a-valid-key")
	assert.ErrorIs(t, err, wallet.ErrInvalidKey)
}

func TestGenerateWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	w, err := mgr.Generate("fresh")
	require.NoError(t, err)
	assert.True(t, w.CanSign())
	assert.Len(t, w.Address, 42)

	hexKey, err := mgr.Keystore().Retrieve(w.KeyRef)
	require.NoError(t, err)
	s, err := wallet.NewSigner("fresh", hexKey, nil)
	require.NoError(t, err)
	assert.Equal(t, w.Address, s.Address().Hex())
}

func TestListWalletsSorted(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	require.NoError(t, mgr.AddWatchOnly("zeta", anvilAddr))
	require.NoError(t, mgr.AddWatchOnly("alpha", anvilAddr))
	require.NoError(t, mgr.AddWatchOnly("mid", anvilAddr))

	list, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, []string{list[0].Name, list[1].Name, list[2].Name})
}

func TestRemoveWalletDeletesKey(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	w, err := mgr.AddWithKey("gone", anvilKey)
	require.NoError(t, err)

	require.NoError(t, mgr.Remove("gone"))

	_, err = mgr.Get("gone")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
	_, err = mgr.Keystore().Retrieve(w.KeyRef)
	assert.ErrorIs(t, err, wallet.ErrKeyUnavailable)

	assert.ErrorIs(t, mgr.Remove("gone"), wallet.ErrWalletNotFound)
}

func TestDefaultWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	assert.Nil(t, mgr.Default())

	require.NoError(t, mgr.AddWatchOnly("only", anvilAddr))
	require.NotNil(t, mgr.Default(), "a single wallet is the implicit default")
	assert.Equal(t, "only", mgr.Default().Name)

	require.NoError(t, mgr.AddWatchOnly("second", anvilAddr))
	assert.Nil(t, mgr.Default(), "no implicit default among several wallets")

	require.NoError(t, mgr.SetDefault("second"))
	assert.Equal(t, "second", mgr.Default().Name)

	assert.ErrorIs(t, mgr.SetDefault("missing"), wallet.ErrWalletNotFound)
}
