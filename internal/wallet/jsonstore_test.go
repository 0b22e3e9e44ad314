package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// NewJSONStore / Load / Save
// ---------------------------------------------------------------------------

func TestJSONStoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	store := NewJSONStore(path)

	wallets := []*Wallet{
		{Name: "alice", Address: "0x1111", Type: TypeWatchOnly},
		{Name: "bob", Address: "0x2222", Type: TypeSigning, KeyRef: "tokendash.bob", IsDefault: true},
	}
	require.NoError(t, store.Save(wallets))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "alice", loaded[0].Name)
	assert.Equal(t, TypeSigning, loaded[1].Type)
	assert.Equal(t, "tokendash.bob", loaded[1].KeyRef)
	assert.True(t, loaded[1].IsDefault)
}

func TestJSONStoreLoadNoFile(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "nonexistent.json"))

	wallets, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, wallets, "loading a missing file should return nil, nil")
}

func TestJSONStoreSaveCreatesDirAndRestrictsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wallets.json")
	require.NoError(t, NewJSONStore(path).Save([]*Wallet{}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestJSONStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewJSONStore(path).Load()
	assert.Error(t, err)
}

func TestManagerPersistsThroughJSONStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	ks := NewInMemoryKeystore()

	mgr := NewManager(WithStore(NewJSONStore(path)), WithKeystore(ks))
	_, err := mgr.AddWithKey("main", "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)
	require.NoError(t, mgr.SetDefault("main"))

	reopened := NewManager(WithStore(NewJSONStore(path)), WithKeystore(ks))
	def := reopened.Default()
	require.NotNil(t, def)
	assert.Equal(t, "main", def.Name)
	assert.True(t, def.CanSign())
}
