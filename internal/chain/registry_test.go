package chain_test

import (
	"testing"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetByName(t *testing.T) {
	registry := chain.NewRegistry()

	tests := []struct {
		name    string
		chainID int64
	}{
		{"ethereum", 1},
		{"base", 8453},
		{"polygon", 137},
		{"arbitrum", 42161},
		{"optimism", 10},
		{"bnb", 56},
		{"avalanche", 43114},
		{"local", 31337},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := registry.GetByName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, n.Name)
			assert.Equal(t, tt.chainID, n.ChainID)
		})
	}
}

func TestRegistryGetByNameIsCaseInsensitive(t *testing.T) {
	n, err := chain.NewRegistry().GetByName("  Base ")
	require.NoError(t, err)
	assert.Equal(t, "base", n.Name)
}

func TestRegistryGetUnknownNetwork(t *testing.T) {
	_, err := chain.NewRegistry().GetByName("unknownchain")
	assert.ErrorIs(t, err, chain.ErrNetworkNotFound)
}

func TestAllNetworksHaveRPC(t *testing.T) {
	for _, n := range chain.NewRegistry().All() {
		t.Run(n.Name, func(t *testing.T) {
			assert.NotEmpty(t, n.MainnetRPCs, "network %s has no mainnet RPCs", n.Name)
			assert.NotEmpty(t, n.TestnetRPCs, "network %s has no testnet RPCs", n.Name)
		})
	}
}

func TestGetByChainID(t *testing.T) {
	registry := chain.NewRegistry()

	n, err := registry.GetByChainID(8453)
	require.NoError(t, err)
	assert.Equal(t, "base", n.Name)

	// Testnet IDs resolve to the same entry.
	n, err = registry.GetByChainID(11155111)
	require.NoError(t, err)
	assert.Equal(t, "ethereum", n.Name)

	_, err = registry.GetByChainID(999999)
	assert.ErrorIs(t, err, chain.ErrNetworkNotFound)
}

func TestNetworkModeAccessors(t *testing.T) {
	n, err := chain.NewRegistry().GetByName("ethereum")
	require.NoError(t, err)

	assert.Equal(t, n.MainnetRPCs, n.RPCs("mainnet"))
	assert.Equal(t, n.TestnetRPCs, n.RPCs("testnet"))
	assert.Equal(t, "https://etherscan.io", n.Explorer("mainnet"))
	assert.Equal(t, "https://sepolia.etherscan.io", n.Explorer("testnet"))
}

func TestTxURL(t *testing.T) {
	registry := chain.NewRegistry()

	eth, _ := registry.GetByName("ethereum")
	assert.Equal(t, "https://sepolia.etherscan.io/tx/0xabc", eth.TxURL("testnet", "0xabc"))

	local, _ := registry.GetByName("local")
	assert.Empty(t, local.TxURL("mainnet", "0xabc"))
}
