package chain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNetworkNotFound is returned when a network is not in the registry.
var ErrNetworkNotFound = errors.New("network not found")

// Network holds the metadata needed to reach one EVM chain.
type Network struct {
	Name            string   `json:"name"`
	DisplayName     string   `json:"display_name"`
	ChainID         int64    `json:"chain_id"`
	TestnetChainID  int64    `json:"testnet_chain_id"`
	NativeCurrency  string   `json:"native_currency"`
	MainnetRPCs     []string `json:"mainnet_rpcs"`
	TestnetRPCs     []string `json:"testnet_rpcs"`
	MainnetExplorer string   `json:"mainnet_explorer"`
	TestnetExplorer string   `json:"testnet_explorer"`
	TestnetName     string   `json:"testnet_name"`
}

// Registry is the network registry.
type Registry struct {
	networks []Network
	byName   map[string]*Network
	byID     map[int64]*Network
}

// NewRegistry returns the registry of supported networks.
func NewRegistry() *Registry {
	networks := allNetworks()
	r := &Registry{
		networks: networks,
		byName:   make(map[string]*Network, len(networks)),
		byID:     make(map[int64]*Network, len(networks)*2),
	}
	for i := range r.networks {
		n := &r.networks[i]
		r.byName[n.Name] = n
		r.byID[n.ChainID] = n
		if n.TestnetChainID != 0 {
			r.byID[n.TestnetChainID] = n
		}
	}
	return r
}

// All returns every network in the registry.
func (r *Registry) All() []Network {
	return r.networks
}

// GetByName finds a network by its slug name (e.g. "base", "ethereum").
func (r *Registry) GetByName(name string) (*Network, error) {
	n, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNetworkNotFound, name)
	}
	return n, nil
}

// GetByChainID finds a network by its mainnet or testnet chain ID.
func (r *Registry) GetByChainID(id int64) (*Network, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: chain id %d", ErrNetworkNotFound, id)
	}
	return n, nil
}

// RPCs returns the RPC list for a network in the given mode ("mainnet"/"testnet").
func (n *Network) RPCs(mode string) []string {
	if mode == "testnet" {
		return n.TestnetRPCs
	}
	return n.MainnetRPCs
}

// Explorer returns the explorer URL for a network in the given mode.
func (n *Network) Explorer(mode string) string {
	if mode == "testnet" {
		return n.TestnetExplorer
	}
	return n.MainnetExplorer
}

// TxURL returns the explorer link for a transaction, or "" when the network
// has no explorer.
func (n *Network) TxURL(mode, hash string) string {
	base := n.Explorer(mode)
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/tx/" + hash
}

// --- network data ---

func allNetworks() []Network {
	return []Network{
		{
			Name: "ethereum", DisplayName: "Ethereum", ChainID: 1, TestnetChainID: 11155111,
			NativeCurrency:  "ETH",
			MainnetRPCs:     []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
			TestnetRPCs:     []string{"https://ethereum-sepolia-rpc.publicnode.com", "https://sepolia.gateway.tenderly.co"},
			MainnetExplorer: "https://etherscan.io",
			TestnetExplorer: "https://sepolia.etherscan.io",
			TestnetName:     "Sepolia",
		},
		{
			Name: "base", DisplayName: "Base", ChainID: 8453, TestnetChainID: 84532,
			NativeCurrency:  "ETH",
			MainnetRPCs:     []string{"https://mainnet.base.org", "https://base.llamarpc.com"},
			TestnetRPCs:     []string{"https://sepolia.base.org"},
			MainnetExplorer: "https://basescan.org",
			TestnetExplorer: "https://sepolia.basescan.org",
			TestnetName:     "Base Sepolia",
		},
		{
			Name: "polygon", DisplayName: "Polygon", ChainID: 137, TestnetChainID: 80002,
			NativeCurrency:  "POL",
			MainnetRPCs:     []string{"https://polygon-bor-rpc.publicnode.com", "https://polygon-pokt.nodies.app"},
			TestnetRPCs:     []string{"https://rpc-amoy.polygon.technology"},
			MainnetExplorer: "https://polygonscan.com",
			TestnetExplorer: "https://amoy.polygonscan.com",
			TestnetName:     "Amoy",
		},
		{
			Name: "arbitrum", DisplayName: "Arbitrum", ChainID: 42161, TestnetChainID: 421614,
			NativeCurrency:  "ETH",
			MainnetRPCs:     []string{"https://arb1.arbitrum.io/rpc", "https://arbitrum.llamarpc.com"},
			TestnetRPCs:     []string{"https://sepolia-rollup.arbitrum.io/rpc"},
			MainnetExplorer: "https://arbiscan.io",
			TestnetExplorer: "https://sepolia.arbiscan.io",
			TestnetName:     "Arb Sepolia",
		},
		{
			Name: "optimism", DisplayName: "Optimism", ChainID: 10, TestnetChainID: 11155420,
			NativeCurrency:  "ETH",
			MainnetRPCs:     []string{"https://mainnet.optimism.io", "https://optimism.llamarpc.com"},
			TestnetRPCs:     []string{"https://sepolia.optimism.io"},
			MainnetExplorer: "https://optimistic.etherscan.io",
			TestnetExplorer: "https://sepolia-optimism.etherscan.io",
			TestnetName:     "OP Sepolia",
		},
		{
			Name: "bnb", DisplayName: "BNB Chain", ChainID: 56, TestnetChainID: 97,
			NativeCurrency:  "BNB",
			MainnetRPCs:     []string{"https://bsc-dataseed.binance.org", "https://bsc-rpc.publicnode.com"},
			TestnetRPCs:     []string{"https://data-seed-prebsc-1-s1.binance.org:8545"},
			MainnetExplorer: "https://bscscan.com",
			TestnetExplorer: "https://testnet.bscscan.com",
			TestnetName:     "BSC Testnet",
		},
		{
			Name: "avalanche", DisplayName: "Avalanche", ChainID: 43114, TestnetChainID: 43113,
			NativeCurrency:  "AVAX",
			MainnetRPCs:     []string{"https://api.avax.network/ext/bc/C/rpc", "https://avalanche-c-chain-rpc.publicnode.com"},
			TestnetRPCs:     []string{"https://api.avax-test.network/ext/bc/C/rpc"},
			MainnetExplorer: "https://snowtrace.io",
			TestnetExplorer: "https://testnet.snowtrace.io",
			TestnetName:     "Fuji",
		},
		// Local development node (anvil / hardhat). No explorer.
		{
			Name: "local", DisplayName: "Local node", ChainID: 31337,
			NativeCurrency: "ETH",
			MainnetRPCs:    []string{"http://127.0.0.1:8545"},
			TestnetRPCs:    []string{"http://127.0.0.1:8545"},
			TestnetName:    "Local node",
		},
	}
}
