package dashboard

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
	"github.com/Mohsinsiddi/tokendash/internal/config"
	"github.com/Mohsinsiddi/tokendash/internal/metrics"
	"github.com/Mohsinsiddi/tokendash/internal/rpc"
)

// Resolve returns the configured network from the registry.
func Resolve(cfg *config.Config) (*chain.Network, error) {
	return chain.NewRegistry().GetByName(cfg.Network)
}

// OptionsFromConfig maps cfg onto dashboard options for network n.
func OptionsFromConfig(cfg *config.Config, n *chain.Network, m *metrics.Metrics) Options {
	return Options{
		Contract:        cfg.Contract(),
		Network:         n,
		Mode:            cfg.NetworkMode,
		RateLimit:       cfg.RPCRateLimit,
		FinalityTimeout: cfg.FinalityWait(),
		StatusDisplay:   cfg.StatusDisplay(),
		PollInterval:    config.ReceiptPollInterval,
		Metrics:         m,
	}
}

// Dial picks the best RPC endpoint for the configured network, connects to
// it and builds a dashboard that owns the connection.
func Dial(ctx context.Context, cfg *config.Config, provider chain.Provider, m *metrics.Metrics) (*Dashboard, error) {
	n, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}

	selCtx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()
	url, err := rpc.Best(selCtx, cfg.Endpoints(n), rpc.Algorithm(cfg.RPCAlgorithm))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", chain.ErrRPC, n.Name, err)
	}

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", chain.ErrRPC, url, err)
	}
	log.Info("Connected to RPC", "network", n.Name, "mode", cfg.NetworkMode, "url", url)

	d := New(client, provider, OptionsFromConfig(cfg, n, m))
	d.closer = client.Close
	return d, nil
}
