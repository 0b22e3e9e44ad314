package cmd

import (
	"context"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendash/internal/dashboard"
	"github.com/Mohsinsiddi/tokendash/internal/metrics"
	"github.com/Mohsinsiddi/tokendash/internal/ui"
	"github.com/Mohsinsiddi/tokendash/internal/wallet"
)

func newWalletManager() *wallet.Manager {
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(wallet.DefaultKeystore(cfg.Dir())),
	)
}

func newKeyCache() *wallet.KeyCache {
	return wallet.NewKeyCache(wallet.DefaultKeyCachePath())
}

// newProvider returns the wallet provider for cfg.DefaultWallet. Without
// --yes every signature is confirmed on the terminal.
func newProvider() *wallet.Provider {
	approve := wallet.Approver(ui.TerminalApprover(os.Stdin, os.Stderr))
	if assumeYes {
		approve = wallet.AutoApprove
	}
	var opts []wallet.ProviderOption
	opts = append(opts, wallet.WithKeyCache(newKeyCache()))
	if cfg.DefaultWallet != "" {
		opts = append(opts, wallet.WithWalletName(cfg.DefaultWallet))
	}
	return wallet.NewProvider(newWalletManager(), approve, opts...)
}

// openDashboard dials the configured network and, when metrics_addr is
// set, serves metrics until ctx ends.
func openDashboard(ctx context.Context, p *wallet.Provider) (*dashboard.Dashboard, error) {
	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New()
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error("Metrics server stopped", "addr", cfg.MetricsAddr, "err", err)
			}
		}()
	}
	return dashboard.Dial(ctx, cfg, p, m)
}

func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), d)
}
