package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendash/internal/config"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/tokendash/cmd.Version=1.2.3" .
var Version = "0.1.0"

// annotationTUI marks commands that take over the terminal; their logs go
// to the log file instead of stderr.
const annotationTUI = "tui"

var (
	cfgDir     string
	cfg        *config.Config
	verbose    bool
	testnet    bool
	mainnet    bool
	networkArg string
	walletArg  string
	assumeYes  bool
	envFile    = ".env"
	logCloser  io.Closer
)

// rootCmd is the top-level command. Without a sub-command it opens the
// dashboard.
var rootCmd = &cobra.Command{
	Use:   "tokendash",
	Short: "Terminal dashboard for an owner-managed ERC-20 token",
	Long: `tokendash: inspect and operate an owner-managed ERC-20 token.

  Connect a local signing wallet, read supply, balance and pause state,
  and submit transfers, approvals, mints, burns, blacklist changes and
  ownership transfers, each confirmed on chain before the view refreshes.

Configuration lives in ~/.tokendash/config.json. Any key can be overridden
with a TOKENDASH_* environment variable or a .env file in the working
directory.`,
	Version:           Version,
	Annotations:       map[string]string{annotationTUI: "true"},
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
	RunE: runDashboard,
}

func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}
	dir := cfgDir
	if dir == "" {
		d, err := config.DefaultDir()
		if err != nil {
			return err
		}
		dir = d
	}
	var err error
	cfg, err = config.Load(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if networkArg != "" {
		cfg.Network = networkArg
	}
	if walletArg != "" {
		cfg.DefaultWallet = walletArg
	}
	switch {
	case testnet:
		cfg.NetworkMode = "testnet"
	case mainnet:
		cfg.NetworkMode = "mainnet"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return setupLogging(cmd)
}

// setupLogging installs the go-ethereum terminal handler at the configured
// level, on stderr or in the log file for full-screen commands.
func setupLogging(cmd *cobra.Command) error {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if verbose {
		level = min(level, log.LevelDebug)
	}

	var (
		out   io.Writer = os.Stderr
		color           = isatty.IsTerminal(os.Stderr.Fd())
	)
	if isTUI(cmd) {
		if err := os.MkdirAll(cfg.Dir(), 0o700); err != nil {
			return err
		}
		f, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		out, color, logCloser = f, false, f
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(out, level, color)))
	return nil
}

func isTUI(cmd *cobra.Command) bool {
	return cmd.Annotations[annotationTUI] == "true"
}

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	if envDir := os.Getenv(config.EnvConfigDir); envDir != "" {
		cfgDir = envDir
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.tokendash)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.StringVarP(&networkArg, "network", "n", "", "network to use for this invocation")
	pf.StringVarP(&walletArg, "wallet", "w", "", "wallet to connect instead of the default")
	pf.BoolVarP(&assumeYes, "yes", "y", false, "approve every transaction and confirmation without asking")
	pf.BoolVar(&testnet, "testnet", false, "use the network's testnet")
	pf.BoolVar(&mainnet, "mainnet", false, "use the network's mainnet")
	rootCmd.MarkFlagsMutuallyExclusive("testnet", "mainnet")

	rootCmd.AddCommand(
		dashboardCmd,
		statusCmd,
		opCmd,
		walletCmd,
		configCmd,
		networkCmd,
	)
}
