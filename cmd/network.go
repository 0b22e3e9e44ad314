package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
	"github.com/Mohsinsiddi/tokendash/internal/ui"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Inspect and select networks",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported networks",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := chain.NewRegistry()
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Display", Width: 20},
			{Title: "Chain ID", Width: 10},
			{Title: "Testnet", Width: 16},
			{Title: "RPCs", Width: 4},
		})
		for i, n := range reg.All() {
			id := n.ChainID
			if cfg.NetworkMode == "testnet" {
				id = n.TestnetChainID
			}
			if n.Name == cfg.Network {
				t.SelIdx = i
			}
			t.AddRow(ui.Row{
				ui.ChainName(n.Name),
				n.DisplayName,
				fmt.Sprintf("%d", id),
				n.TestnetName,
				fmt.Sprintf("%d", len(cfg.Endpoints(&n))),
			})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d networks · current %s (%s)", len(reg.All()), cfg.Network, cfg.NetworkMode)))
		return nil
	},
}

var networkUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the network the dashboard connects to",
	Long: `Set the network and persist it to config.

When combined with --testnet or --mainnet the network mode is also persisted.

Examples:
  tokendash network use base
  tokendash network use base --testnet
  tokendash network use polygon --mainnet`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if _, err := chain.NewRegistry().GetByName(name); err != nil {
			return fmt.Errorf("%w: run `tokendash network list` to see all networks", err)
		}
		if err := cfg.Set("network", name); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Network set to %s (%s)", ui.ChainName(name), cfg.NetworkMode)))
		return nil
	},
}

var networkRPCCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage custom RPC endpoints",
}

var networkRPCAddCmd = &cobra.Command{
	Use:   "add <network> <url>",
	Short: "Add a custom RPC endpoint, tried before the built-in ones",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := chain.NewRegistry().GetByName(args[0]); err != nil {
			return err
		}
		if err := cfg.AddRPC(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("RPC %s added for %s", args[1], args[0])))
		return nil
	},
}

var networkRPCRemoveCmd = &cobra.Command{
	Use:   "remove <network> <url>",
	Short: "Remove a custom RPC endpoint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveRPC(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("RPC %s removed from %s", args[1], args[0])))
		return nil
	},
}

func init() {
	networkRPCCmd.AddCommand(networkRPCAddCmd, networkRPCRemoveCmd)
	networkCmd.AddCommand(networkListCmd, networkUseCmd, networkRPCCmd)
}
