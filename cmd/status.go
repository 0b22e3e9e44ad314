package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendash/internal/config"
	"github.com/Mohsinsiddi/tokendash/internal/dashboard"
	"github.com/Mohsinsiddi/tokendash/internal/ui"
)

var (
	statusCheck   []string
	statusSpender string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect, read the token state and print it",
	Long: `Connect the configured wallet, read the token snapshot and print it.

  tokendash status
  tokendash status --check 0xabc…,bob.eth    # blacklist read-out
  tokendash status --spender 0xabc…          # allowance granted to 0xabc…`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := contextWithTimeout(cmd, config.ConnectTimeout)
		defer cancel()

		sp := ui.NewSpinner(cmd.ErrOrStderr(), "Connecting…")
		sp.Start()
		d, err := openDashboard(ctx, newProvider())
		if err != nil {
			sp.Stop()
			return err
		}
		defer d.Close()
		_, err = d.Connect(ctx)
		sp.Stop()
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Err(d.State().Notice))
			return err
		}

		st := d.State()
		s, snap := st.Session, st.Snapshot
		role := "holder"
		if s.IsPrivileged {
			role = "owner"
		}
		paused := "no"
		if snap.Paused {
			paused = "yes"
		}
		wallet := s.Address.Hex()
		if name := d.NameOf(ctx, s.Address); name != "" {
			wallet += " (" + name + ")"
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock(snap.Name+" ("+snap.Symbol+")", [][2]string{
			{"Network", st.Network + " " + cfg.NetworkMode},
			{"Contract", snap.ContractAddress},
			{"Owner", s.Owner.Hex()},
			{"Decimals", fmt.Sprint(snap.Decimals)},
			{"Total supply", snap.TotalSupply},
			{"Paused", paused},
			{"Wallet", wallet},
			{"Role", role},
			{"Balance", snap.CallerBalance},
			{"Fetched", snap.FetchedAt.Format(time.TimeOnly)},
		}))

		var pairs [][2]string
		if statusSpender != "" {
			spender, err := lookupAddress(ctx, d, statusSpender)
			if err != nil {
				return fmt.Errorf("--spender: %w", err)
			}
			amt, err := d.Allowance(ctx, s.Address, spender)
			if err != nil {
				return err
			}
			pairs = append(pairs, [2]string{"Allowance to " + ui.TruncateAddr(statusSpender), amt + " " + snap.Symbol})
		}
		var errs []error
		for _, a := range statusCheck {
			addr, err := lookupAddress(ctx, d, a)
			if err != nil {
				errs = append(errs, fmt.Errorf("--check: %w", err))
				continue
			}
			listed, err := d.IsBlacklisted(ctx, addr)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			v := ui.StyleSuccess.Render("clear")
			if listed {
				v = ui.StyleError.Render("blacklisted")
			}
			pairs = append(pairs, [2]string{ui.TruncateAddr(a), v})
		}
		if len(pairs) > 0 {
			fmt.Fprintln(out, ui.KeyValueBlock("Checks", pairs))
		}
		return errors.Join(errs...)
	},
}

// lookupAddress accepts a hex address or an ENS name.
func lookupAddress(ctx context.Context, d *dashboard.Dashboard, s string) (common.Address, error) {
	resolved, err := d.ResolveAddress(ctx, s)
	if err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(resolved) {
		return common.Address{}, fmt.Errorf("%q is not an address or ENS name", s)
	}
	return common.HexToAddress(resolved), nil
}

func init() {
	statusCmd.Flags().StringSliceVar(&statusCheck, "check", nil, "addresses to check against the blacklist")
	statusCmd.Flags().StringVar(&statusSpender, "spender", "", "print the allowance the wallet granted to this address")
}
