package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendash/internal/ui"
	"github.com/Mohsinsiddi/tokendash/internal/wallet"
)

var (
	walletKeyFlag   string
	walletUnlockAll bool
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the wallets the dashboard can connect",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a signing wallet (--key) or a watch-only address",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr := newWalletManager()
		out := cmd.OutOrStdout()

		if walletKeyFlag != "" {
			w, err := mgr.AddWithKey(name, walletKeyFlag)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address))))
			fmt.Fprintln(out, ui.Hint("Connect with it by default: tokendash wallet use "+name))
			return nil
		}
		if len(args) < 2 {
			return fmt.Errorf("address required for a watch-only wallet\n  Usage: tokendash wallet add <name> <address>\n  Or for signing: tokendash wallet add <name> --key <private-key>")
		}
		if err := mgr.AddWatchOnly(name, args[1]); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(args[1]))))
		fmt.Fprintln(out, ui.Warn("Watch-only wallets cannot connect to the dashboard."))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		wallets, err := newWalletManager().List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(wallets) == 0 {
			fmt.Fprintln(out, ui.Info("No wallets configured yet."))
			fmt.Fprintln(out, ui.Hint("Add one with: tokendash wallet add owner --key <private-key>"))
			return nil
		}

		cache := newKeyCache()
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 42},
			{Title: "Type", Width: 11},
			{Title: "Unlocked", Width: 8},
			{Title: "Default", Width: 7},
		})
		for _, w := range wallets {
			def, unlocked := "", ""
			if w.Name == cfg.DefaultWallet || (cfg.DefaultWallet == "" && w.IsDefault) {
				def = "✓"
			}
			if w.CanSign() {
				if _, ok := cache.Get(w.KeyRef); ok {
					unlocked = "✓"
				}
			}
			t.AddRow(ui.Row{w.Name, w.Address, w.Type, unlocked, def})
		}
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		out := cmd.OutOrStdout()
		if !assumeYes && !ui.ConfirmDanger(cmd.InOrStdin(), out, fmt.Sprintf("Remove wallet %q and delete its key?", name)) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		mgr := newWalletManager()
		w, err := mgr.Get(name)
		if err != nil {
			return err
		}
		if err := mgr.Remove(name); err != nil {
			return err
		}
		if w.KeyRef != "" {
			if err := newKeyCache().Remove(w.KeyRef); err != nil {
				return fmt.Errorf("evicting cached key: %w", err)
			}
		}
		if cfg.DefaultWallet == name {
			cfg.DefaultWallet = ""
			if err := cfg.Save(); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the wallet the dashboard connects",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()
		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			picked, err := pickWallet(mgr, "Connect with", false)
			if err != nil || picked == "" {
				return err
			}
			name = picked
		}
		if err := mgr.SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		return nil
	},
}

var walletGenerateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate a new signing wallet",
	Long: `Generate a fresh keypair and store the private key in the keychain.

The private key is displayed ONCE. Store it in a password manager; the
keychain entry is the only other copy.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()
		w, err := mgr.Generate(args[0])
		if err != nil {
			return err
		}
		hexKey, err := mgr.Keystore().Retrieve(w.KeyRef)
		if err != nil {
			return fmt.Errorf("reading back generated key: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock("", [][2]string{{"Wallet", w.Name}, {"Address", w.Address}}))
		fmt.Fprintln(out, ui.DangerBox(
			ui.Warn("SAVE YOUR PRIVATE KEY. It is shown only once.")+"\n\n"+ui.Val(hexKey),
		))
		return nil
	},
}

var walletUnlockCmd = &cobra.Command{
	Use:   "unlock [name]",
	Short: "Cache signing keys so connecting does not prompt the keychain",
	Long: `Read private keys from the keychain once and cache them in a 0600 file
so the dashboard can connect without a keychain prompt.

  tokendash wallet unlock           # pick from a list
  tokendash wallet unlock owner
  tokendash wallet unlock --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()
		wallets, err := mgr.List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		var names []string
		switch {
		case walletUnlockAll:
			for _, w := range wallets {
				if w.CanSign() {
					names = append(names, w.Name)
				}
			}
		case len(args) == 1:
			names = args
		default:
			picked, err := pickWallet(mgr, "Unlock wallet", true)
			if err != nil || picked == "" {
				return err
			}
			names = []string{picked}
		}
		if len(names) == 0 {
			fmt.Fprintln(out, ui.Info("No signing wallets found."))
			return nil
		}

		cache := newKeyCache()
		var unlocked int
		for _, name := range names {
			w, err := mgr.Get(name)
			if err != nil {
				fmt.Fprintln(out, ui.Err(fmt.Sprintf("%-16s %v", name, err)))
				continue
			}
			if !w.CanSign() {
				fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%-16s watch-only, skipped", name)))
				continue
			}
			if _, ok := cache.Get(w.KeyRef); ok {
				fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%-16s already unlocked", name)))
				continue
			}
			hexKey, err := mgr.Keystore().Retrieve(w.KeyRef)
			if err != nil {
				fmt.Fprintln(out, ui.Err(fmt.Sprintf("%-16s %v", name, err)))
				continue
			}
			if err := cache.Put(w.KeyRef, hexKey); err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("%-16s unlocked", name)))
			unlocked++
		}
		if unlocked > 0 {
			fmt.Fprintln(out, ui.Hint("Run `tokendash wallet lock` to forget cached keys."))
		}
		return nil
	},
}

var walletLockCmd = &cobra.Command{
	Use:   "lock [name]",
	Short: "Forget cached keys",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache := newKeyCache()
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			w, err := newWalletManager().Get(args[0])
			if err != nil {
				return err
			}
			if err := cache.Remove(w.KeyRef); err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Wallet %q locked.", w.Name)))
			return nil
		}
		if !cache.Active() {
			fmt.Fprintln(out, ui.Meta("No unlocked wallets."))
			return nil
		}
		if err := cache.Clear(); err != nil {
			return fmt.Errorf("clearing key cache: %w", err)
		}
		fmt.Fprintln(out, ui.Success("All wallets locked."))
		return nil
	},
}

// pickWallet shows an interactive list of wallets, optionally only those
// that can sign.
func pickWallet(mgr *wallet.Manager, title string, signingOnly bool) (string, error) {
	wallets, err := mgr.List()
	if err != nil {
		return "", err
	}
	var items []ui.PickerItem
	for _, w := range wallets {
		if signingOnly && !w.CanSign() {
			continue
		}
		items = append(items, ui.PickerItem{
			Label:    w.Name,
			SubLabel: ui.TruncateAddr(w.Address) + "  " + w.Type,
			Value:    w.Name,
			Current:  w.Name == cfg.DefaultWallet,
		})
	}
	return ui.Pick(title, items)
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyFlag, "key", "", "private key of a signing wallet (stored in the keychain)")
	walletUnlockCmd.Flags().BoolVar(&walletUnlockAll, "all", false, "unlock every signing wallet")
	walletCmd.AddCommand(walletAddCmd, walletListCmd, walletRemoveCmd, walletUseCmd,
		walletGenerateCmd, walletUnlockCmd, walletLockCmd)
}
