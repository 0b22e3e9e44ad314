package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
	"github.com/Mohsinsiddi/tokendash/internal/config"
	"github.com/Mohsinsiddi/tokendash/internal/operation"
	"github.com/Mohsinsiddi/tokendash/internal/ui"
	"github.com/Mohsinsiddi/tokendash/internal/wallet"
)

// opFlags maps a request field to its flag value.
var opFlags = map[string]*string{
	operation.FieldTo:       new(string),
	operation.FieldFrom:     new(string),
	operation.FieldAmount:   new(string),
	operation.FieldSpender:  new(string),
	operation.FieldAddress:  new(string),
	operation.FieldNewOwner: new(string),
}

var opFlagNames = map[string]string{
	operation.FieldNewOwner: "new-owner",
}

func flagName(field string) string {
	if n, ok := opFlagNames[field]; ok {
		return n
	}
	return field
}

var opCmd = &cobra.Command{
	Use:   "op <kind>",
	Short: "Submit one token operation and wait for it to settle",
	Long: `Submit one mutating operation through the same form controller the
dashboard uses, and wait until it is confirmed or fails.

Kinds: ` + kindList() + `

  tokendash op transfer --to 0xabc… --amount 12.5
  tokendash op approve --spender 0xabc… --amount 100
  tokendash op transfer-from --from 0xabc… --to 0xdef… --amount 1
  tokendash op mint --to 0xabc… --amount 1000
  tokendash op burn --from 0xabc… --amount 10
  tokendash op blacklist --address 0xabc…
  tokendash op toggle-pause
  tokendash op transfer-ownership --new-owner 0xabc…

Address flags also take ENS names. Every signature is confirmed on the terminal unless --yes is given.`,
	Args: cobra.ExactArgs(1),
	ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, k := range operation.Kinds() {
			out = append(out, string(k))
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runOp,
}

func kindList() string {
	var names []string
	for _, k := range operation.Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

func runOp(cmd *cobra.Command, args []string) error {
	kind, err := operation.ParseKind(args[0])
	if err != nil {
		return err
	}
	params := make(map[string]string)
	var missing []string
	for _, f := range kind.Fields() {
		v := strings.TrimSpace(*opFlags[f])
		if v == "" {
			missing = append(missing, "--"+flagName(f))
		}
		params[f] = v
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s needs %s", kind, strings.Join(missing, ", "))
	}

	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()

	// The spinner starts once the holder has approved, so it never draws
	// over the confirmation prompt.
	sp := ui.NewSpinner(errOut, fmt.Sprintf("Waiting for %s to confirm…", kind))
	var spinning atomic.Bool
	approve := wallet.Approver(ui.TerminalApprover(cmd.InOrStdin(), errOut))
	if assumeYes {
		approve = wallet.AutoApprove
	}
	p := newProvider()
	p.SetApprover(func(ctx context.Context, from common.Address, req chain.SignRequest) error {
		if err := approve(ctx, from, req); err != nil {
			return err
		}
		if spinning.CompareAndSwap(false, true) {
			sp.Start()
		}
		return nil
	})

	d, err := openDashboard(ctx, p)
	if err != nil {
		return err
	}
	defer d.Close()
	connectCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()
	s, err := d.Connect(connectCtx)
	if err != nil {
		return err
	}
	if kind.Privileged() && !s.IsPrivileged {
		fmt.Fprintln(errOut, ui.Warn(fmt.Sprintf("%s is an owner operation and %s is not the owner; the contract will likely reject it.",
			kind, ui.TruncateAddr(s.Address.Hex()))))
	}

	for f, v := range params {
		if f == operation.FieldAmount {
			continue
		}
		if params[f], err = d.ResolveAddress(ctx, v); err != nil {
			return fmt.Errorf("--%s: %w", flagName(f), err)
		}
	}

	accepted, err := d.Submit(ctx, operation.Request{Kind: kind, Params: params})
	if spinning.Load() {
		sp.Stop()
	}
	if !accepted && err == nil {
		return errors.New("operation was not submitted")
	}

	res := d.State().Statuses[kind]
	if err != nil {
		fmt.Fprintln(errOut, ui.Err(fmt.Sprintf("%s failed (%s): %v", kind, chain.Classify(err), err)))
		if url := d.TxURL(res.TxHash); url != "" {
			fmt.Fprintln(errOut, ui.Meta(url))
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s confirmed in %s", kind, res.Duration.Round(time.Millisecond))))
	pairs := [][2]string{{"Tx", res.TxHash.Hex()}}
	if url := d.TxURL(res.TxHash); url != "" {
		pairs = append(pairs, [2]string{"Explorer", url})
	}
	if st := d.State(); st.HasSnapshot {
		pairs = append(pairs,
			[2]string{"Balance", st.Snapshot.CallerBalance + " " + st.Snapshot.Symbol},
			[2]string{"Total supply", st.Snapshot.TotalSupply},
		)
	}
	fmt.Fprintln(out, ui.KeyValueBlock("", pairs))
	return nil
}

func init() {
	for field, v := range opFlags {
		opCmd.Flags().StringVar(v, flagName(field), "", field+" for operations that take it")
	}
}
