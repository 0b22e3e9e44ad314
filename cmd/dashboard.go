package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tokendash/internal/ui"
	"github.com/Mohsinsiddi/tokendash/internal/wallet"
)

var dashboardCmd = &cobra.Command{
	Use:         "dashboard",
	Aliases:     []string{"ui"},
	Short:       "Open the interactive dashboard",
	Annotations: map[string]string{annotationTUI: "true"},
	RunE:        runDashboard,
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	p := newProvider()

	fmt.Println(ui.Meta("Selecting RPC endpoint…"))
	d, err := openDashboard(ctx, p)
	if err != nil {
		return err
	}
	defer d.Close()

	prog, approver := ui.NewProgram(ctx, d)
	if !assumeYes {
		p.SetApprover(wallet.Approver(approver.Approve))
	}
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
