package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
)

// ErrDeclined is returned by approvers when the holder says no.
var ErrDeclined = errors.New("declined by wallet holder")

// Confirm prompts with a yes/no question on out and reads the answer from in.
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", StyleWarning.Render(prompt))
	line, _ := bufio.NewReader(in).ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// ConfirmDanger is like Confirm but styled with the error color (for destructive actions).
func ConfirmDanger(in io.Reader, out io.Writer, prompt string) bool {
	return Confirm(in, out, StyleError.Render("⚠ ")+prompt)
}

// TerminalApprover shows each transaction on out and asks for confirmation
// on in. It is the CLI counterpart of the TUI's approval modal.
func TerminalApprover(in io.Reader, out io.Writer) func(context.Context, common.Address, chain.SignRequest) error {
	return func(ctx context.Context, from common.Address, req chain.SignRequest) error {
		fmt.Fprintln(out, KeyValueBlock("Approve transaction", DescribeRequest(from, req)))
		if !Confirm(in, out, "Sign and send?") {
			return ErrDeclined
		}
		return ctx.Err()
	}
}
