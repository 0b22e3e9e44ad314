package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
)

// approvalMsg asks the TUI to show the approval modal. The handler must
// send exactly one value on reply.
type approvalMsg struct {
	from  common.Address
	req   chain.SignRequest
	reply chan error
}

// ModalApprover routes signing requests into a running Bubble Tea program
// and blocks until the holder answers in the modal.
type ModalApprover struct {
	send func(tea.Msg)
}

// NewModalApprover returns an approver that delivers requests with send,
// normally (*tea.Program).Send.
func NewModalApprover(send func(tea.Msg)) *ModalApprover {
	return &ModalApprover{send: send}
}

// Approve blocks until the modal is answered or ctx ends.
func (a *ModalApprover) Approve(ctx context.Context, from common.Address, req chain.SignRequest) error {
	reply := make(chan error, 1)
	a.send(approvalMsg{from: from, req: req, reply: reply})
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
