package ui

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
	"github.com/Mohsinsiddi/tokendash/internal/chain/chaintest"
	"github.com/Mohsinsiddi/tokendash/internal/dashboard"
	"github.com/Mohsinsiddi/tokendash/internal/operation"
	"github.com/Mohsinsiddi/tokendash/internal/view"
)

func newApp(t *testing.T, owner bool) (*App, *chaintest.Backend, *chaintest.Wallet) {
	t.Helper()
	w := chaintest.NewWallet()
	tokenOwner := chaintest.NewWallet().Address()
	if owner {
		tokenOwner = w.Address()
	}
	b := chaintest.NewBackend(chaintest.NewToken(tokenOwner))
	n, err := chain.NewRegistry().GetByName("ethereum")
	require.NoError(t, err)
	d := dashboard.New(b, chaintest.NewProvider(w), dashboard.Options{
		Network:       n,
		Mode:          "testnet",
		PollInterval:  5 * time.Millisecond,
		StatusDisplay: time.Second,
	})
	t.Cleanup(d.Close)
	return NewApp(context.Background(), d), b, w
}

func press(a *App, key string) tea.Cmd {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	_, cmd := a.Update(msg)
	return cmd
}

// run executes cmd and feeds its message back, like the program loop.
func run(a *App, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	a.Update(cmd())
}

func connect(t *testing.T, a *App) {
	t.Helper()
	run(a, press(a, "c"))
	require.True(t, a.state.Session.Connected)
}

func TestHomeBeforeConnect(t *testing.T) {
	a, _, _ := newApp(t, true)
	out := a.View()
	assert.Contains(t, out, "not connected")
	assert.Contains(t, out, "to connect your wallet")
	assert.Contains(t, out, "Ethereum")

	press(a, "2")
	assert.Equal(t, view.Home, a.state.View, "user view is gated")
}

func TestConnectShowsHeaderAndSnapshot(t *testing.T) {
	a, _, w := newApp(t, true)
	connect(t, a)

	assert.Equal(t, view.User, a.state.View)
	out := a.View()
	assert.Contains(t, out, TruncateAddr(w.Address().Hex()))
	assert.Contains(t, out, "owner")
	assert.Contains(t, out, "INRC")
	assert.Contains(t, out, "1000000")
	assert.Contains(t, out, "Transfer")
	assert.NotContains(t, out, "Mint", "admin forms stay on the admin view")
}

func TestNonOwnerAccessDenied(t *testing.T) {
	a, _, _ := newApp(t, false)
	connect(t, a)
	assert.Contains(t, a.View(), "holder")

	press(a, "3")
	assert.Equal(t, view.AccessDenied, a.state.View)
	assert.Contains(t, a.View(), "Access denied")

	press(a, "b")
	assert.Equal(t, view.User, a.state.View)
}

func TestConnectFailureShowsNotice(t *testing.T) {
	w := chaintest.NewWallet()
	b := chaintest.NewBackend(chaintest.NewToken(w.Address()))
	p := chaintest.NewProvider(nil)
	d := dashboard.New(b, p, dashboard.Options{})
	a := NewApp(context.Background(), d)

	run(a, press(a, "c"))
	assert.Contains(t, a.View(), "No signing wallet")
}

func TestSubmitTransferThroughForm(t *testing.T) {
	a, b, _ := newApp(t, true)
	connect(t, a)
	to := chaintest.NewWallet().Address()

	require.Equal(t, operation.Transfer, a.selected().kind)
	press(a, "enter")
	require.True(t, a.editing)
	press(a, to.Hex())
	press(a, "enter")
	press(a, "2.5")
	cmd := press(a, "enter")
	assert.False(t, a.editing)
	run(a, cmd)

	assert.Equal(t, chaintest.Units(25, 5), b.BalanceOf(to))
	assert.Equal(t, operation.Success, a.state.Statuses[operation.Transfer].Status)
	assert.Empty(t, a.selected().inputs[0].Value(), "inputs are cleared after success")
	assert.Contains(t, a.View(), "sepolia.etherscan.io/tx/")
}

func TestBlankFormIsNotSubmitted(t *testing.T) {
	a, b, _ := newApp(t, true)
	connect(t, a)

	press(a, "enter")
	press(a, "enter")
	run(a, press(a, "enter"))
	assert.Empty(t, b.Sent())
	assert.Contains(t, a.View(), "Nothing submitted")
}

func TestEscCancelsEditing(t *testing.T) {
	a, _, _ := newApp(t, true)
	connect(t, a)
	press(a, "enter")
	press(a, "esc")
	assert.False(t, a.editing)
}

func TestTogglePauseFromAdmin(t *testing.T) {
	a, b, _ := newApp(t, true)
	connect(t, a)
	press(a, "3")
	require.Equal(t, view.Admin, a.state.View)
	assert.Contains(t, a.View(), "Pause token")

	for a.selected().kind != operation.TogglePause {
		press(a, "j")
	}
	run(a, press(a, "enter"))
	assert.True(t, b.Paused())
	assert.Contains(t, a.View(), "Unpause token")
	assert.Contains(t, a.View(), "paused")
}

func TestBlacklistLookup(t *testing.T) {
	a, b, _ := newApp(t, true)
	target := chaintest.NewWallet().Address()
	b.Mutate(func(tok *chaintest.Token) { tok.Blacklisted[target] = true })
	connect(t, a)
	press(a, "3")

	for a.selected().lookup != blacklistLookup {
		press(a, "j")
	}
	press(a, "enter")
	press(a, target.Hex())
	run(a, press(a, "enter"))
	assert.Contains(t, a.View(), "Blacklisted")
}

func TestApprovalModal(t *testing.T) {
	a, _, w := newApp(t, true)
	reply := make(chan error, 1)
	req := chain.SignRequest{
		Method:  "mint",
		Args:    []any{w.Address(), big.NewInt(5)},
		Tx:      types.NewTx(&types.DynamicFeeTx{Gas: 55_000, GasFeeCap: big.NewInt(21e9), To: &chaintest.Contract}),
		ChainID: chaintest.ChainID,
	}
	a.Update(approvalMsg{from: w.Address(), req: req, reply: reply})

	out := a.View()
	assert.Contains(t, out, "Signature request")
	assert.Contains(t, out, "mint")
	assert.Contains(t, out, "21 gwei")

	second := make(chan error, 1)
	a.Update(approvalMsg{from: w.Address(), req: req, reply: second})
	assert.ErrorIs(t, <-second, ErrDeclined, "a second request is declined while one is open")

	press(a, "q")
	assert.NotNil(t, a.approval, "keys other than y/n are swallowed")
	press(a, "n")
	assert.ErrorIs(t, <-reply, ErrDeclined)
	assert.Nil(t, a.approval)

	a.Update(approvalMsg{from: w.Address(), req: req, reply: reply})
	press(a, "y")
	assert.NoError(t, <-reply)
}

func TestModalApproverRoundTrip(t *testing.T) {
	var got approvalMsg
	ap := NewModalApprover(func(msg tea.Msg) {
		got = msg.(approvalMsg)
		got.reply <- nil
	})
	err := ap.Approve(context.Background(), common.Address{1}, chain.SignRequest{Method: "burn"})
	assert.NoError(t, err)
	assert.Equal(t, "burn", got.req.Method)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blocked := NewModalApprover(func(tea.Msg) {})
	assert.ErrorIs(t, blocked.Approve(ctx, common.Address{}, chain.SignRequest{}), context.Canceled)
}

func TestTerminalApprover(t *testing.T) {
	var out bytes.Buffer
	approve := TerminalApprover(strings.NewReader("y\n"), &out)
	req := chain.SignRequest{Method: "transfer", Args: []any{common.Address{2}, big.NewInt(10)}}
	require.NoError(t, approve(context.Background(), common.Address{1}, req))
	assert.Contains(t, out.String(), "transfer")
	assert.Contains(t, out.String(), "10 (base units)")

	approve = TerminalApprover(strings.NewReader("\n"), &out)
	assert.ErrorIs(t, approve(context.Background(), common.Address{1}, req), ErrDeclined)
}

func TestUnitFormatting(t *testing.T) {
	assert.Equal(t, "1.5", Gwei(big.NewInt(1_500_000_000)))
	assert.Equal(t, "0", Gwei(nil))
	assert.Equal(t, "0.00121", Ether(big.NewInt(1_210_000_000_000_000)))
}
