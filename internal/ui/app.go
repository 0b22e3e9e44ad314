package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/tokendash/internal/dashboard"
	"github.com/Mohsinsiddi/tokendash/internal/operation"
	"github.com/Mohsinsiddi/tokendash/internal/session"
	"github.com/Mohsinsiddi/tokendash/internal/view"
)

type lookup int

const (
	noLookup lookup = iota
	allowanceLookup
	blacklistLookup
)

// panel is one form on the User or Admin screen: an operation, or a
// read-only lookup.
type panel struct {
	title  string
	kind   operation.Kind
	lookup lookup
	fields []string
	inputs []textinput.Model
	result string
}

var titles = map[operation.Kind]string{
	operation.Transfer:          "Transfer",
	operation.Approve:           "Approve spender",
	operation.TransferFrom:      "Transfer from",
	operation.Mint:              "Mint",
	operation.Burn:              "Burn",
	operation.Blacklist:         "Blacklist account",
	operation.Unblacklist:       "Remove from blacklist",
	operation.TransferOwnership: "Transfer ownership",
	operation.TogglePause:       "Pause / unpause",
}

func newPanel(title string, kind operation.Kind, lk lookup, fields ...string) *panel {
	p := &panel{title: title, kind: kind, lookup: lk, fields: fields}
	for _, f := range fields {
		in := textinput.New()
		in.Placeholder = f
		in.Prompt = fmt.Sprintf("%-9s ", f+":")
		if f == operation.FieldAmount {
			in.CharLimit = 40
		} else {
			in.CharLimit = 42
		}
		p.inputs = append(p.inputs, in)
	}
	return p
}

func (p *panel) values() map[string]string {
	out := make(map[string]string, len(p.fields))
	for i, f := range p.fields {
		out[f] = p.inputs[i].Value()
	}
	return out
}

func (p *panel) reset() {
	for i := range p.inputs {
		p.inputs[i].SetValue("")
	}
}

// --- messages ---

type stateMsg struct{}

type connectedMsg struct{ err error }

type submittedMsg struct {
	panel    *panel
	accepted bool
	err      error
}

type lookupMsg struct {
	panel *panel
	text  string
}

// App is the Bubble Tea model of the dashboard.
type App struct {
	ctx   context.Context
	dash  *dashboard.Dashboard
	state dashboard.State

	user  []*panel
	admin []*panel

	cursor   int
	editing  bool
	field    int
	approval *approvalMsg
	spin     spinner.Model
	flash    string
	quitting bool
}

// NewApp returns the model for d. ctx bounds every chain call it starts.
func NewApp(ctx context.Context, d *dashboard.Dashboard) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = StyleWarning

	a := &App{ctx: ctx, dash: d, state: d.State(), spin: sp}
	for _, k := range operation.Kinds() {
		p := newPanel(titles[k], k, noLookup, k.Fields()...)
		if k.Privileged() {
			a.admin = append(a.admin, p)
		} else {
			a.user = append(a.user, p)
		}
	}
	a.user = append(a.user, newPanel("Check allowance", "", allowanceLookup, "owner", "spender"))
	a.admin = append(a.admin, newPanel("Check blacklist", "", blacklistLookup, operation.FieldAddress))
	return a
}

// NewProgram builds the TUI program and the approver that shows signing
// requests in it.
func NewProgram(ctx context.Context, d *dashboard.Dashboard) (*tea.Program, *ModalApprover) {
	p := tea.NewProgram(NewApp(ctx, d), tea.WithAltScreen(), tea.WithContext(ctx))
	d.OnChange(func() { p.Send(stateMsg{}) })
	return p, NewModalApprover(p.Send)
}

func (a *App) Init() tea.Cmd { return a.spin.Tick }

func (a *App) panels() []*panel {
	switch a.state.View {
	case view.User:
		return a.user
	case view.Admin:
		return a.admin
	}
	return nil
}

func (a *App) selected() *panel {
	ps := a.panels()
	if a.cursor < 0 || a.cursor >= len(ps) {
		return nil
	}
	return ps[a.cursor]
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case stateMsg:
		a.sync()

	case connectedMsg:
		a.sync()
		if msg.err == nil {
			a.flash = ""
		}

	case submittedMsg:
		a.sync()
		switch {
		case !msg.accepted && msg.err == nil:
			a.flash = "Nothing submitted: fill every field, connect, or wait for the form to settle."
		case !msg.accepted:
			a.flash = "Nothing submitted: " + msg.err.Error()
		case msg.err == nil:
			msg.panel.reset()
			a.flash = ""
		}

	case lookupMsg:
		msg.panel.result = msg.text

	case approvalMsg:
		if a.approval != nil {
			// Only one signing request can be on screen.
			msg.reply <- ErrDeclined
			return a, nil
		}
		a.approval = &msg
		a.stopEditing()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) sync() {
	a.state = a.dash.State()
	if n := len(a.panels()); a.cursor >= n {
		a.cursor = max(n-1, 0)
	}
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if a.approval != nil {
		switch key {
		case "y", "enter":
			a.answer(nil)
		case "n", "esc":
			a.answer(ErrDeclined)
		case "ctrl+c":
			a.answer(ErrDeclined)
			a.quitting = true
			return a, tea.Quit
		}
		return a, nil
	}

	if a.editing {
		return a.handleEditKey(msg)
	}

	switch key {
	case "q", "ctrl+c":
		a.quitting = true
		return a, tea.Quit
	case "c":
		if a.state.SessionState == session.Disconnected {
			return a, a.connectCmd()
		}
	case "d":
		a.dash.Disconnect()
		a.sync()
	case "r":
		return a, a.refreshCmd()
	case "1":
		a.navigate(view.Home)
	case "2":
		a.navigate(view.User)
	case "3":
		a.navigate(view.Admin)
	case "b":
		if a.state.View == view.AccessDenied {
			a.navigate(view.Router{}.Back())
		}
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.panels())-1 {
			a.cursor++
		}
	case "enter":
		p := a.selected()
		if p == nil {
			return a, nil
		}
		if len(p.inputs) == 0 {
			return a, a.submitCmd(p)
		}
		a.editing = true
		a.field = 0
		return a, p.inputs[0].Focus()
	}
	return a, nil
}

func (a *App) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := a.selected()
	if p == nil {
		a.editing = false
		return a, nil
	}
	switch msg.String() {
	case "esc":
		a.stopEditing()
		return a, nil
	case "ctrl+c":
		a.quitting = true
		return a, tea.Quit
	case "tab", "down":
		return a, a.focus(p, (a.field+1)%len(p.inputs))
	case "shift+tab", "up":
		return a, a.focus(p, (a.field-1+len(p.inputs))%len(p.inputs))
	case "enter":
		if a.field < len(p.inputs)-1 {
			return a, a.focus(p, a.field+1)
		}
		a.stopEditing()
		return a, a.submitCmd(p)
	}
	var cmd tea.Cmd
	p.inputs[a.field], cmd = p.inputs[a.field].Update(msg)
	return a, cmd
}

func (a *App) focus(p *panel, i int) tea.Cmd {
	p.inputs[a.field].Blur()
	a.field = i
	return p.inputs[i].Focus()
}

func (a *App) stopEditing() {
	if p := a.selected(); p != nil && a.editing {
		p.inputs[a.field].Blur()
	}
	a.editing = false
}

func (a *App) answer(err error) {
	a.approval.reply <- err
	a.approval = nil
}

func (a *App) navigate(v view.View) {
	a.dash.Navigate(v)
	a.cursor = 0
	a.sync()
}

// --- commands ---

func (a *App) connectCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := a.dash.Connect(a.ctx)
		return connectedMsg{err: err}
	}
}

func (a *App) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		_ = a.dash.Refresh(a.ctx)
		return stateMsg{}
	}
}

func (a *App) submitCmd(p *panel) tea.Cmd {
	values := p.values()
	switch p.lookup {
	case allowanceLookup:
		return func() tea.Msg {
			owner, err := a.address(values["owner"])
			if err != nil {
				return lookupMsg{panel: p, text: Err("owner: " + err.Error())}
			}
			spender, err := a.address(values["spender"])
			if err != nil {
				return lookupMsg{panel: p, text: Err("spender: " + err.Error())}
			}
			amt, err := a.dash.Allowance(a.ctx, owner, spender)
			if err != nil {
				return lookupMsg{panel: p, text: Err(err.Error())}
			}
			return lookupMsg{panel: p, text: "Allowance: " + Val(amt+" "+a.state.Snapshot.Symbol)}
		}
	case blacklistLookup:
		return func() tea.Msg {
			addr, err := a.address(values[operation.FieldAddress])
			if err != nil {
				return lookupMsg{panel: p, text: Err(err.Error())}
			}
			listed, err := a.dash.IsBlacklisted(a.ctx, addr)
			switch {
			case err != nil:
				return lookupMsg{panel: p, text: Err(err.Error())}
			case listed:
				return lookupMsg{panel: p, text: StyleError.Render("Blacklisted")}
			}
			return lookupMsg{panel: p, text: StyleSuccess.Render("Not blacklisted")}
		}
	}
	req := operation.Request{Kind: p.kind, Params: values}
	return func() tea.Msg {
		for f, v := range req.Params {
			if f == operation.FieldAmount {
				continue
			}
			resolved, err := a.dash.ResolveAddress(a.ctx, v)
			if err != nil {
				return submittedMsg{panel: p, err: err}
			}
			req.Params[f] = resolved
		}
		accepted, err := a.dash.Submit(a.ctx, req)
		return submittedMsg{panel: p, accepted: accepted, err: err}
	}
}

// address parses a hex address or resolves an ENS name.
func (a *App) address(s string) (common.Address, error) {
	resolved, err := a.dash.ResolveAddress(a.ctx, strings.TrimSpace(s))
	if err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(resolved) {
		return common.Address{}, fmt.Errorf("%q is not an address or ENS name", s)
	}
	return common.HexToAddress(resolved), nil
}

// --- rendering ---

func (a *App) View() string {
	if a.quitting {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(a.header() + "\n")
	sb.WriteString(a.tabs() + "\n\n")

	if a.approval != nil {
		sb.WriteString(a.approvalView())
	} else {
		sb.WriteString(a.body())
	}

	if a.flash != "" {
		sb.WriteString("\n" + Warn(a.flash) + "\n")
	}
	sb.WriteString("\n" + StyleMeta.Render(a.hints()) + "\n")
	return sb.String()
}

func (a *App) header() string {
	st := a.state
	parts := []string{StyleTitle.UnsetMarginBottom().Render("tokendash")}
	if st.Network != "" {
		parts = append(parts, ChainName(st.Network))
	}
	parts = append(parts, Meta("token ")+Addr(TruncateAddr(st.Contract.Hex())))

	switch st.SessionState {
	case session.Connected:
		role := StyleMeta.Render("holder")
		if st.Session.IsPrivileged {
			role = StyleWarning.Render("owner")
		}
		parts = append(parts, Addr(TruncateAddr(st.Session.Address.Hex()))+" "+role)
	case session.Connecting:
		parts = append(parts, a.spin.View()+" connecting")
	default:
		parts = append(parts, Meta("not connected"))
	}
	line := strings.Join(parts, Meta(" · "))
	if st.Notice != "" {
		line += "\n" + Err(st.Notice)
	}
	return line
}

func (a *App) tabs() string {
	cur := a.state.View
	if cur == view.AccessDenied {
		cur = view.Admin
	}
	var out []string
	for i, v := range []view.View{view.Home, view.User, view.Admin} {
		label := fmt.Sprintf("%d %s", i+1, strings.ToUpper(v.String()[:1])+v.String()[1:])
		if v == cur {
			out = append(out, StyleTabActive.Render(label))
		} else {
			out = append(out, StyleTab.Render(label))
		}
	}
	return strings.Join(out, "")
}

func (a *App) body() string {
	switch a.state.View {
	case view.User, view.Admin:
		return a.snapshotView() + "\n" + a.panelsView()
	case view.AccessDenied:
		return StyleDanger.Render(
			StyleError.Render("Access denied")+"\n\n"+
				"The admin panel is only available to the token owner.\n"+
				Meta("Press b to go back to the user panel."),
		) + "\n"
	}
	if a.state.SessionState == session.Connecting {
		return Banner() + "\n" + a.spin.View() + " Waiting for wallet…\n"
	}
	if a.state.Session.Connected {
		return Banner() + "\n" + Success("Connected as "+a.state.Session.Address.Hex()) + "\n"
	}
	return Banner() + "\n" + "Press " + Val("c") + " to connect your wallet.\n"
}

func (a *App) snapshotView() string {
	if !a.state.HasSnapshot {
		return Meta("Loading token state…") + "\n"
	}
	s := a.state.Snapshot
	paused := StyleSuccess.Render("active")
	if s.Paused {
		paused = StyleError.Render("paused")
	}
	return KeyValueBlock(s.Name, [][2]string{
		{"Symbol", s.Symbol},
		{"Decimals", fmt.Sprint(s.Decimals)},
		{"Total supply", s.TotalSupply},
		{"Your balance", s.CallerBalance},
		{"Status", paused},
		{"Contract", s.ContractAddress},
	}) + "\n"
}

func (a *App) panelsView() string {
	var sb strings.Builder
	for i, p := range a.panels() {
		marker := "  "
		title := StyleValue.Render(p.title)
		if i == a.cursor {
			marker = StyleSelected.Render("▸") + " "
		}
		if p.kind == operation.TogglePause && a.state.HasSnapshot {
			if a.state.Snapshot.Paused {
				title = StyleValue.Render("Unpause token")
			} else {
				title = StyleValue.Render("Pause token")
			}
		}
		sb.WriteString(marker + title)
		if p.lookup == noLookup {
			sb.WriteString("  " + a.statusView(p.kind))
		} else if p.result != "" {
			sb.WriteString("  " + p.result)
		}
		sb.WriteString("\n")
		if i == a.cursor && a.editing {
			for _, in := range p.inputs {
				sb.WriteString("    " + in.View() + "\n")
			}
		}
	}
	return sb.String()
}

func (a *App) statusView(k operation.Kind) string {
	res := a.state.Statuses[k]
	switch res.Status {
	case operation.Processing:
		return a.spin.View() + " " + StyleWarning.Render("waiting for confirmation")
	case operation.Error:
		return StatusBadge(res.Status) + " " + Meta(res.Err.Error())
	}
	out := StatusBadge(res.Status)
	if url := a.dash.TxURL(res.TxHash); url != "" {
		out += " " + Meta(url)
	} else if res.TxHash != (common.Hash{}) {
		out += " " + Addr(TruncateAddr(res.TxHash.Hex()))
	}
	return out
}

func (a *App) approvalView() string {
	box := KeyValueBlock("Signature request", DescribeRequest(a.approval.from, a.approval.req))
	return box + "\n" + StyleWarning.Render("[y] approve   [n] reject") + "\n"
}

func (a *App) hints() string {
	switch {
	case a.approval != nil:
		return "y approve · n reject"
	case a.editing:
		return "tab next field · enter submit · esc cancel"
	case a.state.SessionState == session.Disconnected:
		return "c connect · 1/2/3 switch view · q quit"
	}
	return "↑/↓ select · enter open · r refresh · d disconnect · 1/2/3 switch view · q quit"
}
