package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Mohsinsiddi/tokendash/internal/operation"
)

// Color palette.
var (
	ColorSuccess   = lipgloss.Color("#00D26A") // green : success
	ColorWarning   = lipgloss.Color("#FFB800") // yellow: pending, warning
	ColorError     = lipgloss.Color("#FF4444") // red   : error, danger
	ColorAddress   = lipgloss.Color("#00B4D8") // cyan  : addresses, hashes
	ColorValue     = lipgloss.Color("#FFFFFF") // white bold: token amounts
	ColorMeta      = lipgloss.Color("#555555") // dim gray : hints, metadata
	ColorBorder    = lipgloss.Color("#1E3A5F") // dark blue: UI chrome
	ColorChain     = lipgloss.Color("#9B5DE5") // purple   : network names
	ColorHighlight = lipgloss.Color("#F15BB5") // pink     : selected rows
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleChain   = lipgloss.NewStyle().Foreground(ColorChain).Bold(true)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleDanger = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorError).
			Padding(0, 1)

	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true).
			Underline(true)

	StyleSelected = lipgloss.NewStyle().
			Background(ColorHighlight).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorChain).
			Bold(true).
			MarginBottom(1)

	StyleTab       = lipgloss.NewStyle().Foreground(ColorMeta).Padding(0, 1)
	StyleTabActive = lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true).Underline(true).Padding(0, 1)
)

// Banner returns the tokendash wordmark.
func Banner() string {
	art := `
  ▀█▀ █▀█ █▄▀ █▀▀ █▄ █ █▀▄ ▄▀█ █▀ █ █
   █  █▄█ █ █ ██▄ █ ▀█ █▄▀ █▀█ ▄█ █▀█`
	return StyleChain.Render(art) + "\n" + StyleMeta.Render("  owner-managed ERC-20 dashboard") + "\n"
}

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats a neutral notice.
func Info(msg string) string { return StyleAddress.Render("ℹ " + msg) }

// Hint formats a follow-up suggestion.
func Hint(msg string) string { return StyleMeta.Render("→ " + msg) }

// DangerBox frames content that must not be missed, like a private key.
func DangerBox(content string) string { return StyleDanger.Render(content) }

// Addr formats an address.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// ChainName formats a network name.
func ChainName(c string) string { return StyleChain.Render(c) }

// TruncateAddr shortens an address for display: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// StatusBadge renders a form status.
func StatusBadge(s operation.Status) string {
	switch s {
	case operation.Processing:
		return StyleWarning.Render("● processing")
	case operation.Success:
		return StyleSuccess.Render("✓ success")
	case operation.Error:
		return StyleError.Render("✗ error")
	}
	return StyleMeta.Render("○ idle")
}
