package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Mohsinsiddi/tokendash/internal/operation"
)

func TestFormattersKeepMessage(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(string) string
		prefix string
	}{
		{"success", Success, "✓"},
		{"warn", Warn, "⚠"},
		{"info", Info, "ℹ"},
		{"hint", Hint, "→"},
		{"danger", DangerBox, ""},
		{"err", Err, "✗"},
		{"addr", Addr, ""},
		{"val", Val, ""},
		{"meta", Meta, ""},
		{"chain", ChainName, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.fn("payload")
			assert.Contains(t, out, "payload")
			assert.Contains(t, out, tt.prefix)
		})
	}
}

func TestTruncateAddr(t *testing.T) {
	assert.Equal(t, "0x1234", TruncateAddr("0x1234"))
	assert.Equal(t, "0x12345678", TruncateAddr("0x12345678"))
	assert.Equal(t, "0x1234…abcd", TruncateAddr("0x1234567890123456789012345678901234abcd"))
	assert.Equal(t, "", TruncateAddr(""))
}

func TestStatusBadge(t *testing.T) {
	assert.Contains(t, StatusBadge(operation.Idle), "idle")
	assert.Contains(t, StatusBadge(operation.Processing), "processing")
	assert.Contains(t, StatusBadge(operation.Success), "success")
	assert.Contains(t, StatusBadge(operation.Error), "error")
}
