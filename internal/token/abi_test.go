package token

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestABIHasFullSurface(t *testing.T) {
	methods := []string{
		MethodName, MethodSymbol, MethodDecimals, MethodTotalSupply, MethodBalanceOf,
		MethodAllowance, MethodTransfer, MethodApprove, MethodTransferFrom, MethodMint,
		MethodBurn, MethodBlacklist, MethodUnblacklist, MethodPause, MethodUnpause,
		MethodTransferOwnership, MethodOwner, MethodIsBlacklisted, MethodPaused,
	}
	a := ABI()
	assert.Len(t, a.Methods, len(methods))
	for _, m := range methods {
		_, ok := a.Methods[m]
		assert.True(t, ok, "missing method %s", m)
	}
}

func TestABISelectors(t *testing.T) {
	tests := []struct {
		method   string
		expected string
	}{
		{MethodName, "06fdde03"},
		{MethodDecimals, "313ce567"},
		{MethodBalanceOf, "70a08231"},
		{MethodTransfer, "a9059cbb"},
		{MethodApprove, "095ea7b3"},
		{MethodTransferFrom, "23b872dd"},
		{MethodMint, "40c10f19"},
		{MethodOwner, "8da5cb5b"},
		{MethodTransferOwnership, "f2fde38b"},
		{MethodPause, "8456cb59"},
		{MethodUnpause, "3f4ba83a"},
		{MethodPaused, "5c975abb"},
	}

	a := ABI()
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			m, ok := a.Methods[tt.method]
			require.True(t, ok)
			assert.Equal(t, tt.expected, hex.EncodeToString(m.ID))
		})
	}
}

func TestIsReadIsWrite(t *testing.T) {
	assert.True(t, IsRead(MethodBalanceOf))
	assert.True(t, IsRead(MethodPaused))
	assert.False(t, IsRead(MethodMint))

	assert.True(t, IsWrite(MethodMint))
	assert.True(t, IsWrite(MethodUnblacklist))
	assert.False(t, IsWrite(MethodOwner))

	assert.False(t, IsRead("nope"))
	assert.False(t, IsWrite("nope"))
}
