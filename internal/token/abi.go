// Package token holds the fixed ABI surface of the managed token contract and
// the decimal scaling helpers used for every amount crossing the wire.
package token

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// DefaultContractAddress is the deployed token the dashboard manages unless
// the config points somewhere else.
const DefaultContractAddress = "0x1c2ff585120219e552a4c3a6ce5b6345cb1efa2c"

// Read methods.
const (
	MethodName          = "name"
	MethodSymbol        = "symbol"
	MethodDecimals      = "decimals"
	MethodTotalSupply   = "totalSupply"
	MethodBalanceOf     = "balanceOf"
	MethodAllowance     = "allowance"
	MethodOwner         = "owner"
	MethodIsBlacklisted = "isBlacklisted"
	MethodPaused        = "paused"
)

// Write methods.
const (
	MethodTransfer          = "transfer"
	MethodApprove           = "approve"
	MethodTransferFrom      = "transferFrom"
	MethodMint              = "mint"
	MethodBurn              = "burn"
	MethodBlacklist         = "blacklist"
	MethodUnblacklist       = "unBlacklist"
	MethodPause             = "pause"
	MethodUnpause           = "unpause"
	MethodTransferOwnership = "transferOwnership"
)

// Selectors (keccak256 of the canonical signature, first 4 bytes):
//
//	name()                    → 0x06fdde03
//	symbol()                  → 0x95d89b41
//	decimals()                → 0x313ce567
//	totalSupply()             → 0x18160ddd
//	balanceOf(address)        → 0x70a08231
//	allowance(a,a)            → 0xdd62ed3e
//	transfer(a,u256)          → 0xa9059cbb
//	approve(a,u256)           → 0x095ea7b3
//	transferFrom(a,a,u256)    → 0x23b872dd
//	mint(a,u256)              → 0x40c10f19
//	owner()                   → 0x8da5cb5b
//	transferOwnership(a)      → 0xf2fde38b
//	pause()                   → 0x8456cb59
//	unpause()                 → 0x3f4ba83a
//	paused()                  → 0x5c975abb
const contractABI = `[
  {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"blacklist","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"}],"outputs":[]},
  {"type":"function","name":"unBlacklist","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"}],"outputs":[]},
  {"type":"function","name":"pause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"unpause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]},
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"isBlacklisted","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"paused","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]}
]`

var (
	parsedOnce sync.Once
	parsedABI  abi.ABI
)

// ABI returns the parsed contract ABI. The JSON is a compile-time constant, so
// a parse failure is a programming error and panics.
func ABI() abi.ABI {
	parsedOnce.Do(func() {
		a, err := abi.JSON(strings.NewReader(contractABI))
		if err != nil {
			panic("token: invalid contract ABI: " + err.Error())
		}
		parsedABI = a
	})
	return parsedABI
}

// IsRead reports whether method is a view function of the contract.
func IsRead(method string) bool {
	m, ok := ABI().Methods[method]
	return ok && m.IsConstant()
}

// IsWrite reports whether method mutates contract state.
func IsWrite(method string) bool {
	m, ok := ABI().Methods[method]
	return ok && !m.IsConstant()
}
