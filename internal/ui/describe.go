package ui

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/shopspring/decimal"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
)

// DescribeRequest lists what the wallet holder is asked to sign.
func DescribeRequest(from common.Address, req chain.SignRequest) [][2]string {
	pairs := [][2]string{
		{"From", from.Hex()},
		{"Method", req.Method},
	}
	for i, a := range req.Args {
		pairs = append(pairs, [2]string{fmt.Sprintf("Arg %d", i), formatArg(a)})
	}
	if tx := req.Tx; tx != nil {
		if to := tx.To(); to != nil {
			pairs = append(pairs, [2]string{"Contract", to.Hex()})
		}
		pairs = append(pairs,
			[2]string{"Nonce", fmt.Sprint(tx.Nonce())},
			[2]string{"Gas limit", fmt.Sprint(tx.Gas())},
			[2]string{"Max fee", Gwei(tx.GasFeeCap()) + " gwei"},
			[2]string{"Max cost", Ether(new(big.Int).Mul(tx.GasFeeCap(), new(big.Int).SetUint64(tx.Gas()))) + " native"},
		)
	}
	if req.ChainID != nil {
		pairs = append(pairs, [2]string{"Chain ID", req.ChainID.String()})
	}
	return pairs
}

func formatArg(a any) string {
	switch v := a.(type) {
	case common.Address:
		return v.Hex()
	case *big.Int:
		return v.String() + " (base units)"
	}
	return fmt.Sprint(a)
}

// Gwei formats wei as gwei with up to 3 decimals.
func Gwei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, 0).Div(decimal.NewFromInt(params.GWei)).Round(3).String()
}

// Ether formats wei in whole native units with up to 6 decimals.
func Ether(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -18).Round(6).String()
}
