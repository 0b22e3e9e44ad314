package metrics

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
)

// Instrument wraps b so that every failed request bumps rpc_errors_total.
// A receipt that is simply not mined yet does not count.
func (m *Metrics) Instrument(b chain.Backend) chain.Backend {
	return &instrumented{Backend: b, m: m}
}

type instrumented struct {
	chain.Backend
	m *Metrics
}

func (i *instrumented) observe(method string, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		i.m.rpcErrors.WithLabelValues(method).Inc()
	}
}

func (i *instrumented) ChainID(ctx context.Context) (*big.Int, error) {
	v, err := i.Backend.ChainID(ctx)
	i.observe("eth_chainId", err)
	return v, err
}

func (i *instrumented) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	v, err := i.Backend.CallContract(ctx, msg, block)
	i.observe("eth_call", err)
	return v, err
}

func (i *instrumented) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	v, err := i.Backend.EstimateGas(ctx, msg)
	i.observe("eth_estimateGas", err)
	return v, err
}

func (i *instrumented) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	v, err := i.Backend.SuggestGasTipCap(ctx)
	i.observe("eth_maxPriorityFeePerGas", err)
	return v, err
}

func (i *instrumented) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	v, err := i.Backend.HeaderByNumber(ctx, number)
	i.observe("eth_getBlockByNumber", err)
	return v, err
}

func (i *instrumented) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	v, err := i.Backend.PendingNonceAt(ctx, account)
	i.observe("eth_getTransactionCount", err)
	return v, err
}

func (i *instrumented) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	err := i.Backend.SendTransaction(ctx, tx)
	i.observe("eth_sendRawTransaction", err)
	return err
}

func (i *instrumented) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	v, err := i.Backend.TransactionReceipt(ctx, hash)
	if !errors.Is(err, ethereum.NotFound) {
		i.observe("eth_getTransactionReceipt", err)
	}
	return v, err
}
