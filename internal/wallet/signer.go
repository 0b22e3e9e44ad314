package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
)

// Approver asks the wallet holder to approve a transaction. A nil error
// approves; any error declines.
type Approver func(ctx context.Context, from common.Address, req chain.SignRequest) error

// AutoApprove approves every request (the --yes flag).
func AutoApprove(context.Context, common.Address, chain.SignRequest) error { return nil }

// Signer signs EVM transactions for an unlocked signing wallet.
type Signer struct {
	name    string
	key     *ecdsa.PrivateKey
	addr    common.Address
	approve Approver
}

var _ chain.Signer = (*Signer)(nil)

// NewSigner parses hexKey and returns a signer that consults approve before
// every signature.
func NewSigner(name, hexKey string, approve Approver) (*Signer, error) {
	key, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &Signer{
		name:    name,
		key:     key,
		addr:    crypto.PubkeyToAddress(key.PublicKey),
		approve: approve,
	}, nil
}

// Address returns the wallet's address.
func (s *Signer) Address() common.Address { return s.addr }

// Name returns the wallet name the key belongs to.
func (s *Signer) Name() string { return s.name }

// SignTx asks for approval, then signs req.Tx for req.ChainID.
func (s *Signer) SignTx(ctx context.Context, req chain.SignRequest) (*types.Transaction, error) {
	if s.approve != nil {
		if err := s.approve(ctx, s.addr, req); err != nil {
			log.Info("Transaction declined", "wallet", s.name, "method", req.Method, "reason", err)
			return nil, fmt.Errorf("%w: %v", chain.ErrUserRejected, err)
		}
	}
	signed, err := types.SignTx(req.Tx, types.LatestSignerForChainID(req.ChainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return signed, nil
}
