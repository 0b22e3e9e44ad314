// Package ens resolves ENS names so address fields can take "alice.eth"
// instead of a hex address.
package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
)

// RegistryAddress is the ENS registry, deployed at the same address on
// Ethereum mainnet and Sepolia.
var RegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

// ErrNotFound is returned when a name or address has no record.
var ErrNotFound = errors.New("ens: no record")

const ensABI = `[
  {"type":"function","name":"resolver","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"addr","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"name","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"string"}]}
]`

var (
	parsedOnce sync.Once
	parsedABI  abi.ABI
)

func contractABI() abi.ABI {
	parsedOnce.Do(func() {
		a, err := abi.JSON(strings.NewReader(ensABI))
		if err != nil {
			panic("ens: invalid ABI: " + err.Error())
		}
		parsedABI = a
	})
	return parsedABI
}

// Resolver looks names up through the registry on backend.
type Resolver struct {
	backend  chain.Backend
	registry common.Address
}

// NewResolver returns a resolver using the well-known registry address.
func NewResolver(backend chain.Backend) *Resolver {
	return &Resolver{backend: backend, registry: RegistryAddress}
}

// IsName reports whether s looks like an ENS name rather than a hex address.
func IsName(s string) bool {
	s = strings.TrimSpace(s)
	return strings.Contains(s, ".") && !strings.HasPrefix(s, "0x")
}

// Resolve returns the address record of name.
func (r *Resolver) Resolve(ctx context.Context, name string) (common.Address, error) {
	node := Namehash(strings.ToLower(strings.TrimSpace(name)))
	resolver, err := r.resolver(ctx, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	var addr common.Address
	if err := r.call(ctx, resolver, "addr", node, &addr); err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: address of %s", ErrNotFound, name)
	}
	return addr, nil
}

// Lookup returns the primary name of addr via the addr.reverse registrar.
func (r *Resolver) Lookup(ctx context.Context, addr common.Address) (string, error) {
	node := Namehash(strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x")) + ".addr.reverse")
	resolver, err := r.resolver(ctx, node)
	if err != nil {
		return "", fmt.Errorf("reverse %s: %w", addr.Hex(), err)
	}
	var name string
	if err := r.call(ctx, resolver, "name", node, &name); err != nil {
		return "", fmt.Errorf("reverse %s: %w", addr.Hex(), err)
	}
	if name == "" {
		return "", fmt.Errorf("%w: name of %s", ErrNotFound, addr.Hex())
	}
	return name, nil
}

func (r *Resolver) resolver(ctx context.Context, node common.Hash) (common.Address, error) {
	var resolver common.Address
	if err := r.call(ctx, r.registry, "resolver", node, &resolver); err != nil {
		return common.Address{}, err
	}
	if resolver == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: no resolver set", ErrNotFound)
	}
	return resolver, nil
}

func (r *Resolver) call(ctx context.Context, to common.Address, method string, node common.Hash, out any) error {
	a := contractABI()
	data, err := a.Pack(method, node)
	if err != nil {
		return err
	}
	raw, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", chain.ErrRPC, method, err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("%w: %s returned nothing", ErrNotFound, method)
	}
	vals, err := a.Unpack(method, raw)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", method, err)
	}
	return a.Methods[method].Outputs.Copy(out, vals)
}

// Namehash implements the EIP-137 namehash. Names must be normalised by the
// caller.
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := crypto.Keccak256Hash([]byte(labels[i]))
		node = crypto.Keccak256Hash(node.Bytes(), label.Bytes())
	}
	return node
}
