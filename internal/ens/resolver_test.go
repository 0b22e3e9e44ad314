package ens

import (
	"context"
	"errors"
	"math/big"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
)

func TestNamehashVectors(t *testing.T) {
	assert.Equal(t, common.Hash{}, Namehash(""))
	assert.Equal(t, "0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae", Namehash("eth").Hex())
	assert.Equal(t, "0xde9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f", Namehash("foo.eth").Hex())
	assert.NotEqual(t, Namehash("Test.eth"), Namehash("test.eth"))
	assert.NotEqual(t, Namehash("test.eth"), Namehash("sub.test.eth"))
}

func TestIsName(t *testing.T) {
	assert.True(t, IsName("alice.eth"))
	assert.True(t, IsName(" sub.alice.eth "))
	assert.False(t, IsName("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"))
	assert.False(t, IsName("alice"))
	assert.False(t, IsName(""))
}

// ensChain answers registry and resolver calls from maps keyed by node.
type ensChain struct {
	chain.Backend
	resolver  common.Address
	resolvers map[common.Hash]common.Address
	addrs     map[common.Hash]common.Address
	names     map[common.Hash]string
	err       error
}

func (c *ensChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	a := contractABI()
	m, err := a.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	in, err := m.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	node := common.Hash(in[0].([32]byte))
	switch {
	case *msg.To == RegistryAddress && m.Name == "resolver":
		return m.Outputs.Pack(c.resolvers[node])
	case *msg.To == c.resolver && m.Name == "addr":
		return m.Outputs.Pack(c.addrs[node])
	case *msg.To == c.resolver && m.Name == "name":
		return m.Outputs.Pack(c.names[node])
	}
	return nil, nil
}

func newENSChain() *ensChain {
	return &ensChain{
		resolver:  common.HexToAddress("0x4976fb03C32e5B8cfe2b6cCB31c09Ba78EBaBa41"),
		resolvers: map[common.Hash]common.Address{},
		addrs:     map[common.Hash]common.Address{},
		names:     map[common.Hash]string{},
	}
}

func TestResolve(t *testing.T) {
	c := newENSChain()
	target := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	node := Namehash("vitalik.eth")
	c.resolvers[node] = c.resolver
	c.addrs[node] = target

	got, err := NewResolver(c).Resolve(context.Background(), "Vitalik.ETH")
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestResolveMissingRecords(t *testing.T) {
	c := newENSChain()
	r := NewResolver(c)

	_, err := r.Resolve(context.Background(), "nobody.eth")
	assert.ErrorIs(t, err, ErrNotFound)

	node := Namehash("empty.eth")
	c.resolvers[node] = c.resolver
	_, err = r.Resolve(context.Background(), "empty.eth")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveRPCError(t *testing.T) {
	c := newENSChain()
	c.err = errors.New("connection refused")
	_, err := NewResolver(c).Resolve(context.Background(), "alice.eth")
	assert.ErrorIs(t, err, chain.ErrRPC)
	assert.Equal(t, "rpc", chain.Classify(err))
}

func TestLookup(t *testing.T) {
	c := newENSChain()
	addr := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	node := Namehash("d8da6bf26964af9d7eed9e03e53415d37aa96045.addr.reverse")
	c.resolvers[node] = c.resolver
	c.names[node] = "vitalik.eth"

	name, err := NewResolver(c).Lookup(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, "vitalik.eth", name)

	_, err = NewResolver(c).Lookup(context.Background(), common.HexToAddress("0x01"))
	assert.ErrorIs(t, err, ErrNotFound)
}
