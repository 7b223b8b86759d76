package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	token := common.HexToAddress("0x0b")
	r := New(map[uint64][]PoolMatch{
		44787: {
			{Symbol: "CELO", PSymbol: "pCELO", PoolAddress: common.HexToAddress("0x01"), Native: true},
			{Symbol: "cUSD", PSymbol: "pUSD", PoolAddress: common.HexToAddress("0x02"), TokenAddress: &token},
		},
	})

	p, ok := r.Match(44787, "celo")
	require.True(t, ok)
	assert.True(t, p.Native)

	p, ok = r.Match(44787, "PUSD")
	require.True(t, ok)
	assert.Equal(t, token, *p.TokenAddress)
	assert.Equal(t, uint8(18), p.TokenDecimals())

	_, ok = r.Match(42220, "celo")
	assert.False(t, ok)
	_, ok = r.Match(44787, "doge")
	assert.False(t, ok)
	assert.Len(t, r.Pools(44787), 2)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"42220":[{"symbol":"cEUR","pSymbol":"pEUR","poolAddress":"0x0000000000000000000000000000000000000003","startBlock":100}]}`), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	p, ok := r.Match(42220, "ceur")
	require.True(t, ok)
	assert.Equal(t, uint64(100), p.StartBlock)
	assert.Nil(t, p.TokenAddress)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestAddTakesPrecedence(t *testing.T) {
	r := New(map[uint64][]PoolMatch{44787: {{Symbol: "CELO", PoolAddress: common.HexToAddress("0x01")}}})
	r.Add(44787, PoolMatch{Symbol: "celo", PoolAddress: common.HexToAddress("0x09")})
	r.Add(42220, PoolMatch{Symbol: "cUSD", PoolAddress: common.HexToAddress("0x0a")})

	p, ok := r.Match(44787, "CELO")
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0x09"), p.PoolAddress)
	assert.Len(t, r.Pools(44787), 2)
	assert.Len(t, r.Pools(42220), 1)
}
