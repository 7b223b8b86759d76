package main

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poofkit/internal/circuits"
	"poofkit/internal/prover"
	"poofkit/internal/registry"
)

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("0.01", 18)
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000", v.String())

	v, err = ParseUnits("100", 6)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000_000), v.Int64())

	_, err = ParseUnits("0.0000001", 6)
	require.Error(t, err)
	_, err = ParseUnits("-1", 18)
	require.Error(t, err)
	_, err = ParseUnits("abc", 18)
	require.Error(t, err)
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "0.01", FormatUnits(big.NewInt(1e16), 18))
	assert.Equal(t, "12", FormatUnits(big.NewInt(12_000_000), 6))
	assert.Equal(t, "0", FormatUnits(nil, 18))
	assert.Equal(t, "0", FormatUnits(new(big.Int), 18))
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	t.Setenv("RPC_URL", "")
	t.Setenv("PRIVATE_KEY", "")
	t.Setenv("POOF_PRIVATE_KEY", "abcd")
	path := filepath.Join(t.TempDir(), "conf", "poof.json")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultConfig().RPCURL, cfg.RPCURL)
	assert.Equal(t, "abcd", cfg.PoofPrivateKey)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "abcd")
}

func TestConfigRoundTripWithDeployments(t *testing.T) {
	t.Setenv("RPC_URL", "https://forno.celo.org")
	path := filepath.Join(t.TempDir(), "poof.json")
	token := common.HexToAddress("0x02")
	cfg := DefaultConfig()
	cfg.Deployments[42220] = []registry.PoolMatch{{Symbol: "cUSD", PSymbol: "pUSD", PoolAddress: common.HexToAddress("0x01"), TokenAddress: &token}}
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://forno.celo.org", loaded.RPCURL)
	p, ok := registry.New(loaded.Deployments).Match(42220, "pusd")
	require.True(t, ok)
	assert.Equal(t, token, *p.TokenAddress)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RPCURL = "not a url"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.GasLimit = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Deployments[1] = []registry.PoolMatch{{}}
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.VerifyProofs = true
	require.Error(t, cfg.Validate())
	cfg.KeysLocation = t.TempDir()
	require.NoError(t, cfg.Validate())
}

func TestAppMergesDeploymentsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"42220":[
		{"symbol":"cUSD","poolAddress":"0x0000000000000000000000000000000000000001"},
		{"symbol":"cEUR","poolAddress":"0x0000000000000000000000000000000000000002"}]}`), 0o644))
	cfg := DefaultConfig()
	cfg.DeploymentsFile = path
	cfg.Deployments[42220] = []registry.PoolMatch{{Symbol: "cUSD", PoolAddress: common.HexToAddress("0x09")}}

	a := newApp(cfg, zerolog.Nop(), nil)
	pools, err := a.pools()
	require.NoError(t, err)
	p, ok := pools.Match(42220, "cusd")
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0x09"), p.PoolAddress)
	_, ok = pools.Match(42220, "ceur")
	assert.True(t, ok)

	cfg.DeploymentsFile = filepath.Join(t.TempDir(), "missing.json")
	_, err = a.pools()
	require.Error(t, err)
}

func TestAppBackendLoadsVerifyingKeys(t *testing.T) {
	cfg := DefaultConfig()
	a := newApp(cfg, zerolog.Nop(), nil)
	_, err := a.backend()
	require.NoError(t, err)

	cfg.VerifyProofs = true
	cfg.KeysLocation = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.KeysLocation, prover.VerifyingKeyFile(circuits.Deposit)), []byte("garbage"), 0o644))
	_, err = a.backend()
	require.Error(t, err)
}

func TestAppCloseWritesMetricsFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricsFile = filepath.Join(t.TempDir(), "poof.prom")
	a := newApp(cfg, zerolog.Nop(), nil)
	a.metrics.RecordOperation("deposit")
	a.close()

	raw, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `poof_operations_total{method="deposit"} 1`)
}

func TestHealthChecker(t *testing.T) {
	hc := NewHealthChecker("test")
	hc.RegisterComponent("rpc", func(context.Context) error { return nil })
	hc.RegisterOptional("relayer", func(context.Context) error { return errors.New("down") })

	h := hc.CheckHealth(context.Background())
	assert.Equal(t, Degraded, h.OverallStatus)
	require.Len(t, h.Components, 2)
	assert.Equal(t, "relayer", h.Components[0].Name)
	assert.Equal(t, "down", h.Components[0].Message)

	hc.RegisterComponent("keys", func(context.Context) error { return errors.New("missing") })
	assert.Equal(t, Unhealthy, hc.CheckHealth(context.Background()).OverallStatus)
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poof.log")
	log, closer, err := NewLogger("debug", path)
	require.NoError(t, err)
	log.Info().Str("k", "v").Msg("hello")
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"message":"hello"`)
}
