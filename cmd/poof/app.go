// app.go - Builds the engine from configuration
package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"poofkit/internal/chain"
	"poofkit/internal/controller"
	"poofkit/internal/events"
	"poofkit/internal/keys"
	"poofkit/internal/kit"
	"poofkit/internal/metrics"
	"poofkit/internal/prover"
	"poofkit/internal/registry"
)

// app holds everything a command may need. The chain connection is opened lazily.
type app struct {
	cfg     *Config
	log     zerolog.Logger
	closer  io.Closer
	metrics *metrics.Collector
	keys    *keys.Registry

	client *ethclient.Client
	sender *chain.Sender
	kit    *kit.Kit
}

func newApp(cfg *Config, log zerolog.Logger, closer io.Closer) *app {
	return &app{
		cfg:     cfg,
		log:     log,
		closer:  closer,
		metrics: metrics.NewCollector(),
		keys:    keys.NewRegistry(keys.NewSource(cfg.KeysLocation), log.With().Str("component", "keys").Logger()),
	}
}

// connect dials the RPC endpoint and assembles the engine.
func (a *app) connect(ctx context.Context) (*kit.Kit, error) {
	if a.kit != nil {
		return a.kit, nil
	}
	client, err := ethclient.DialContext(ctx, a.cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", a.cfg.RPCURL, err)
	}
	a.client = client

	pools, err := a.pools()
	if err != nil {
		return nil, err
	}
	backend, err := a.backend()
	if err != nil {
		return nil, err
	}
	opts := kit.Options{
		Chain:      client,
		Pools:      pools,
		Controller: controller.New(backend, a.keys, a.log.With().Str("component", "controller").Logger(), a.metrics),
		Scanner:    events.NewScanner(rate.NewLimiter(rate.Limit(a.cfg.RequestsPerSecond), 1), a.log.With().Str("component", "events").Logger()),
		GasLimit:   a.cfg.GasLimit,
		Log:        a.log,
		Metrics:    a.metrics,
	}
	if a.cfg.PrivateKey != "" {
		key, err := chain.ParseKey(a.cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		id, err := client.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("chain id: %w", err)
		}
		a.sender = chain.NewSender(client, key, id, a.log.With().Str("component", "sender").Logger())
		opts.Sender = a.sender
	}
	a.kit = kit.New(opts)
	return a.kit, nil
}

// pools merges the inline deployments over the deployments file, when one is configured.
func (a *app) pools() (*registry.Registry, error) {
	if a.cfg.DeploymentsFile == "" {
		return registry.New(a.cfg.Deployments), nil
	}
	r, err := registry.Load(a.cfg.DeploymentsFile)
	if err != nil {
		return nil, err
	}
	for id, pools := range a.cfg.Deployments {
		r.Add(id, pools...)
	}
	return r, nil
}

func (a *app) backend() (prover.Backend, error) {
	g := prover.NewGroth16(a.log.With().Str("component", "prover").Logger())
	if !a.cfg.VerifyProofs {
		return g, nil
	}
	checked, err := g.WithVerifyingKeys(a.cfg.KeysLocation)
	if err != nil {
		return nil, err
	}
	return checked, nil
}

// account is the address transactions are sent from.
func (a *app) account() (common.Address, error) {
	if a.sender == nil {
		return common.Address{}, fmt.Errorf("PRIVATE_KEY is not set")
	}
	return a.sender.From(), nil
}

// poofKey is the hidden-account encryption key.
func (a *app) poofKey() (string, error) {
	if a.cfg.PoofPrivateKey == "" {
		return "", fmt.Errorf("POOF_PRIVATE_KEY is not set")
	}
	return a.cfg.PoofPrivateKey, nil
}

func (a *app) close() {
	if summary, err := a.metrics.Summary(); err == nil && len(summary) > 0 {
		ev := a.log.Debug()
		for name, v := range summary {
			ev = ev.Float64(name, v)
		}
		ev.Msg("metrics")
	}
	if a.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, a.metrics.Registry()); err != nil {
			a.log.Warn().Err(err).Str("path", a.cfg.MetricsFile).Msg("failed to write metrics")
		}
	}
	if a.client != nil {
		a.client.Close()
	}
	if a.closer != nil {
		a.closer.Close()
	}
}
