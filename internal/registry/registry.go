// registry.go - Known pool deployments, per chain.

package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// PoolMatch describes one pool deployment.
type PoolMatch struct {
	Symbol       string          `json:"symbol"`
	PSymbol      string          `json:"pSymbol"`
	PoolAddress  common.Address  `json:"poolAddress"`
	TokenAddress *common.Address `json:"tokenAddress,omitempty"`
	// Decimals of the underlying token, 18 when zero.
	Decimals uint8 `json:"decimals,omitempty"`
	// StartBlock is the first block worth scanning for the pool's events.
	StartBlock uint64 `json:"startBlock,omitempty"`
	// Native pools take the chain currency as msg.value instead of an ERC20 transfer.
	Native bool `json:"native,omitempty"`
}

// TokenDecimals returns Decimals, defaulting to 18.
func (p PoolMatch) TokenDecimals() uint8 {
	if p.Decimals == 0 {
		return 18
	}
	return p.Decimals
}

// Registry maps chain ids to their pools.
type Registry struct {
	chains map[uint64][]PoolMatch
}

// New builds a registry from a chain id keyed table.
func New(chains map[uint64][]PoolMatch) *Registry {
	r := &Registry{chains: make(map[uint64][]PoolMatch, len(chains))}
	for id, pools := range chains {
		r.chains[id] = append([]PoolMatch(nil), pools...)
	}
	return r
}

// Load reads a JSON file of the form {"<chainId>": [PoolMatch, ...]}.
func Load(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deployments: %w", err)
	}
	var raw map[uint64][]PoolMatch
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode deployments: %w", err)
	}
	return New(raw), nil
}

// Match finds the pool whose symbol or pool-token symbol equals currency, ignoring case.
func (r *Registry) Match(chainID uint64, currency string) (PoolMatch, bool) {
	for _, p := range r.chains[chainID] {
		if strings.EqualFold(p.Symbol, currency) || strings.EqualFold(p.PSymbol, currency) {
			return p, true
		}
	}
	return PoolMatch{}, false
}

// Add registers pools on chainID ahead of the ones already known, so they win Match.
func (r *Registry) Add(chainID uint64, pools ...PoolMatch) {
	r.chains[chainID] = append(append([]PoolMatch(nil), pools...), r.chains[chainID]...)
}

// Pools lists the pools of a chain.
func (r *Registry) Pools(chainID uint64) []PoolMatch {
	return append([]PoolMatch(nil), r.chains[chainID]...)
}
