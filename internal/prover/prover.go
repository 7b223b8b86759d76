// prover.go - Proof generation for the pool's circuits.
//
// The Backend is an opaque capability: given a circuit kind, a filled assignment and the
// kind's proving material it returns a proof plus the public signals it commits to.

package prover

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/big"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/frontend"
	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"

	"poofkit/internal/circuits"
	"poofkit/internal/keys"
)

var ErrNoMaterial = errors.New("prover: missing proving material")

// Proof is a Solidity-encoded proof and its public signals.
type Proof struct {
	Data          []byte
	PublicSignals []*big.Int
}

// Hex renders the proof as a single 0x-prefixed string.
func (p *Proof) Hex() string {
	return "0x" + hex.EncodeToString(p.Data)
}

// Signals renders the public signals as 0x-prefixed 32-byte words.
func (p *Proof) Signals() []string {
	out := make([]string, len(p.PublicSignals))
	for i, s := range p.PublicSignals {
		out[i] = fmt.Sprintf("0x%064x", s)
	}
	return out
}

// Backend produces proofs.
type Backend interface {
	Prove(ctx context.Context, kind circuits.Kind, assignment frontend.Circuit, material *keys.Material) (*Proof, error)
}

// Groth16 proves with gnark over BN254.
type Groth16 struct {
	log zerolog.Logger
	vks map[circuits.Kind]groth16.VerifyingKey
}

// NewGroth16 returns a Groth16 backend. gnark's own logging is silenced unless log is at debug level.
func NewGroth16(log zerolog.Logger) *Groth16 {
	if log.GetLevel() > zerolog.DebugLevel {
		gnarklogger.Set(zerolog.New(io.Discard).Level(zerolog.Disabled))
	}
	return &Groth16{log: log}
}

// WithVerifyingKeys makes g check every proof against the verifying keys Setup wrote into dir
// before handing it out. Kinds without a key file are left unchecked.
func (g *Groth16) WithVerifyingKeys(dir string) (*Groth16, error) {
	vks := make(map[circuits.Kind]groth16.VerifyingKey)
	for _, k := range circuits.Kinds() {
		vk, err := LoadVerifyingKey(dir, k)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s verifying key: %w", k, err)
		}
		vks[k] = vk
	}
	g.log.Debug().Int("keys", len(vks)).Str("dir", dir).Msg("proof self-check enabled")
	return &Groth16{log: g.log, vks: vks}, nil
}

func (g *Groth16) Prove(ctx context.Context, kind circuits.Kind, assignment frontend.Circuit, material *keys.Material) (*Proof, error) {
	if material == nil || material.CS == nil || material.PK == nil {
		return nil, ErrNoMaterial
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("%s witness creation failed: %w", kind, err)
	}
	proof, err := groth16.Prove(material.CS, material.PK, w)
	if err != nil {
		return nil, fmt.Errorf("%s proof generation failed: %w", kind, err)
	}
	bnProof, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected proof type %T", kind, proof)
	}

	pub, err := w.Public()
	if err != nil {
		return nil, fmt.Errorf("%s public witness: %w", kind, err)
	}
	vec, ok := pub.Vector().(fr.Vector)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected witness vector %T", kind, pub.Vector())
	}
	signals := make([]*big.Int, len(vec))
	for i := range vec {
		signals[i] = vec[i].BigInt(new(big.Int))
	}

	g.log.Debug().Str("circuit", kind.String()).Dur("took", time.Since(start)).Int("signals", len(signals)).Msg("proof generated")
	out := &Proof{Data: bnProof.MarshalSolidity(), PublicSignals: signals}
	if vk, ok := g.vks[kind]; ok {
		if err := Verify(out, vk); err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
	}
	return out, nil
}
