// registry.go - Process-wide cache of proving material, one entry per circuit kind.
//
// Material is fetched on first use, gunzipped and decoded, then kept for the life of the
// process. Concurrent callers for the same kind wait on the entry's lock; a failed load
// leaves the entry uninitialised so the next caller retries.

package keys

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"poofkit/internal/circuits"
)

// State of a registry entry.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return "uninitialized"
}

// Material is everything needed to prove one circuit kind.
type Material struct {
	CS constraint.ConstraintSystem
	PK groth16.ProvingKey
}

// CircuitFile is the blob holding the compiled constraint system of k.
func CircuitFile(k circuits.Kind) string { return k.String() + ".r1cs.gz" }

// ProvingKeyFile is the blob holding the proving key of k.
func ProvingKeyFile(k circuits.Kind) string { return k.String() + "_circuit_final.pk.gz" }

// Decoder turns the two decompressed blobs into Material.
type Decoder func(cs, pk io.Reader) (*Material, error)

// entry serialises loads through mu; state is readable without waiting for a load.
type entry struct {
	mu       sync.Mutex
	state    atomic.Int32
	material *Material
}

// Registry holds one entry per circuit kind.
type Registry struct {
	source Source
	decode Decoder
	log    zerolog.Logger

	mu      sync.Mutex
	entries map[circuits.Kind]*entry
}

// NewRegistry creates a registry reading from src with the Groth16 BN254 decoder.
func NewRegistry(src Source, log zerolog.Logger) *Registry {
	return &Registry{
		source:  src,
		decode:  DecodeGroth16,
		log:     log,
		entries: make(map[circuits.Kind]*entry),
	}
}

// WithDecoder replaces the blob decoder.
func (r *Registry) WithDecoder(d Decoder) *Registry {
	r.decode = d
	return r
}

// State reports the load state of kind.
func (r *Registry) State(kind circuits.Kind) State {
	return State(r.entry(kind).state.Load())
}

// Get returns the material for kind, loading it on first use.
func (r *Registry) Get(ctx context.Context, kind circuits.Kind) (*Material, error) {
	e := r.entry(kind)
	e.mu.Lock()
	defer e.mu.Unlock()
	if State(e.state.Load()) == Ready {
		return e.material, nil
	}

	e.state.Store(int32(Loading))
	m, err := r.load(ctx, kind)
	if err != nil {
		e.state.Store(int32(Uninitialized))
		return nil, fmt.Errorf("load %s proving material: %w", kind, err)
	}
	e.material = m
	e.state.Store(int32(Ready))
	return m, nil
}

// Put installs already decoded material, e.g. right after a local setup.
func (r *Registry) Put(kind circuits.Kind, m *Material) {
	e := r.entry(kind)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.material = m
	e.state.Store(int32(Ready))
}

func (r *Registry) entry(kind circuits.Kind) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[kind]
	if !ok {
		e = &entry{}
		r.entries[kind] = e
	}
	return e
}

func (r *Registry) load(ctx context.Context, kind circuits.Kind) (*Material, error) {
	r.log.Debug().Str("circuit", kind.String()).Msg("fetching proving material")

	var csBlob, pkBlob []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		csBlob, err = r.fetch(gctx, CircuitFile(kind))
		return err
	})
	g.Go(func() (err error) {
		pkBlob, err = r.fetch(gctx, ProvingKeyFile(kind))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m, err := r.decode(newReader(csBlob), newReader(pkBlob))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	r.log.Debug().Str("circuit", kind.String()).Int("cs_bytes", len(csBlob)).Int("pk_bytes", len(pkBlob)).Msg("proving material ready")
	return m, nil
}

func (r *Registry) fetch(ctx context.Context, name string) ([]byte, error) {
	rc, err := r.source.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	zr, err := gzip.NewReader(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer zr.Close()
	b, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}

// DecodeGroth16 reads a BN254 constraint system and Groth16 proving key.
func DecodeGroth16(cs, pk io.Reader) (*Material, error) {
	ccs := groth16.NewCS(ecc.BN254)
	if _, err := ccs.ReadFrom(cs); err != nil {
		return nil, fmt.Errorf("constraint system: %w", err)
	}
	provingKey := groth16.NewProvingKey(ecc.BN254)
	if _, err := provingKey.UnsafeReadFrom(pk); err != nil {
		return nil, fmt.Errorf("proving key: %w", err)
	}
	return &Material{CS: ccs, PK: provingKey}, nil
}
