// pedersen.go - Pedersen hash over BabyJubJub compatible with circomlib's pedersenHash.
//
// The message is split into 200-bit segments. Each segment is read as 4-bit windows
// (3 magnitude bits and a sign bit) and multiplies a base point derived from blake256.

package crypto

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/dchest/blake256"
	"github.com/iden3/go-iden3-crypto/babyjub"
)

const (
	pedersenPrefix      = "PedersenGenerator"
	pedersenWindowSize  = 4
	pedersenWindows     = 50
	pedersenSegmentBits = pedersenWindowSize * pedersenWindows
)

var (
	basesMu sync.Mutex
	bases   []*babyjub.Point
)

// PedersenHash returns the x coordinate of the Pedersen point of buf.
func PedersenHash(buf []byte) (*big.Int, error) {
	packed, err := PedersenHashPacked(buf)
	if err != nil {
		return nil, err
	}
	p, err := new(babyjub.Point).Decompress(packed)
	if err != nil {
		return nil, fmt.Errorf("pedersen: unpack: %w", err)
	}
	return p.X, nil
}

// PedersenHashPacked returns the compressed Pedersen point of buf.
func PedersenHashPacked(buf []byte) ([32]byte, error) {
	var out [32]byte
	if len(buf) == 0 {
		return out, errors.New("pedersen: empty message")
	}
	bits := make([]bool, len(buf)*8)
	for i, b := range buf {
		for j := 0; j < 8; j++ {
			bits[i*8+j] = b&(1<<j) != 0
		}
	}

	nSegments := (len(bits)-1)/pedersenSegmentBits + 1
	acc := babyjub.NewPoint()
	for s := 0; s < nSegments; s++ {
		nWindows := pedersenWindows
		if s == nSegments-1 {
			nWindows = (len(bits)-(nSegments-1)*pedersenSegmentBits-1)/pedersenWindowSize + 1
		}

		scalar := new(big.Int)
		exp := big.NewInt(1)
		for w := 0; w < nWindows; w++ {
			o := s*pedersenSegmentBits + w*pedersenWindowSize
			window := big.NewInt(1)
			for b := 0; b < pedersenWindowSize-1 && o < len(bits); b++ {
				if bits[o] {
					window.Add(window, new(big.Int).Lsh(big.NewInt(1), uint(b)))
				}
				o++
			}
			if o < len(bits) {
				if bits[o] {
					window.Neg(window)
				}
				o++
			}
			scalar.Add(scalar, window.Mul(window, exp))
			exp.Lsh(exp, pedersenWindowSize+1)
		}
		if scalar.Sign() < 0 {
			scalar.Add(babyjub.SubOrder, scalar)
		}

		base, err := basePoint(s)
		if err != nil {
			return out, err
		}
		term := new(babyjub.Point).Mul(scalar, base)
		acc = babyjub.NewPointProjective().Add(acc.Projective(), term.Projective()).Affine()
	}
	return acc.Compress(), nil
}

// basePoint derives (and memoizes) the generator of segment idx.
func basePoint(idx int) (*babyjub.Point, error) {
	basesMu.Lock()
	defer basesMu.Unlock()
	for len(bases) <= idx {
		p, err := deriveBasePoint(len(bases))
		if err != nil {
			return nil, err
		}
		bases = append(bases, p)
	}
	return bases[idx], nil
}

func deriveBasePoint(idx int) (*babyjub.Point, error) {
	for try := 0; ; try++ {
		h := blake256.New()
		fmt.Fprintf(h, "%s_%032d_%032d", pedersenPrefix, idx, try)
		var packed [32]byte
		copy(packed[:], h.Sum(nil))
		packed[31] &= 0xBF
		p, err := new(babyjub.Point).Decompress(packed)
		if err != nil {
			continue
		}
		p8 := new(babyjub.Point).Mul(big.NewInt(8), p)
		if !p8.InSubGroup() {
			return nil, fmt.Errorf("pedersen: generator %d not in subgroup", idx)
		}
		return p8, nil
	}
}
