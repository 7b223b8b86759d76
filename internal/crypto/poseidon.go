package crypto

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

// Poseidon hashes the given field elements with the circomlib parameters.
func Poseidon(items ...*big.Int) (*big.Int, error) {
	h, err := poseidon.Hash(items)
	if err != nil {
		return nil, fmt.Errorf("poseidon: %w", err)
	}
	return h, nil
}

// Poseidon2 is the two-input form used for Merkle node combination.
func Poseidon2(left, right *big.Int) (*big.Int, error) {
	return Poseidon(left, right)
}
