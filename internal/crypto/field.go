// field.go - BN254 scalar field helpers shared by the hash primitives.
//
// Every value that ends up inside a circuit signal (amounts, secrets, nullifiers, hashes)
// lives in this field. Random values are drawn with 31 bytes so they always fit.

package crypto

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// DefaultRandomBytes is the width of secrets and nullifiers.
const DefaultRandomBytes = 31

// FieldSize is the BN254 scalar field modulus.
var FieldSize = fr.Modulus()

// RandomField returns a uniformly random value of nbytes bytes (DefaultRandomBytes when nbytes <= 0).
func RandomField(nbytes int) *big.Int {
	if nbytes <= 0 {
		nbytes = DefaultRandomBytes
	}
	buf := make([]byte, nbytes)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto: system randomness unavailable: %v", err))
	}
	return new(big.Int).SetBytes(buf)
}

// toElement reduces v modulo the field.
func toElement(v *big.Int) fr.Element {
	var e fr.Element
	e.SetBigInt(v)
	return e
}

func fromElement(e *fr.Element) *big.Int {
	return e.BigInt(new(big.Int))
}
