package prover

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/backend/witness"
)

// Verify checks a proof produced by Groth16 against vk. The Solidity encoding carries no
// commitments, so only circuits without commitment gadgets can be verified this way.
func Verify(p *Proof, vk groth16.VerifyingKey) error {
	var proof groth16_bn254.Proof
	if err := unmarshalSolidity(&proof, p.Data); err != nil {
		return err
	}

	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return err
	}
	values := make(chan any, len(p.PublicSignals))
	for _, s := range p.PublicSignals {
		var e fr.Element
		e.SetBigInt(s)
		values <- e
	}
	close(values)
	if err := w.Fill(len(p.PublicSignals), 0, values); err != nil {
		return fmt.Errorf("public witness: %w", err)
	}
	if err := groth16.Verify(&proof, vk, w); err != nil {
		return fmt.Errorf("proof verification failed: %w", err)
	}
	return nil
}

// unmarshalSolidity reverses MarshalSolidity for proofs without commitments:
// Ar (x, y) | Bs (x1, x0, y1, y0) | Krs (x, y).
func unmarshalSolidity(proof *groth16_bn254.Proof, data []byte) error {
	if len(data) != 8*32 {
		return fmt.Errorf("proof: expected 256 bytes, got %d", len(data))
	}
	word := func(i int) []byte { return data[i*32 : (i+1)*32] }
	proof.Ar.X.SetBytes(word(0))
	proof.Ar.Y.SetBytes(word(1))
	proof.Bs.X.A1.SetBytes(word(2))
	proof.Bs.X.A0.SetBytes(word(3))
	proof.Bs.Y.A1.SetBytes(word(4))
	proof.Bs.Y.A0.SetBytes(word(5))
	proof.Krs.X.SetBytes(word(6))
	proof.Krs.Y.SetBytes(word(7))
	if !proof.Ar.IsOnCurve() || !proof.Bs.IsOnCurve() || !proof.Krs.IsOnCurve() {
		return fmt.Errorf("proof: point not on curve")
	}
	return nil
}
