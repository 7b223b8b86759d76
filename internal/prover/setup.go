package prover

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"poofkit/internal/circuits"
	"poofkit/internal/keys"
)

// VerifyingKeyFile is where Setup stores the verifying key of k.
func VerifyingKeyFile(k circuits.Kind) string { return k.String() + ".vk" }

// VerifierContractFile is where Setup stores the Solidity verifier of k.
func VerifierContractFile(k circuits.Kind) string { return k.String() + "Verifier.sol" }

// Compile builds the constraint system of kind.
func Compile(kind circuits.Kind) (*keys.Material, error) {
	c, err := circuits.New(kind)
	if err != nil {
		return nil, err
	}
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, c)
	if err != nil {
		return nil, fmt.Errorf("%s circuit compilation failed: %w", kind, err)
	}
	return &keys.Material{CS: ccs}, nil
}

// Setup compiles kind, runs a Groth16 setup and writes the gzip blobs the registry reads,
// plus the verifying key and a Solidity verifier, into dir.
// The setup is single-party and only suitable for development pools.
func Setup(kind circuits.Kind, dir string) (*keys.Material, groth16.VerifyingKey, error) {
	m, err := Compile(kind)
	if err != nil {
		return nil, nil, err
	}
	pk, vk, err := groth16.Setup(m.CS)
	if err != nil {
		return nil, nil, fmt.Errorf("%s setup failed: %w", kind, err)
	}
	m.PK = pk

	if err := keys.WriteGzip(dir, keys.CircuitFile(kind), func(w io.Writer) error {
		_, err := m.CS.WriteTo(w)
		return err
	}); err != nil {
		return nil, nil, err
	}
	if err := keys.WriteGzip(dir, keys.ProvingKeyFile(kind), func(w io.Writer) error {
		_, err := pk.WriteRawTo(w)
		return err
	}); err != nil {
		return nil, nil, err
	}
	if err := writeFile(filepath.Join(dir, VerifyingKeyFile(kind)), func(w io.Writer) error {
		_, err := vk.WriteTo(w)
		return err
	}); err != nil {
		return nil, nil, err
	}
	if err := writeFile(filepath.Join(dir, VerifierContractFile(kind)), func(w io.Writer) error {
		return vk.ExportSolidity(w)
	}); err != nil {
		return nil, nil, err
	}
	return m, vk, nil
}

// LoadVerifyingKey reads a verifying key written by Setup.
func LoadVerifyingKey(dir string, kind circuits.Kind) (groth16.VerifyingKey, error) {
	f, err := os.Open(filepath.Join(dir, VerifyingKeyFile(kind)))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	_, err = vk.ReadFrom(f)
	return vk, err
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}
