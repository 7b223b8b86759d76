package message

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

var ErrDecrypt = errors.New("message: decryption failed")

// EncryptionPublicKey derives the base64 x25519 public key of a hex private key.
func EncryptionPublicKey(privateKeyHex string) (string, error) {
	priv, err := parsePrivateKey(privateKeyHex)
	if err != nil {
		return "", err
	}
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return "", fmt.Errorf("message: derive public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(pub), nil
}

// Encrypt seals data for the holder of publicKey using a fresh ephemeral key pair.
func Encrypt(publicKey string, data string) (*EncryptedMessage, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil || len(raw) != PublicKeySize {
		return nil, errors.New("message: bad public key")
	}
	var peer [32]byte
	copy(peer[:], raw)

	ephemPub, ephemPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("message: generate ephemeral key: %w", err)
	}
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("message: nonce: %w", err)
	}
	sealed := box.Seal(nil, []byte(data), &nonce, &peer, ephemPriv)

	enc := base64.StdEncoding
	return &EncryptedMessage{
		Version:        Version,
		Nonce:          enc.EncodeToString(nonce[:]),
		EphemPublicKey: enc.EncodeToString(ephemPub[:]),
		Ciphertext:     enc.EncodeToString(sealed),
	}, nil
}

// Decrypt opens m with the hex private key. Any failure is reported as ErrDecrypt.
func Decrypt(m *EncryptedMessage, privateKeyHex string) (string, error) {
	if m == nil || m.Version != Version {
		return "", fmt.Errorf("%w: unsupported version", ErrDecrypt)
	}
	priv, err := parsePrivateKey(privateKeyHex)
	if err != nil {
		return "", err
	}
	enc := base64.StdEncoding
	nonceRaw, err := enc.DecodeString(m.Nonce)
	if err != nil || len(nonceRaw) != NonceSize {
		return "", fmt.Errorf("%w: nonce", ErrDecrypt)
	}
	ephemRaw, err := enc.DecodeString(m.EphemPublicKey)
	if err != nil || len(ephemRaw) != PublicKeySize {
		return "", fmt.Errorf("%w: ephemeral key", ErrDecrypt)
	}
	ct, err := enc.DecodeString(m.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext", ErrDecrypt)
	}

	var nonce [NonceSize]byte
	var ephem [32]byte
	copy(nonce[:], nonceRaw)
	copy(ephem[:], ephemRaw)
	plain, ok := box.Open(nil, ct, &nonce, &ephem, priv)
	if !ok || !utf8.Valid(plain) {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

func parsePrivateKey(s string) (*[32]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(raw) != 32 {
		return nil, errors.New("message: private key must be 32 hex-encoded bytes")
	}
	var priv [32]byte
	copy(priv[:], raw)
	return &priv, nil
}
