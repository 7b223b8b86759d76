// message.go - Compact wire form of an x25519-xsalsa20-poly1305 encrypted message.
//
// On chain the message is stored as nonce(24) || ephemeral public key(32) || ciphertext,
// hex encoded with a 0x prefix. In memory the components are kept base64 encoded.

package message

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Version is the only supported encryption scheme.
const Version = "x25519-xsalsa20-poly1305"

const (
	NonceSize     = 24
	PublicKeySize = 32
)

var ErrMalformed = errors.New("message: malformed encrypted message")

// EncryptedMessage mirrors the eth-sig-util encrypted data layout.
type EncryptedMessage struct {
	Version        string `json:"version"`
	Nonce          string `json:"nonce"`
	EphemPublicKey string `json:"ephemPublicKey"`
	Ciphertext     string `json:"ciphertext"`
}

// Pack serialises m into its 0x-prefixed hex wire form.
func Pack(m *EncryptedMessage) (string, error) {
	nonce, err := decodeField("nonce", m.Nonce, NonceSize)
	if err != nil {
		return "", err
	}
	key, err := decodeField("ephemPublicKey", m.EphemPublicKey, PublicKeySize)
	if err != nil {
		return "", err
	}
	ct, err := base64.StdEncoding.DecodeString(m.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", ErrMalformed, err)
	}

	buf := make([]byte, 0, NonceSize+PublicKeySize+len(ct))
	buf = append(buf, leftPad(nonce, NonceSize)...)
	buf = append(buf, leftPad(key, PublicKeySize)...)
	buf = append(buf, ct...)
	return "0x" + hex.EncodeToString(buf), nil
}

// Unpack parses the hex wire form produced by Pack. The 0x prefix is optional.
func Unpack(s string) (*EncryptedMessage, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	buf, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return UnpackBytes(buf)
}

// UnpackBytes is Unpack over raw bytes, as found in event data.
func UnpackBytes(buf []byte) (*EncryptedMessage, error) {
	if len(buf) < NonceSize+PublicKeySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformed, len(buf))
	}
	enc := base64.StdEncoding
	return &EncryptedMessage{
		Version:        Version,
		Nonce:          enc.EncodeToString(buf[:NonceSize]),
		EphemPublicKey: enc.EncodeToString(buf[NonceSize : NonceSize+PublicKeySize]),
		Ciphertext:     enc.EncodeToString(buf[NonceSize+PublicKeySize:]),
	}, nil
}

func decodeField(name, b64 string, width int) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	if len(raw) > width {
		return nil, fmt.Errorf("%w: %s is %d bytes, max %d", ErrMalformed, name, len(raw), width)
	}
	return raw, nil
}

func leftPad(b []byte, width int) []byte {
	if len(b) >= width {
		return b
	}
	out := make([]byte, width)
	copy(out[width-len(b):], b)
	return out
}
