package crypto

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ToFixedHex renders v as 0x-prefixed hex left-padded with zeros to length bytes (32 when length <= 0).
// v may be a *big.Int, an integer, a hex or decimal string, a byte slice or an address.
func ToFixedHex(v any, length int) (string, error) {
	if length <= 0 {
		length = 32
	}
	var digits string
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			x = new(big.Int)
		}
		if x.Sign() < 0 {
			return "", fmt.Errorf("fixed hex: negative value %s", x)
		}
		digits = x.Text(16)
	case int:
		if x < 0 {
			return "", fmt.Errorf("fixed hex: negative value %d", x)
		}
		digits = big.NewInt(int64(x)).Text(16)
	case int64:
		if x < 0 {
			return "", fmt.Errorf("fixed hex: negative value %d", x)
		}
		digits = big.NewInt(x).Text(16)
	case uint64:
		digits = new(big.Int).SetUint64(x).Text(16)
	case []byte:
		digits = hex.EncodeToString(x)
	case [32]byte:
		digits = hex.EncodeToString(x[:])
	case common.Address:
		digits = hex.EncodeToString(x.Bytes())
	case common.Hash:
		digits = hex.EncodeToString(x.Bytes())
	case string:
		if has0x(x) {
			digits = strings.ToLower(x[2:])
			if _, err := hex.DecodeString(evenHex(digits)); err != nil {
				return "", fmt.Errorf("fixed hex: %q is not hex", x)
			}
		} else {
			n, ok := new(big.Int).SetString(x, 10)
			if !ok || n.Sign() < 0 {
				return "", fmt.Errorf("fixed hex: %q is not a non-negative decimal", x)
			}
			digits = n.Text(16)
		}
	default:
		return "", fmt.Errorf("fixed hex: unsupported type %T", v)
	}
	if len(digits) > length*2 {
		return "", fmt.Errorf("fixed hex: value does not fit in %d bytes", length)
	}
	return "0x" + strings.Repeat("0", length*2-len(digits)) + digits, nil
}

// MustFixedHex is ToFixedHex for values already known to fit.
func MustFixedHex(v any, length int) string {
	s, err := ToFixedHex(v, length)
	if err != nil {
		panic(err)
	}
	return s
}

// FixedBytes32 returns the big-endian 32 byte form of a field element.
func FixedBytes32(v *big.Int) [32]byte {
	var out [32]byte
	if v != nil {
		v.FillBytes(out[:])
	}
	return out
}

func has0x(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func evenHex(s string) string {
	if len(s)%2 == 1 {
		return "0" + s
	}
	return s
}
