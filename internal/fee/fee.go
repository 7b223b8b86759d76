// fee.go - Relayer fee: a percentage service fee plus the relayer's gas cost priced in the pool currency.

package fee

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
)

// Precision is the fixed-point scale applied to fractional prices and percentages.
const Precision = 1_000_000

var (
	ErrInvalidPrice = errors.New("fee: currency price must be positive")
	ErrInvalidFee   = errors.New("fee: service fee must be a non-negative finite percentage")
	ErrOverflow     = errors.New("fee: value exceeds 256 bits")
	ErrFeeTooHigh   = errors.New("fee: fee exceeds the amount it is taken from")
)

// Params are the inputs of Calculate.
type Params struct {
	// Amount the service fee is taken from.
	Amount *big.Int
	// CurrencyPrice is the price of one unit of the pool currency in the native currency.
	CurrencyPrice float64
	// ServiceFeePercent is the relayer's cut, e.g. 0.1 for 0.1 %.
	ServiceFeePercent float64
	// GasPrice in wei.
	GasPrice *big.Int
	GasLimit uint64
	// UnitPerUnderlying scales the gas cost into internal units when set.
	UnitPerUnderlying *big.Int
}

// Calculate returns serviceFee + gasCost expressed in the pool currency.
func Calculate(p Params) (*big.Int, error) {
	if !(p.CurrencyPrice > 0) || math.IsInf(p.CurrencyPrice, 0) {
		return nil, ErrInvalidPrice
	}
	if p.ServiceFeePercent < 0 || math.IsNaN(p.ServiceFeePercent) || math.IsInf(p.ServiceFeePercent, 0) {
		return nil, ErrInvalidFee
	}
	amount, err := toU256(p.Amount)
	if err != nil {
		return nil, err
	}
	gasPrice, err := toU256(p.GasPrice)
	if err != nil {
		return nil, err
	}
	precision := uint256.NewInt(Precision)

	// relayerFee = amount * floor(fee * PRECISION) / PRECISION / 100
	scaledFee, err := scaleFloat(p.ServiceFeePercent, Precision, false)
	if err != nil {
		return nil, err
	}
	relayerFee, overflow := new(uint256.Int).MulOverflow(amount, scaledFee)
	if overflow {
		return nil, ErrOverflow
	}
	relayerFee.Div(relayerFee, precision)
	relayerFee.Div(relayerFee, uint256.NewInt(100))

	gasCost, overflow := new(uint256.Int).MulOverflow(gasPrice, uint256.NewInt(p.GasLimit))
	if overflow {
		return nil, ErrOverflow
	}

	var gasInCurrency *uint256.Int
	if p.CurrencyPrice > 1 {
		price, err := scaleFloat(p.CurrencyPrice, 1, false)
		if err != nil {
			return nil, err
		}
		gasInCurrency = new(uint256.Int).Div(gasCost, price)
	} else {
		scaled, overflow := new(uint256.Int).MulOverflow(gasCost, precision)
		if overflow {
			return nil, ErrOverflow
		}
		price, err := scaleFloat(p.CurrencyPrice, Precision, true)
		if err != nil {
			return nil, err
		}
		gasInCurrency = scaled.Div(scaled, price)
	}

	if p.UnitPerUnderlying != nil {
		unit, err := toU256(p.UnitPerUnderlying)
		if err != nil {
			return nil, err
		}
		if _, overflow := gasInCurrency.MulOverflow(gasInCurrency, unit); overflow {
			return nil, ErrOverflow
		}
	}

	total, overflow := new(uint256.Int).AddOverflow(relayerFee, gasInCurrency)
	if overflow {
		return nil, ErrOverflow
	}
	return total.ToBig(), nil
}

// WithBuffer adds the 0.1 % safety margin applied before quoting a fee to the relayer.
func WithBuffer(fee *big.Int) *big.Int {
	out := new(big.Int).Mul(fee, big.NewInt(1001))
	return out.Div(out, big.NewInt(1000))
}

// CheckCeiling rejects a fee larger than the amount it is deducted from.
func CheckCeiling(fee, from *big.Int) error {
	if fee.Cmp(from) > 0 {
		return fmt.Errorf("%w: fee %s, available %s", ErrFeeTooHigh, fee, from)
	}
	return nil
}

// scaleFloat returns floor(f*scale), or its ceiling when roundUp is set, without passing through uint64.
func scaleFloat(f float64, scale uint64, roundUp bool) (*uint256.Int, error) {
	x := new(big.Float).SetFloat64(f)
	x.Mul(x, new(big.Float).SetUint64(scale))
	n, acc := x.Int(nil)
	if roundUp && acc == big.Below {
		n.Add(n, big.NewInt(1))
	}
	return toU256(n)
}

func toU256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("fee: negative value %s", v)
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrOverflow
	}
	return u, nil
}
