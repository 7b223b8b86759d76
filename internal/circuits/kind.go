package circuits

import (
	"fmt"
	"strings"

	"github.com/consensys/gnark/frontend"
)

// Kind identifies one of the pool's circuits.
type Kind int

const (
	Deposit Kind = iota
	Withdraw
	InputRoot
	OutputRoot
)

var kindNames = [...]string{"Deposit", "Withdraw", "InputRoot", "OutputRoot"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds lists every circuit kind.
func Kinds() []Kind { return []Kind{Deposit, Withdraw, InputRoot, OutputRoot} }

// ParseKind is the case-insensitive inverse of String.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(name, s) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown circuit kind %q", s)
}

// New returns an empty circuit of the given kind, ready for compilation.
func New(k Kind) (frontend.Circuit, error) {
	switch k {
	case Deposit:
		return &DepositCircuit{}, nil
	case Withdraw:
		return &WithdrawCircuit{}, nil
	case InputRoot:
		return &InputRootCircuit{}, nil
	case OutputRoot:
		return &OutputRootCircuit{}, nil
	}
	return nil, fmt.Errorf("unknown circuit kind %d", int(k))
}
