// internal/fixedpoint/amount.go
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow is returned when a result does not fit into 256 bits
	// (or into the narrower target of a conversion).
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrUnderflow is returned when a result would be negative.
	ErrUnderflow = errors.New("arithmetic underflow")
	// ErrDivisionByZero is returned by Div and MulDiv for a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")
)

// Amount is a non-negative integer quantity of base units (lamports, token
// base units, Q32.32 ratios). The zero value is 0.
//
// Amount is a plain value: every operation returns a new Amount and never
// modifies its operands, so Amounts can be shared between goroutines freely.
type Amount struct {
	v uint256.Int
}

// Zero returns the zero amount.
func Zero() Amount { return Amount{} }

// FromUint64 converts a uint64 to an Amount.
func FromUint64(x uint64) Amount {
	var a Amount
	a.v.SetUint64(x)
	return a
}

// FromBig converts a big.Int. Negative values fail with ErrUnderflow, values
// wider than 256 bits with ErrOverflow.
func FromBig(b *big.Int) (Amount, error) {
	if b == nil {
		return Amount{}, nil
	}
	if b.Sign() < 0 {
		return Amount{}, fmt.Errorf("negative value %s: %w", b.String(), ErrUnderflow)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return Amount{}, fmt.Errorf("value %s: %w", b.String(), ErrOverflow)
	}
	return Amount{v: *v}, nil
}

// Parse reads a base-10 integer. Underscores are accepted as digit separators
// ("1_000_000").
func Parse(s string) (Amount, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if clean == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(clean, "-") {
		return Amount{}, fmt.Errorf("amount %q: %w", s, ErrUnderflow)
	}
	v, err := uint256.FromDecimal(clean)
	if err != nil {
		if errors.Is(err, uint256.ErrBig256Range) {
			return Amount{}, fmt.Errorf("amount %q: %w", s, ErrOverflow)
		}
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{v: *v}, nil
}

// MustParse is Parse for constants and tests. It panics on error.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a + b.
func (a Amount) Add(b Amount) (Amount, error) {
	var z Amount
	if _, overflow := z.v.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, fmt.Errorf("%s + %s: %w", a, b, ErrOverflow)
	}
	return z, nil
}

// Sub returns a - b, failing with ErrUnderflow when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	var z Amount
	if _, underflow := z.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, fmt.Errorf("%s - %s: %w", a, b, ErrUnderflow)
	}
	return z, nil
}

// Mul returns a * b.
func (a Amount) Mul(b Amount) (Amount, error) {
	var z Amount
	if _, overflow := z.v.MulOverflow(&a.v, &b.v); overflow {
		return Amount{}, fmt.Errorf("%s * %s: %w", a, b, ErrOverflow)
	}
	return z, nil
}

// Div returns floor(a / b).
func (a Amount) Div(b Amount) (Amount, error) {
	if b.IsZero() {
		return Amount{}, fmt.Errorf("%s / 0: %w", a, ErrDivisionByZero)
	}
	var z Amount
	z.v.Div(&a.v, &b.v)
	return z, nil
}

// DivCeil returns ceil(a / b).
func (a Amount) DivCeil(b Amount) (Amount, error) {
	if b.IsZero() {
		return Amount{}, fmt.Errorf("%s / 0: %w", a, ErrDivisionByZero)
	}
	var q, r Amount
	q.v.DivMod(&a.v, &b.v, &r.v)
	if r.IsZero() {
		return q, nil
	}
	return q.Add(FromUint64(1))
}

// MulDiv returns floor(a * b / d). The product is checked: it must fit into
// 256 bits even though the quotient might.
func (a Amount) MulDiv(b, d Amount) (Amount, error) {
	p, err := a.Mul(b)
	if err != nil {
		return Amount{}, err
	}
	return p.Div(d)
}

// Pow returns a^exp by square-and-multiply, failing with ErrOverflow as soon
// as an intermediate exceeds 256 bits.
func (a Amount) Pow(exp uint64) (Amount, error) {
	result := FromUint64(1)
	base := a
	for exp > 0 {
		var err error
		if exp&1 == 1 {
			if result, err = result.Mul(base); err != nil {
				return Amount{}, err
			}
		}
		exp >>= 1
		if exp == 0 {
			break
		}
		if base, err = base.Mul(base); err != nil {
			return Amount{}, err
		}
	}
	return result, nil
}

// Sqrt returns floor(sqrt(a)).
func (a Amount) Sqrt() Amount {
	var z Amount
	z.v.Sqrt(&a.v)
	return z
}

// Rsh returns a >> n.
func (a Amount) Rsh(n uint) Amount {
	var z Amount
	z.v.Rsh(&a.v, n)
	return z
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

func (a Amount) Eq(b Amount) bool  { return a.v.Eq(&b.v) }
func (a Amount) Lt(b Amount) bool  { return a.v.Lt(&b.v) }
func (a Amount) Gt(b Amount) bool  { return a.v.Gt(&b.v) }
func (a Amount) Lte(b Amount) bool { return !a.v.Gt(&b.v) }
func (a Amount) Gte(b Amount) bool { return !a.v.Lt(&b.v) }

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.Lt(b) {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Amount) Amount {
	if a.Gt(b) {
		return a
	}
	return b
}

// Uint64 narrows the amount to uint64, the width of on-chain account fields.
func (a Amount) Uint64() (uint64, error) {
	if !a.v.IsUint64() {
		return 0, fmt.Errorf("%s does not fit into uint64: %w", a, ErrOverflow)
	}
	return a.v.Uint64(), nil
}

// IsUint64 reports whether a fits into a uint64.
func (a Amount) IsUint64() bool { return a.v.IsUint64() }

// Big returns a as a newly allocated big.Int.
func (a Amount) Big() *big.Int { return a.v.ToBig() }

// String returns the base-10 representation.
func (a Amount) String() string { return a.v.Dec() }

// MarshalText implements encoding.TextMarshaler. Amounts are encoded as
// decimal strings so JSON consumers never round them through float64.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.v.Dec()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
