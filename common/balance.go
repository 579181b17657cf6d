// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package common

import (
	"github.com/holiman/uint256"
)

// UnitsPerKRAT is the number of base units in one KRAT token.
const UnitsPerKRAT = 1_000_000_000_000

// Balance is an unsigned account/stake balance, saturating on overflow or
// underflow rather than wrapping or panicking. Token amounts need 128 bits
// of headroom; uint256.Int backs the type since its overflow-reporting
// arithmetic gives exactly the saturating semantics required.
type Balance struct {
	v uint256.Int
}

// NewBalance constructs a Balance from a base-unit uint64 value.
func NewBalance(units uint64) Balance {
	var b Balance
	b.v.SetUint64(units)
	return b
}

// KRAT constructs a Balance of n whole KRAT tokens.
func KRAT(n uint64) Balance {
	var b Balance
	b.v.Mul(uint256.NewInt(n), uint256.NewInt(UnitsPerKRAT))
	return b
}

// ZeroBalance is the additive identity.
var ZeroBalance Balance

// IsZero reports whether b is zero.
func (b Balance) IsZero() bool {
	return b.v.IsZero()
}

// Add returns a saturating sum b+other.
func (b Balance) Add(other Balance) Balance {
	var out Balance
	if _, overflow := out.v.AddOverflow(&b.v, &other.v); overflow {
		out.v = *uint256.NewInt(0).Not(uint256.NewInt(0))
	}
	return out
}

// Sub returns b-other, saturating to zero if other exceeds b.
func (b Balance) Sub(other Balance) Balance {
	var out Balance
	if b.v.Lt(&other.v) {
		return ZeroBalance
	}
	out.v.Sub(&b.v, &other.v)
	return out
}

// MulUint64 returns a saturating product b*n.
func (b Balance) MulUint64(n uint64) Balance {
	var out Balance
	if _, overflow := out.v.MulOverflow(&b.v, uint256.NewInt(n)); overflow {
		out.v = *uint256.NewInt(0).Not(uint256.NewInt(0))
	}
	return out
}

// DivUint64 returns the floor quotient b/n. DivUint64 returns zero if n is
// zero rather than panicking.
func (b Balance) DivUint64(n uint64) Balance {
	var out Balance
	if n == 0 {
		return ZeroBalance
	}
	out.v.Div(&b.v, uint256.NewInt(n))
	return out
}

// Cmp compares b to other: -1 if b<other, 0 if equal, 1 if b>other.
func (b Balance) Cmp(other Balance) int {
	return b.v.Cmp(&other.v)
}

// LessThan reports whether b < other.
func (b Balance) LessThan(other Balance) bool {
	return b.v.Lt(&other.v)
}

// GreaterThanOrEqual reports whether b >= other.
func (b Balance) GreaterThanOrEqual(other Balance) bool {
	return !b.v.Lt(&other.v)
}

// Uint64 returns b clamped to the uint64 range. Used only where a caller
// has already established the value fits (e.g. computing a stake-weight
// component capped well below 2^64 units).
func (b Balance) Uint64() uint64 {
	if !b.v.IsUint64() {
		return ^uint64(0)
	}
	return b.v.Uint64()
}

// Float64 returns an approximate float64 representation, used only for the
// VRF stake-weight component, which is inherently a floating-point formula.
func (b Balance) Float64() float64 {
	return b.v.Float64()
}

// String returns the decimal string representation of the balance in base
// units.
func (b Balance) String() string {
	return b.v.Dec()
}

// MarshalJSON encodes the balance as a decimal string, avoiding precision
// loss in JSON numbers for values exceeding 2^53.
func (b Balance) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.v.Dec() + `"`), nil
}

// UnmarshalJSON decodes a balance from a decimal string or JSON number.
func (b *Balance) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return err
	}
	b.v = *v
	return nil
}
