package value

import (
	"math/big"
	"strings"
)

// Decimal is a base-10 fixed-point number: coef * 10^-scale, coef signed.
//
// No arbitrary-precision decimal library turned up anywhere in the
// retrieved corpus (shopspring/decimal, cockroachdb/apd and
// ericlagergren/decimal were all grepped for and found nowhere), so this
// type is grounded directly on math/big rather than a third-party
// package. The representation mirrors the shopspring/decimal design
// (big.Int coefficient + int32 scale) without importing it.
type Decimal struct {
	coef  *big.Int
	scale int32
}

// DivPrecision is the number of fractional digits division rounds to
// when the result does not terminate exactly.
const DivPrecision = 28

var (
	bigTen   = big.NewInt(10)
	zeroCoef = big.NewInt(0)
)

// Zero is the decimal value 0.
var Zero = Decimal{coef: big.NewInt(0), scale: 0}

// NewFromInt builds a Decimal from a plain integer.
func NewFromInt(i int64) Decimal {
	return Decimal{coef: big.NewInt(i), scale: 0}
}

// ParseDecimal parses a base-10 literal ("123", "-4.50", "0.1") into a
// Decimal. Returns false if s is not a valid decimal literal.
func ParseDecimal(s string) (Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, false
	}

	neg := false
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		neg = true
		s = s[1:]
	}
	if s == "" {
		return Zero, false
	}

	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart = s[:dot]
		fracPart = s[dot+1:]
	}
	if intPart == "" && fracPart == "" {
		return Zero, false
	}
	for _, r := range intPart {
		if r < '0' || r > '9' {
			return Zero, false
		}
	}
	for _, r := range fracPart {
		if r < '0' || r > '9' {
			return Zero, false
		}
	}

	digits := intPart + fracPart
	if digits == "" {
		digits = "0"
	}
	coef, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Zero, false
	}
	if neg {
		coef.Neg(coef)
	}
	return Decimal{coef: coef, scale: int32(len(fracPart))}, true
}

// MustParseDecimal is ParseDecimal for literals known to be valid (e.g.
// numeric literals already accepted by the lexer).
func MustParseDecimal(s string) Decimal {
	d, ok := ParseDecimal(s)
	if !ok {
		return Zero
	}
	return d
}

func rescale(a, b Decimal) (*big.Int, *big.Int, int32) {
	if a.scale == b.scale {
		return a.coef, b.coef, a.scale
	}
	if a.scale < b.scale {
		factor := new(big.Int).Exp(bigTen, big.NewInt(int64(b.scale-a.scale)), nil)
		return new(big.Int).Mul(a.coef, factor), b.coef, b.scale
	}
	factor := new(big.Int).Exp(bigTen, big.NewInt(int64(a.scale-b.scale)), nil)
	return a.coef, new(big.Int).Mul(b.coef, factor), a.scale
}

// Add returns a+b, exact.
func Add(a, b Decimal) Decimal {
	ac, bc, scale := rescale(a, b)
	return Decimal{coef: new(big.Int).Add(ac, bc), scale: scale}.normalized()
}

// Sub returns a-b, exact.
func Sub(a, b Decimal) Decimal {
	ac, bc, scale := rescale(a, b)
	return Decimal{coef: new(big.Int).Sub(ac, bc), scale: scale}.normalized()
}

// Mul returns a*b, exact.
func Mul(a, b Decimal) Decimal {
	coef := new(big.Int).Mul(a.coef, b.coef)
	return Decimal{coef: coef, scale: a.scale + b.scale}.normalized()
}

// Neg returns -a.
func Neg(a Decimal) Decimal {
	return Decimal{coef: new(big.Int).Neg(a.coef), scale: a.scale}
}

// IsZero reports whether the value is exactly zero.
func (d Decimal) IsZero() bool {
	return d.coef.Sign() == 0
}

// Div returns a/b rounded to DivPrecision fractional digits when the
// result does not terminate exactly. Caller must check b.IsZero() first.
func Div(a, b Decimal) Decimal {
	// a.coef/10^a.scale / (b.coef/10^b.scale) = a.coef*10^b.scale / (b.coef*10^a.scale)
	num := new(big.Int).Mul(a.coef, pow10(b.scale))
	den := new(big.Int).Mul(b.coef, pow10(a.scale))

	neg := (num.Sign() < 0) != (den.Sign() < 0)
	num.Abs(num)
	den.Abs(den)

	scaled := new(big.Int).Mul(num, pow10(DivPrecision))
	quo, rem := new(big.Int).QuoRem(scaled, den, new(big.Int))
	// Round half up.
	twice := new(big.Int).Mul(rem, big.NewInt(2))
	if twice.CmpAbs(den) >= 0 {
		quo.Add(quo, big.NewInt(1))
	}
	if neg {
		quo.Neg(quo)
	}
	return Decimal{coef: quo, scale: DivPrecision}.normalized()
}

// Mod returns the BASIC-style a mod b (result takes the sign of a),
// computed from exact integer-scaled arithmetic. Caller must check
// b.IsZero() first.
func Mod(a, b Decimal) Decimal {
	num := new(big.Int).Mul(a.coef, pow10(b.scale))
	den := new(big.Int).Mul(b.coef, pow10(a.scale))
	q := Decimal{coef: new(big.Int).Quo(num, den), scale: 0}
	return Sub(a, Mul(q, b))
}

// Truncate drops the fractional part, rounding toward zero.
func (d Decimal) Truncate() Decimal {
	if d.scale <= 0 {
		return d
	}
	q := new(big.Int).Quo(d.coef, pow10(d.scale))
	return Decimal{coef: q, scale: 0}
}

func pow10(n int32) *big.Int {
	if n <= 0 {
		return big.NewInt(1)
	}
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}

// normalized strips trailing zero digits from the fractional part so
// that equal values always share one canonical (coef, scale) pair --
// required so a[0.1+0.2] and a[0.3] key identically.
func (d Decimal) normalized() Decimal {
	if d.scale <= 0 || d.coef.Sign() == 0 {
		if d.coef.Sign() == 0 {
			return Decimal{coef: big.NewInt(0), scale: 0}
		}
		return d
	}
	coef := new(big.Int).Set(d.coef)
	scale := d.scale
	ten := bigTen
	mod := new(big.Int)
	for scale > 0 {
		q, r := new(big.Int).QuoRem(coef, ten, mod)
		if r.Sign() != 0 {
			break
		}
		coef = q
		scale--
	}
	return Decimal{coef: coef, scale: scale}
}

// Cmp returns -1, 0, or 1 comparing a to b.
func Cmp(a, b Decimal) int {
	ac, bc, _ := rescale(a, b)
	return ac.Cmp(bc)
}

// Equal reports whether a and b denote the same numeric value.
func Equal(a, b Decimal) bool {
	return Cmp(a, b) == 0
}

// String renders the canonical decimal text form (minimal fractional
// digits, no trailing zeros, no trailing '.').
func (d Decimal) String() string {
	n := d.normalized()
	neg := n.coef.Sign() < 0
	digits := new(big.Int).Abs(n.coef).String()

	if n.scale <= 0 {
		if neg {
			return "-" + digits
		}
		return digits
	}

	for int32(len(digits)) <= n.scale {
		digits = "0" + digits
	}
	cut := int32(len(digits)) - n.scale
	intPart := digits[:cut]
	fracPart := digits[cut:]
	out := intPart + "." + fracPart
	if neg {
		out = "-" + out
	}
	return out
}
