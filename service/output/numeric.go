package output

import (
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
)

const (
	integerInstructions = "integer number"
	floatInstructions   = "floating point number"

	// bigDecimalPrec is the mantissa precision, in bits, of values returned by BigDecimal.
	bigDecimalPrec = 256
)

type signed interface {
	~int8 | ~int16 | ~int32 | ~int64
}

type integerParser[T signed] struct {
	typeName     string
	bitSize      int
	instructions string
}

// Short parses a base-10 integer in the range of a 16-bit signed integer.
func Short() Parser[int16] {
	return integerParser[int16]{
		typeName:     "int16",
		bitSize:      16,
		instructions: fmt.Sprintf("integer number in range [%d, %d]", math.MinInt16, math.MaxInt16),
	}
}

// Byte parses a base-10 integer in the range of an 8-bit signed integer.
func Byte() Parser[int8] {
	return integerParser[int8]{
		typeName:     "int8",
		bitSize:      8,
		instructions: fmt.Sprintf("integer number in range [%d, %d]", math.MinInt8, math.MaxInt8),
	}
}

// Integer parses a base-10 integer in the range of a 32-bit signed integer.
func Integer() Parser[int32] {
	return integerParser[int32]{typeName: "int32", bitSize: 32, instructions: integerInstructions}
}

// Long parses a base-10 integer in the range of a 64-bit signed integer.
func Long() Parser[int64] {
	return integerParser[int64]{typeName: "int64", bitSize: 64, instructions: integerInstructions}
}

func (p integerParser[T]) Parse(text string) (T, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, p.bitSize)
	if err != nil {
		fe := newFormatError(text, p.typeName, ReasonNotANumber, err)
		if errors.Is(err, strconv.ErrRange) {
			fe.Reason = ReasonOutOfRange
			fe.Constraint = fmt.Sprintf("[%d, %d]", minSigned(p.bitSize), maxSigned(p.bitSize))
		}
		return 0, fe
	}
	return T(v), nil
}

func (p integerParser[T]) FormatInstructions() string {
	return p.instructions
}

func minSigned(bits int) int64 {
	return -1 << (bits - 1)
}

func maxSigned(bits int) int64 {
	return 1<<(bits-1) - 1
}

type bigIntegerParser struct{}

// BigInteger parses a base-10 integer of any magnitude.
func BigInteger() Parser[*big.Int] {
	return bigIntegerParser{}
}

func (bigIntegerParser) Parse(text string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(text), 10)
	if !ok {
		return nil, newFormatError(text, "big.Int", ReasonNotANumber, nil)
	}
	return v, nil
}

func (bigIntegerParser) FormatInstructions() string {
	return integerInstructions
}

type floatParser[T ~float32 | ~float64] struct {
	typeName string
	bitSize  int
}

// Float parses a decimal or scientific literal that fits a float32.
func Float() Parser[float32] {
	return floatParser[float32]{typeName: "float32", bitSize: 32}
}

// Double parses a decimal or scientific literal that fits a float64.
func Double() Parser[float64] {
	return floatParser[float64]{typeName: "float64", bitSize: 64}
}

func (p floatParser[T]) Parse(text string) (T, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), p.bitSize)
	switch {
	case errors.Is(err, strconv.ErrRange) && math.IsInf(v, 0):
		fe := newFormatError(text, p.typeName, ReasonOutOfRange, err)
		if p.bitSize == 32 {
			fe.Constraint = fmt.Sprintf("[%g, %g]", -math.MaxFloat32, math.MaxFloat32)
		} else {
			fe.Constraint = fmt.Sprintf("[%g, %g]", -math.MaxFloat64, math.MaxFloat64)
		}
		return 0, fe
	case err != nil && !errors.Is(err, strconv.ErrRange):
		return 0, newFormatError(text, p.typeName, ReasonNotANumber, err)
	case math.IsNaN(v) || math.IsInf(v, 0):
		// "NaN" and "Inf" are accepted by strconv but are not numbers a model should answer with
		return 0, newFormatError(text, p.typeName, ReasonNotANumber, nil)
	}
	// underflow reports ErrRange with a zero or denormal result, which is still a valid value
	return T(v), nil
}

func (p floatParser[T]) FormatInstructions() string {
	return floatInstructions
}

// decimalLiteral matches well formed decimal or scientific literals, so parse
// failures on them can be told apart from text that is not a number.
var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

type bigDecimalParser struct{}

// BigDecimal parses a decimal or scientific literal of any magnitude.
func BigDecimal() Parser[*big.Float] {
	return bigDecimalParser{}
}

func (bigDecimalParser) Parse(text string) (*big.Float, error) {
	s := strings.TrimSpace(text)
	v, _, err := big.ParseFloat(s, 10, bigDecimalPrec, big.ToNearestEven)
	if err == nil && !v.IsInf() {
		return v, nil
	}
	if decimalLiteral.MatchString(s) {
		// the exponent does not fit big.Float
		return nil, newFormatError(text, "big.Float", ReasonOutOfRange, err)
	}
	return nil, newFormatError(text, "big.Float", ReasonNotANumber, err)
}

func (bigDecimalParser) FormatInstructions() string {
	return floatInstructions
}
