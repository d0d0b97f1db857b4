package output

import (
	"strings"
)

type stringParser struct{}

// String returns the trimmed text unchanged. It never fails.
func String() Parser[string] {
	return stringParser{}
}

func (stringParser) Parse(text string) (string, error) {
	return strings.TrimSpace(text), nil
}

func (stringParser) FormatInstructions() string {
	return ""
}

type enumParser[E ~string] struct {
	values []E
}

// Enum accepts exactly one of values, compared case-insensitively, and returns the
// declared spelling. A single pair of surrounding square brackets is ignored.
func Enum[E ~string](values ...E) Parser[E] {
	return enumParser[E]{values: append([]E(nil), values...)}
}

func (p enumParser[E]) Parse(text string) (E, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	for _, v := range p.values {
		if strings.EqualFold(string(v), s) {
			return v, nil
		}
	}

	var zero E
	fe := newFormatError(text, "enum", ReasonInvalidFormat, nil)
	fe.Constraint = p.FormatInstructions()
	return zero, fe
}

func (p enumParser[E]) FormatInstructions() string {
	names := make([]string, 0, len(p.values))
	for _, v := range p.values {
		names = append(names, string(v))
	}
	return "one of [" + strings.Join(names, ", ") + "]"
}
