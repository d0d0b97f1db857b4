package output

import (
	"sort"
)

// Kind identifies a built-in scalar parser.
type Kind string

const (
	KindShort      Kind = "short"
	KindByte       Kind = "byte"
	KindInteger    Kind = "integer"
	KindLong       Kind = "long"
	KindBigInteger Kind = "big_integer"
	KindFloat      Kind = "float"
	KindDouble     Kind = "double"
	KindBigDecimal Kind = "big_decimal"
	KindBoolean    Kind = "boolean"
	KindDate       Kind = "date"
	KindTime       Kind = "time"
	KindDateTime   Kind = "datetime"
	KindString     Kind = "string"
)

var registry = map[Kind]AnyParser{
	KindShort:      Erase(Short()),
	KindByte:       Erase(Byte()),
	KindInteger:    Erase(Integer()),
	KindLong:       Erase(Long()),
	KindBigInteger: Erase(BigInteger()),
	KindFloat:      Erase(Float()),
	KindDouble:     Erase(Double()),
	KindBigDecimal: Erase(BigDecimal()),
	KindBoolean:    Erase(Boolean()),
	KindDate:       Erase(Date()),
	KindTime:       Erase(Time()),
	KindDateTime:   Erase(DateTime()),
	KindString:     Erase(String()),
}

// Lookup returns the parser registered for kind.
func Lookup(kind Kind) (AnyParser, bool) {
	p, ok := registry[kind]
	return p, ok
}

// Kinds lists every registered kind in lexical order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
