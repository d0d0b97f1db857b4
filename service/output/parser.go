// Package output converts the raw text a language model returns into typed Go values.
//
// Every parser is a stateless value: Parse converts one completion (surrounding
// white space is ignored) and FormatInstructions returns the fixed description that
// prompt builders append so the model knows how to shape its answer. The wording of
// FormatInstructions is part of the contract with already-tuned prompts and must not
// change between releases.
//
// Parse never falls back to a default. Malformed or out-of-range input is reported as
// a *FormatError so the caller can decide whether to ask the model again.
package output

// Parser converts model output into a value of type T.
type Parser[T any] interface {
	// Parse converts text into T. Leading and trailing white space is ignored.
	Parse(text string) (T, error)
	// FormatInstructions describes the accepted format to the model. The result is constant.
	FormatInstructions() string
}

// AnyParser is the type-erased form of Parser used by the Kind registry.
type AnyParser interface {
	ParseAny(text string) (any, error)
	FormatInstructions() string
}

// Erase adapts a typed parser to AnyParser.
func Erase[T any](p Parser[T]) AnyParser {
	return erased[T]{p: p}
}

type erased[T any] struct {
	p Parser[T]
}

func (e erased[T]) ParseAny(text string) (any, error) {
	v, err := e.p.Parse(text)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (e erased[T]) FormatInstructions() string {
	return e.p.FormatInstructions()
}
