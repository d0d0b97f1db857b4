package output

import (
	"strings"

	"github.com/Laisky/errors/v2"
)

const separateLinesInstructions = "\nYou must put every item on a separate line."

type listParser[T any] struct {
	elem Parser[T]
}

// List parses one element per non-blank line using elem.
func List[T any](elem Parser[T]) Parser[[]T] {
	return listParser[T]{elem: elem}
}

func (p listParser[T]) Parse(text string) ([]T, error) {
	return parseLines(text, p.elem, func(T) bool { return true })
}

func (p listParser[T]) FormatInstructions() string {
	return p.elem.FormatInstructions() + separateLinesInstructions
}

type setParser[T comparable] struct {
	elem Parser[T]
}

// Set is like List but keeps only the first occurrence of each value.
func Set[T comparable](elem Parser[T]) Parser[[]T] {
	return setParser[T]{elem: elem}
}

func (p setParser[T]) Parse(text string) ([]T, error) {
	seen := make(map[T]struct{})
	return parseLines(text, p.elem, func(v T) bool {
		if _, dup := seen[v]; dup {
			return false
		}
		seen[v] = struct{}{}
		return true
	})
}

func (p setParser[T]) FormatInstructions() string {
	return p.elem.FormatInstructions() + separateLinesInstructions
}

func parseLines[T any](text string, elem Parser[T], keep func(T) bool) ([]T, error) {
	out := []T{}
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		v, err := elem.Parse(line)
		if err != nil {
			return nil, errors.Wrapf(err, "parse line %d", i+1)
		}
		if keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}
