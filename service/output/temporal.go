package output

import (
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
)

const (
	isoDate     = "2006-01-02"
	isoTime     = "15:04:05"
	isoDateTime = "2006-01-02T15:04:05"
)

type temporalParser struct {
	typeName     string
	layouts      []string
	instructions string
}

// Date parses an ISO-8601 calendar date such as 2024-03-09. The result is midnight UTC.
func Date() Parser[time.Time] {
	return temporalParser{
		typeName:     "date",
		layouts:      []string{isoDate},
		instructions: "yyyy-MM-dd",
	}
}

// Time parses an ISO-8601 local time such as 17:45:00. Seconds and fractions are optional.
// The date part of the result is January 1, year 0.
func Time() Parser[time.Time] {
	return temporalParser{
		typeName:     "time",
		layouts:      []string{isoTime, "15:04"},
		instructions: "HH:mm:ss",
	}
}

// DateTime parses an ISO-8601 local date-time such as 2024-03-09T17:45:00, without offset.
func DateTime() Parser[time.Time] {
	return temporalParser{
		typeName:     "datetime",
		layouts:      []string{isoDateTime, "2006-01-02T15:04"},
		instructions: "yyyy-MM-ddTHH:mm:ss",
	}
}

func (p temporalParser) Parse(text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	var firstErr error
	for _, layout := range p.layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	fe := newFormatError(text, p.typeName, ReasonInvalidFormat, firstErr)
	var pe *time.ParseError
	if errors.As(firstErr, &pe) && strings.Contains(pe.Message, "out of range") {
		fe.Reason = ReasonOutOfRange
	}
	return time.Time{}, fe
}

func (p temporalParser) FormatInstructions() string {
	return p.instructions
}
