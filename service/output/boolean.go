package output

import "strings"

type booleanParser struct{}

// Boolean accepts "true" or "false" in any letter case.
func Boolean() Parser[bool] {
	return booleanParser{}
}

func (booleanParser) Parse(text string) (bool, error) {
	switch s := strings.TrimSpace(text); {
	case strings.EqualFold(s, "true"):
		return true, nil
	case strings.EqualFold(s, "false"):
		return false, nil
	default:
		return false, newFormatError(text, "bool", ReasonInvalidFormat, nil)
	}
}

func (booleanParser) FormatInstructions() string {
	return "one of [true, false]"
}
