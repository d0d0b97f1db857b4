package dto

// ParseRequest asks the server to convert Text with the parser registered as Type.
type ParseRequest struct {
	Type string `json:"type" validate:"required"`
	Text string `json:"text"`
}

type ParseResponse struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// FormatErrorDetail mirrors output.FormatError on the wire.
type FormatErrorDetail struct {
	Message    string `json:"message"`
	Input      string `json:"input"`
	Type       string `json:"type"`
	Reason     string `json:"reason"`
	Constraint string `json:"constraint,omitempty"`
}

type ParserInfo struct {
	Type               string `json:"type"`
	FormatInstructions string `json:"format_instructions"`
}
