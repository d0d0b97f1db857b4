package model

// FinishReason tells why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "STOP"
	FinishReasonLength        FinishReason = "LENGTH"
	FinishReasonToolExecution FinishReason = "TOOL_EXECUTION"
	FinishReasonContentFilter FinishReason = "CONTENT_FILTER"
	FinishReasonOther         FinishReason = "OTHER"
)

// TokenUsage is the token accounting of a single model call.
type TokenUsage struct {
	InputTokenCount  int `json:"input_token_count"`
	OutputTokenCount int `json:"output_token_count"`
	TotalTokenCount  int `json:"total_token_count"`
}

// NewTokenUsage returns usage with the total derived from input and output.
func NewTokenUsage(input, output int) *TokenUsage {
	return &TokenUsage{
		InputTokenCount:  input,
		OutputTokenCount: output,
		TotalTokenCount:  input + output,
	}
}

// Add sums two usages. A nil operand counts as zero.
func (u *TokenUsage) Add(other *TokenUsage) *TokenUsage {
	switch {
	case u == nil && other == nil:
		return nil
	case u == nil:
		return NewTokenUsage(other.InputTokenCount, other.OutputTokenCount)
	case other == nil:
		return NewTokenUsage(u.InputTokenCount, u.OutputTokenCount)
	}
	return NewTokenUsage(u.InputTokenCount+other.InputTokenCount,
		u.OutputTokenCount+other.OutputTokenCount)
}

// Response wraps the content produced by a model together with its metadata.
type Response[T any] struct {
	Content      T            `json:"content"`
	TokenUsage   *TokenUsage  `json:"token_usage,omitempty"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
}

// NewResponse builds a Response.
func NewResponse[T any](content T, usage *TokenUsage, reason FinishReason) *Response[T] {
	return &Response[T]{Content: content, TokenUsage: usage, FinishReason: reason}
}
