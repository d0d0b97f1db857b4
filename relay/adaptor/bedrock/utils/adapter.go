// Package utils holds the contract between the Bedrock chat model and the
// per vendor request/response adaptors, plus helpers shared by the vendors.
package utils

import (
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/chatkit/relay/model"
)

// ErrToolsNotSupported is returned unwrapped when tools are passed to a model
// family that cannot call them.
var ErrToolsNotSupported = errors.New("Tools are currently not supported by this model")

// ErrModelDisabled is returned while the health tracker keeps a model out of service.
var ErrModelDisabled = errors.New("model is disabled")

// Parameters are the inference settings of one InvokeModel call.
// Field names match bedrock.GenerateOptions so overrides can be copied onto them.
type Parameters struct {
	ModelID       string
	MaxTokens     int
	Temperature   *float64
	TopP          *float64
	TopK          *int
	StopSequences []string
}

// Provider converts between the uniform chat model and one vendor's native body.
type Provider interface {
	// Name is the vendor label used in logs and metrics.
	Name() string
	SupportsTools() bool
	// ConvertRequest builds the JSON body of InvokeModel.
	// toolChoice, when set, forces the model to call that tool.
	ConvertRequest(messages []model.ChatMessage, tools []*model.ToolSpecification,
		toolChoice *model.ToolSpecification, params *Parameters) (any, error)
	// ConvertResponse decodes the InvokeModel body. TokenUsage is left nil when
	// the vendor does not report it.
	ConvertResponse(body []byte) (*model.Response[*model.AiMessage], error)
}

// ImageInputProvider is implemented by vendors that accept inline images.
type ImageInputProvider interface {
	SupportsImages() bool
}

// ImageParameters are the settings of one image generation call.
type ImageParameters struct {
	ModelID        string
	Width          int
	Height         int
	CfgScale       float64
	Steps          int
	Seed           int64
	StylePreset    string
	NegativePrompt string
	Samples        int
}

// ImageProvider converts image generation requests for one vendor.
type ImageProvider interface {
	Name() string
	ConvertImageRequest(prompt string, params *ImageParameters) (any, error)
	ConvertImageResponse(body []byte) ([]*model.Image, error)
}

// RejectTools returns ErrToolsNotSupported when any tool is requested.
func RejectTools(tools []*model.ToolSpecification, toolChoice *model.ToolSpecification) error {
	if len(tools) > 0 || toolChoice != nil {
		return ErrToolsNotSupported
	}
	return nil
}

// SplitSystem separates system instructions from the conversation.
// Multiple system messages are joined by a blank line.
func SplitSystem(messages []model.ChatMessage) (string, []model.ChatMessage) {
	var system []string
	rest := make([]model.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if sm, ok := m.(*model.SystemMessage); ok {
			if strings.TrimSpace(sm.Text) != "" {
				system = append(system, sm.Text)
			}
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

// MaxTokens falls back to def when the caller did not set a limit.
func MaxTokens(params *Parameters, def int) int {
	if params != nil && params.MaxTokens > 0 {
		return params.MaxTokens
	}
	return def
}
