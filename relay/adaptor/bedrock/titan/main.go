// Package titan converts chat requests for Amazon Titan text models.
package titan

import (
	"encoding/json"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/utils"
	"github.com/songquanpeng/chatkit/relay/model"
)

type Request struct {
	InputText            string               `json:"inputText"`
	TextGenerationConfig TextGenerationConfig `json:"textGenerationConfig"`
}

type TextGenerationConfig struct {
	MaxTokenCount int      `json:"maxTokenCount"`
	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"topP,omitempty"`
	StopSequences []string `json:"stopSequences,omitempty"`
}

type Response struct {
	InputTextTokenCount int      `json:"inputTextTokenCount"`
	Results             []Result `json:"results"`
}

type Result struct {
	TokenCount       int    `json:"tokenCount"`
	OutputText       string `json:"outputText"`
	CompletionReason string `json:"completionReason"`
}

var _ utils.Provider = new(Adaptor)

type Adaptor struct{}

func (a *Adaptor) Name() string        { return "titan" }
func (a *Adaptor) SupportsTools() bool { return false }

func (a *Adaptor) ConvertRequest(messages []model.ChatMessage, tools []*model.ToolSpecification,
	toolChoice *model.ToolSpecification, params *utils.Parameters) (any, error) {
	if err := utils.RejectTools(tools, toolChoice); err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(messages))
	for _, m := range messages {
		if text := model.TextOf(m); text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return nil, errors.New("prompt is empty")
	}

	req := &Request{
		InputText: strings.Join(texts, "\n"),
		TextGenerationConfig: TextGenerationConfig{
			MaxTokenCount: utils.MaxTokens(params, config.DefaultMaxToken),
		},
	}
	if params != nil {
		req.TextGenerationConfig.Temperature = params.Temperature
		req.TextGenerationConfig.TopP = params.TopP
		req.TextGenerationConfig.StopSequences = params.StopSequences
	}
	return req, nil
}

func (a *Adaptor) ConvertResponse(body []byte) (*model.Response[*model.AiMessage], error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "unmarshal titan response")
	}
	if len(resp.Results) == 0 {
		return nil, errors.New("titan response has no results")
	}

	result := resp.Results[0]
	return model.NewResponse(
		model.AiMessageFrom(strings.TrimSpace(result.OutputText)),
		model.NewTokenUsage(resp.InputTextTokenCount, result.TokenCount),
		convertStopReason(result.CompletionReason),
	), nil
}

func convertStopReason(reason string) model.FinishReason {
	switch reason {
	case "FINISH":
		return model.FinishReasonStop
	case "LENGTH":
		return model.FinishReasonLength
	case "CONTENT_FILTERED":
		return model.FinishReasonContentFilter
	default:
		return model.FinishReasonOther
	}
}
