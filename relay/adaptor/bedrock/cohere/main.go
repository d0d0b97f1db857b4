// Package cohere converts chat requests for Cohere Command text models.
package cohere

import (
	"encoding/json"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/utils"
	"github.com/songquanpeng/chatkit/relay/model"
)

// Request is the Command text generation body.
type Request struct {
	Prompt            string   `json:"prompt"`
	MaxTokens         int      `json:"max_tokens"`
	Temperature       *float64 `json:"temperature,omitempty"`
	P                 *float64 `json:"p,omitempty"`
	K                 *int     `json:"k,omitempty"`
	StopSequences     []string `json:"stop_sequences,omitempty"`
	ReturnLikelihoods string   `json:"return_likelihoods"`
}

type Response struct {
	ID          string       `json:"id"`
	Prompt      string       `json:"prompt"`
	Generations []Generation `json:"generations"`
}

type Generation struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

var _ utils.Provider = new(Adaptor)

type Adaptor struct{}

func (a *Adaptor) Name() string        { return "cohere" }
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
		Prompt:            strings.Join(texts, "\n"),
		MaxTokens:         utils.MaxTokens(params, config.DefaultMaxToken),
		ReturnLikelihoods: "NONE",
	}
	if params != nil {
		req.Temperature = params.Temperature
		req.P = params.TopP
		req.K = params.TopK
		req.StopSequences = params.StopSequences
	}
	return req, nil
}

func (a *Adaptor) ConvertResponse(body []byte) (*model.Response[*model.AiMessage], error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "unmarshal cohere response")
	}
	if len(resp.Generations) == 0 {
		return nil, errors.New("cohere response has no generations")
	}

	gen := resp.Generations[0]
	return model.NewResponse(model.AiMessageFrom(strings.TrimSpace(gen.Text)), nil,
		convertStopReason(gen.FinishReason)), nil
}

func convertStopReason(reason string) model.FinishReason {
	switch reason {
	case "COMPLETE":
		return model.FinishReasonStop
	case "MAX_TOKENS":
		return model.FinishReasonLength
	case "ERROR_TOXIC":
		return model.FinishReasonContentFilter
	default:
		return model.FinishReasonOther
	}
}
