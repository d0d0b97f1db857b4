// Package mistral converts chat requests for Mistral models.
package mistral

import (
	"encoding/json"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/utils"
	"github.com/songquanpeng/chatkit/relay/model"
)

type Request struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type Response struct {
	Outputs []Output `json:"outputs"`
}

type Output struct {
	Text       string `json:"text"`
	StopReason string `json:"stop_reason"`
}

var _ utils.Provider = new(Adaptor)

type Adaptor struct{}

func (a *Adaptor) Name() string        { return "mistral" }
func (a *Adaptor) SupportsTools() bool { return false }

func (a *Adaptor) ConvertRequest(messages []model.ChatMessage, tools []*model.ToolSpecification,
	toolChoice *model.ToolSpecification, params *utils.Parameters) (any, error) {
	if err := utils.RejectTools(tools, toolChoice); err != nil {
		return nil, err
	}

	prompt, err := Prompt(messages)
	if err != nil {
		return nil, err
	}
	req := &Request{
		Prompt:    prompt,
		MaxTokens: utils.MaxTokens(params, config.DefaultMaxToken),
	}
	if params != nil {
		req.Temperature = params.Temperature
		req.TopP = params.TopP
		req.TopK = params.TopK
		req.Stop = params.StopSequences
	}
	return req, nil
}

// Prompt renders <s>[INST] user [/INST] assistant</s>[INST] ... [/INST].
// System text is prepended to the first instruction.
func Prompt(messages []model.ChatMessage) (string, error) {
	system, rest := utils.SplitSystem(messages)
	var sb strings.Builder
	sb.WriteString("<s>")
	first := true
	for _, msg := range rest {
		switch m := msg.(type) {
		case *model.UserMessage:
			text := strings.TrimSpace(m.Text())
			if first && system != "" {
				text = system + "\n\n" + text
			}
			sb.WriteString("[INST] " + text + " [/INST]")
			first = false
		case *model.AiMessage:
			sb.WriteString(" " + strings.TrimSpace(m.Text) + "</s>")
		case *model.ToolExecutionResultMessage:
			return "", utils.ErrToolsNotSupported
		default:
			return "", errors.Errorf("unsupported message type %T", msg)
		}
	}
	if first {
		return "", errors.New("at least one user message is required")
	}
	return sb.String(), nil
}

func (a *Adaptor) ConvertResponse(body []byte) (*model.Response[*model.AiMessage], error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "unmarshal mistral response")
	}
	if len(resp.Outputs) == 0 {
		return nil, errors.New("mistral response has no outputs")
	}

	out := resp.Outputs[0]
	return model.NewResponse(model.AiMessageFrom(strings.TrimSpace(out.Text)), nil,
		convertStopReason(out.StopReason)), nil
}

func convertStopReason(reason string) model.FinishReason {
	switch reason {
	case "stop":
		return model.FinishReasonStop
	case "length":
		return model.FinishReasonLength
	default:
		return model.FinishReasonOther
	}
}
