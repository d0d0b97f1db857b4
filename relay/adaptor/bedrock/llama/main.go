// Package llama converts chat requests for Meta Llama models.
package llama

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
	MaxGenLen   int      `json:"max_gen_len"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

type Response struct {
	Generation           string `json:"generation"`
	PromptTokenCount     int    `json:"prompt_token_count"`
	GenerationTokenCount int    `json:"generation_token_count"`
	StopReason           string `json:"stop_reason"`
}

var _ utils.Provider = new(Adaptor)

// Adaptor renders prompts with the Llama 3 chat template, or the [INST]
// template when Llama2 is set.
type Adaptor struct {
	Llama2 bool
}

func (a *Adaptor) Name() string        { return "llama" }
func (a *Adaptor) SupportsTools() bool { return false }

func (a *Adaptor) ConvertRequest(messages []model.ChatMessage, tools []*model.ToolSpecification,
	toolChoice *model.ToolSpecification, params *utils.Parameters) (any, error) {
	if err := utils.RejectTools(tools, toolChoice); err != nil {
		return nil, err
	}

	var (
		prompt string
		err    error
	)
	if a.Llama2 {
		prompt, err = Llama2Prompt(messages)
	} else {
		prompt, err = Llama3Prompt(messages)
	}
	if err != nil {
		return nil, err
	}

	req := &Request{
		Prompt:    prompt,
		MaxGenLen: utils.MaxTokens(params, config.DefaultMaxToken),
	}
	if params != nil {
		req.Temperature = params.Temperature
		req.TopP = params.TopP
	}
	return req, nil
}

// Llama3Prompt renders the conversation with the Llama 3 header tokens and
// opens an assistant turn.
func Llama3Prompt(messages []model.ChatMessage) (string, error) {
	var sb strings.Builder
	sb.WriteString("<|begin_of_text|>")
	for _, msg := range messages {
		var role string
		switch msg.(type) {
		case *model.SystemMessage:
			role = "system"
		case *model.UserMessage:
			role = "user"
		case *model.AiMessage:
			role = "assistant"
		case *model.ToolExecutionResultMessage:
			return "", utils.ErrToolsNotSupported
		default:
			return "", errors.Errorf("unsupported message type %T", msg)
		}
		sb.WriteString("<|start_header_id|>" + role + "<|end_header_id|>")
		sb.WriteString(strings.TrimSpace(model.TextOf(msg)))
		sb.WriteString("<|eot_id|>")
	}
	sb.WriteString("<|start_header_id|>assistant<|end_header_id|>")
	return sb.String(), nil
}

// Llama2Prompt renders the conversation with [INST] blocks; system text is
// wrapped in <<SYS>> inside the first instruction.
func Llama2Prompt(messages []model.ChatMessage) (string, error) {
	system, rest := utils.SplitSystem(messages)
	var sb strings.Builder
	first := true
	for _, msg := range rest {
		switch m := msg.(type) {
		case *model.UserMessage:
			text := strings.TrimSpace(m.Text())
			if first && system != "" {
				text = "<<SYS>>\n" + system + "\n<</SYS>>\n\n" + text
			}
			sb.WriteString("<s>[INST] " + text + " [/INST]")
			first = false
		case *model.AiMessage:
			sb.WriteString(" " + strings.TrimSpace(m.Text) + " </s>")
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
		return nil, errors.Wrap(err, "unmarshal llama response")
	}
	return model.NewResponse(
		model.AiMessageFrom(strings.TrimSpace(resp.Generation)),
		model.NewTokenUsage(resp.PromptTokenCount, resp.GenerationTokenCount),
		convertStopReason(resp.StopReason),
	), nil
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
