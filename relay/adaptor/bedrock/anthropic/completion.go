package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/utils"
	"github.com/songquanpeng/chatkit/relay/model"
)

const (
	humanPrompt     = "\n\nHuman:"
	assistantPrompt = "\n\nAssistant:"
)

var _ utils.Provider = new(CompletionAdaptor)

// CompletionAdaptor speaks the text completion API of Claude v2, v2.1 and Instant.
type CompletionAdaptor struct{}

func (a *CompletionAdaptor) Name() string        { return "anthropic-completion" }
func (a *CompletionAdaptor) SupportsTools() bool { return false }

func (a *CompletionAdaptor) ConvertRequest(messages []model.ChatMessage, tools []*model.ToolSpecification,
	toolChoice *model.ToolSpecification, params *utils.Parameters) (any, error) {
	if err := utils.RejectTools(tools, toolChoice); err != nil {
		return nil, err
	}

	prompt, err := CompletionPrompt(messages)
	if err != nil {
		return nil, err
	}
	req := &CompletionRequest{
		Prompt:            prompt,
		MaxTokensToSample: utils.MaxTokens(params, config.DefaultMaxToken),
		StopSequences:     []string{humanPrompt},
	}
	if params != nil {
		req.Temperature = params.Temperature
		req.TopP = params.TopP
		req.TopK = params.TopK
		if len(params.StopSequences) > 0 {
			req.StopSequences = params.StopSequences
		}
	}
	return req, nil
}

// CompletionPrompt renders the conversation as alternating Human/Assistant turns
// ending with an open Assistant turn. System text leads the prompt.
func CompletionPrompt(messages []model.ChatMessage) (string, error) {
	var sb strings.Builder
	system, rest := utils.SplitSystem(messages)
	sb.WriteString(system)
	for _, msg := range rest {
		switch m := msg.(type) {
		case *model.UserMessage:
			sb.WriteString(humanPrompt + " " + m.Text())
		case *model.AiMessage:
			sb.WriteString(assistantPrompt + " " + m.Text)
		case *model.ToolExecutionResultMessage:
			return "", utils.ErrToolsNotSupported
		default:
			return "", errors.Errorf("unsupported message type %T", msg)
		}
	}
	sb.WriteString(assistantPrompt)
	return sb.String(), nil
}

func (a *CompletionAdaptor) ConvertResponse(body []byte) (*model.Response[*model.AiMessage], error) {
	var resp CompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "unmarshal claude completion response")
	}
	return model.NewResponse(model.AiMessageFrom(strings.TrimSpace(resp.Completion)), nil,
		convertStopReason(resp.StopReason)), nil
}
