// Package anthropic converts chat requests for Claude models on Bedrock.
package anthropic

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/utils"
	"github.com/songquanpeng/chatkit/relay/model"
)

const anthropicVersion = "bedrock-2023-05-31"

var _ utils.Provider = new(Adaptor)

// Adaptor speaks the Claude 3+ messages API.
type Adaptor struct{}

func (a *Adaptor) Name() string         { return "anthropic" }
func (a *Adaptor) SupportsTools() bool  { return true }
func (a *Adaptor) SupportsImages() bool { return true }

func (a *Adaptor) ConvertRequest(messages []model.ChatMessage, tools []*model.ToolSpecification,
	toolChoice *model.ToolSpecification, params *utils.Parameters) (any, error) {
	system, rest := utils.SplitSystem(messages)
	converted, err := convertMessages(rest)
	if err != nil {
		return nil, errors.Wrap(err, "convert messages")
	}

	req := &Request{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        utils.MaxTokens(params, config.DefaultMaxToken),
		System:           system,
		Messages:         converted,
	}
	if params != nil {
		req.Temperature = params.Temperature
		req.TopP = params.TopP
		req.TopK = params.TopK
		req.StopSequences = params.StopSequences
	}
	if req.Temperature != nil && req.TopP != nil {
		req.TopP = nil
	}

	if toolChoice != nil {
		tools = appendIfMissing(tools, toolChoice)
		req.ToolChoice = &ToolChoice{Type: "tool", Name: toolChoice.Name}
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, convertTool(t))
	}
	return req, nil
}

func appendIfMissing(tools []*model.ToolSpecification, tool *model.ToolSpecification) []*model.ToolSpecification {
	for _, t := range tools {
		if t.Name == tool.Name {
			return tools
		}
	}
	return append(slices.Clip(tools), tool)
}

func convertTool(spec *model.ToolSpecification) Tool {
	schema := (&model.ToolParameters{}).Schema()
	if spec.Parameters != nil {
		schema = spec.Parameters.Schema()
	}
	return Tool{Name: spec.Name, Description: spec.Description, InputSchema: schema}
}

// convertMessages maps the conversation onto user/assistant turns, merging
// consecutive messages of the same role.
func convertMessages(messages []model.ChatMessage) ([]Message, error) {
	var out []Message
	push := func(role string, blocks ...Content) {
		if len(blocks) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, Message{Role: role, Content: blocks})
	}

	for _, msg := range messages {
		switch m := msg.(type) {
		case *model.UserMessage:
			blocks, err := userBlocks(m)
			if err != nil {
				return nil, err
			}
			push("user", blocks...)
		case *model.AiMessage:
			var blocks []Content
			if m.Text != "" {
				blocks = append(blocks, Content{Type: "text", Text: m.Text})
			}
			for _, req := range m.ToolExecutionRequests {
				input := json.RawMessage("{}")
				if req.Arguments != "" {
					if !json.Valid([]byte(req.Arguments)) {
						return nil, errors.Errorf("arguments of tool %q are not valid JSON", req.Name)
					}
					input = json.RawMessage(req.Arguments)
				}
				blocks = append(blocks, Content{Type: "tool_use", ID: req.ID, Name: req.Name, Input: input})
			}
			push("assistant", blocks...)
		case *model.ToolExecutionResultMessage:
			push("user", Content{Type: "tool_result", ToolUseID: m.ID, Content: m.Text})
		default:
			return nil, errors.Errorf("unsupported message type %T", msg)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("at least one user message is required")
	}
	return out, nil
}

func userBlocks(m *model.UserMessage) ([]Content, error) {
	blocks := make([]Content, 0, len(m.Contents))
	for _, c := range m.Contents {
		switch part := c.(type) {
		case *model.TextContent:
			blocks = append(blocks, Content{Type: "text", Text: part.Text})
		case *model.ImageContent:
			mimeType, data := part.MimeType, part.Base64Data
			if !part.Inline() {
				var err error
				if mimeType, data, err = utils.ParseDataURI(part.URL); err != nil {
					return nil, errors.Wrap(err, "image must be inline base64 data")
				}
			}
			if mimeType == "" {
				info, err := utils.DecodeImageConfig(data)
				if err != nil {
					return nil, err
				}
				mimeType = info.MimeType
			}
			blocks = append(blocks, Content{
				Type:   "image",
				Source: &ImageSource{Type: "base64", MediaType: mimeType, Data: data},
			})
		default:
			return nil, errors.Errorf("unsupported content type %T", c)
		}
	}
	return blocks, nil
}

func (a *Adaptor) ConvertResponse(body []byte) (*model.Response[*model.AiMessage], error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "unmarshal claude response")
	}

	ai := &model.AiMessage{}
	var text bytes.Buffer
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := "{}"
			if len(block.Input) > 0 {
				var compact bytes.Buffer
				if err := json.Compact(&compact, block.Input); err != nil {
					return nil, errors.Wrapf(err, "compact input of tool %q", block.Name)
				}
				args = compact.String()
			}
			ai.ToolExecutionRequests = append(ai.ToolExecutionRequests, model.ToolExecutionRequest{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}
	ai.Text = text.String()

	var usage *model.TokenUsage
	if resp.Usage != nil {
		usage = model.NewTokenUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}
	return model.NewResponse(ai, usage, convertStopReason(resp.StopReason)), nil
}

// convertStopReason maps Claude stop reasons onto FinishReason.
func convertStopReason(reason string) model.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return model.FinishReasonStop
	case "max_tokens":
		return model.FinishReasonLength
	case "tool_use":
		return model.FinishReasonToolExecution
	default:
		return model.FinishReasonOther
	}
}
