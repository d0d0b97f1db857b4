package dto

import (
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/chatkit/rag/content"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/utils"
	"github.com/songquanpeng/chatkit/relay/model"
)

// Roles accepted in a chat request.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of a chat request.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant tool"`
	Content string `json:"content,omitempty"`
	// Images are http(s) URLs or base64 data URIs, only valid on user turns.
	Images     []string   `json:"images,omitempty" validate:"omitempty,dive,required"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty" validate:"omitempty,dive"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a tool invocation requested by the assistant.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name" validate:"required"`
	Arguments string `json:"arguments,omitempty"`
}

// Tool describes a function the model may call. Parameters follows JSON Schema:
// {"properties": {...}, "required": [...]}.
type Tool struct {
	Name        string         `json:"name" validate:"required,max=64"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type ChatRequest struct {
	Model    string    `json:"model" validate:"required"`
	Messages []Message `json:"messages" validate:"required,min=1,dive"`
	Tools    []Tool    `json:"tools,omitempty" validate:"omitempty,dive"`
	// ToolChoice forces the named tool, which must be listed in Tools.
	ToolChoice  string   `json:"tool_choice,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty" validate:"gte=0"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	// Context holds retrieved passages appended to the last user message.
	Context []content.TextSegment `json:"context,omitempty"`
}

type ChatResponse struct {
	Model        string            `json:"model"`
	Content      string            `json:"content"`
	ToolCalls    []ToolCall        `json:"tool_calls,omitempty"`
	FinishReason string            `json:"finish_reason,omitempty"`
	Usage        *model.TokenUsage `json:"usage,omitempty"`
}

// ChatMessages converts the request turns into the uniform message model.
func (r *ChatRequest) ChatMessages() ([]model.ChatMessage, error) {
	out := make([]model.ChatMessage, 0, len(r.Messages))
	for i, m := range r.Messages {
		if len(m.Images) > 0 && m.Role != RoleUser {
			return nil, errors.Errorf("messages[%d]: images are only allowed on user messages", i)
		}

		switch m.Role {
		case RoleSystem:
			out = append(out, model.SystemMessageFrom(m.Content))
		case RoleUser:
			user, err := userMessage(m)
			if err != nil {
				return nil, errors.Wrapf(err, "messages[%d]", i)
			}
			out = append(out, user)
		case RoleAssistant:
			ai := model.AiMessageFrom(m.Content)
			for _, call := range m.ToolCalls {
				ai.ToolExecutionRequests = append(ai.ToolExecutionRequests, model.ToolExecutionRequest{
					ID:        call.ID,
					Name:      call.Name,
					Arguments: call.Arguments,
				})
			}
			out = append(out, ai)
		case RoleTool:
			if m.ToolCallID == "" {
				return nil, errors.Errorf("messages[%d]: tool_call_id is required for tool messages", i)
			}
			out = append(out, model.ToolExecutionResultMessageFrom(
				model.ToolExecutionRequest{ID: m.ToolCallID, Name: m.Name}, m.Content))
		default:
			return nil, errors.Errorf("messages[%d]: unknown role %q", i, m.Role)
		}
	}
	return r.injectContext(out)
}

func (r *ChatRequest) injectContext(messages []model.ChatMessage) ([]model.ChatMessage, error) {
	if len(r.Context) == 0 {
		return messages, nil
	}

	contents := make([]*content.Content, 0, len(r.Context))
	for i, segment := range r.Context {
		c, err := content.FromSegment(segment)
		if err != nil {
			return nil, errors.Wrapf(err, "context[%d]", i)
		}
		contents = append(contents, c)
	}

	for i := len(messages) - 1; i >= 0; i-- {
		if user, ok := messages[i].(*model.UserMessage); ok {
			messages[i] = content.Inject(user, contents...)
			return messages, nil
		}
	}
	return nil, errors.New("context requires a user message")
}

func userMessage(m Message) (*model.UserMessage, error) {
	var contents []model.Content
	if m.Content != "" {
		contents = append(contents, &model.TextContent{Text: m.Content})
	}
	for _, img := range m.Images {
		if strings.HasPrefix(img, "data:") {
			mime, data, err := utils.ParseDataURI(img)
			if err != nil {
				return nil, err
			}
			contents = append(contents, &model.ImageContent{Base64Data: data, MimeType: mime})
			continue
		}
		if !strings.HasPrefix(img, "http://") && !strings.HasPrefix(img, "https://") {
			return nil, errors.Errorf("unsupported image reference %q", img)
		}
		contents = append(contents, &model.ImageContent{URL: img})
	}
	if len(contents) == 0 {
		return nil, errors.New("user message has no content")
	}

	user := model.UserMessageFromContents(contents...)
	user.Name = m.Name
	return user, nil
}

// ToolSpecifications converts Tools and resolves ToolChoice. choice is nil
// unless ToolChoice is set.
func (r *ChatRequest) ToolSpecifications() (tools []*model.ToolSpecification, choice *model.ToolSpecification, err error) {
	for _, t := range r.Tools {
		spec, err := t.Specification()
		if err != nil {
			return nil, nil, err
		}
		tools = append(tools, spec)
		if r.ToolChoice != "" && spec.Name == r.ToolChoice {
			choice = spec
		}
	}
	if r.ToolChoice != "" && choice == nil {
		return nil, nil, errors.Errorf("tool_choice %q is not in tools", r.ToolChoice)
	}
	return tools, choice, nil
}

// Specification converts t into a ToolSpecification.
func (t Tool) Specification() (*model.ToolSpecification, error) {
	spec := &model.ToolSpecification{Name: t.Name, Description: t.Description}
	if len(t.Parameters) > 0 {
		params := &model.ToolParameters{Properties: map[string]map[string]any{}}
		if props, ok := t.Parameters["properties"].(map[string]any); ok {
			for name, schema := range props {
				m, ok := schema.(map[string]any)
				if !ok {
					return nil, errors.Errorf("tool %q: property %q must be an object", t.Name, name)
				}
				params.Properties[name] = m
			}
		}
		if required, ok := t.Parameters["required"].([]any); ok {
			for _, r := range required {
				name, ok := r.(string)
				if !ok {
					return nil, errors.Errorf("tool %q: required entries must be strings", t.Name)
				}
				params.Required = append(params.Required, name)
			}
		}
		spec.Parameters = params
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// NewChatResponse renders a model reply.
func NewChatResponse(modelID string, resp *model.Response[*model.AiMessage]) *ChatResponse {
	out := &ChatResponse{
		Model:        modelID,
		FinishReason: string(resp.FinishReason),
		Usage:        resp.TokenUsage,
	}
	if resp.Content != nil {
		out.Content = resp.Content.Text
		for _, req := range resp.Content.ToolExecutionRequests {
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: req.ID, Name: req.Name, Arguments: req.Arguments})
		}
	}
	return out
}
