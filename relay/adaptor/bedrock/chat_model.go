package bedrock

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/songquanpeng/chatkit/common/tracing"
	"github.com/songquanpeng/chatkit/monitor"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/utils"
	"github.com/songquanpeng/chatkit/relay/model"
)

// ChatModel generates chat replies with one Bedrock model.
type ChatModel struct {
	opts     *Options
	provider utils.Provider
	health   *monitor.Health
}

// NewChatModel validates opts and resolves the vendor adaptor. The AWS client
// is loaded on the first call.
func NewChatModel(opts ...Option) (*ChatModel, error) {
	o := newOptions(opts...)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	provider, err := GetProvider(o.Model)
	if err != nil {
		return nil, err
	}
	return &ChatModel{opts: o, provider: provider, health: o.Health}, nil
}

func (m *ChatModel) ModelID() string        { return m.opts.Model }
func (m *ChatModel) Timeout() time.Duration { return m.opts.Timeout }
func (m *ChatModel) Provider() string       { return m.provider.Name() }
func (m *ChatModel) SupportsTools() bool    { return m.provider.SupportsTools() }

// Generate answers the conversation.
func (m *ChatModel) Generate(ctx context.Context, messages ...model.ChatMessage) (*model.Response[*model.AiMessage], error) {
	return m.GenerateWithOptions(ctx, messages, nil, nil, nil)
}

// GenerateWithTools lets the model choose among tools.
func (m *ChatModel) GenerateWithTools(ctx context.Context, messages []model.ChatMessage,
	tools []*model.ToolSpecification) (*model.Response[*model.AiMessage], error) {
	return m.GenerateWithOptions(ctx, messages, tools, nil, nil)
}

// GenerateWithToolChoice forces the model to call tool.
func (m *ChatModel) GenerateWithToolChoice(ctx context.Context, messages []model.ChatMessage,
	tool *model.ToolSpecification) (*model.Response[*model.AiMessage], error) {
	if tool == nil {
		return nil, errors.New("tool is required")
	}
	return m.GenerateWithOptions(ctx, messages, nil, tool, nil)
}

// GenerateWithOptions is the general form of Generate. override may be nil.
func (m *ChatModel) GenerateWithOptions(ctx context.Context, messages []model.ChatMessage,
	tools []*model.ToolSpecification, toolChoice *model.ToolSpecification,
	override *GenerateOptions) (*model.Response[*model.AiMessage], error) {
	if len(messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	if !m.provider.SupportsTools() {
		if err := utils.RejectTools(tools, toolChoice); err != nil {
			return nil, err
		}
	}
	for i, t := range tools {
		if t == nil {
			return nil, errors.Errorf("tool %d is nil", i)
		}
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	if toolChoice != nil {
		if err := toolChoice.Validate(); err != nil {
			return nil, err
		}
	}
	params, err := m.opts.parameters(m.opts.Model, override)
	if err != nil {
		return nil, err
	}

	if p, ok := m.provider.(utils.ImageInputProvider); ok && p.SupportsImages() {
		if messages, err = utils.InlineImages(ctx, messages); err != nil {
			return nil, err
		}
	}

	req, err := m.provider.ConvertRequest(messages, tools, toolChoice, params)
	if err != nil {
		if errors.Is(err, utils.ErrToolsNotSupported) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "convert request for %s", m.opts.Model)
	}

	body, err := m.invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := m.provider.ConvertResponse(body)
	if err != nil {
		return nil, errors.Wrapf(err, "convert response of %s", m.opts.Model)
	}
	if resp.TokenUsage == nil {
		resp.TokenUsage = utils.EstimateUsage(messages, resp.Content)
		m.opts.Logger.Debug("token usage estimated",
			zap.String("model", m.opts.Model),
			zap.Int("input_tokens", resp.TokenUsage.InputTokenCount),
			zap.Int("output_tokens", resp.TokenUsage.OutputTokenCount))
	}
	monitor.RecordTokenUsage(m.opts.Model, resp.TokenUsage)
	return resp, nil
}

// invoke marshals req, calls InvokeModel and records the outcome.
func (m *ChatModel) invoke(ctx context.Context, req any) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	client, err := getRuntimeClient(ctx, m.opts)
	if err != nil {
		return nil, err
	}

	modelID := m.opts.Model
	if m.opts.CrossRegion {
		modelID = utils.ConvertModelID2CrossRegionProfile(modelID, m.opts.Region)
	}

	// every Allow is paired with the Emit below
	if reason, ok := m.health.Allow(m.opts.Model); !ok {
		return nil, errors.Wrapf(utils.ErrModelDisabled, "%s (%s)", m.opts.Model, reason)
	}
	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	start := time.Now()
	body, err := invokeModel(ctx, client, modelID, payload)
	elapsed := time.Since(start)
	monitor.RecordInvocation(m.opts.Model, m.provider.Name(), err, elapsed)
	m.health.Emit(m.opts.Model, err)
	if err != nil {
		m.opts.Logger.Warn("invoke bedrock model failed", tracing.FieldsFromContext(ctx,
			zap.String("model", modelID), zap.Duration("elapsed", elapsed), zap.Error(err))...)
		return nil, errors.Wrapf(err, "invoke model %s", modelID)
	}

	m.opts.Logger.Debug("invoke bedrock model", tracing.FieldsFromContext(ctx,
		zap.String("model", modelID),
		zap.String("provider", m.provider.Name()),
		zap.Duration("elapsed", elapsed))...)
	return body, nil
}
