package bedrock

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/monitor"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/utils"
	"github.com/songquanpeng/chatkit/relay/model"
)

type fakeClient struct {
	mu       sync.Mutex
	inputs   []*bedrockruntime.InvokeModelInput
	response func(in *bedrockruntime.InvokeModelInput) ([]byte, error)
}

func replyWith(body string) *fakeClient {
	return &fakeClient{response: func(*bedrockruntime.InvokeModelInput) ([]byte, error) {
		return []byte(body), nil
	}}
}

func (f *fakeClient) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput,
	_ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()

	body, err := f.response(in)
	if err != nil {
		return nil, err
	}
	return &bedrockruntime.InvokeModelOutput{Body: body, ContentType: aws.String("application/json")}, nil
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

func (f *fakeClient) lastBody(t *testing.T) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.inputs)
	var body map[string]any
	require.NoError(t, json.Unmarshal(f.inputs[len(f.inputs)-1].Body, &body))
	return body
}

func calculatorTool(t *testing.T) *model.ToolSpecification {
	t.Helper()
	spec, err := model.NewToolSpecification("calculator").
		Description("returns a sum of two numbers").
		AddParameter("first", model.Integer).
		AddParameter("second", model.Integer).
		Build()
	require.NoError(t, err)
	return spec
}

const claudeTextReply = `{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"I am fine."}],"stop_reason":"end_turn","usage":{"input_tokens":13,"output_tokens":5}}`

func TestNewChatModel(t *testing.T) {
	Convey("options", t, func() {
		Convey("defaults", func() {
			m, err := NewChatModel(WithModel(AnthropicClaude3SonnetV1))
			So(err, ShouldBeNil)
			So(m.ModelID(), ShouldEqual, AnthropicClaude3SonnetV1)
			So(m.Timeout(), ShouldEqual, config.BedrockTimeout)
			So(m.Provider(), ShouldEqual, "anthropic")
			So(m.SupportsTools(), ShouldBeTrue)
		})

		Convey("explicit timeout", func() {
			m, err := NewChatModel(WithModel(AnthropicClaude3SonnetV1), WithTimeout(2*time.Minute), WithMaxRetries(1))
			So(err, ShouldBeNil)
			So(m.Timeout(), ShouldEqual, 2*time.Minute)
		})

		Convey("missing model", func() {
			_, err := NewChatModel()
			So(err, ShouldNotBeNil)
		})

		Convey("temperature out of range", func() {
			_, err := NewChatModel(WithModel(AnthropicClaude3SonnetV1), WithTemperature(1.5))
			So(err, ShouldNotBeNil)
		})

		Convey("half set credentials", func() {
			_, err := NewChatModel(WithModel(AnthropicClaude3SonnetV1), WithCredentials("AKID", "", ""))
			So(err, ShouldNotBeNil)
		})

		Convey("unknown model", func() {
			_, err := NewChatModel(WithModel("openai.gpt-4"))
			So(err, ShouldNotBeNil)
		})

		Convey("image model is not a chat model", func() {
			_, err := NewChatModel(WithModel(StabilityStableDiffusionXLV1))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestChatModelGenerate(t *testing.T) {
	fake := replyWith(claudeTextReply)
	m, err := NewChatModel(
		WithModel(AnthropicClaude3SonnetV1),
		WithClient(fake),
		WithTemperature(0.5),
		WithMaxTokens(300),
	)
	require.NoError(t, err)

	resp, err := m.Generate(context.Background(), model.UserMessageFrom("hi, how are you doing?"))
	require.NoError(t, err)
	require.Equal(t, "I am fine.", resp.Content.Text)
	require.Equal(t, model.FinishReasonStop, resp.FinishReason)
	require.Equal(t, 18, resp.TokenUsage.TotalTokenCount)

	require.Equal(t, 1, fake.calls())
	require.Equal(t, AnthropicClaude3SonnetV1, aws.ToString(fake.inputs[0].ModelId))
	require.Equal(t, "application/json", aws.ToString(fake.inputs[0].ContentType))

	body := fake.lastBody(t)
	require.Equal(t, "bedrock-2023-05-31", body["anthropic_version"])
	require.Equal(t, float64(300), body["max_tokens"])
	require.Equal(t, 0.5, body["temperature"])

	_, err = m.Generate(context.Background())
	require.Error(t, err)
}

func TestChatModelGenerateWithOptions(t *testing.T) {
	fake := replyWith(claudeTextReply)
	m, err := NewChatModel(WithModel(AnthropicClaude3HaikuV1), WithClient(fake), WithMaxTokens(300), WithTopP(0.9))
	require.NoError(t, err)

	temp := 0.1
	_, err = m.GenerateWithOptions(context.Background(),
		[]model.ChatMessage{model.UserMessageFrom("hi")}, nil, nil,
		&GenerateOptions{MaxTokens: 20, Temperature: &temp, StopSequences: []string{"END"}})
	require.NoError(t, err)

	body := fake.lastBody(t)
	require.Equal(t, float64(20), body["max_tokens"])
	require.Equal(t, 0.1, body["temperature"])
	require.NotContains(t, body, "top_p", "top_p is dropped when temperature is set")
	require.Equal(t, []any{"END"}, body["stop_sequences"])

	bad := 3.0
	_, err = m.GenerateWithOptions(context.Background(),
		[]model.ChatMessage{model.UserMessageFrom("hi")}, nil, nil, &GenerateOptions{TopP: &bad})
	require.Error(t, err)
}

func TestChatModelTools(t *testing.T) {
	calc := calculatorTool(t)

	t.Run("tool execution", func(t *testing.T) {
		fake := replyWith(`{"content":[{"type":"tool_use","id":"toolu_1","name":"calculator","input":{"first":2,"second":2}}],"stop_reason":"tool_use","usage":{"input_tokens":20,"output_tokens":9}}`)
		m, err := NewChatModel(WithModel(AnthropicClaude3SonnetV1), WithClient(fake))
		require.NoError(t, err)

		resp, err := m.GenerateWithTools(context.Background(),
			[]model.ChatMessage{model.UserMessageFrom("2+2=?")}, []*model.ToolSpecification{calc})
		require.NoError(t, err)
		require.Empty(t, resp.Content.Text)
		require.Len(t, resp.Content.ToolExecutionRequests, 1)
		require.Equal(t, "calculator", resp.Content.ToolExecutionRequests[0].Name)
		require.JSONEq(t, `{"first": 2, "second": 2}`, resp.Content.ToolExecutionRequests[0].Arguments)
		require.Equal(t, model.FinishReasonToolExecution, resp.FinishReason)
		require.Equal(t, resp.TokenUsage.InputTokenCount+resp.TokenUsage.OutputTokenCount, resp.TokenUsage.TotalTokenCount)
		require.NotContains(t, fake.lastBody(t), "tool_choice")
	})

	t.Run("forced tool", func(t *testing.T) {
		fake := replyWith(`{"content":[{"type":"tool_use","id":"toolu_2","name":"calculator","input":{"first":1,"second":1}}],"stop_reason":"tool_use","usage":{"input_tokens":20,"output_tokens":9}}`)
		m, err := NewChatModel(WithModel(AnthropicClaude3SonnetV1), WithClient(fake))
		require.NoError(t, err)

		_, err = m.GenerateWithToolChoice(context.Background(),
			[]model.ChatMessage{model.UserMessageFrom("1+1")}, calc)
		require.NoError(t, err)
		require.Equal(t, map[string]any{"type": "tool", "name": "calculator"}, fake.lastBody(t)["tool_choice"])

		_, err = m.GenerateWithToolChoice(context.Background(), []model.ChatMessage{model.UserMessageFrom("1+1")}, nil)
		require.Error(t, err)
	})

	t.Run("not supported", func(t *testing.T) {
		for _, id := range []string{
			AnthropicClaudeV2, AnthropicClaudeV2_1, AnthropicClaudeInstantV1,
			AmazonTitanTextExpressV1, CohereCommandTextV14, MetaLlama3Instruct8B, Mistral7bInstructV0_2,
		} {
			fake := replyWith(`{}`)
			m, err := NewChatModel(WithModel(id), WithClient(fake))
			require.NoError(t, err, id)

			_, err = m.GenerateWithTools(context.Background(),
				[]model.ChatMessage{model.UserMessageFrom("2+2=?")}, []*model.ToolSpecification{calc})
			require.EqualError(t, err, "Tools are currently not supported by this model", id)

			_, err = m.GenerateWithToolChoice(context.Background(),
				[]model.ChatMessage{model.UserMessageFrom("2+2=?")}, calc)
			require.EqualError(t, err, "Tools are currently not supported by this model", id)
			require.Zero(t, fake.calls(), id)
		}
	})
}

func TestChatModelEstimatedUsage(t *testing.T) {
	original := config.ApproximateTokenEnabled
	defer func() { config.ApproximateTokenEnabled = original }()
	config.ApproximateTokenEnabled = true

	fake := replyWith(`{"outputs":[{"text":"0123456789","stop_reason":"length"}]}`)
	m, err := NewChatModel(WithModel(MistralMixtral8x7bV0_1), WithClient(fake))
	require.NoError(t, err)

	resp, err := m.Generate(context.Background(), model.UserMessageFrom("0123456789"))
	require.NoError(t, err)
	require.Equal(t, model.FinishReasonLength, resp.FinishReason)
	require.NotNil(t, resp.TokenUsage)
	require.Equal(t, 3, resp.TokenUsage.OutputTokenCount)
	require.Greater(t, resp.TokenUsage.InputTokenCount, 0)
	require.Equal(t, "<s>[INST] 0123456789 [/INST]", fake.lastBody(t)["prompt"])
}

func TestChatModelCrossRegion(t *testing.T) {
	fake := replyWith(claudeTextReply)
	m, err := NewChatModel(WithModel(AnthropicClaude3HaikuV1), WithRegion("eu-west-1"),
		WithCrossRegion(true), WithClient(fake))
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), model.UserMessageFrom("hi"))
	require.NoError(t, err)
	require.Equal(t, "eu."+AnthropicClaude3HaikuV1, aws.ToString(fake.inputs[0].ModelId))
}

func TestChatModelInvokeError(t *testing.T) {
	fake := &fakeClient{response: func(*bedrockruntime.InvokeModelInput) ([]byte, error) {
		return nil, errors.New("throttled")
	}}
	m, err := NewChatModel(WithModel(MetaLlama3Instruct70B), WithClient(fake))
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), model.UserMessageFrom("hi"))
	require.ErrorContains(t, err, "invoke model "+MetaLlama3Instruct70B)
	require.ErrorContains(t, err, "throttled")
}

func TestImageModel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))))
	data := base64.StdEncoding.EncodeToString(buf.Bytes())

	fake := &fakeClient{response: func(in *bedrockruntime.InvokeModelInput) ([]byte, error) {
		var req struct {
			Seed int64 `json:"seed"`
		}
		if err := json.Unmarshal(in.Body, &req); err != nil {
			return nil, err
		}
		out, _ := json.Marshal(map[string]any{
			"result":    "success",
			"artifacts": []map[string]any{{"seed": req.Seed, "base64": data, "finishReason": "SUCCESS"}},
		})
		return out, nil
	}}

	m, err := NewImageModel(WithModel(StabilityStableDiffusionXLV1), WithClient(fake), WithSeed(100),
		WithImageSize(512, 512), WithStylePreset("photographic"))
	require.NoError(t, err)

	resp, err := m.Generate(context.Background(), "a cat")
	require.NoError(t, err)
	require.Equal(t, 16, resp.Content.Width)
	require.Equal(t, int64(100), resp.Content.Seed)
	require.Equal(t, float64(512), fake.lastBody(t)["width"])

	batch, err := m.GenerateN(context.Background(), "a cat", 3)
	require.NoError(t, err)
	require.Len(t, batch.Content, 3)
	seeds := map[int64]bool{}
	for _, img := range batch.Content {
		seeds[img.Seed] = true
	}
	require.Equal(t, map[int64]bool{100: true, 101: true, 102: true}, seeds)

	_, err = m.GenerateN(context.Background(), "a cat", 0)
	require.Error(t, err)

	_, err = NewImageModel(WithModel(AnthropicClaude3SonnetV1))
	require.Error(t, err)
	_, err = NewImageModel(WithModel(StabilityStableDiffusionXLV1), WithImageSize(10, 10))
	require.Error(t, err)
}

func TestRuntimeClientCache(t *testing.T) {
	opts := newOptions(WithModel(AnthropicClaude3HaikuV1), WithRegion("us-west-2"),
		WithCredentials("AKIDEXAMPLE", "secret", ""))

	first, err := getRuntimeClient(context.Background(), opts)
	require.NoError(t, err)
	second, err := getRuntimeClient(context.Background(), opts)
	require.NoError(t, err)
	require.Same(t, first, second)

	other := newOptions(WithModel(AnthropicClaude3HaikuV1), WithRegion("eu-west-1"),
		WithCredentials("AKIDEXAMPLE", "secret", ""))
	third, err := getRuntimeClient(context.Background(), other)
	require.NoError(t, err)
	require.NotSame(t, first, third)
	require.Equal(t, "eu-west-1", third.(*bedrockruntime.Client).Options().Region)

	require.NotContains(t, clientCacheKey(opts), "secret")
}

func TestChatModelHealth(t *testing.T) {
	original := config.AutomaticDisableModelEnabled
	config.AutomaticDisableModelEnabled = true
	t.Cleanup(func() { config.AutomaticDisableModelEnabled = original })

	client := &fakeClient{response: func(*bedrockruntime.InvokeModelInput) ([]byte, error) {
		return nil, &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "model not found"}
	}}
	health := monitor.NewHealth(5, 0.8, time.Hour)
	chat, err := NewChatModel(WithModel(AnthropicClaude3HaikuV1), WithClient(client), WithHealth(health))
	require.NoError(t, err)

	_, err = chat.Generate(context.Background(), model.UserMessageFrom("hi"))
	require.Error(t, err)
	var apiErr smithy.APIError
	require.True(t, errors.As(err, &apiErr))

	_, err = chat.Generate(context.Background(), model.UserMessageFrom("hi"))
	require.ErrorIs(t, err, utils.ErrModelDisabled)
	require.Equal(t, 1, client.calls())

	health.Enable(AnthropicClaude3HaikuV1)
	client.response = func(*bedrockruntime.InvokeModelInput) ([]byte, error) { return []byte(claudeTextReply), nil }
	resp, err := chat.Generate(context.Background(), model.UserMessageFrom("hi"))
	require.NoError(t, err)
	require.Equal(t, "I am fine.", resp.Content.Text)
}

func TestChatModelRecoversAfterCooldown(t *testing.T) {
	original := config.AutomaticDisableModelEnabled
	config.AutomaticDisableModelEnabled = true
	t.Cleanup(func() { config.AutomaticDisableModelEnabled = original })

	var healthy atomic.Bool
	client := &fakeClient{response: func(*bedrockruntime.InvokeModelInput) ([]byte, error) {
		if healthy.Load() {
			return []byte(claudeTextReply), nil
		}
		return nil, errors.New("upstream exploded")
	}}
	health := monitor.NewHealth(2, 0.8, 20*time.Millisecond)
	chat, err := NewChatModel(WithModel(AnthropicClaude3HaikuV1), WithClient(client), WithHealth(health))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = chat.Generate(context.Background(), model.UserMessageFrom("hi"))
		require.ErrorContains(t, err, "upstream exploded")
	}
	_, disabled := health.Disabled(AnthropicClaude3HaikuV1)
	require.True(t, disabled)

	_, err = chat.Generate(context.Background(), model.UserMessageFrom("hi"))
	require.ErrorIs(t, err, utils.ErrModelDisabled)
	require.Equal(t, 2, client.calls())

	healthy.Store(true)
	time.Sleep(30 * time.Millisecond)

	resp, err := chat.Generate(context.Background(), model.UserMessageFrom("hi"))
	require.NoError(t, err)
	require.Equal(t, "I am fine.", resp.Content.Text)
	_, disabled = health.Disabled(AnthropicClaude3HaikuV1)
	require.False(t, disabled)
	require.Equal(t, 3, client.calls())
}

func TestChatModelThrottlingKeepsModelEnabled(t *testing.T) {
	original := config.AutomaticDisableModelEnabled
	config.AutomaticDisableModelEnabled = true
	t.Cleanup(func() { config.AutomaticDisableModelEnabled = original })

	client := &fakeClient{response: func(*bedrockruntime.InvokeModelInput) ([]byte, error) {
		return nil, &smithy.GenericAPIError{Code: "ThrottlingException", Message: "rate exceeded"}
	}}
	health := monitor.NewHealth(2, 0.8, time.Hour)
	chat, err := NewChatModel(WithModel(AnthropicClaude3HaikuV1), WithClient(client), WithHealth(health))
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		_, err = chat.Generate(context.Background(), model.UserMessageFrom("hi"))
		require.ErrorContains(t, err, "rate exceeded")
		require.False(t, errors.Is(err, utils.ErrModelDisabled))
	}
	_, disabled := health.Disabled(AnthropicClaude3HaikuV1)
	require.False(t, disabled)
	require.Equal(t, 6, client.calls())
}
