package mistral_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/mistral"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/utils"
	"github.com/songquanpeng/chatkit/relay/model"
)

func TestPrompt(t *testing.T) {
	prompt, err := mistral.Prompt([]model.ChatMessage{
		model.SystemMessageFrom("You are a helpful assistant."),
		model.UserMessageFrom("What is the weather like?"),
		model.AiMessageFrom("Sunny."),
		model.UserMessageFrom("And tomorrow?"),
	})
	require.NoError(t, err)
	require.Equal(t,
		"<s>[INST] You are a helpful assistant.\n\nWhat is the weather like? [/INST] Sunny.</s>[INST] And tomorrow? [/INST]",
		prompt)

	_, err = mistral.Prompt([]model.ChatMessage{model.AiMessageFrom("alone")})
	require.Error(t, err)
}

func TestConvertRequest(t *testing.T) {
	temp, topP, topK := 0.7, 0.9, 50
	converted, err := new(mistral.Adaptor).ConvertRequest(
		[]model.ChatMessage{model.UserMessageFrom("Hello")}, nil, nil,
		&utils.Parameters{MaxTokens: 500, Temperature: &temp, TopP: &topP, TopK: &topK, StopSequences: []string{"###"}})
	require.NoError(t, err)

	req := converted.(*mistral.Request)
	require.Equal(t, "<s>[INST] Hello [/INST]", req.Prompt)
	require.Equal(t, 500, req.MaxTokens)
	require.Equal(t, 0.7, *req.Temperature)
	require.Equal(t, 0.9, *req.TopP)
	require.Equal(t, 50, *req.TopK)
	require.Equal(t, []string{"###"}, req.Stop)
}

func TestConvertResponse(t *testing.T) {
	resp, err := new(mistral.Adaptor).ConvertResponse([]byte(`{"outputs":[{"text":" Hi! ","stop_reason":"stop"}]}`))
	require.NoError(t, err)
	require.Equal(t, "Hi!", resp.Content.Text)
	require.Nil(t, resp.TokenUsage)
	require.Equal(t, model.FinishReasonStop, resp.FinishReason)

	_, err = new(mistral.Adaptor).ConvertResponse([]byte(`{"outputs":[]}`))
	require.Error(t, err)
}
