package output

import (
	"context"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/chatkit/relay/model"
)

type scriptedChat struct {
	reply    string
	err      error
	received []model.ChatMessage
}

func (c *scriptedChat) Generate(_ context.Context, messages ...model.ChatMessage) (*model.Response[*model.AiMessage], error) {
	c.received = messages
	if c.err != nil {
		return nil, c.err
	}
	return model.NewResponse(model.AiMessageFrom(c.reply), model.NewTokenUsage(10, 2), model.FinishReasonStop), nil
}

func TestWithFormatInstructions(t *testing.T) {
	original := []model.ChatMessage{
		model.SystemMessageFrom("be brief"),
		model.UserMessageFrom("first"),
		model.AiMessageFrom("ok"),
		model.UserMessageFrom("How many legs does a spider have?"),
	}

	got, err := WithFormatInstructions(original, Erase(Short()))
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Equal(t,
		"How many legs does a spider have?\nYou must answer strictly in the following format: integer number in range [-32768, 32767]",
		got[3].(*model.UserMessage).Text())
	require.Equal(t, "first", got[1].(*model.UserMessage).Text())
	require.Equal(t, "How many legs does a spider have?", original[3].(*model.UserMessage).Text(),
		"input must not be modified")

	images := []model.ChatMessage{model.UserMessageFromContents(&model.ImageContent{URL: "https://example.com/a.png"})}
	got, err = WithFormatInstructions(images, Erase(Boolean()))
	require.NoError(t, err)
	user := got[0].(*model.UserMessage)
	require.Len(t, user.Contents, 2)
	require.Equal(t, "\nYou must answer strictly in the following format: one of [true, false]", user.Text())

	_, err = WithFormatInstructions([]model.ChatMessage{model.SystemMessageFrom("x")}, Erase(Short()))
	require.Error(t, err)
}

func TestAsk(t *testing.T) {
	t.Run("parsed", func(t *testing.T) {
		chat := &scriptedChat{reply: " 8 \n"}
		v, resp, err := Ask(context.Background(), chat, Short(), model.UserMessageFrom("How many legs does a spider have?"))
		require.NoError(t, err)
		require.Equal(t, int16(8), v)
		require.Equal(t, 12, resp.TokenUsage.TotalTokenCount)
		require.Len(t, chat.received, 1)
		require.Contains(t, model.TextOf(chat.received[0]), "integer number in range [-32768, 32767]")
	})

	t.Run("format error", func(t *testing.T) {
		chat := &scriptedChat{reply: "eight"}
		_, resp, err := Ask(context.Background(), chat, Short(), model.UserMessageFrom("legs?"))
		require.True(t, IsFormatError(err))
		require.NotNil(t, resp)
		require.Equal(t, "eight", resp.Content.Text)
	})

	t.Run("model error", func(t *testing.T) {
		chat := &scriptedChat{err: errors.New("boom")}
		_, resp, err := Ask(context.Background(), chat, Short(), model.UserMessageFrom("legs?"))
		require.EqualError(t, err, "boom")
		require.Nil(t, resp)
	})
}
