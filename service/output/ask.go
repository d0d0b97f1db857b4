package output

import (
	"context"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/chatkit/monitor"
	"github.com/songquanpeng/chatkit/relay/model"
)

// instructionsLead precedes the format instructions appended to a prompt.
const instructionsLead = "\nYou must answer strictly in the following format: "

// ChatModel is the part of a chat model Ask needs.
type ChatModel interface {
	Generate(ctx context.Context, messages ...model.ChatMessage) (*model.Response[*model.AiMessage], error)
}

// WithFormatInstructions returns a copy of messages whose last user message ends
// with the format instructions of p. The input slice is not modified.
func WithFormatInstructions(messages []model.ChatMessage, p AnyParser) ([]model.ChatMessage, error) {
	last := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if _, ok := messages[i].(*model.UserMessage); ok {
			last = i
			break
		}
	}
	if last < 0 {
		return nil, errors.New("no user message to append format instructions to")
	}

	user := messages[last].(*model.UserMessage)
	suffix := instructionsLead + p.FormatInstructions()
	patched := &model.UserMessage{Name: user.Name, Contents: append([]model.Content(nil), user.Contents...)}

	appended := false
	for i := len(patched.Contents) - 1; i >= 0; i-- {
		if tc, ok := patched.Contents[i].(*model.TextContent); ok {
			patched.Contents[i] = &model.TextContent{Text: tc.Text + suffix}
			appended = true
			break
		}
	}
	if !appended {
		patched.Contents = append(patched.Contents, &model.TextContent{Text: suffix})
	}

	out := append([]model.ChatMessage(nil), messages...)
	out[last] = patched
	return out, nil
}

// Ask sends messages with the format instructions of p and parses the reply.
// The raw response is returned alongside so callers can inspect usage or
// retry with the reply text when the error is a *FormatError.
func Ask[T any](ctx context.Context, chat ChatModel, p Parser[T],
	messages ...model.ChatMessage) (T, *model.Response[*model.AiMessage], error) {
	var zero T
	prompt, err := WithFormatInstructions(messages, Erase(p))
	if err != nil {
		return zero, nil, err
	}

	resp, err := chat.Generate(ctx, prompt...)
	if err != nil {
		return zero, nil, err
	}
	if resp == nil || resp.Content == nil {
		return zero, resp, errors.New("model returned no message")
	}

	v, err := p.Parse(resp.Content.Text)
	if err != nil {
		if fe, ok := AsFormatError(err); ok {
			monitor.RecordParseFailure(fe.Type, fe.Reason.String())
		}
		return zero, resp, err
	}
	return v, resp, nil
}
