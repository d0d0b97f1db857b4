package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock"
	"github.com/songquanpeng/chatkit/relay/model"
	"github.com/songquanpeng/chatkit/service/output"
)

// chatModel is the part of bedrock.ChatModel the sweep drives.
type chatModel interface {
	ModelID() string
	SupportsTools() bool
	Generate(ctx context.Context, messages ...model.ChatMessage) (*model.Response[*model.AiMessage], error)
	GenerateWithToolChoice(ctx context.Context, messages []model.ChatMessage,
		tool *model.ToolSpecification) (*model.Response[*model.AiMessage], error)
}

var _ chatModel = (*bedrock.ChatModel)(nil)

func calculatorTool() (*model.ToolSpecification, error) {
	return model.NewToolSpecification("calculator").
		Description("Adds two integers and returns the sum.").
		AddParameter("a", model.Integer, model.Description("first addend")).
		AddParameter("b", model.Integer, model.Description("second addend")).
		Build()
}

// executeVariant runs one variant against chat and reports the outcome.
func executeVariant(ctx context.Context, chat chatModel, variant requestVariant) testResult {
	res := testResult{Model: chat.ModelID(), Variant: variant.Key, Label: variant.Header}
	if variant.Key == variantTools && !chat.SupportsTools() {
		res.Skipped = true
		res.ErrorReason = "tools unsupported by model " + chat.ModelID()
		return res
	}

	start := time.Now()
	reply, err := runVariant(ctx, chat, variant.Key)
	res.Duration = time.Since(start)
	res.Reply = shorten(reply, maxLoggedReply)
	if err != nil {
		res.ErrorReason = err.Error()
		return res
	}
	res.Success = true
	return res
}

func runVariant(ctx context.Context, chat chatModel, kind variantKind) (string, error) {
	switch kind {
	case variantPlain:
		resp, err := chat.Generate(ctx,
			model.SystemMessageFrom("You are a terse assistant."),
			model.UserMessageFrom("Say hello in one short sentence."))
		if err != nil {
			return "", err
		}
		return resp.Content.Text, evaluatePlain(resp)
	case variantTools:
		tool, err := calculatorTool()
		if err != nil {
			return "", err
		}
		resp, err := chat.GenerateWithToolChoice(ctx,
			[]model.ChatMessage{model.UserMessageFrom("What is 17 plus 25? Use the calculator.")}, tool)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%+v", resp.Content.ToolExecutionRequests), evaluateToolCall(resp, tool.Name)
	case variantTyped:
		v, resp, err := output.Ask(ctx, chat, output.Short(), model.UserMessageFrom(typedQuestion))
		reply := ""
		if resp != nil && resp.Content != nil {
			reply = resp.Content.Text
		}
		if err != nil {
			return reply, err
		}
		if v != typedAnswer {
			return reply, errors.Errorf("expected %d, got %d", typedAnswer, v)
		}
		return reply, nil
	default:
		return "", errors.Errorf("unknown variant %q", kind)
	}
}

func evaluatePlain(resp *model.Response[*model.AiMessage]) error {
	if resp.Content == nil || strings.TrimSpace(resp.Content.Text) == "" {
		return errors.New("empty reply")
	}
	if resp.TokenUsage == nil || resp.TokenUsage.OutputTokenCount == 0 {
		return errors.New("missing token usage")
	}
	return nil
}

func evaluateToolCall(resp *model.Response[*model.AiMessage], name string) error {
	if resp.Content == nil || len(resp.Content.ToolExecutionRequests) == 0 {
		return errors.New("no tool call in reply")
	}
	call := resp.Content.ToolExecutionRequests[0]
	if call.Name != name {
		return errors.Errorf("expected tool %q, got %q", name, call.Name)
	}
	args, err := call.ArgumentsMap()
	if err != nil {
		return err
	}
	for _, key := range []string{"a", "b"} {
		if _, ok := args[key]; !ok {
			return errors.Errorf("tool call misses argument %q", key)
		}
	}
	if resp.FinishReason != model.FinishReasonToolExecution {
		return errors.Errorf("unexpected finish reason %s", resp.FinishReason)
	}
	return nil
}
