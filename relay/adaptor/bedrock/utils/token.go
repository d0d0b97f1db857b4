package utils

import (
	"sync"

	"github.com/Laisky/zap"
	"github.com/pkoukk/tiktoken-go"

	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/common/logger"
	"github.com/songquanpeng/chatkit/relay/model"
)

var (
	tokenEncoder     *tiktoken.Tiktoken
	tokenEncoderOnce sync.Once
)

// getTokenEncoder loads config.TokenEncoding once. It returns nil when the
// encoding cannot be loaded, e.g. offline without TIKTOKEN_CACHE_DIR.
func getTokenEncoder() *tiktoken.Tiktoken {
	tokenEncoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(config.TokenEncoding)
		if err != nil {
			logger.Logger.Warn("failed to load token encoder, falling back to approximate counting",
				zap.String("encoding", config.TokenEncoding), zap.Error(err))
			return
		}
		tokenEncoder = enc
	})
	return tokenEncoder
}

// InitTokenEncoder loads the encoder eagerly so the first request does not pay for it.
func InitTokenEncoder() {
	if config.ApproximateTokenEnabled {
		return
	}
	getTokenEncoder()
}

// CountTokenText estimates the number of tokens in text.
func CountTokenText(text string) int {
	if text == "" {
		return 0
	}
	if config.ApproximateTokenEnabled {
		return approximateTokens(text)
	}
	enc := getTokenEncoder()
	if enc == nil {
		return approximateTokens(text)
	}
	return len(enc.Encode(text, nil, nil))
}

func approximateTokens(text string) int {
	return int(float64(len(text)) * 0.38)
}

// every message is framed as <|start|>{role}\n{content}<|end|>\n
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

// CountTokenMessages estimates the prompt tokens of a conversation.
func CountTokenMessages(messages []model.ChatMessage) int {
	n := 0
	for _, m := range messages {
		n += tokensPerMessage
		n += CountTokenText(model.TextOf(m))
		if ai, ok := m.(*model.AiMessage); ok {
			for _, req := range ai.ToolExecutionRequests {
				n += CountTokenText(req.Name) + CountTokenText(req.Arguments)
			}
		}
	}
	return n + tokensPerReply
}

// EstimateUsage builds a TokenUsage for vendors whose response carries no counts.
func EstimateUsage(messages []model.ChatMessage, reply *model.AiMessage) *model.TokenUsage {
	out := 0
	if reply != nil {
		out = CountTokenText(reply.Text)
		for _, req := range reply.ToolExecutionRequests {
			out += CountTokenText(req.Name) + CountTokenText(req.Arguments)
		}
	}
	return model.NewTokenUsage(CountTokenMessages(messages), out)
}
