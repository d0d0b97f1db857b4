package main

import "github.com/songquanpeng/chatkit/relay/adaptor/bedrock"

var defaultTestModels = []string{
	bedrock.AnthropicClaude3HaikuV1,
	bedrock.AnthropicClaudeInstantV1,
	bedrock.AmazonTitanTextExpressV1,
	bedrock.CohereCommandLightTextV14,
	bedrock.MetaLlama3Instruct8B,
	bedrock.Mistral7bInstructV0_2,
}

const (
	defaultMaxTokens = 512
	maxLoggedReply   = 256

	// typedQuestion has a single well-known integer answer.
	typedQuestion = "How many legs does a spider have?"
	typedAnswer   = 8
)
