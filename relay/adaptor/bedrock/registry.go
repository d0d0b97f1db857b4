package bedrock

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/anthropic"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/cohere"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/llama"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/mistral"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/stability"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/titan"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/utils"
)

// Bedrock model ids.
// https://docs.aws.amazon.com/bedrock/latest/userguide/model-ids.html
const (
	AnthropicClaudeInstantV1  = "anthropic.claude-instant-v1"
	AnthropicClaudeV2         = "anthropic.claude-v2"
	AnthropicClaudeV2_1       = "anthropic.claude-v2:1"
	AnthropicClaude3HaikuV1   = "anthropic.claude-3-haiku-20240307-v1:0"
	AnthropicClaude3SonnetV1  = "anthropic.claude-3-sonnet-20240229-v1:0"
	AnthropicClaude35SonnetV1 = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	AnthropicClaude3OpusV1    = "anthropic.claude-3-opus-20240229-v1:0"

	AmazonTitanTextExpressV1 = "amazon.titan-text-express-v1"
	AmazonTitanTextLiteV1    = "amazon.titan-text-lite-v1"

	CohereCommandTextV14      = "cohere.command-text-v14"
	CohereCommandLightTextV14 = "cohere.command-light-text-v14"

	MetaLlama2Chat13BV1    = "meta.llama2-13b-chat-v1"
	MetaLlama2Chat70BV1    = "meta.llama2-70b-chat-v1"
	MetaLlama3Instruct8B   = "meta.llama3-8b-instruct-v1:0"
	MetaLlama3Instruct70B  = "meta.llama3-70b-instruct-v1:0"
	Mistral7bInstructV0_2  = "mistral.mistral-7b-instruct-v0:2"
	MistralMixtral8x7bV0_1 = "mistral.mixtral-8x7b-instruct-v0:1"
	MistralLarge2402V1     = "mistral.mistral-large-2402-v1:0"

	StabilityStableDiffusionXLV1 = "stability.stable-diffusion-xl-v1"
)

// Family groups models that share a request format.
type Family int

const (
	FamilyClaude Family = iota + 1
	FamilyClaudeCompletion
	FamilyTitan
	FamilyCohere
	FamilyLlama2
	FamilyLlama3
	FamilyMistral
	FamilyStability
)

// prefixes are checked in order, more specific first.
var prefixes = []struct {
	prefix string
	family Family
}{
	{"anthropic.claude-instant", FamilyClaudeCompletion},
	{"anthropic.claude-v2", FamilyClaudeCompletion},
	{"anthropic.claude", FamilyClaude},
	{"amazon.titan-text", FamilyTitan},
	{"cohere.command", FamilyCohere},
	{"meta.llama2", FamilyLlama2},
	{"meta.llama", FamilyLlama3},
	{"mistral.", FamilyMistral},
	{"stability.", FamilyStability},
}

var arnMatchers = []struct {
	re     *regexp.Regexp
	family Family
}{
	{regexp.MustCompile("arn:aws:bedrock.+claude"), FamilyClaude},
	{regexp.MustCompile("arn:aws:bedrock.+titan"), FamilyTitan},
	{regexp.MustCompile("arn:aws:bedrock.+cohere"), FamilyCohere},
	{regexp.MustCompile("arn:aws:bedrock.+llama"), FamilyLlama3},
	{regexp.MustCompile("arn:aws:bedrock.+mistral"), FamilyMistral},
	{regexp.MustCompile("arn:aws:bedrock.+stability"), FamilyStability},
}

// ResolveFamily maps a model id, a cross-region profile id or an ARN to its family.
func ResolveFamily(modelID string) (Family, error) {
	id := strings.TrimSpace(modelID)
	if strings.HasPrefix(id, "arn:") {
		// foundation-model ARNs end with the plain model id
		if i := strings.LastIndex(id, "/"); i >= 0 {
			if f, ok := familyByPrefix(utils.StripCrossRegionPrefix(id[i+1:])); ok {
				return f, nil
			}
		}
		for _, m := range arnMatchers {
			if m.re.MatchString(id) {
				return m.family, nil
			}
		}
		return 0, errors.Errorf("unsupported model ARN %q", modelID)
	}

	if f, ok := familyByPrefix(utils.StripCrossRegionPrefix(id)); ok {
		return f, nil
	}
	return 0, errors.Errorf("unsupported model %q", modelID)
}

func familyByPrefix(id string) (Family, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(id, p.prefix) {
			return p.family, true
		}
	}
	return 0, false
}

// GetProvider returns the chat adaptor for modelID.
func GetProvider(modelID string) (utils.Provider, error) {
	family, err := ResolveFamily(modelID)
	if err != nil {
		return nil, err
	}

	switch family {
	case FamilyClaude:
		return &anthropic.Adaptor{}, nil
	case FamilyClaudeCompletion:
		return &anthropic.CompletionAdaptor{}, nil
	case FamilyTitan:
		return &titan.Adaptor{}, nil
	case FamilyCohere:
		return &cohere.Adaptor{}, nil
	case FamilyLlama2:
		return &llama.Adaptor{Llama2: true}, nil
	case FamilyLlama3:
		return &llama.Adaptor{}, nil
	case FamilyMistral:
		return &mistral.Adaptor{}, nil
	default:
		return nil, errors.Errorf("model %q is not a chat model", modelID)
	}
}

// GetImageProvider returns the image adaptor for modelID.
func GetImageProvider(modelID string) (utils.ImageProvider, error) {
	family, err := ResolveFamily(modelID)
	if err != nil {
		return nil, err
	}
	if family != FamilyStability {
		return nil, errors.Errorf("model %q is not an image model", modelID)
	}
	return &stability.Adaptor{}, nil
}

// ChatModels lists the chat model ids known to this package.
func ChatModels() []string {
	models := []string{
		AnthropicClaudeInstantV1, AnthropicClaudeV2, AnthropicClaudeV2_1,
		AnthropicClaude3HaikuV1, AnthropicClaude3SonnetV1, AnthropicClaude35SonnetV1, AnthropicClaude3OpusV1,
		AmazonTitanTextExpressV1, AmazonTitanTextLiteV1,
		CohereCommandTextV14, CohereCommandLightTextV14,
		MetaLlama2Chat13BV1, MetaLlama2Chat70BV1, MetaLlama3Instruct8B, MetaLlama3Instruct70B,
		Mistral7bInstructV0_2, MistralMixtral8x7bV0_1, MistralLarge2402V1,
	}
	sort.Strings(models)
	return models
}
