package main

import (
	"strings"

	"github.com/Laisky/errors/v2"

	cfg "github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock"
)

// config captures the configuration derived from environment variables.
type config struct {
	Models   []string
	Variants []requestVariant
	// Options are applied to every model, e.g. a region or a fake client.
	Options []bedrock.Option
}

// loadConfig constructs the harness configuration from the shared config package.
func loadConfig() (config, error) {
	models := splitList(cfg.TestModels)
	if len(models) == 0 {
		models = defaultTestModels
	}
	for _, m := range models {
		if _, err := bedrock.GetProvider(m); err != nil {
			return config{}, errors.Wrap(err, "parse models")
		}
	}

	variants, err := parseVariants(cfg.TestVariants)
	if err != nil {
		return config{}, errors.Wrap(err, "parse variants")
	}

	return config{Models: models, Variants: variants}, nil
}

// splitList tokenizes a comma, semicolon, newline or space separated list.
func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	normalized := raw
	for _, sep := range []string{",", ";", "\n", "\r"} {
		normalized = strings.ReplaceAll(normalized, sep, ",")
	}
	parts := strings.Split(normalized, ",")
	if len(parts) == 1 {
		parts = strings.Fields(raw)
	}

	var out []string
	for _, part := range parts {
		if candidate := strings.TrimSpace(part); candidate != "" {
			out = append(out, candidate)
		}
	}
	return out
}

// parseVariants resolves CHATKIT_TEST_VARIANTS into the subset of variants to execute.
func parseVariants(raw string) ([]requestVariant, error) {
	parts := splitList(raw)
	if len(parts) == 0 {
		return requestVariants, nil
	}

	selected := make([]requestVariant, 0, len(requestVariants))
	seen := make(map[variantKind]bool, len(requestVariants))
	for _, candidate := range parts {
		variant, ok := lookupVariant(candidate)
		if !ok {
			return nil, errors.Errorf("unknown variant %q", candidate)
		}
		if !seen[variant.Key] {
			selected = append(selected, variant)
			seen[variant.Key] = true
		}
	}
	return selected, nil
}

func lookupVariant(name string) (requestVariant, bool) {
	for _, v := range requestVariants {
		if strings.EqualFold(name, string(v.Key)) || strings.EqualFold(name, v.Header) {
			return v, true
		}
		for _, alias := range v.Aliases {
			if strings.EqualFold(name, alias) {
				return v, true
			}
		}
	}
	return requestVariant{}, false
}
