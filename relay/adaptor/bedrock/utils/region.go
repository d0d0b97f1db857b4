package utils

import (
	"strings"
)

// crossRegionPrefixes are the inference profile prefixes Bedrock puts in front of a model id.
var crossRegionPrefixes = []string{"us-gov.", "us.", "eu.", "apac.", "jp."}

// crossRegionModels lists the model families served through cross-region inference profiles.
var crossRegionModels = []string{
	"anthropic.claude-3",
	"anthropic.claude-sonnet-4",
	"anthropic.claude-opus-4",
	"meta.llama3-1",
	"meta.llama3-2",
	"meta.llama3-3",
	"mistral.pixtral",
}

// getRegionPrefix maps an AWS region to its cross-region inference profile prefix.
func getRegionPrefix(region string) string {
	switch {
	case strings.HasPrefix(region, "us-gov-"):
		return "us-gov"
	case strings.HasPrefix(region, "us-"), strings.HasPrefix(region, "ca-"), strings.HasPrefix(region, "sa-"):
		return "us"
	case strings.HasPrefix(region, "eu-"):
		return "eu"
	case strings.HasPrefix(region, "ap-northeast-1"):
		return "jp"
	case strings.HasPrefix(region, "ap-"):
		return "apac"
	default:
		return ""
	}
}

// StripCrossRegionPrefix returns the base model id of a cross-region profile id.
func StripCrossRegionPrefix(modelID string) string {
	for _, p := range crossRegionPrefixes {
		if strings.HasPrefix(modelID, p) {
			return strings.TrimPrefix(modelID, p)
		}
	}
	return modelID
}

// ConvertModelID2CrossRegionProfile prefixes modelID with the profile of region when
// the model family is served cross-region. Ids that already carry a prefix, ARNs and
// unknown regions are returned unchanged.
func ConvertModelID2CrossRegionProfile(modelID, region string) string {
	if strings.HasPrefix(modelID, "arn:") || StripCrossRegionPrefix(modelID) != modelID {
		return modelID
	}
	prefix := getRegionPrefix(region)
	if prefix == "" {
		return modelID
	}
	for _, family := range crossRegionModels {
		if strings.HasPrefix(modelID, family) {
			return prefix + "." + modelID
		}
	}
	return modelID
}
