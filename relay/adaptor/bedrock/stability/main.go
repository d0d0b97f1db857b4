// Package stability converts image generation requests for Stability AI SDXL.
package stability

import (
	"encoding/json"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/utils"
	"github.com/songquanpeng/chatkit/relay/model"
)

const (
	defaultCfgScale = 7
	defaultSteps    = 30
	defaultSize     = 1024
)

type Request struct {
	TextPrompts []TextPrompt `json:"text_prompts"`
	CfgScale    float64      `json:"cfg_scale"`
	Seed        int64        `json:"seed"`
	Steps       int          `json:"steps"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Samples     int          `json:"samples"`
	StylePreset string       `json:"style_preset,omitempty"`
}

type TextPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type Response struct {
	Result    string     `json:"result"`
	Artifacts []Artifact `json:"artifacts"`
}

type Artifact struct {
	Seed         int64  `json:"seed"`
	Base64       string `json:"base64"`
	FinishReason string `json:"finishReason"`
}

var _ utils.ImageProvider = new(Adaptor)

type Adaptor struct{}

func (a *Adaptor) Name() string { return "stability" }

func (a *Adaptor) ConvertImageRequest(prompt string, params *utils.ImageParameters) (any, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt is empty")
	}
	if params == nil {
		params = &utils.ImageParameters{}
	}

	req := &Request{
		TextPrompts: []TextPrompt{{Text: prompt, Weight: 1}},
		CfgScale:    params.CfgScale,
		Seed:        params.Seed,
		Steps:       params.Steps,
		Width:       params.Width,
		Height:      params.Height,
		Samples:     params.Samples,
		StylePreset: params.StylePreset,
	}
	if params.NegativePrompt != "" {
		req.TextPrompts = append(req.TextPrompts, TextPrompt{Text: params.NegativePrompt, Weight: -1})
	}
	if req.CfgScale == 0 {
		req.CfgScale = defaultCfgScale
	}
	if req.Steps == 0 {
		req.Steps = defaultSteps
	}
	if req.Width == 0 {
		req.Width = defaultSize
	}
	if req.Height == 0 {
		req.Height = defaultSize
	}
	if req.Samples == 0 {
		req.Samples = 1
	}
	return req, nil
}

func (a *Adaptor) ConvertImageResponse(body []byte) ([]*model.Image, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "unmarshal stability response")
	}
	if len(resp.Artifacts) == 0 {
		return nil, errors.Errorf("stability response has no artifacts, result %q", resp.Result)
	}

	images := make([]*model.Image, 0, len(resp.Artifacts))
	for i, art := range resp.Artifacts {
		switch art.FinishReason {
		case "CONTENT_FILTERED":
			return nil, errors.Errorf("artifact %d was filtered by the content policy", i)
		case "ERROR":
			return nil, errors.Errorf("artifact %d failed to generate", i)
		}

		info, err := utils.DecodeImageConfig(art.Base64)
		if err != nil {
			return nil, errors.Wrapf(err, "artifact %d", i)
		}
		images = append(images, &model.Image{
			Base64Data: art.Base64,
			MimeType:   info.MimeType,
			Width:      info.Width,
			Height:     info.Height,
			Seed:       art.Seed,
		})
	}
	return images, nil
}
