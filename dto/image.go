package dto

import "github.com/songquanpeng/chatkit/relay/model"

type ImageRequest struct {
	Model          string  `json:"model" validate:"required"`
	Prompt         string  `json:"prompt" validate:"required"`
	N              int     `json:"n,omitempty" validate:"gte=0,lte=10"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	Seed           int64   `json:"seed,omitempty" validate:"gte=0"`
	CfgScale       float64 `json:"cfg_scale,omitempty"`
	Steps          int     `json:"steps,omitempty"`
	StylePreset    string  `json:"style_preset,omitempty"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
}

type ImageData struct {
	B64JSON  string `json:"b64_json"`
	MimeType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Seed     int64  `json:"seed"`
}

type ImageResponse struct {
	Model string      `json:"model"`
	Data  []ImageData `json:"data"`
}

func NewImageResponse(modelID string, images []*model.Image) *ImageResponse {
	out := &ImageResponse{Model: modelID, Data: make([]ImageData, 0, len(images))}
	for _, img := range images {
		out.Data = append(out.Data, ImageData{
			B64JSON:  img.Base64Data,
			MimeType: img.MimeType,
			Width:    img.Width,
			Height:   img.Height,
			Seed:     img.Seed,
		})
	}
	return out
}
