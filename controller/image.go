package controller

import (
	"net/http"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/chatkit/common/ctxkey"
	"github.com/songquanpeng/chatkit/dto"
	"github.com/songquanpeng/chatkit/middleware"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock"
	"github.com/songquanpeng/chatkit/relay/model"
)

// GenerateImages answers POST /v1/images.
func GenerateImages(c *gin.Context) {
	var req dto.ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.Wrap(err, "decode image request"))
		return
	}
	if err := getValidator().Struct(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.Wrap(err, "invalid image request"))
		return
	}
	c.Set(ctxkey.RequestModel, req.Model)

	opts := append([]bedrock.Option{
		bedrock.WithModel(req.Model),
		bedrock.WithHealth(modelHealth),
		bedrock.WithSeed(req.Seed),
		bedrock.WithCfgScale(req.CfgScale),
		bedrock.WithSteps(req.Steps),
		bedrock.WithStylePreset(req.StylePreset),
		bedrock.WithNegativePrompt(req.NegativePrompt),
	}, modelOptions...)
	if req.Width > 0 || req.Height > 0 {
		opts = append(opts, bedrock.WithImageSize(req.Width, req.Height))
	}
	im, err := bedrock.NewImageModel(opts...)
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, err)
		return
	}

	n := req.N
	if n == 0 {
		n = 1
	}
	var images []*model.Image
	if n == 1 {
		resp, err := im.Generate(gmw.Ctx(c), req.Prompt)
		if err != nil {
			middleware.AbortWithError(c, statusOf(err), err)
			return
		}
		images = []*model.Image{resp.Content}
	} else {
		resp, err := im.GenerateN(gmw.Ctx(c), req.Prompt, n)
		if err != nil {
			middleware.AbortWithError(c, statusOf(err), err)
			return
		}
		images = resp.Content
	}

	gmw.GetLogger(c).Debug("images generated", zap.String("model", req.Model), zap.Int("count", len(images)))
	c.JSON(http.StatusOK, dto.NewImageResponse(req.Model, images))
}
