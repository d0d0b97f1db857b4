package controller

import (
	"net/http"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/chatkit/common/ctxkey"
	"github.com/songquanpeng/chatkit/common/tracing"
	"github.com/songquanpeng/chatkit/dto"
	"github.com/songquanpeng/chatkit/middleware"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock"
)

// Chat answers POST /v1/chat.
func Chat(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.Wrap(err, "decode chat request"))
		return
	}
	if err := getValidator().Struct(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.Wrap(err, "invalid chat request"))
		return
	}
	c.Set(ctxkey.RequestModel, req.Model)
	lg := gmw.GetLogger(c).With(tracing.Fields(c, zap.String("model", req.Model))...)

	resp, err := generateChat(c, &req)
	if err != nil {
		middleware.AbortWithError(c, statusOf(err), err)
		return
	}

	lg.Debug("chat completed",
		zap.String("finish_reason", string(resp.FinishReason)),
		zap.Int("tool_calls", len(resp.ToolCalls)))
	c.JSON(http.StatusOK, resp)
}

func generateChat(c *gin.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	messages, err := req.ChatMessages()
	if err != nil {
		return nil, invalid(err)
	}
	tools, choice, err := req.ToolSpecifications()
	if err != nil {
		return nil, invalid(err)
	}
	chat, err := getChatModel(req.Model)
	if err != nil {
		return nil, invalid(err)
	}

	start := time.Now()
	resp, err := chat.GenerateWithOptions(gmw.Ctx(c), messages, tools, choice, &bedrock.GenerateOptions{
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		TopK:          req.TopK,
		StopSequences: req.Stop,
	})
	if err != nil {
		return nil, err
	}

	gmw.GetLogger(c).Debug("model replied",
		zap.String("model", req.Model),
		zap.Duration("elapsed", time.Since(start)))
	return dto.NewChatResponse(req.Model, resp), nil
}
