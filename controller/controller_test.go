package controller

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gmw "github.com/Laisky/gin-middlewares/v6"
	gutils "github.com/Laisky/go-utils/v5"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/common/helper"
	"github.com/songquanpeng/chatkit/common/logger"
	"github.com/songquanpeng/chatkit/middleware"
	"github.com/songquanpeng/chatkit/monitor"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock"
)

type stubClient struct {
	body  func(in *bedrockruntime.InvokeModelInput) []byte
	err   error
	calls atomic.Int32
}

func (s *stubClient) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput,
	_ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: s.body(in)}, nil
}

func setupTestRouter(t *testing.T, client bedrock.RuntimeClient) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	chatModels = gutils.NewExpCache[*bedrock.ChatModel](context.Background(), time.Minute)
	modelOptions = []bedrock.Option{bedrock.WithClient(client), bedrock.WithMaxRetries(0)}
	modelHealth = monitor.NewHealth(config.MetricQueueSize, config.MetricSuccessRateThreshold, time.Hour)
	t.Cleanup(func() { modelOptions = nil })

	router := gin.New()
	router.Use(gmw.NewLoggerMiddleware(gmw.WithLogger(logger.Logger.Named("gin"))), middleware.RequestId())
	router.GET("/v1/status", GetStatus)
	router.GET("/v1/models", ListModels)
	router.POST("/v1/models/:id/enable", EnableModel)
	router.POST("/v1/chat", Chat)
	router.POST("/v1/images", GenerateImages)
	router.GET("/v1/parsers", ListParsers)
	router.POST("/v1/parse", Parse)
	return router
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestParse(t *testing.T) {
	router := setupTestRouter(t, &stubClient{})

	cases := []struct {
		body  string
		value any
	}{
		{`{"type":"short","text":" 42\n"}`, float64(42)},
		{`{"type":"boolean","text":"TRUE"}`, true},
		{`{"type":"big_integer","text":"123456789012345678901234567890"}`, "123456789012345678901234567890"},
		{`{"type":"date","text":"2024-03-09"}`, "2024-03-09"},
		{`{"type":"string","text":"  hi "}`, "hi"},
	}
	for _, tc := range cases {
		w := do(router, http.MethodPost, "/v1/parse", tc.body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.Equal(t, tc.value, decode(t, w)["value"], tc.body)
	}

	w := do(router, http.MethodPost, "/v1/parse", `{"type":"short","text":"40000"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	detail := decode(t, w)["error"].(map[string]any)
	require.Equal(t, "40000", detail["input"])
	require.Equal(t, "int16", detail["type"])
	require.Equal(t, "out of range", detail["reason"])

	w = do(router, http.MethodPost, "/v1/parse", `{"type":"short","text":"forty"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "not a number", decode(t, w)["error"].(map[string]any)["reason"])

	w = do(router, http.MethodPost, "/v1/parse", `{"type":"complex","text":"1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotEmpty(t, w.Header().Get(helper.RequestIdKey))

	w = do(router, http.MethodPost, "/v1/parse", `{"text":"1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListParsers(t *testing.T) {
	router := setupTestRouter(t, &stubClient{})

	w := do(router, http.MethodGet, "/v1/parsers", "")
	require.Equal(t, http.StatusOK, w.Code)

	instructions := map[string]string{}
	for _, item := range decode(t, w)["data"].([]any) {
		m := item.(map[string]any)
		instructions[m["type"].(string)] = m["format_instructions"].(string)
	}
	require.Equal(t, "integer number in range [-32768, 32767]", instructions["short"])
	require.Contains(t, instructions, "datetime")
}

func TestChat(t *testing.T) {
	client := &stubClient{body: func(*bedrockruntime.InvokeModelInput) []byte {
		return []byte(`{"content":[{"type":"text","text":"Paris"}],"stop_reason":"end_turn","usage":{"input_tokens":12,"output_tokens":1}}`)
	}}
	router := setupTestRouter(t, client)

	w := do(router, http.MethodPost, "/v1/chat", `{
		"model": "anthropic.claude-3-haiku-20240307-v1:0",
		"messages": [
			{"role": "system", "content": "answer with one word"},
			{"role": "user", "content": "capital of France?"}
		],
		"max_tokens": 16
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	require.Equal(t, "Paris", out["content"])
	require.Equal(t, "STOP", out["finish_reason"])
	require.Equal(t, float64(13), out["usage"].(map[string]any)["total_token_count"])
	require.Equal(t, int32(1), client.calls.Load())

	// the model instance is reused across requests
	w = do(router, http.MethodPost, "/v1/chat",
		`{"model":"anthropic.claude-3-haiku-20240307-v1:0","messages":[{"role":"user","content":"again"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	_, ok := chatModels.Load("anthropic.claude-3-haiku-20240307-v1:0")
	require.True(t, ok)
}

func TestChatRejections(t *testing.T) {
	client := &stubClient{body: func(*bedrockruntime.InvokeModelInput) []byte { return []byte(`{}`) }}
	router := setupTestRouter(t, client)

	tools := `"tools":[{"name":"calculator","parameters":{"properties":{"a":{"type":"integer"}},"required":["a"]}}]`
	w := do(router, http.MethodPost, "/v1/chat",
		`{"model":"amazon.titan-text-express-v1","messages":[{"role":"user","content":"1+1"}],`+tools+`}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Tools are currently not supported by this model")

	for _, body := range []string{
		`not json`,
		`{"model":"amazon.titan-text-express-v1","messages":[]}`,
		`{"model":"amazon.titan-text-express-v1","messages":[{"role":"robot","content":"x"}]}`,
		`{"model":"openai.gpt-4","messages":[{"role":"user","content":"x"}]}`,
		`{"model":"amazon.titan-text-express-v1","messages":[{"role":"user","content":"x"}],"temperature":3}`,
		`{"model":"anthropic.claude-3-haiku-20240307-v1:0","messages":[{"role":"user","content":"x"}],` + tools + `,"tool_choice":"weather"}`,
	} {
		w := do(router, http.MethodPost, "/v1/chat", body)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	require.Zero(t, client.calls.Load())
}

func TestGenerateImages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 4))))
	b64 := base64.StdEncoding.EncodeToString(buf.Bytes())

	client := &stubClient{body: func(*bedrockruntime.InvokeModelInput) []byte {
		out, _ := json.Marshal(map[string]any{
			"result":    "success",
			"artifacts": []map[string]any{{"seed": 7, "base64": b64, "finishReason": "SUCCESS"}},
		})
		return out
	}}
	router := setupTestRouter(t, client)

	w := do(router, http.MethodPost, "/v1/images", `{"model":"stability.stable-diffusion-xl-v1","prompt":"a fox","n":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].([]any)
	require.Len(t, data, 2)
	first := data[0].(map[string]any)
	require.Equal(t, "image/png", first["mime_type"])
	require.Equal(t, float64(8), first["width"])

	w = do(router, http.MethodPost, "/v1/images", `{"model":"anthropic.claude-3-haiku-20240307-v1:0","prompt":"a fox"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListModels(t *testing.T) {
	router := setupTestRouter(t, &stubClient{})

	w := do(router, http.MethodGet, "/v1/models", "")
	require.Equal(t, http.StatusOK, w.Code)
	found := map[string]map[string]any{}
	for _, item := range decode(t, w)["data"].([]any) {
		m := item.(map[string]any)
		found[m["id"].(string)] = m
	}
	require.Equal(t, true, found[bedrock.AnthropicClaude3SonnetV1]["supports_tools"])
	require.Equal(t, false, found[bedrock.MetaLlama3Instruct8B]["supports_tools"])
	require.Equal(t, true, found[bedrock.StabilityStableDiffusionXLV1]["image"])
}

func TestModelHealth(t *testing.T) {
	original := config.AutomaticDisableModelEnabled
	config.AutomaticDisableModelEnabled = true
	t.Cleanup(func() { config.AutomaticDisableModelEnabled = original })

	client := &stubClient{err: &smithy.GenericAPIError{
		Code:    "AccessDeniedException",
		Message: "You don't have access to the model with the specified model ID.",
	}}
	router := setupTestRouter(t, client)
	const modelID = "amazon.titan-text-express-v1"
	body := `{"model":"` + modelID + `","messages":[{"role":"user","content":"hi"}]}`

	w := do(router, http.MethodPost, "/v1/chat", body)
	require.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())

	// access denied takes the model out of service at once
	w = do(router, http.MethodPost, "/v1/chat", body)
	require.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "model is disabled")
	require.Equal(t, int32(1), client.calls.Load())

	w = do(router, http.MethodGet, "/v1/models", "")
	require.Contains(t, w.Body.String(), `"disabled_reason"`)

	w = do(router, http.MethodPost, "/v1/models/"+modelID+"/enable", "")
	require.Equal(t, http.StatusOK, w.Code)

	client.err = nil
	client.body = func(*bedrockruntime.InvokeModelInput) []byte {
		return []byte(`{"inputTextTokenCount":3,"results":[{"tokenCount":2,"outputText":"hello","completionReason":"FINISH"}]}`)
	}
	w = do(router, http.MethodPost, "/v1/chat", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(router, http.MethodPost, "/v1/models/openai.gpt-4/enable", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStatus(t *testing.T) {
	router := setupTestRouter(t, &stubClient{})

	w := do(router, http.MethodGet, "/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	require.Equal(t, config.AWSRegion, data["region"])
	require.Equal(t, false, data["draining"])
	require.Contains(t, data, "version")
}
