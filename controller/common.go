package controller

import (
	"context"
	"net/http"
	"sync"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v5"
	"github.com/aws/smithy-go"
	"github.com/go-playground/validator/v10"

	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/monitor"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/utils"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	// chatModels keeps one ChatModel per model id; per-call parameters are
	// passed as GenerateOptions so the instances can be shared.
	chatModels = gutils.NewExpCache[*bedrock.ChatModel](context.Background(), config.ClientCacheTTL)

	// modelOptions are appended to every model built by the handlers.
	modelOptions []bedrock.Option

	modelHealth = monitor.DefaultHealth()
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

func getChatModel(modelID string) (*bedrock.ChatModel, error) {
	if m, ok := chatModels.Load(modelID); ok {
		return m, nil
	}

	opts := append([]bedrock.Option{bedrock.WithModel(modelID), bedrock.WithHealth(modelHealth)}, modelOptions...)
	m, err := bedrock.NewChatModel(opts...)
	if err != nil {
		return nil, err
	}
	chatModels.Store(modelID, m)
	return m, nil
}

// requestError marks errors caused by the caller.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func invalid(err error) error {
	return &requestError{err: err}
}

// statusOf maps a model error to the HTTP status returned to the caller.
func statusOf(err error) int {
	var (
		reqErr *requestError
		verrs  validator.ValidationErrors
		apiErr smithy.APIError
	)
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, utils.ErrToolsNotSupported),
		errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrModelDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr):
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceQuotaExceededException":
			return http.StatusTooManyRequests
		case "ValidationException":
			return http.StatusBadRequest
		default:
			return http.StatusBadGateway
		}
	default:
		return http.StatusBadGateway
	}
}
