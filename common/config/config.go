package config

import (
	"strings"
	"time"

	"github.com/songquanpeng/chatkit/common/env"
)

var (
	// DebugEnabled toggles verbose structured logging when DEBUG=true.
	DebugEnabled = env.Bool("DEBUG", false)
	// LogDir mirrors logs into a file under this directory when set.
	LogDir = strings.TrimSpace(env.String("LOG_DIR", ""))
	// OnlyOneLogFile writes every day into the same log file when true.
	OnlyOneLogFile = env.Bool("ONLY_ONE_LOG_FILE", false)

	// ServerPort is the listen port of the HTTP server.
	ServerPort = strings.TrimSpace(env.String("PORT", "3000"))
	// GinMode allows forcing Gin into release mode (or other modes) without recompiling.
	GinMode = strings.TrimSpace(env.String("GIN_MODE", ""))
	// ShutdownTimeout bounds how long the server waits for in-flight requests on exit.
	ShutdownTimeout = env.Duration("SHUTDOWN_TIMEOUT", 30*time.Second)
	// EnablePrometheusMetrics exposes the /metrics endpoint for Prometheus scrapers when true.
	EnablePrometheusMetrics = env.Bool("ENABLE_PROMETHEUS_METRICS", true)

	// AWSRegion is the Bedrock region used when a model does not set one.
	AWSRegion = env.String("AWS_REGION", "us-east-1")
	// AWSAccessKeyID and AWSSecretAccessKey are optional static credentials; the default
	// AWS credential chain is used when they are empty.
	AWSAccessKeyID     = env.String("AWS_ACCESS_KEY_ID", "")
	AWSSecretAccessKey = env.String("AWS_SECRET_ACCESS_KEY", "")

	// BedrockTimeout bounds a single InvokeModel HTTP call.
	BedrockTimeout = env.Duration("BEDROCK_TIMEOUT", time.Minute)
	// BedrockMaxRetries is the number of retries handed to the AWS SDK retryer.
	BedrockMaxRetries = env.Int("BEDROCK_MAX_RETRIES", 5)
	// BedrockCrossRegion routes supported models through their cross-region inference profile.
	BedrockCrossRegion = env.Bool("BEDROCK_CROSS_REGION", false)
	// ClientCacheTTL controls how long a loaded Bedrock runtime client is reused.
	ClientCacheTTL = env.Duration("CLIENT_CACHE_TTL", 30*time.Minute)

	// DefaultMaxToken enforces a global max token value when model-specific limits are unknown.
	DefaultMaxToken = env.Int("DEFAULT_MAX_TOKEN", 2048)
	// ApproximateTokenEnabled toggles approximate token counting when exact counts are unavailable.
	ApproximateTokenEnabled = env.Bool("APPROXIMATE_TOKEN", false)
	// TokenEncoding is the tiktoken encoding used to estimate usage for vendors that do not report it.
	TokenEncoding = env.String("TOKEN_ENCODING", "cl100k_base")

	// AutomaticDisableModelEnabled lets the health monitor take a failing model out of service.
	AutomaticDisableModelEnabled = env.Bool("AUTOMATIC_DISABLE_MODEL_ENABLED", false)
	// MetricQueueSize is the number of recent invocations used to compute a model's success rate.
	MetricQueueSize = env.Int("METRIC_QUEUE_SIZE", 10)
	// MetricSuccessRateThreshold is the success rate below which a model is considered unhealthy.
	MetricSuccessRateThreshold = env.Float64("METRIC_SUCCESS_RATE_THRESHOLD", 0.8)
	// ModelDisableCooldown is how long a disabled model waits before a trial request is let through.
	ModelDisableCooldown = env.Duration("MODEL_DISABLE_COOLDOWN", time.Minute)

	// TestModels and TestVariants select what cmd/test sweeps; empty means the defaults.
	TestModels   = env.String("CHATKIT_TEST_MODELS", "")
	TestVariants = env.String("CHATKIT_TEST_VARIANTS", "")

	// MaxInlineImageSizeMB limits the size (MB) of images that can be inlined as base64.
	MaxInlineImageSizeMB = env.Int("MAX_INLINE_IMAGE_SIZE_MB", 30)
)
