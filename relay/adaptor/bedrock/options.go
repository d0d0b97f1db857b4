package bedrock

import (
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"

	"github.com/songquanpeng/chatkit/common/config"
	"github.com/songquanpeng/chatkit/common/logger"
	"github.com/songquanpeng/chatkit/monitor"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/utils"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Options configure a ChatModel or ImageModel.
type Options struct {
	Region     string        `validate:"required"`
	Model      string        `validate:"required"`
	MaxRetries int           `validate:"gte=0,lte=20"`
	Timeout    time.Duration `validate:"gt=0"`

	MaxTokens     int      `validate:"gt=0"`
	Temperature   *float64 `validate:"omitempty,gte=0,lte=1"`
	TopP          *float64 `validate:"omitempty,gte=0,lte=1"`
	TopK          *int     `validate:"omitempty,gt=0"`
	StopSequences []string `validate:"omitempty,max=4,dive,required"`

	// image generation
	Width          int     `validate:"omitempty,gte=128,lte=1536"`
	Height         int     `validate:"omitempty,gte=128,lte=1536"`
	CfgScale       float64 `validate:"omitempty,gte=0,lte=35"`
	Steps          int     `validate:"omitempty,gte=10,lte=150"`
	Seed           int64   `validate:"gte=0"`
	StylePreset    string
	NegativePrompt string

	AccessKeyID     string `validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `validate:"required_with=AccessKeyID"`
	SessionToken    string
	// CrossRegion routes supported models through the region's inference profile.
	CrossRegion bool

	Client RuntimeClient   `validate:"-"`
	Logger glog.Logger     `validate:"-"`
	Health *monitor.Health `validate:"-"`
}

type Option func(*Options)

func newOptions(opts ...Option) *Options {
	o := &Options{
		Region:          config.AWSRegion,
		MaxRetries:      config.BedrockMaxRetries,
		Timeout:         config.BedrockTimeout,
		MaxTokens:       config.DefaultMaxToken,
		AccessKeyID:     config.AWSAccessKeyID,
		SecretAccessKey: config.AWSSecretAccessKey,
		CrossRegion:     config.BedrockCrossRegion,
		Logger:          logger.Logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.Health == nil {
		o.Health = monitor.DefaultHealth()
	}
	return o
}

// Validate checks the options are within the ranges Bedrock accepts.
func (o *Options) Validate() error {
	if err := getValidator().Struct(o); err != nil {
		return errors.Wrap(err, "invalid bedrock options")
	}
	return nil
}

func WithRegion(region string) Option {
	return func(o *Options) { o.Region = region }
}

func WithModel(modelID string) Option {
	return func(o *Options) { o.Model = modelID }
}

func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

func WithTemperature(v float64) Option {
	return func(o *Options) { o.Temperature = &v }
}

func WithTopP(v float64) Option {
	return func(o *Options) { o.TopP = &v }
}

func WithTopK(v int) Option {
	return func(o *Options) { o.TopK = &v }
}

func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = n }
}

func WithStopSequences(stops ...string) Option {
	return func(o *Options) { o.StopSequences = stops }
}

// WithCredentials sets static credentials instead of the default AWS chain.
func WithCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(o *Options) {
		o.AccessKeyID = accessKeyID
		o.SecretAccessKey = secretAccessKey
		o.SessionToken = sessionToken
	}
}

func WithCrossRegion(enabled bool) Option {
	return func(o *Options) { o.CrossRegion = enabled }
}

// WithClient bypasses client loading, mostly for tests.
func WithClient(client RuntimeClient) Option {
	return func(o *Options) { o.Client = client }
}

// WithHealth replaces the process wide health tracker.
func WithHealth(h *monitor.Health) Option {
	return func(o *Options) { o.Health = h }
}

func WithLogger(lg glog.Logger) Option {
	return func(o *Options) { o.Logger = lg }
}

func WithImageSize(width, height int) Option {
	return func(o *Options) {
		o.Width = width
		o.Height = height
	}
}

func WithCfgScale(v float64) Option {
	return func(o *Options) { o.CfgScale = v }
}

func WithSteps(n int) Option {
	return func(o *Options) { o.Steps = n }
}

func WithSeed(seed int64) Option {
	return func(o *Options) { o.Seed = seed }
}

func WithStylePreset(preset string) Option {
	return func(o *Options) { o.StylePreset = preset }
}

func WithNegativePrompt(prompt string) Option {
	return func(o *Options) { o.NegativePrompt = prompt }
}

// GenerateOptions override the model defaults for a single call.
// Zero fields keep the default.
type GenerateOptions struct {
	MaxTokens     int      `validate:"gte=0"`
	Temperature   *float64 `validate:"omitempty,gte=0,lte=1"`
	TopP          *float64 `validate:"omitempty,gte=0,lte=1"`
	TopK          *int     `validate:"omitempty,gt=0"`
	StopSequences []string `validate:"omitempty,max=4,dive,required"`
}

// parameters merges override onto the defaults of o.
func (o *Options) parameters(modelID string, override *GenerateOptions) (*utils.Parameters, error) {
	params := &utils.Parameters{
		ModelID:       modelID,
		MaxTokens:     o.MaxTokens,
		Temperature:   clonePtr(o.Temperature),
		TopP:          clonePtr(o.TopP),
		TopK:          clonePtr(o.TopK),
		StopSequences: append([]string(nil), o.StopSequences...),
	}
	if override == nil {
		return params, nil
	}

	if err := getValidator().Struct(override); err != nil {
		return nil, errors.Wrap(err, "invalid generate options")
	}
	if err := copier.CopyWithOption(params, override, copier.Option{IgnoreEmpty: true}); err != nil {
		return nil, errors.Wrap(err, "merge generate options")
	}
	return params, nil
}

// clonePtr keeps copier from writing through to the defaults.
func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (o *Options) imageParameters(modelID string) *utils.ImageParameters {
	return &utils.ImageParameters{
		ModelID:        modelID,
		Width:          o.Width,
		Height:         o.Height,
		CfgScale:       o.CfgScale,
		Steps:          o.Steps,
		Seed:           o.Seed,
		StylePreset:    o.StylePreset,
		NegativePrompt: o.NegativePrompt,
		Samples:        1,
	}
}
