package bedrock

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/songquanpeng/chatkit/monitor"
	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock/utils"
	"github.com/songquanpeng/chatkit/relay/model"
)

// maxImagesPerCall is how many images a single stability request may return.
const maxImagesPerCall = 1

// ImageModel generates images with one Bedrock model.
type ImageModel struct {
	opts     *Options
	provider utils.ImageProvider
	health   *monitor.Health
}

func NewImageModel(opts ...Option) (*ImageModel, error) {
	o := newOptions(opts...)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	provider, err := GetImageProvider(o.Model)
	if err != nil {
		return nil, err
	}
	return &ImageModel{opts: o, provider: provider, health: o.Health}, nil
}

func (m *ImageModel) ModelID() string        { return m.opts.Model }
func (m *ImageModel) Timeout() time.Duration { return m.opts.Timeout }

// Generate creates one image for prompt.
func (m *ImageModel) Generate(ctx context.Context, prompt string) (*model.Response[*model.Image], error) {
	images, err := m.generate(ctx, prompt, m.opts.Seed)
	if err != nil {
		return nil, err
	}
	return model.NewResponse(images[0], nil, model.FinishReasonStop), nil
}

// GenerateN creates n images concurrently. Seeds are derived from the
// configured seed so the batch is reproducible when a seed is set.
func (m *ImageModel) GenerateN(ctx context.Context, prompt string, n int) (*model.Response[[]*model.Image], error) {
	if n <= 0 {
		return nil, errors.Errorf("n must be positive, got %d", n)
	}

	results := make([][]*model.Image, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			seed := m.opts.Seed
			if seed != 0 {
				seed += int64(i)
			}
			images, err := m.generate(gctx, prompt, seed)
			if err != nil {
				return errors.Wrapf(err, "image %d", i)
			}
			results[i] = images
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]*model.Image, 0, n*maxImagesPerCall)
	for _, images := range results {
		all = append(all, images...)
	}
	return model.NewResponse(all, nil, model.FinishReasonStop), nil
}

func (m *ImageModel) generate(ctx context.Context, prompt string, seed int64) ([]*model.Image, error) {
	params := m.opts.imageParameters(m.opts.Model)
	params.Seed = seed
	req, err := m.provider.ConvertImageRequest(prompt, params)
	if err != nil {
		return nil, errors.Wrapf(err, "convert image request for %s", m.opts.Model)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	client, err := getRuntimeClient(ctx, m.opts)
	if err != nil {
		return nil, err
	}

	if reason, ok := m.health.Allow(m.opts.Model); !ok {
		return nil, errors.Wrapf(utils.ErrModelDisabled, "%s (%s)", m.opts.Model, reason)
	}
	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	start := time.Now()
	body, err := invokeModel(ctx, client, m.opts.Model, payload)
	elapsed := time.Since(start)
	monitor.RecordInvocation(m.opts.Model, m.provider.Name(), err, elapsed)
	m.health.Emit(m.opts.Model, err)
	if err != nil {
		return nil, errors.Wrapf(err, "invoke model %s", m.opts.Model)
	}

	images, err := m.provider.ConvertImageResponse(body)
	if err != nil {
		return nil, errors.Wrapf(err, "convert response of %s", m.opts.Model)
	}
	m.opts.Logger.Debug("generated images",
		zap.String("model", m.opts.Model),
		zap.Int("count", len(images)),
		zap.Duration("elapsed", elapsed))
	return images, nil
}
