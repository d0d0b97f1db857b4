package main

import (
	"context"
	"sync"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/songquanpeng/chatkit/relay/adaptor/bedrock"
)

// run orchestrates the regression sweep across the configured models and variants.
func run(ctx context.Context, logger glog.Logger, cfg config) (report, error) {
	variantLabels := make([]string, 0, len(cfg.Variants))
	for _, v := range cfg.Variants {
		variantLabels = append(variantLabels, v.Header)
	}
	logger.Info("starting Bedrock regression sweep",
		zap.Int("model_count", len(cfg.Models)),
		zap.Int("variant_count", len(cfg.Variants)),
		zap.Strings("variants", variantLabels),
	)

	resultsCh := make(chan testResult, len(cfg.Models)*len(cfg.Variants))
	var (
		results   []testResult
		collectWg sync.WaitGroup
	)
	collectWg.Add(1)
	go func() {
		defer collectWg.Done()
		for res := range resultsCh {
			results = append(results, res)
			logResult(logger, res)
		}
	}()

	grp, grpCtx := errgroup.WithContext(ctx)
	for _, modelID := range cfg.Models {
		grp.Go(func() error {
			opts := append([]bedrock.Option{
				bedrock.WithModel(modelID),
				bedrock.WithMaxTokens(defaultMaxTokens),
				bedrock.WithTemperature(0),
				bedrock.WithLogger(logger.Named("bedrock")),
			}, cfg.Options...)
			chat, err := bedrock.NewChatModel(opts...)
			if err != nil {
				return errors.Wrapf(err, "create model %s", modelID)
			}
			executeModelSweep(grpCtx, chat, cfg.Variants, resultsCh)
			return nil
		})
	}

	err := grp.Wait()
	close(resultsCh)
	collectWg.Wait()
	if err != nil {
		return report{}, errors.Wrap(err, "await model sweeps")
	}

	return buildReport(cfg.Models, cfg.Variants, results), nil
}

// executeModelSweep runs all variants for a particular model and publishes the results.
func executeModelSweep(ctx context.Context, chat chatModel, variants []requestVariant, results chan<- testResult) {
	innerGrp, innerCtx := errgroup.WithContext(ctx)
	for _, variant := range variants {
		innerGrp.Go(func() error {
			res := executeVariant(innerCtx, chat, variant)
			select {
			case results <- res:
			case <-innerCtx.Done():
			}
			return nil
		})
	}
	_ = innerGrp.Wait()
}

func logResult(logger glog.Logger, res testResult) {
	fields := []zap.Field{
		zap.String("model", res.Model),
		zap.String("variant", res.Label),
	}
	switch {
	case res.Success:
		logger.Info("request succeeded", append(fields, zap.Duration("duration", res.Duration))...)
	case res.Skipped:
		logger.Info("request skipped", append(fields, zap.String("reason", res.ErrorReason))...)
	default:
		logger.Warn("request failed", append(fields,
			zap.Duration("duration", res.Duration),
			zap.String("error", res.ErrorReason),
			zap.String("reply", res.Reply))...)
	}
}
