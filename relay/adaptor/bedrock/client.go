// Package bedrock runs chat and image models on Amazon Bedrock through the
// InvokeModel API, translating the uniform message model into each vendor's
// native body.
package bedrock

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/Laisky/errors/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/songquanpeng/chatkit/common/config"
)

// RuntimeClient is the part of the Bedrock runtime API used here.
type RuntimeClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput,
		optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

var _ RuntimeClient = (*bedrockruntime.Client)(nil)

var (
	clientCache = gocache.New(config.ClientCacheTTL, config.ClientCacheTTL)
	clientGroup singleflight.Group
)

// NewRuntimeClient loads the AWS configuration for opts and builds a client.
func NewRuntimeClient(ctx context.Context, opts *Options) (*bedrockruntime.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithRetryMaxAttempts(opts.MaxRetries + 1),
		awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(opts.Timeout)),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

// clientCacheKey identifies clients that can be shared. The secret is hashed
// so it never sits in the cache key in clear text.
func clientCacheKey(opts *Options) string {
	secret := sha256.Sum256([]byte(opts.SecretAccessKey + "\x00" + opts.SessionToken))
	return fmt.Sprintf("%s|%s|%x|%d|%s",
		opts.Region, opts.AccessKeyID, secret[:8], opts.MaxRetries, opts.Timeout)
}

// getRuntimeClient returns opts.Client when set, otherwise a cached client.
// Concurrent first loads of the same key share one LoadDefaultConfig.
func getRuntimeClient(ctx context.Context, opts *Options) (RuntimeClient, error) {
	if opts.Client != nil {
		return opts.Client, nil
	}

	key := clientCacheKey(opts)
	if cli, ok := clientCache.Get(key); ok {
		return cli.(RuntimeClient), nil
	}

	v, err, _ := clientGroup.Do(key, func() (any, error) {
		if cli, ok := clientCache.Get(key); ok {
			return cli, nil
		}
		cli, err := NewRuntimeClient(ctx, opts)
		if err != nil {
			return nil, err
		}
		clientCache.SetDefault(key, cli)
		return cli, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create bedrock client for region %s", opts.Region)
	}
	return v.(RuntimeClient), nil
}

// invokeModel sends body to modelID and returns the raw response body.
func invokeModel(ctx context.Context, client RuntimeClient, modelID string, body []byte) ([]byte, error) {
	out, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}
