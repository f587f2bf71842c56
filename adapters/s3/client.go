package s3

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/cenkalti/backoff/v4"
	"github.com/gostratum/core/logx"
)

// API is the subset of the S3 client the disk talks to
type API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Presigner signs GET requests for temporary URLs
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var (
	_ API       = (*s3.Client)(nil)
	_ Presigner = (*s3.PresignClient)(nil)
)

// newClient builds the S3 service client for cfg
func newClient(ctx context.Context, cfg *Config, logger logx.Logger) (*s3.Client, error) {
	logger.Debug("Creating S3 client",
		logx.Any("bucket", cfg.Bucket),
		logx.Any("region", cfg.Region),
		logx.Any("endpoint", cfg.Endpoint),
		logx.Any("use_path_style", cfg.UsePathStyle),
	)

	awsConfig, credSource, err := buildAWSConfigWithLoader(ctx, cfg, logger, func(ctx context.Context, opts ...func(*config.LoadOptions) error) (aws.Config, error) {
		return config.LoadDefaultConfig(ctx, opts...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	logger.Info("Credential source selected", logx.Any("cred_source", credSource))

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle

		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL())
			// S3-compatible servers often reject the flexible checksum headers
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}

		o.HTTPClient = &http.Client{
			Timeout: cfg.RequestTimeout,
		}
	})

	return client, nil
}

// awsConfigLoader is a function that loads an aws.Config given LoadOptions.
type awsConfigLoader func(ctx context.Context, opts ...func(*config.LoadOptions) error) (aws.Config, error)

// buildAWSConfigWithLoader builds an AWS config using the supplied loader.
// It returns the loaded aws.Config and the detected credential source (one of:
// "static", "profile", "sdk-default", "assumed-role").
func buildAWSConfigWithLoader(ctx context.Context, cfg *Config, logger logx.Logger, loader awsConfigLoader) (aws.Config, string, error) {
	var options []func(*config.LoadOptions) error
	credSource := "sdk-default"

	if cfg.Region != "" {
		options = append(options, config.WithRegion(cfg.Region))
	}

	logger.Debug("Disk credential settings",
		logx.Any("key_set", cfg.Key != ""),
		logx.Any("secret_set", cfg.Secret != ""),
		logx.Any("profile", cfg.Profile),
	)

	// precedence: static keys, shared profile, SDK default chain
	switch {
	case cfg.Key != "" && cfg.Secret != "":
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, cfg.SessionToken),
		))
		credSource = "static"
	case cfg.Profile != "":
		options = append(options, config.WithSharedConfigProfile(cfg.Profile))
		credSource = "profile"
	}

	options = append(options, config.WithRetryer(func() aws.Retryer {
		return newRetryer(cfg)
	}))

	awsConfig, err := loader(ctx, options...)
	if err != nil {
		return aws.Config{}, credSource, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	logger.Debug("AWS config loaded",
		logx.Any("region", awsConfig.Region),
		logx.Any("max_retries", cfg.MaxRetries),
		logx.Any("cred_source", credSource),
	)

	// RoleARN is not a credential by itself: AssumeRole authenticates to STS
	// with the credentials resolved above.
	if cfg.RoleARN != "" {
		logger.Info("Disk requests STS AssumeRole", logx.Any("role_arn", cfg.RoleARN))

		stsClient := sts.NewFromConfig(awsConfig)
		assumeProv := stscreds.NewAssumeRoleProvider(stsClient, cfg.RoleARN, func(o *stscreds.AssumeRoleOptions) {
			if cfg.ExternalID != "" {
				o.ExternalID = aws.String(cfg.ExternalID)
			}
			o.RoleSessionName = "diskx-assume-role"
		})

		awsConfig.Credentials = aws.NewCredentialsCache(assumeProv)
		credSource = "assumed-role"
	}

	return awsConfig, credSource, nil
}

// newRetryer disables retries unless max_retries is set, in which case the
// standard retryer waits according to createBackoffStrategy.
func newRetryer(cfg *Config) aws.Retryer {
	if cfg.MaxRetries <= 0 {
		return aws.NopRetryer{}
	}
	return retry.NewStandard(func(o *retry.StandardOptions) {
		o.MaxAttempts = cfg.MaxRetries + 1
		o.MaxBackoff = cfg.BackoffMax
		o.Backoff = createBackoffStrategy(cfg)
	})
}

// createBackoffStrategy creates an exponential backoff with jitter
func createBackoffStrategy(cfg *Config) retry.BackoffDelayerFunc {
	return func(attempt int, err error) (time.Duration, error) {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = cfg.BackoffInitial
		b.MaxInterval = cfg.BackoffMax
		b.MaxElapsedTime = 0
		b.Multiplier = 2.0
		b.RandomizationFactor = 0.1
		b.Reset()

		var delay time.Duration
		for i := 0; i < attempt; i++ {
			delay = b.NextBackOff()
			if delay == backoff.Stop {
				break
			}
		}

		return delay, nil
	}
}
