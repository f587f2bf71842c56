package s3

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/gostratum/core/logx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAWSConfigWithLoader_Sources(t *testing.T) {
	logger := logx.NewNoopLogger()

	tests := []struct {
		name       string
		cfg        *Config
		wantSource string
	}{
		{
			name:       "static creds",
			cfg:        &Config{Key: "A", Secret: "B"},
			wantSource: "static",
		},
		{
			name:       "profile selected",
			cfg:        &Config{Profile: "dev"},
			wantSource: "profile",
		},
		{
			name:       "static wins over profile",
			cfg:        &Config{Key: "A", Secret: "B", Profile: "dev"},
			wantSource: "static",
		},
		{
			name:       "sdk default",
			cfg:        &Config{},
			wantSource: "sdk-default",
		},
		{
			name:       "assume role",
			cfg:        &Config{Region: "us-east-1", RoleARN: "arn:aws:iam::123456789012:role/Uploader"},
			wantSource: "assumed-role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var applied int
			loader := func(ctx context.Context, opts ...func(*config.LoadOptions) error) (aws.Config, error) {
				applied = len(opts)
				return aws.Config{Region: tt.cfg.Region}, nil
			}

			awsCfg, gotSource, err := buildAWSConfigWithLoader(context.Background(), tt.cfg, logger, loader)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, gotSource)
			assert.Positive(t, applied)

			if tt.wantSource == "assumed-role" {
				assert.NotNil(t, awsCfg.Credentials)
			}
		})
	}
}

func TestBuildAWSConfigWithLoader_LoaderError(t *testing.T) {
	loader := func(ctx context.Context, opts ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no shared config")
	}

	_, _, err := buildAWSConfigWithLoader(context.Background(), &Config{Profile: "missing"}, logx.NewNoopLogger(), loader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to load AWS SDK config")
}

func TestNewRetryer(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		r := newRetryer(&Config{})
		assert.IsType(t, aws.NopRetryer{}, r)
		assert.Equal(t, 1, r.MaxAttempts())
	})

	t.Run("max retries plus first attempt", func(t *testing.T) {
		r := newRetryer(&Config{
			MaxRetries:     3,
			BackoffInitial: 100 * time.Millisecond,
			BackoffMax:     time.Second,
		})
		assert.Equal(t, 4, r.MaxAttempts())
	})
}

func TestCreateBackoffStrategy(t *testing.T) {
	cfg := &Config{
		MaxRetries:     5,
		BackoffInitial: 100 * time.Millisecond,
		BackoffMax:     400 * time.Millisecond,
	}
	delayer := createBackoffStrategy(cfg)

	first, err := delayer(1, errors.New("throttled"))
	require.NoError(t, err)
	assert.InDelta(t, float64(100*time.Millisecond), float64(first), float64(10*time.Millisecond))

	second, err := delayer(2, errors.New("throttled"))
	require.NoError(t, err)
	assert.InDelta(t, float64(200*time.Millisecond), float64(second), float64(20*time.Millisecond))

	// capped at BackoffMax plus jitter
	late, err := delayer(10, errors.New("throttled"))
	require.NoError(t, err)
	assert.LessOrEqual(t, late, 440*time.Millisecond)
}
