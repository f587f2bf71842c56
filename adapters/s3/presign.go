package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gostratum/core/logx"

	"github.com/gostratum/diskx"
)

const (
	defaultPresignExpiry = 15 * time.Minute
	maxPresignExpiry     = 7 * 24 * time.Hour // AWS limit
)

// TemporaryURL generates a presigned GET URL valid for expiry. A zero or
// negative expiry uses 15 minutes and values above 7 days are capped.
func (s *Storage) TemporaryURL(ctx context.Context, p string, expiry time.Duration) (string, error) {
	key, err := s.objectKey("temporary_url", p)
	if err != nil {
		return "", err
	}
	if s.presigner == nil {
		return "", diskx.NewError("temporary_url", p, diskx.ErrInvalidTarget, errors.New("client does not support presigning"))
	}

	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	if expiry > maxPresignExpiry {
		expiry = maxPresignExpiry
	}

	s.logger.Debug("Generating presigned GET URL",
		logx.Any("path", p),
		logx.Any("key", key),
		logx.Any("expiry", expiry),
	)

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = expiry
	})
	if err != nil {
		return "", diskx.NewError("temporary_url", p, diskx.ErrIO, fmt.Errorf("failed to generate presigned GET URL: %w", err))
	}

	s.instr.RecordPresignOperation("get")
	return req.URL, nil
}
