package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/gostratum/diskx"
)

const pingTimeout = 2 * time.Second

// Ping heads the bucket with a short timeout
func (s *Storage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return diskx.NewError("ping", "", diskx.ErrIO, fmt.Errorf("s3 head bucket failed: %w", err))
	}
	return nil
}
