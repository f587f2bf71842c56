package s3

import (
	"errors"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/gostratum/diskx"
)

// MapS3Error converts S3 SDK errors into diskx errors. Missing keys become
// ErrNotFound, everything else ErrIO.
func MapS3Error(err error, op, path string) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return diskx.NewError(op, path, diskx.ErrNotFound, err)
	}
	return diskx.NewError(op, path, diskx.ErrIO, err)
}

// isNotFound reports whether err means the object does not exist. A missing
// bucket is a medium failure, not an absent key.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		case "NoSuchBucket":
			return false
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == http.StatusNotFound
	}

	return false
}
