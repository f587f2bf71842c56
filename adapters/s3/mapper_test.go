package s3

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"

	"github.com/gostratum/diskx"
)

func responseError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New("response error"),
		},
	}
}

func TestMapS3Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound bool
	}{
		{name: "no such key", err: &types.NoSuchKey{}, notFound: true},
		{name: "not found", err: &types.NotFound{}, notFound: true},
		{name: "wrapped no such key", err: fmt.Errorf("operation error: %w", &types.NoSuchKey{}), notFound: true},
		{name: "generic NoSuchKey code", err: &smithy.GenericAPIError{Code: "NoSuchKey"}, notFound: true},
		{name: "generic NotFound code", err: &smithy.GenericAPIError{Code: "NotFound"}, notFound: true},
		{name: "missing bucket", err: &smithy.GenericAPIError{Code: "NoSuchBucket"}, notFound: false},
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDenied"}, notFound: false},
		{name: "http 404", err: responseError(http.StatusNotFound), notFound: true},
		{name: "http 500", err: responseError(http.StatusInternalServerError), notFound: false},
		{name: "transport", err: errors.New("connection refused"), notFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapS3Error(tt.err, "get", "a.txt")

			assert.Equal(t, tt.notFound, diskx.IsNotFound(mapped))
			if !tt.notFound {
				assert.ErrorIs(t, mapped, diskx.ErrIO)
			}
			assert.ErrorIs(t, mapped, tt.err)

			var se *diskx.StorageError
			if assert.ErrorAs(t, mapped, &se) {
				assert.Equal(t, "get", se.Op)
				assert.Equal(t, "a.txt", se.Path)
			}
		})
	}
}

func TestMapS3Error_Nil(t *testing.T) {
	assert.NoError(t, MapS3Error(nil, "get", "a.txt"))
}
