package diskx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageError(t *testing.T) {
	cause := fs.ErrNotExist
	err := NewError("get", "a/b.txt", ErrNotFound, cause)

	assert.Equal(t, `diskx get "a/b.txt": diskx: not found: file does not exist`, err.Error())
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsInvalidTarget(err))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.True(t, IsNotFound(wrapped))

	var se *StorageError
	assert.True(t, errors.As(wrapped, &se))
	assert.Equal(t, "get", se.Op)
}

func TestStorageError_Defaults(t *testing.T) {
	err := NewError("ping", "", nil, context.DeadlineExceeded)
	assert.Equal(t, "diskx ping: diskx: i/o failure: context deadline exceeded", err.Error())
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	bare := NewError("size", "d", ErrInvalidTarget, nil)
	assert.Equal(t, `diskx size "d": diskx: invalid target`, bare.Error())
}

func TestMoveError(t *testing.T) {
	cause := errors.New("permission denied")
	var err error = &MoveError{Source: "a", Destination: "b", Err: cause}

	assert.True(t, IsPartialMove(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), `"a" -> "b"`)
}

func TestKindHelpers(t *testing.T) {
	assert.True(t, IsPathRejected(NewError("get", "../x", ErrPathRejected, nil)))
	assert.True(t, IsInvalidConfig(&ValidationError{Field: "driver", Message: "unknown"}))
	assert.False(t, IsNotFound(nil))
}
