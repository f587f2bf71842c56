package testutil_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostratum/diskx"
	"github.com/gostratum/diskx/internal/testutil"
)

func TestMockStorage_BasicOperations(t *testing.T) {
	storage := testutil.NewMockStorage()
	ctx := context.Background()

	t.Run("Put and Get", func(t *testing.T) {
		testData := []byte("hello world")
		require.NoError(t, diskx.PutBytes(ctx, storage, "test/file.txt", testData, nil))

		data, err := diskx.ReadAll(ctx, storage, "test/file.txt")
		require.NoError(t, err)
		assert.Equal(t, testData, data)
	})

	t.Run("Metadata", func(t *testing.T) {
		opts := &diskx.PutOptions{
			ContentType: "text/plain",
			Metadata:    map[string]string{"custom-key": "custom-value"},
		}
		require.NoError(t, diskx.PutBytes(ctx, storage, "test/metadata.txt", []byte("m"), opts))
		assert.Equal(t, "custom-value", storage.Metadata("test/metadata.txt")["custom-key"])
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, diskx.PutBytes(ctx, storage, "test/delete.txt", []byte("x"), nil))

		removed, err := storage.Delete(ctx, "test/delete.txt")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = storage.Delete(ctx, "test/delete.txt")
		require.NoError(t, err)
		assert.False(t, removed)

		_, err = storage.Get(ctx, "test/delete.txt")
		assert.True(t, diskx.IsNotFound(err))
	})

	t.Run("Directories", func(t *testing.T) {
		require.NoError(t, storage.MakeDirectory(ctx, "dir"))

		ok, err := storage.Exists(ctx, "dir")
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = storage.Size(ctx, "dir")
		assert.True(t, diskx.IsInvalidTarget(err))

		require.NoError(t, diskx.PutBytes(ctx, storage, "dir/a.txt", []byte("a"), nil))
		list, err := storage.ListContents(ctx, "dir")
		require.NoError(t, err)
		assert.Equal(t, []string{"dir/a.txt"}, list)

		removed, err := storage.DeleteDirectory(ctx, "dir")
		require.NoError(t, err)
		assert.True(t, removed)

		ok, err = storage.Exists(ctx, "dir")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestMockStorage_FailOn(t *testing.T) {
	storage := testutil.NewMockStorage()
	ctx := context.Background()
	boom := errors.New("boom")

	storage.FailOn("put", boom)
	err := diskx.PutBytes(ctx, storage, "a", []byte("a"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, diskx.ErrIO)

	storage.FailOn("put", nil)
	require.NoError(t, diskx.PutBytes(ctx, storage, "a", []byte("a"), nil))
}

func TestMockStorage_MoveReportsPartialMove(t *testing.T) {
	storage := testutil.NewMockStorage()
	ctx := context.Background()
	require.NoError(t, diskx.PutBytes(ctx, storage, "src", []byte("data"), nil))

	storage.FailOn("delete", errors.New("permission denied"))
	err := storage.Move(ctx, "src", "dst")
	require.Error(t, err)
	assert.True(t, diskx.IsPartialMove(err))

	var moveErr *diskx.MoveError
	require.ErrorAs(t, err, &moveErr)
	assert.Equal(t, "src", moveErr.Source)
	assert.Equal(t, "dst", moveErr.Destination)

	// both objects coexist
	assert.Equal(t, 2, storage.Len())
}

func TestMockStorage_ContextCancellation(t *testing.T) {
	storage := testutil.NewMockStorage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := storage.Get(ctx, "any")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
