package diskx

import (
	"bytes"
	"context"
	"io"
)

// PutBytes stores data at path (convenience wrapper over Put)
func PutBytes(ctx context.Context, s Storage, path string, data []byte, opts *PutOptions) error {
	return s.Put(ctx, path, bytes.NewReader(data), opts)
}

// ReadAll reads the whole file at path
func ReadAll(ctx context.Context, s Storage, path string) ([]byte, error) {
	rc, err := s.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, NewError("get", path, ErrIO, err)
	}
	return data, nil
}

// Missing is the inverse of Exists
func Missing(ctx context.Context, s Storage, path string) (bool, error) {
	ok, err := s.Exists(ctx, path)
	if err != nil {
		return false, err
	}
	return !ok, nil
}
