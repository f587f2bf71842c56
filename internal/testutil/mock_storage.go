package testutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gostratum/diskx"
)

// MockStorage is a thread-safe in-memory implementation of diskx.Storage for
// testing. It follows the object store conventions: a flat key space where
// directories exist through markers ending in "/" or through shared prefixes.
type MockStorage struct {
	mu       sync.RWMutex
	objects  map[string]*mockObject
	failures map[string]error
	baseURL  string
}

type mockObject struct {
	data         []byte
	contentType  string
	metadata     map[string]string
	lastModified time.Time
}

// NewMockStorage creates a new in-memory mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		objects:  make(map[string]*mockObject),
		failures: make(map[string]error),
		baseURL:  "mem://",
	}
}

// FailOn makes every call of op return err wrapped as an ErrIO storage
// error. A nil err clears the failure.
func (m *MockStorage) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Metadata returns the metadata stored with key
func (m *MockStorage) Metadata(key string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if obj, ok := m.objects[key]; ok {
		return maps.Clone(obj.metadata)
	}
	return nil
}

// Len returns the number of stored entries, markers included
func (m *MockStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (m *MockStorage) check(ctx context.Context, op, path string) error {
	if err := ctx.Err(); err != nil {
		return diskx.NewError(op, path, diskx.ErrIO, err)
	}
	m.mu.RLock()
	err := m.failures[op]
	m.mu.RUnlock()
	if err != nil {
		return diskx.NewError(op, path, diskx.ErrIO, err)
	}
	return nil
}

func key(path string) string {
	return strings.TrimPrefix(path, "/")
}

func dirPrefix(path string) string {
	k := key(path)
	if k != "" && !strings.HasSuffix(k, "/") {
		k += "/"
	}
	return k
}

// hasPrefixLocked reports whether any key starts with prefix
func (m *MockStorage) hasPrefixLocked(prefix string) bool {
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// Get retrieves an object as a streaming reader
func (m *MockStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := m.check(ctx, "get", path); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key(path)]
	if !ok {
		return nil, diskx.NewError("get", path, diskx.ErrNotFound, nil)
	}

	dataCopy := make([]byte, len(obj.data))
	copy(dataCopy, obj.data)
	return io.NopCloser(bytes.NewReader(dataCopy)), nil
}

// Put stores an object from an io.Reader
func (m *MockStorage) Put(ctx context.Context, path string, r io.Reader, opts *diskx.PutOptions) error {
	if err := m.check(ctx, "put", path); err != nil {
		return err
	}
	if opts == nil {
		opts = &diskx.PutOptions{}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return diskx.NewError("put", path, diskx.ErrIO, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key(path)] = &mockObject{
		data:         data,
		contentType:  opts.ContentType,
		metadata:     maps.Clone(opts.Metadata),
		lastModified: time.Now().UTC().Truncate(time.Millisecond),
	}
	return nil
}

// Exists reports whether an object, marker or prefix exists
func (m *MockStorage) Exists(ctx context.Context, path string) (bool, error) {
	if err := m.check(ctx, "exists", path); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.objects[key(path)]; ok {
		return true, nil
	}
	prefix := dirPrefix(path)
	return prefix == "" || m.hasPrefixLocked(prefix), nil
}

// Delete removes a single object
func (m *MockStorage) Delete(ctx context.Context, path string) (bool, error) {
	if err := m.check(ctx, "delete", path); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key(path)]; !ok {
		return false, nil
	}
	delete(m.objects, key(path))
	return true, nil
}

// URL returns mem:// followed by the key
func (m *MockStorage) URL(path string) string {
	return m.baseURL + key(path)
}

// ListContents returns all keys below dir, its own marker excluded
func (m *MockStorage) ListContents(ctx context.Context, dir string) ([]string, error) {
	if err := m.check(ctx, "list", dir); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := dirPrefix(dir)
	out := []string{}
	for k := range m.objects {
		if k != prefix && strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Size returns the object size
func (m *MockStorage) Size(ctx context.Context, path string) (int64, error) {
	if err := m.check(ctx, "size", path); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	k := key(path)
	if strings.HasSuffix(k, "/") || m.hasPrefixLocked(dirPrefix(path)) {
		return 0, diskx.NewError("size", path, diskx.ErrInvalidTarget, errors.New("path names a directory"))
	}
	obj, ok := m.objects[k]
	if !ok {
		return 0, diskx.NewError("size", path, diskx.ErrNotFound, nil)
	}
	return int64(len(obj.data)), nil
}

// MakeDirectory stores a marker object
func (m *MockStorage) MakeDirectory(ctx context.Context, path string) error {
	if err := m.check(ctx, "make_directory", path); err != nil {
		return err
	}

	prefix := dirPrefix(path)
	if prefix == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[prefix] = &mockObject{lastModified: time.Now().UTC().Truncate(time.Millisecond)}
	return nil
}

// DeleteDirectory removes every key below path
func (m *MockStorage) DeleteDirectory(ctx context.Context, path string) (bool, error) {
	if err := m.check(ctx, "delete_directory", path); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := dirPrefix(path)
	removed := false
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
			removed = true
		}
	}
	return removed, nil
}

// LastModified returns the time of the last write
func (m *MockStorage) LastModified(ctx context.Context, path string) (time.Time, error) {
	if err := m.check(ctx, "last_modified", path); err != nil {
		return time.Time{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key(path)]
	if !ok {
		return time.Time{}, diskx.NewError("last_modified", path, diskx.ErrNotFound, nil)
	}
	return obj.lastModified, nil
}

// Copy duplicates src into dst
func (m *MockStorage) Copy(ctx context.Context, src, dst string) error {
	if err := m.check(ctx, "copy", src); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[key(src)]
	if !ok {
		return diskx.NewError("copy", src, diskx.ErrNotFound, nil)
	}
	dup := *obj
	dup.data = bytes.Clone(obj.data)
	dup.metadata = maps.Clone(obj.metadata)
	m.objects[key(dst)] = &dup
	return nil
}

// Move copies then deletes, failing with *diskx.MoveError when a "delete"
// failure is injected
func (m *MockStorage) Move(ctx context.Context, src, dst string) error {
	if err := m.check(ctx, "move", src); err != nil {
		return err
	}
	if err := m.Copy(ctx, src, dst); err != nil {
		return err
	}
	if _, err := m.Delete(ctx, src); err != nil {
		var se *diskx.StorageError
		cause := err
		if errors.As(err, &se) && se.Err != nil {
			cause = se.Err
		}
		return &diskx.MoveError{Source: src, Destination: dst, Err: cause}
	}
	return nil
}

// Ping fails only when a "ping" failure is injected
func (m *MockStorage) Ping(ctx context.Context) error {
	return m.check(ctx, "ping", "")
}

// compile-time check
var (
	_ diskx.Storage = (*MockStorage)(nil)
	_ diskx.Pinger  = (*MockStorage)(nil)
)
