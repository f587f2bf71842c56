// Package local implements the diskx.Storage contract on a local directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gostratum/core/logx"

	"github.com/gostratum/diskx"
)

const tmpSuffix = ".diskx-tmp"

// Storage implements diskx.Storage using the local filesystem
type Storage struct {
	resolver *Resolver
	baseURL  string
	dirMode  os.FileMode
	fileMode os.FileMode
	logger   logx.Logger
}

// NewFromDisk creates a local storage from a "local" disk configuration
func NewFromDisk(d diskx.DiskConfig, opts ...diskx.Option) (*Storage, error) {
	cfg, err := ConfigFromDisk(d)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// New creates a local storage rooted at cfg.Root, creating the root and its
// ancestors when missing.
func New(cfg *Config, opts ...diskx.Option) (*Storage, error) {
	if cfg == nil {
		return nil, &diskx.ValidationError{Field: "config", Message: "configuration cannot be nil"}
	}
	cfg = cfg.Sanitize()
	options := diskx.NewOptions(opts...)
	logger := options.GetLogger()

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, diskx.NewError("new", cfg.Root, diskx.ErrInvalidConfig, fmt.Errorf("resolve root: %w", err))
	}
	if err := os.MkdirAll(root, cfg.DirMode); err != nil {
		return nil, diskx.NewError("new", root, diskx.ErrInvalidConfig, fmt.Errorf("create root: %w", err))
	}

	logger.Info("Local disk ready", logx.Any("root", root), logx.Any("url", cfg.URL))

	return &Storage{
		resolver: NewResolver(root),
		baseURL:  cfg.URL,
		dirMode:  cfg.DirMode,
		fileMode: cfg.FileMode,
		logger:   logger,
	}, nil
}

// Root returns the absolute root directory
func (s *Storage) Root() string {
	return s.resolver.Root()
}

// resolve checks the path and the context before any filesystem call
func (s *Storage) resolve(ctx context.Context, op, p string) (string, error) {
	full, err := s.resolver.Resolve(op, p)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", diskx.NewError(op, p, diskx.ErrIO, err)
	}
	return full, nil
}

// isAbsent reports whether err means nothing exists at the path. A path
// below a regular file fails with ENOTDIR, which is absence too.
func isAbsent(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// isTempName matches the temporary files created by write:
// "." + base + "." + uuid + tmpSuffix
func isTempName(name string) bool {
	if !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, tmpSuffix) {
		return false
	}
	stem := strings.TrimSuffix(name, tmpSuffix)
	i := strings.LastIndex(stem, ".")
	if i <= 0 {
		return false
	}
	_, err := uuid.Parse(stem[i+1:])
	return err == nil && len(stem[i+1:]) == 36
}

// mapError classifies a filesystem error
func mapError(op, p string, err error) error {
	if isAbsent(err) {
		return diskx.NewError(op, p, diskx.ErrNotFound, err)
	}
	return diskx.NewError(op, p, diskx.ErrIO, err)
}

// Get opens the file at path for reading
func (s *Storage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(ctx, "get", path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, mapError("get", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, mapError("get", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, diskx.NewError("get", path, diskx.ErrInvalidTarget, errors.New("is a directory"))
	}

	return f, nil
}

// Put writes r to path, creating missing parent directories. Metadata is ignored.
func (s *Storage) Put(ctx context.Context, path string, r io.Reader, _ *diskx.PutOptions) error {
	full, err := s.resolve(ctx, "put", path)
	if err != nil {
		return err
	}
	if full == s.resolver.Root() {
		return diskx.NewError("put", path, diskx.ErrInvalidTarget, errors.New("cannot write to the disk root"))
	}

	n, err := s.write(ctx, full, r)
	if err != nil {
		if errors.Is(err, diskx.ErrInvalidTarget) {
			return diskx.NewError("put", path, diskx.ErrInvalidTarget, err)
		}
		return diskx.NewError("put", path, diskx.ErrIO, err)
	}

	s.logger.Debug("File written", logx.Any("path", path), logx.Any("size", n))
	return nil
}

// write streams r into full through a temporary sibling file and renames it
// into place, so readers never observe partial content.
func (s *Storage) write(ctx context.Context, full string, r io.Reader) (int64, error) {
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		return 0, fmt.Errorf("%w: destination is a directory", diskx.ErrInvalidTarget)
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, s.dirMode); err != nil {
		return 0, fmt.Errorf("create parent directory: %w", err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(full)+"."+uuid.NewString()+tmpSuffix)
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.fileMode)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("write file: %w", err)
	}

	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("rename temp file: %w", err)
	}
	return n, nil
}

// Exists reports whether a file or directory exists at path
func (s *Storage) Exists(ctx context.Context, path string) (bool, error) {
	full, err := s.resolve(ctx, "exists", path)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(full); err != nil {
		if isAbsent(err) {
			return false, nil
		}
		return false, diskx.NewError("exists", path, diskx.ErrIO, err)
	}
	return true, nil
}

// Delete removes the file at path, reporting false when it did not exist
func (s *Storage) Delete(ctx context.Context, path string) (bool, error) {
	full, err := s.resolve(ctx, "delete", path)
	if err != nil {
		return false, err
	}

	info, err := os.Lstat(full)
	if err != nil {
		if isAbsent(err) {
			return false, nil
		}
		return false, diskx.NewError("delete", path, diskx.ErrIO, err)
	}
	if info.IsDir() {
		return false, diskx.NewError("delete", path, diskx.ErrInvalidTarget, errors.New("is a directory, use DeleteDirectory"))
	}

	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, diskx.NewError("delete", path, diskx.ErrIO, err)
	}

	s.logger.Debug("File deleted", logx.Any("path", path))
	return true, nil
}

// URL joins the base URL and path
func (s *Storage) URL(path string) string {
	return s.baseURL + strings.TrimPrefix(filepath.ToSlash(path), "/")
}

// ListContents returns the direct children of dir relative to the disk
// root. Directories carry a trailing "/".
func (s *Storage) ListContents(ctx context.Context, dir string) ([]string, error) {
	full, err := s.resolve(ctx, "list", dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		if isAbsent(err) {
			return []string{}, nil
		}
		return nil, diskx.NewError("list", dir, diskx.ErrIO, err)
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if isTempName(e.Name()) {
			continue
		}
		rel, err := s.resolver.Relative(filepath.Join(full, e.Name()))
		if err != nil {
			return nil, diskx.NewError("list", dir, diskx.ErrIO, err)
		}
		if e.IsDir() {
			rel += "/"
		}
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}

// Size returns the size of the file at path
func (s *Storage) Size(ctx context.Context, path string) (int64, error) {
	full, err := s.resolve(ctx, "size", path)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return 0, mapError("size", path, err)
	}
	if info.IsDir() {
		return 0, diskx.NewError("size", path, diskx.ErrInvalidTarget, errors.New("is a directory"))
	}
	return info.Size(), nil
}

// MakeDirectory creates the directory and all missing ancestors
func (s *Storage) MakeDirectory(ctx context.Context, path string) error {
	full, err := s.resolve(ctx, "make_directory", path)
	if err != nil {
		return err
	}

	if info, err := os.Stat(full); err == nil && !info.IsDir() {
		return diskx.NewError("make_directory", path, diskx.ErrInvalidTarget, errors.New("a file exists at this path"))
	}
	if err := os.MkdirAll(full, s.dirMode); err != nil {
		return diskx.NewError("make_directory", path, diskx.ErrIO, err)
	}
	return nil
}

// DeleteDirectory removes the directory and everything below it, children
// before parents. Targeting the root empties it but keeps the root itself.
func (s *Storage) DeleteDirectory(ctx context.Context, path string) (bool, error) {
	full, err := s.resolve(ctx, "delete_directory", path)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if isAbsent(err) {
			return false, nil
		}
		return false, diskx.NewError("delete_directory", path, diskx.ErrIO, err)
	}
	if !info.IsDir() {
		return false, diskx.NewError("delete_directory", path, diskx.ErrInvalidTarget, errors.New("not a directory"))
	}

	var paths []string
	err = filepath.WalkDir(full, func(p string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return false, diskx.NewError("delete_directory", path, diskx.ErrIO, err)
	}

	// reverse lexical order removes children before their parents
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))

	root := s.resolver.Root()
	for _, p := range paths {
		if p == root {
			continue
		}
		if err := ctx.Err(); err != nil {
			return false, diskx.NewError("delete_directory", path, diskx.ErrIO, err)
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return false, diskx.NewError("delete_directory", path, diskx.ErrIO, err)
		}
	}

	s.logger.Debug("Directory deleted", logx.Any("path", path), logx.Any("entries", len(paths)))
	return true, nil
}

// LastModified returns the modification time truncated to milliseconds
func (s *Storage) LastModified(ctx context.Context, path string) (time.Time, error) {
	full, err := s.resolve(ctx, "last_modified", path)
	if err != nil {
		return time.Time{}, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return time.Time{}, mapError("last_modified", path, err)
	}
	return info.ModTime().Truncate(time.Millisecond), nil
}

// Copy copies the file src to dst, overwriting dst
func (s *Storage) Copy(ctx context.Context, src, dst string) error {
	srcFull, err := s.resolve(ctx, "copy", src)
	if err != nil {
		return err
	}
	dstFull, err := s.resolve(ctx, "copy", dst)
	if err != nil {
		return err
	}
	return s.copyFile(ctx, src, dst, srcFull, dstFull)
}

func (s *Storage) copyFile(ctx context.Context, src, dst, srcFull, dstFull string) error {
	in, err := os.Open(srcFull)
	if err != nil {
		return mapError("copy", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return mapError("copy", src, err)
	}
	if info.IsDir() {
		return diskx.NewError("copy", src, diskx.ErrInvalidTarget, errors.New("is a directory"))
	}

	if _, err := s.write(ctx, dstFull, in); err != nil {
		if errors.Is(err, diskx.ErrInvalidTarget) {
			return diskx.NewError("copy", dst, diskx.ErrInvalidTarget, err)
		}
		return diskx.NewError("copy", dst, diskx.ErrIO, err)
	}
	return nil
}

// Move renames src to dst. Across devices it falls back to copy then
// delete, returning *diskx.MoveError when the source cannot be removed.
func (s *Storage) Move(ctx context.Context, src, dst string) error {
	srcFull, err := s.resolve(ctx, "move", src)
	if err != nil {
		return err
	}
	dstFull, err := s.resolve(ctx, "move", dst)
	if err != nil {
		return err
	}

	info, err := os.Lstat(srcFull)
	if err != nil {
		return mapError("move", src, err)
	}
	if info.IsDir() {
		return diskx.NewError("move", src, diskx.ErrInvalidTarget, errors.New("is a directory"))
	}
	if dinfo, err := os.Stat(dstFull); err == nil && dinfo.IsDir() {
		return diskx.NewError("move", dst, diskx.ErrInvalidTarget, errors.New("destination is a directory"))
	}

	if err := os.MkdirAll(filepath.Dir(dstFull), s.dirMode); err != nil {
		return diskx.NewError("move", dst, diskx.ErrIO, err)
	}

	err = os.Rename(srcFull, dstFull)
	if err == nil {
		s.logger.Debug("File moved", logx.Any("from", src), logx.Any("to", dst))
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return diskx.NewError("move", src, diskx.ErrIO, err)
	}

	if err := s.copyFile(ctx, src, dst, srcFull, dstFull); err != nil {
		return err
	}
	if err := os.Remove(srcFull); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &diskx.MoveError{Source: src, Destination: dst, Err: err}
	}
	return nil
}

// Ping verifies the root directory is still present
func (s *Storage) Ping(_ context.Context) error {
	info, err := os.Stat(s.resolver.Root())
	if err != nil {
		return diskx.NewError("ping", "", diskx.ErrIO, err)
	}
	if !info.IsDir() {
		return diskx.NewError("ping", "", diskx.ErrIO, fmt.Errorf("root %q is not a directory", s.resolver.Root()))
	}
	return nil
}

// ctxReader stops a copy once the context is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// compile-time check
var _ diskx.Storage = (*Storage)(nil)
