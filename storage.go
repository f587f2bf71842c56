package diskx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Error kinds - use errors.Is for checking
var (
	// ErrNotFound indicates the requested path does not exist
	ErrNotFound = errors.New("diskx: not found")

	// ErrInvalidTarget indicates a file was required but a directory was named, or vice versa
	ErrInvalidTarget = errors.New("diskx: invalid target")

	// ErrPathRejected indicates the path escapes the disk root
	ErrPathRejected = errors.New("diskx: path rejected")

	// ErrInvalidConfig indicates a missing or invalid configuration value,
	// an unregistered disk name or an unknown driver
	ErrInvalidConfig = errors.New("diskx: invalid configuration")

	// ErrIO indicates a failure of the underlying medium or transport
	ErrIO = errors.New("diskx: i/o failure")

	// ErrPartialMove indicates a move copied the source but could not remove it
	ErrPartialMove = errors.New("diskx: partial move")
)

// StorageError wraps underlying errors with the operation, path and kind
type StorageError struct {
	Op   string // operation that failed
	Path string // logical path (if applicable)
	Kind error  // one of the Err* kinds
	Err  error  // underlying cause, may be nil
}

func (e *StorageError) Error() string {
	msg := e.Kind.Error()
	if e.Err != nil {
		msg = fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("diskx %s %q: %s", e.Op, e.Path, msg)
	}
	return fmt.Sprintf("diskx %s: %s", e.Op, msg)
}

func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds a StorageError. A nil kind defaults to ErrIO.
func NewError(op, path string, kind, err error) *StorageError {
	if kind == nil {
		kind = ErrIO
	}
	return &StorageError{Op: op, Path: path, Kind: kind, Err: err}
}

// MoveError is returned when a move copied the source to the destination but
// failed to remove the source. Both entries exist afterwards and the caller
// owns reconciliation.
type MoveError struct {
	Source      string
	Destination string
	Err         error // cause of the failed source removal
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("diskx move %q -> %q: destination was written but source was not removed: %v",
		e.Source, e.Destination, e.Err)
}

func (e *MoveError) Unwrap() []error {
	return []error{ErrPartialMove, e.Err}
}

// IsNotFound checks if an error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidTarget checks if an error is or wraps ErrInvalidTarget
func IsInvalidTarget(err error) bool {
	return errors.Is(err, ErrInvalidTarget)
}

// IsPathRejected checks if an error is or wraps ErrPathRejected
func IsPathRejected(err error) bool {
	return errors.Is(err, ErrPathRejected)
}

// IsInvalidConfig checks if an error is or wraps ErrInvalidConfig
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsPartialMove checks if an error reports a half-completed move
func IsPartialMove(err error) bool {
	return errors.Is(err, ErrPartialMove)
}

// PutOptions configures write operations
type PutOptions struct {
	// ContentType specifies the MIME type of the object (object stores only)
	ContentType string

	// Metadata contains user-defined key-value pairs. Ignored by the local
	// driver, attached as object metadata by the s3 driver.
	Metadata map[string]string
}

// Storage is the capability contract every disk implements.
//
// Paths are slash-separated identifiers relative to the disk root. All
// operations block; cancellation and deadlines travel in ctx and are enforced
// by the underlying transport.
type Storage interface {
	// Get opens the file at path for reading. The caller closes the reader.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Put writes r to path, replacing any existing content.
	Put(ctx context.Context, path string, r io.Reader, opts *PutOptions) error

	// Exists reports whether a file or directory exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes the file at path. It reports false, without error,
	// when there was nothing to remove.
	Delete(ctx context.Context, path string) (bool, error)

	// URL returns a locator for path. It is not signed.
	URL(path string) string

	// ListContents returns the entries under dir. Missing directories
	// yield an empty result.
	ListContents(ctx context.Context, dir string) ([]string, error)

	// Size returns the size in bytes of the file at path.
	Size(ctx context.Context, path string) (int64, error)

	// MakeDirectory creates the directory at path and any missing parents.
	MakeDirectory(ctx context.Context, path string) error

	// DeleteDirectory removes the directory at path with everything below
	// it. It reports false when there was nothing to remove.
	DeleteDirectory(ctx context.Context, path string) (bool, error)

	// LastModified returns the modification time of path, millisecond resolution.
	LastModified(ctx context.Context, path string) (time.Time, error)

	// Copy copies src to dst, overwriting dst.
	Copy(ctx context.Context, src, dst string) error

	// Move moves src to dst. Without an atomic rename it copies then
	// deletes; a failure in between is reported as *MoveError.
	Move(ctx context.Context, src, dst string) error
}

// TemporaryURLer is implemented by disks that can hand out time-limited
// signed URLs.
type TemporaryURLer interface {
	TemporaryURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

// Pinger is implemented by disks that can cheaply probe their medium.
type Pinger interface {
	Ping(ctx context.Context) error
}
