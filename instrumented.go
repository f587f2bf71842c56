package diskx

import (
	"context"
	"errors"
	"io"
	"time"
)

// Instrument decorates s so every operation is traced and measured under
// the disk name. A nil instrumenter returns s unchanged.
func Instrument(s Storage, disk string, i *Instrumenter) Storage {
	if i == nil || s == nil {
		return s
	}
	return &instrumented{next: s, disk: disk, instr: i}
}

// Unwrapper is implemented by decorators around a Storage
type Unwrapper interface {
	Unwrap() Storage
}

// Underlying strips decorators and returns the backend itself
func Underlying(s Storage) Storage {
	for {
		u, ok := s.(Unwrapper)
		if !ok {
			return s
		}
		s = u.Unwrap()
	}
}

// TemporaryURL returns a signed, expiring URL when the disk supports it
func TemporaryURL(ctx context.Context, s Storage, path string, expiry time.Duration) (string, error) {
	t, ok := Underlying(s).(TemporaryURLer)
	if !ok {
		return "", NewError("temporary_url", path, ErrInvalidTarget, errors.New("disk does not support temporary urls"))
	}
	return t.TemporaryURL(ctx, path, expiry)
}

// Ping probes the disk medium when the disk supports it; otherwise it is a no-op
func Ping(ctx context.Context, s Storage) error {
	if p, ok := Underlying(s).(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

type instrumented struct {
	next  Storage
	disk  string
	instr *Instrumenter
}

func (s *instrumented) Unwrap() Storage { return s.next }

func (s *instrumented) trace(ctx context.Context, op, path string, fn func(ctx context.Context) error) error {
	return s.instr.TraceOperation(ctx, s.disk, op, path, fn)
}

func (s *instrumented) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	err := s.trace(ctx, "get", path, func(ctx context.Context) error {
		var err error
		rc, err = s.next.Get(ctx, path)
		return err
	})
	return rc, err
}

func (s *instrumented) Put(ctx context.Context, path string, r io.Reader, opts *PutOptions) error {
	cr := &countingReader{r: r}
	err := s.trace(ctx, "put", path, func(ctx context.Context) error {
		return s.next.Put(ctx, path, cr, opts)
	})
	if err == nil {
		s.instr.RecordOperationSize("put", cr.n)
	}
	return err
}

func (s *instrumented) Exists(ctx context.Context, path string) (bool, error) {
	var ok bool
	err := s.trace(ctx, "exists", path, func(ctx context.Context) error {
		var err error
		ok, err = s.next.Exists(ctx, path)
		return err
	})
	return ok, err
}

func (s *instrumented) Delete(ctx context.Context, path string) (bool, error) {
	var removed bool
	err := s.trace(ctx, "delete", path, func(ctx context.Context) error {
		var err error
		removed, err = s.next.Delete(ctx, path)
		return err
	})
	return removed, err
}

func (s *instrumented) URL(path string) string {
	return s.next.URL(path)
}

func (s *instrumented) ListContents(ctx context.Context, dir string) ([]string, error) {
	var out []string
	err := s.trace(ctx, "list", dir, func(ctx context.Context) error {
		var err error
		out, err = s.next.ListContents(ctx, dir)
		return err
	})
	return out, err
}

func (s *instrumented) Size(ctx context.Context, path string) (int64, error) {
	var n int64
	err := s.trace(ctx, "size", path, func(ctx context.Context) error {
		var err error
		n, err = s.next.Size(ctx, path)
		return err
	})
	return n, err
}

func (s *instrumented) MakeDirectory(ctx context.Context, path string) error {
	return s.trace(ctx, "make_directory", path, func(ctx context.Context) error {
		return s.next.MakeDirectory(ctx, path)
	})
}

func (s *instrumented) DeleteDirectory(ctx context.Context, path string) (bool, error) {
	var removed bool
	err := s.trace(ctx, "delete_directory", path, func(ctx context.Context) error {
		var err error
		removed, err = s.next.DeleteDirectory(ctx, path)
		return err
	})
	return removed, err
}

func (s *instrumented) LastModified(ctx context.Context, path string) (time.Time, error) {
	var t time.Time
	err := s.trace(ctx, "last_modified", path, func(ctx context.Context) error {
		var err error
		t, err = s.next.LastModified(ctx, path)
		return err
	})
	return t, err
}

func (s *instrumented) Copy(ctx context.Context, src, dst string) error {
	return s.trace(ctx, "copy", src, func(ctx context.Context) error {
		return s.next.Copy(ctx, src, dst)
	})
}

func (s *instrumented) Move(ctx context.Context, src, dst string) error {
	return s.trace(ctx, "move", src, func(ctx context.Context) error {
		return s.next.Move(ctx, src, dst)
	})
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
