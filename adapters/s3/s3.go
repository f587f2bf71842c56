// Package s3 implements the diskx.Storage contract on an S3 bucket.
//
// Directories are emulated: MakeDirectory writes a zero-byte marker whose key
// ends in "/", and listings match keys sharing the directory prefix.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gostratum/core/logx"

	"github.com/gostratum/diskx"
)

// Storage implements diskx.Storage using AWS S3 or a compatible server
type Storage struct {
	client    API
	presigner Presigner
	bucket    string
	codec     KeyCodec
	baseURL   string
	pageSize  int32
	logger    logx.Logger
	instr     *diskx.Instrumenter
}

// NewFromDisk creates an S3 storage from an "s3" disk configuration
func NewFromDisk(ctx context.Context, d diskx.DiskConfig, opts ...diskx.Option) (*Storage, error) {
	cfg, err := ConfigFromDisk(d)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, opts...)
}

// New creates an S3 storage and verifies the bucket is reachable. An
// unreachable bucket is a configuration error.
func New(ctx context.Context, cfg *Config, opts ...diskx.Option) (*Storage, error) {
	if cfg == nil {
		return nil, &diskx.ValidationError{Field: "config", Message: "configuration cannot be nil"}
	}
	cfg = cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := diskx.NewOptions(opts...).GetLogger()

	client, err := newClient(ctx, cfg, logger)
	if err != nil {
		return nil, diskx.NewError("new", "", diskx.ErrInvalidConfig, err)
	}

	s := NewWithClient(cfg, client, opts...)

	if err := s.validateConnection(ctx); err != nil {
		return nil, diskx.NewError("new", "", diskx.ErrInvalidConfig, err)
	}

	logger.Info("S3 disk ready",
		logx.Any("bucket", cfg.Bucket),
		logx.Any("region", cfg.Region),
		logx.Any("prefix", s.codec.Prefix()),
	)

	return s, nil
}

// NewWithClient creates an S3 storage on top of an existing client without
// contacting the bucket. TemporaryURL is only available when client is an
// *s3.Client.
func NewWithClient(cfg *Config, client API, opts ...diskx.Option) *Storage {
	cfg = cfg.Sanitize()
	options := diskx.NewOptions(opts...)

	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > maxDeleteBatch {
		pageSize = maxDeleteBatch
	}

	s := &Storage{
		client:   client,
		bucket:   cfg.Bucket,
		codec:    NewKeyCodec(cfg.Prefix),
		baseURL:  cfg.BaseURL(),
		pageSize: pageSize,
		logger:   options.GetLogger(),
		instr:    options.GetInstrumenter(),
	}
	if c, ok := client.(*s3.Client); ok {
		s.presigner = s3.NewPresignClient(c)
	}
	return s
}

// Bucket returns the bucket name
func (s *Storage) Bucket() string {
	return s.bucket
}

// validateConnection performs a basic connectivity check
func (s *Storage) validateConnection(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		s.logger.Warn("Failed to validate bucket access",
			logx.Any("bucket", s.bucket),
			logx.Any("error", err),
		)
		return fmt.Errorf("cannot access bucket %q: %w", s.bucket, err)
	}

	s.logger.Debug("Bucket access validated", logx.Any("bucket", s.bucket))
	return nil
}

// objectKey encodes a path naming a single object. The empty path and
// directory paths are rejected.
func (s *Storage) objectKey(op, p string) (string, error) {
	trimmed := strings.TrimPrefix(p, "/")
	if trimmed == "" {
		return "", diskx.NewError(op, p, diskx.ErrInvalidTarget, errors.New("path names the disk root"))
	}
	if strings.HasSuffix(trimmed, "/") {
		return "", diskx.NewError(op, p, diskx.ErrInvalidTarget, errors.New("path names a directory"))
	}
	return s.codec.Encode(trimmed), nil
}

// head returns the object metadata, nil when the key does not exist
func (s *Storage) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// hasPrefix reports whether at least one key starts with prefix
func (s *Storage) hasPrefix(ctx context.Context, prefix string) (bool, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return len(out.Contents) > 0, nil
}

// Get opens the object at path for reading
func (s *Storage) Get(ctx context.Context, p string) (io.ReadCloser, error) {
	key, err := s.objectKey("get", p)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Getting object", logx.Any("path", p), logx.Any("key", key))

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			isDir, lerr := s.hasPrefix(ctx, key+"/")
			if lerr != nil {
				return nil, MapS3Error(lerr, "get", p)
			}
			if isDir {
				return nil, diskx.NewError("get", p, diskx.ErrInvalidTarget, errors.New("path names a directory"))
			}
		}
		return nil, MapS3Error(err, "get", p)
	}
	return out.Body, nil
}

// Put uploads r to path. Metadata is attached as object metadata and the
// content type falls back to the file extension.
func (s *Storage) Put(ctx context.Context, p string, r io.Reader, opts *diskx.PutOptions) error {
	key, err := s.objectKey("put", p)
	if err != nil {
		return err
	}
	if opts == nil {
		opts = &diskx.PutOptions{}
	}

	// buffered so the SDK can sign a seekable body
	data, err := io.ReadAll(r)
	if err != nil {
		return diskx.NewError("put", p, diskx.ErrIO, fmt.Errorf("failed to read data: %w", err))
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(key)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return MapS3Error(err, "put", p)
	}

	s.logger.Debug("Object put successfully", logx.Any("path", p), logx.Any("size", len(data)))
	return nil
}

// Exists reports whether an object, a directory marker or any key below
// path exists
func (s *Storage) Exists(ctx context.Context, p string) (bool, error) {
	trimmed := strings.TrimPrefix(p, "/")

	if trimmed != "" && !strings.HasSuffix(trimmed, "/") {
		out, err := s.head(ctx, s.codec.Encode(trimmed))
		if err != nil {
			return false, MapS3Error(err, "exists", p)
		}
		if out != nil {
			return true, nil
		}
	}

	dir := s.codec.EncodeDir(trimmed)
	if dir == "" {
		// unprefixed bucket root
		return true, nil
	}
	ok, err := s.hasPrefix(ctx, dir)
	if err != nil {
		return false, MapS3Error(err, "exists", p)
	}
	return ok, nil
}

// Delete removes the object at path. It reports false when the object did
// not exist.
func (s *Storage) Delete(ctx context.Context, p string) (bool, error) {
	trimmed := strings.TrimPrefix(p, "/")
	if trimmed == "" {
		return false, diskx.NewError("delete", p, diskx.ErrInvalidTarget, errors.New("path names the disk root"))
	}
	// a trailing slash addresses the directory marker itself
	key := s.codec.Encode(trimmed)

	out, err := s.head(ctx, key)
	if err != nil {
		return false, MapS3Error(err, "delete", p)
	}
	if out == nil {
		return false, nil
	}

	if err := s.deleteKey(ctx, key); err != nil {
		return false, MapS3Error(err, "delete", p)
	}

	s.logger.Debug("Object deleted successfully", logx.Any("path", p))
	return true, nil
}

func (s *Storage) deleteKey(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// URL returns the base URL joined with the encoded key
func (s *Storage) URL(p string) string {
	return s.baseURL + s.codec.Encode(p)
}

// ListContents returns every key below dir, decoded to disk paths. The
// directory's own marker is excluded.
func (s *Storage) ListContents(ctx context.Context, dir string) ([]string, error) {
	prefix := s.codec.EncodeDir(strings.TrimPrefix(dir, "/"))

	seen := make(map[string]struct{})
	out := []string{}
	pages := 0

	err := s.walk(ctx, prefix, func(page []types.Object) error {
		pages++
		for _, obj := range page {
			key := aws.ToString(obj.Key)
			if key == "" || key == prefix {
				continue
			}
			p := s.codec.Decode(key)
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, MapS3Error(err, "list", dir)
	}

	sort.Strings(out)
	s.instr.RecordListOperation(len(out), pages)

	s.logger.Debug("Objects listed successfully",
		logx.Any("dir", dir),
		logx.Any("count", len(out)),
		logx.Any("pages", pages),
	)
	return out, nil
}

// walk follows ListObjectsV2 continuation tokens until the listing is
// exhausted, handing each page to fn in order
func (s *Storage) walk(ctx context.Context, prefix string, fn func(page []types.Object) error) error {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(s.pageSize),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		if err := fn(page.Contents); err != nil {
			return err
		}
	}
	return nil
}

// Size returns the size of the object at path. Directory markers and
// prefixes are rejected with ErrInvalidTarget.
func (s *Storage) Size(ctx context.Context, p string) (int64, error) {
	key, err := s.objectKey("size", p)
	if err != nil {
		return 0, err
	}

	out, err := s.head(ctx, key)
	if err != nil {
		return 0, MapS3Error(err, "size", p)
	}
	if out == nil {
		isDir, err := s.hasPrefix(ctx, key+"/")
		if err != nil {
			return 0, MapS3Error(err, "size", p)
		}
		if isDir {
			return 0, diskx.NewError("size", p, diskx.ErrInvalidTarget, errors.New("path names a directory"))
		}
		return 0, diskx.NewError("size", p, diskx.ErrNotFound, nil)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// MakeDirectory writes a zero-byte marker object at path + "/"
func (s *Storage) MakeDirectory(ctx context.Context, p string) error {
	key := s.codec.EncodeDir(strings.TrimPrefix(p, "/"))
	if key == s.codec.Prefix() {
		// the disk root always exists
		return nil
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return MapS3Error(err, "make_directory", p)
	}
	return nil
}

// DeleteDirectory removes every key below path, marker included. Keys are
// deleted in DeleteObjects batches of at most 1000 while the listing is
// followed page by page. It reports whether anything was removed.
func (s *Storage) DeleteDirectory(ctx context.Context, p string) (bool, error) {
	prefix := s.codec.EncodeDir(strings.TrimPrefix(p, "/"))

	s.logger.Debug("Deleting directory", logx.Any("path", p), logx.Any("prefix", prefix))

	batch := make([]types.ObjectIdentifier, 0, maxDeleteBatch)
	total, failed, requests := 0, 0, 0
	var firstErr error

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		requests++
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: batch,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return err
		}
		total += len(batch)
		for _, e := range out.Errors {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("delete %q: %s: %s", aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message))
			}
		}
		batch = make([]types.ObjectIdentifier, 0, maxDeleteBatch)
		return nil
	}

	err := s.walk(ctx, prefix, func(page []types.Object) error {
		for _, obj := range page {
			batch = append(batch, types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == maxDeleteBatch {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		err = flush()
	}

	s.instr.RecordBatchOperation("delete_directory", total, failed)

	if err != nil {
		return false, MapS3Error(err, "delete_directory", p)
	}
	if firstErr != nil {
		return false, diskx.NewError("delete_directory", p, diskx.ErrIO,
			fmt.Errorf("%d of %d keys not deleted: %w", failed, total, firstErr))
	}

	s.logger.Debug("Directory deleted",
		logx.Any("path", p),
		logx.Any("keys", total),
		logx.Any("requests", requests),
	)
	return total > 0, nil
}

// LastModified returns the object's modification time truncated to
// milliseconds. A directory path falls back to its marker.
func (s *Storage) LastModified(ctx context.Context, p string) (time.Time, error) {
	trimmed := strings.TrimPrefix(p, "/")
	if trimmed == "" {
		return time.Time{}, diskx.NewError("last_modified", p, diskx.ErrInvalidTarget, errors.New("path names the disk root"))
	}

	keys := []string{s.codec.Encode(trimmed)}
	if !strings.HasSuffix(trimmed, "/") {
		keys = append(keys, s.codec.Encode(trimmed+"/"))
	}

	for _, key := range keys {
		out, err := s.head(ctx, key)
		if err != nil {
			return time.Time{}, MapS3Error(err, "last_modified", p)
		}
		if out != nil {
			return aws.ToTime(out.LastModified).Truncate(time.Millisecond), nil
		}
	}
	return time.Time{}, diskx.NewError("last_modified", p, diskx.ErrNotFound, nil)
}

// Copy copies src to dst server side, overwriting dst
func (s *Storage) Copy(ctx context.Context, src, dst string) error {
	srcKey, err := s.objectKey("copy", src)
	if err != nil {
		return err
	}
	dstKey, err := s.objectKey("copy", dst)
	if err != nil {
		return err
	}

	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(s.bucket, srcKey)),
	})
	if err != nil {
		return MapS3Error(err, "copy", src)
	}
	return nil
}

// Move copies src to dst and then deletes src. S3 has no rename, so a failed
// delete leaves both objects and is reported as *diskx.MoveError. Moving a
// path onto itself leaves the object in place.
func (s *Storage) Move(ctx context.Context, src, dst string) error {
	srcKey, err := s.objectKey("move", src)
	if err != nil {
		return err
	}
	dstKey, err := s.objectKey("move", dst)
	if err != nil {
		return err
	}

	if srcKey == dstKey {
		out, err := s.head(ctx, srcKey)
		if err != nil {
			return MapS3Error(err, "move", src)
		}
		if out == nil {
			return diskx.NewError("move", src, diskx.ErrNotFound, nil)
		}
		return nil
	}

	if err := s.Copy(ctx, src, dst); err != nil {
		return err
	}

	if err := s.deleteKey(ctx, srcKey); err != nil {
		s.logger.Warn("Move left source behind",
			logx.Any("from", src),
			logx.Any("to", dst),
			logx.Any("error", err),
		)
		return &diskx.MoveError{Source: src, Destination: dst, Err: err}
	}

	s.logger.Debug("Object moved", logx.Any("from", src), logx.Any("to", dst))
	return nil
}

// copySource builds the URL-encoded "bucket/key" CopySource value
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

// detectContentType guesses the content type from the key extension
func detectContentType(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// compile-time checks
var (
	_ diskx.Storage        = (*Storage)(nil)
	_ diskx.TemporaryURLer = (*Storage)(nil)
	_ diskx.Pinger         = (*Storage)(nil)
)
