// Package objstore wraps a gocloud.dev bucket with the all-or-nothing writes and
// date partitioned keys the bronze and staging layers need
package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/logger"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets for local runs
	_ "gocloud.dev/blob/gcsblob"  // gs:// buckets
	_ "gocloud.dev/blob/memblob"  // mem:// buckets for tests
	_ "gocloud.dev/blob/s3blob"   // s3:// buckets
	"gocloud.dev/gcerrors"
)

// Bucket is a handle to one object store bucket
type Bucket struct {
	b   *blob.Bucket
	url string
}

// ObjectInfo is what the pipeline needs to confirm an artifact exists
type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
	MD5     []byte
}

var openBucket = blob.OpenBucket

// Open opens a bucket by URL: gs://, s3://, file:///abs/path or mem://
func Open(ctx context.Context, url string) (*Bucket, error) {
	if strings.TrimSpace(url) == "" {
		return nil, perr.InvalidArgf("objstore: bucket url is required")
	}
	b, err := openBucket(ctx, url)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "objstore: open %s", url)
	}
	return &Bucket{b: b, url: url}, nil
}

// Wrap adapts an already opened bucket (used by tests with memblob.OpenBucket)
func Wrap(b *blob.Bucket) *Bucket { return &Bucket{b: b, url: "mem://"} }

// Put writes data under key, replacing any previous object.
// The object becomes visible only when the full payload is accepted; on error
// the write is aborted and the previous version stays in place.
func (b *Bucket) Put(ctx context.Context, key string, data []byte, contentType string) error {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := b.b.NewWriter(wctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "objstore: open writer %s", key)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		cancel() // abort: Close after cancel discards the upload
		_ = w.Close()
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "objstore: write %s", key)
	}
	if err := w.Close(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "objstore: commit %s", key)
	}
	logger.C(ctx).Debug().Str("bucket", b.url).Str("key", key).Int("bytes", len(data)).Msg("object written")
	return nil
}

// Get reads the whole object; a missing key is perr.ErrorCodeNotFound
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.b.ReadAll(ctx, key)
	if err != nil {
		return nil, b.mapErr(err, "read", key)
	}
	return data, nil
}

// Stat returns object metadata; a missing key is perr.ErrorCodeNotFound
func (b *Bucket) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	a, err := b.b.Attributes(ctx, key)
	if err != nil {
		return ObjectInfo{}, b.mapErr(err, "stat", key)
	}
	return ObjectInfo{Key: key, Size: a.Size, ModTime: a.ModTime, MD5: a.MD5}, nil
}

// Exists reports whether key is present
func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := b.b.Exists(ctx, key)
	if err != nil {
		return false, b.mapErr(err, "exists", key)
	}
	return ok, nil
}

// Ping reports whether the bucket is reachable with the configured credentials
func (b *Bucket) Ping(ctx context.Context) error {
	ok, err := b.b.IsAccessible(ctx)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "objstore: ping %s", b.url)
	}
	if !ok {
		return perr.Newf(perr.ErrorCodeUnavailable, "objstore: bucket %s is not accessible", b.url)
	}
	return nil
}

// Close releases the bucket
func (b *Bucket) Close() error {
	if b == nil || b.b == nil {
		return nil
	}
	return b.b.Close()
}

func (b *Bucket) mapErr(err error, op, key string) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return perr.Wrapf(err, perr.ErrorCodeNotFound, "objstore: %s %s: not found", op, key)
	}
	return perr.Wrapf(err, perr.ErrorCodeUnavailable, "objstore: %s %s", op, key)
}

// PartitionKey builds {prefix}/dt=YYYY-MM-DD/{file}
func PartitionKey(prefix string, d day.Date, file string) string {
	return path.Join(strings.Trim(prefix, "/"), fmt.Sprintf("dt=%s", d), file)
}
