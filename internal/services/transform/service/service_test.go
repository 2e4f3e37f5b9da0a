package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"commitflow/internal/adapters/columnar"
	"commitflow/internal/core/mapping"
	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/objstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

var d = day.MustParse("2024-01-15")

func oid(label string) string {
	sum := sha1.Sum([]byte(label))
	return hex.EncodeToString(sum[:])
}

func raw(label, email, at string) columnar.RawCommit {
	return columnar.RawCommit{SHA: oid(label), AuthorName: "Ada Lovelace", AuthorEmail: email, Message: "m", CommittedAt: at}
}

func setup(t *testing.T, rows []columnar.RawCommit) (*Service, *objstore.Bucket) {
	t.Helper()
	b := objstore.Wrap(memblob.OpenBucket(nil))
	t.Cleanup(func() { _ = b.Close() })

	svc := New(b, mapping.MustDefault(), Config{BronzePrefix: "bronze/commits", StagingPrefix: "staging/commits"})
	if rows != nil {
		data, err := columnar.EncodeRaw(rows)
		require.NoError(t, err)
		require.NoError(t, b.Put(context.Background(), svc.Source(d), data, columnar.ContentType))
	}
	return svc, b
}

func TestTransform_StagesRows(t *testing.T) {
	ctx := context.Background()
	svc, b := setup(t, []columnar.RawCommit{
		raw("sha1", "ada@example.com", "2024-01-15T08:00:00Z"),
		raw("sha2", "ada@example.com", "2024-01-15T09:30:00+01:00"),
		raw("sha1", "ada@example.com", "2024-01-15T10:00:00Z"), // dup, first kept
	})

	res, err := svc.Transform(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "staging/commits/dt=2024-01-15/commits_transformed.parquet", res.Key)
	assert.Equal(t, 3, res.Report.Total)
	assert.Equal(t, 2, res.Report.Staged)
	assert.Equal(t, 1, res.Report.Duplicates)

	data, err := b.Get(ctx, res.Key)
	require.NoError(t, err)
	rows, err := columnar.DecodeStaged(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, oid("sha1"), rows[0].CommitSHA)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC), rows[0].CommittedAt())
	assert.Equal(t, time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC), rows[1].CommittedAt())
	assert.True(t, rows[1].Created().Equal(d))
}

func TestTransform_Deterministic(t *testing.T) {
	ctx := context.Background()
	var rows []columnar.RawCommit
	for i := range 50 {
		rows = append(rows, raw(fmt.Sprintf("sha%02d", i%40), "dev@example.com", fmt.Sprintf("2024-01-15T%02d:00:00Z", i%24)))
	}
	svc, b := setup(t, rows)

	_, err := svc.Transform(ctx, d)
	require.NoError(t, err)
	first, err := b.Get(ctx, svc.Key(d))
	require.NoError(t, err)

	_, err = svc.Transform(ctx, d)
	require.NoError(t, err)
	second, err := b.Get(ctx, svc.Key(d))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTransform_DataQualityWritesNothing(t *testing.T) {
	ctx := context.Background()
	var rows []columnar.RawCommit
	for i := range 94 {
		rows = append(rows, raw(fmt.Sprintf("ok%d", i), "dev@example.com", "2024-01-15T12:00:00Z"))
	}
	for i := range 6 {
		rows = append(rows, raw(fmt.Sprintf("bad%d", i), "", "2024-01-15T12:00:00Z"))
	}
	svc, b := setup(t, rows)

	res, err := svc.Transform(ctx, d)
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeDataQuality), "got %v", err)
	assert.Equal(t, 6, res.Report.Excluded)
	assert.Equal(t, 6, res.Report.Reasons["missing:author_email"])

	ok, err := b.Exists(ctx, svc.Key(d))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransform_AtThresholdPasses(t *testing.T) {
	var rows []columnar.RawCommit
	for i := range 95 {
		rows = append(rows, raw(fmt.Sprintf("ok%d", i), "dev@example.com", "2024-01-15T12:00:00Z"))
	}
	for i := range 5 {
		rows = append(rows, raw(fmt.Sprintf("bad%d", i), "not-an-email", "2024-01-15T12:00:00Z"))
	}
	svc, _ := setup(t, rows)

	res, err := svc.Transform(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 95, res.Report.Staged)
	assert.Equal(t, 5, res.Report.Reasons["cast:author_email"])
}

func TestTransform_EmptyBronze(t *testing.T) {
	ctx := context.Background()
	svc, b := setup(t, []columnar.RawCommit{})

	res, err := svc.Transform(ctx, d)
	require.NoError(t, err)
	assert.Zero(t, res.Report.Total)

	data, err := b.Get(ctx, res.Key)
	require.NoError(t, err)
	rows, err := columnar.DecodeStaged(data)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTransform_MissingBronze(t *testing.T) {
	svc, _ := setup(t, nil)
	_, err := svc.Transform(context.Background(), d)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound), "got %v", err)
}

func TestTransform_CorruptBronze(t *testing.T) {
	ctx := context.Background()
	svc, b := setup(t, nil)
	require.NoError(t, b.Put(ctx, svc.Source(d), []byte("not parquet"), columnar.ContentType))

	_, err := svc.Transform(ctx, d)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeCorruptArtifact), "got %v", err)
	assert.Equal(t, "CorruptArtifact", perr.KindOf(err))
	assert.NotEqual(t, "SchemaMismatchError", perr.KindOf(err))
}
