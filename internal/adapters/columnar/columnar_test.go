package columnar

import (
	"bytes"
	"testing"
	"time"

	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStaged() []StagedCommit {
	return []StagedCommit{
		NewStagedCommit("sha1", "Ada", "ada@example.com", "first\nline two",
			time.Date(2024, 1, 15, 10, 0, 0, 123456789, time.UTC)),
		NewStagedCommit("sha2", "Bob", "bob@example.com", "",
			time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC)),
	}
}

func TestStagedCommit_Derived(t *testing.T) {
	s := sampleStaged()[0]
	assert.Equal(t, "2024-01-15", s.Created().String())
	assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 123456000, time.UTC), s.CommittedAt())

	// a non-UTC instant lands on its UTC day
	late := NewStagedCommit("sha3", "C", "c@example.com", "m",
		time.Date(2024, 1, 15, 20, 0, 0, 0, time.FixedZone("EST", -5*3600)))
	assert.True(t, late.Created().Equal(day.MustParse("2024-01-16")))
}

func TestStaged_RoundTripAndDeterminism(t *testing.T) {
	rows := sampleStaged()
	a, err := EncodeStaged(rows)
	require.NoError(t, err)
	b, err := EncodeStaged(rows)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b), "encoding is not byte-reproducible")

	got, err := DecodeStaged(a)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestRaw_EmptyFileIsValid(t *testing.T) {
	data, err := EncodeRaw(nil)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	rows, err := DecodeRaw(data)
	require.NoError(t, err)
	assert.Empty(t, rows)

	cols, err := FileColumns(data)
	require.NoError(t, err)
	assert.Equal(t, "page", cols[0].Name)
}

func TestColumns(t *testing.T) {
	want := StagedColumns()
	names := make([]string, len(want))
	for i, c := range want {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"commit_sha", "author_name", "author_email", "commit_message", "committed_at", "created_date"}, names)

	data, err := EncodeStaged(sampleStaged())
	require.NoError(t, err)
	got, err := FileColumns(data)
	require.NoError(t, err)
	assert.Empty(t, SameColumns(got, want))

	raw, err := EncodeRaw([]RawCommit{{SHA: "x"}})
	require.NoError(t, err)
	rawCols, err := FileColumns(raw)
	require.NoError(t, err)
	assert.NotEmpty(t, SameColumns(rawCols, want))

	assert.Contains(t, SameColumns(want[:2], want), "column count")
}

func TestDecode_Garbage(t *testing.T) {
	_, err := DecodeStaged([]byte("not parquet"))
	assert.True(t, perr.IsCode(err, perr.ErrorCodeCorruptArtifact), "got %v", err)
	_, err = DecodeRaw([]byte("not parquet"))
	assert.True(t, perr.IsCode(err, perr.ErrorCodeCorruptArtifact), "got %v", err)
	_, err = FileColumns([]byte("nope"))
	assert.True(t, perr.IsCode(err, perr.ErrorCodeCorruptArtifact), "got %v", err)
}
