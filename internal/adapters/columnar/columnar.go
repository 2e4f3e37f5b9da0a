// Package columnar encodes raw and staged commit rows as parquet files.
// Encoding is deterministic: the same rows always produce the same bytes.
package columnar

import (
	"bytes"
	"fmt"
	"time"

	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"

	"github.com/parquet-go/parquet-go"
)

// ContentType is the media type stored alongside parquet objects
const ContentType = "application/vnd.apache.parquet"

// RawCommit is one commit exactly as the upstream API returned it, plus its position
// in the pagination stream. Absent upstream values are empty strings.
type RawCommit struct {
	Page        int32  `parquet:"page"`
	Ordinal     int32  `parquet:"ordinal"`
	SHA         string `parquet:"sha"`
	AuthorName  string `parquet:"author_name"`
	AuthorEmail string `parquet:"author_email"`
	Message     string `parquet:"message"`
	AuthoredAt  string `parquet:"authored_at"`
	CommittedAt string `parquet:"committed_at"`
}

// StagedCommit is the typed analytics row; column order is the warehouse contract
type StagedCommit struct {
	CommitSHA     string `parquet:"commit_sha"`
	AuthorName    string `parquet:"author_name"`
	AuthorEmail   string `parquet:"author_email"`
	CommitMessage string `parquet:"commit_message"`
	CommittedAtUS int64  `parquet:"committed_at,timestamp(microsecond)"`
	CreatedDate   int32  `parquet:"created_date,date"`
}

var epoch = time.Unix(0, 0).UTC()

// NewStagedCommit fills the time columns from t and derives created_date from its UTC day
func NewStagedCommit(sha, name, email, msg string, t time.Time) StagedCommit {
	t = t.UTC().Truncate(time.Microsecond)
	return StagedCommit{
		CommitSHA:     sha,
		AuthorName:    name,
		AuthorEmail:   email,
		CommitMessage: msg,
		CommittedAtUS: t.UnixMicro(),
		CreatedDate:   int32(day.Of(t).Start().Sub(epoch) / (24 * time.Hour)),
	}
}

// CommittedAt returns the commit timestamp in UTC
func (s StagedCommit) CommittedAt() time.Time { return time.UnixMicro(s.CommittedAtUS).UTC() }

// Created returns the created_date partition day
func (s StagedCommit) Created() day.Date {
	return day.Of(epoch.AddDate(0, 0, int(s.CreatedDate)))
}

// EncodeRaw writes raw rows to a parquet file image
func EncodeRaw(rows []RawCommit) ([]byte, error) { return encode(rows) }

// DecodeRaw reads a raw parquet file image
func DecodeRaw(data []byte) ([]RawCommit, error) { return decode[RawCommit](data) }

// EncodeStaged writes staged rows to a parquet file image
func EncodeStaged(rows []StagedCommit) ([]byte, error) { return encode(rows) }

// DecodeStaged reads a staged parquet file image
func DecodeStaged(data []byte) ([]StagedCommit, error) { return decode[StagedCommit](data) }

func encode[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows, parquet.Compression(&parquet.Snappy)); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "parquet encode")
	}
	return buf.Bytes(), nil
}

func decode[T any](data []byte) ([]T, error) {
	rows, err := parquet.Read[T](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeCorruptArtifact, "parquet decode")
	}
	return rows, nil
}

// Column is a leaf column name and its parquet type rendering
type Column struct {
	Name string
	Type string
}

// String renders name:type
func (c Column) String() string { return c.Name + ":" + c.Type }

// StagedColumns is the column contract staged files must carry
func StagedColumns() []Column { return columnsOf(parquet.SchemaOf(StagedCommit{})) }

// FileColumns reads the top-level columns from a parquet file image
func FileColumns(data []byte) ([]Column, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeCorruptArtifact, "parquet open")
	}
	return columnsOf(f.Schema()), nil
}

func columnsOf(s *parquet.Schema) []Column {
	fields := s.Fields()
	out := make([]Column, len(fields))
	for i, f := range fields {
		out[i] = Column{Name: f.Name(), Type: f.Type().String()}
	}
	return out
}

// SameColumns reports the first difference between got and want, "" when equal
func SameColumns(got, want []Column) string {
	if len(got) != len(want) {
		return fmt.Sprintf("column count %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Sprintf("column %d is %s, want %s", i, got[i], want[i])
		}
	}
	return ""
}
