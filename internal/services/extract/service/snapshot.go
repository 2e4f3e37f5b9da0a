package service

import (
	"context"
	"iter"
	"time"

	"commitflow/internal/adapters/columnar"
	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/logger"
	"commitflow/internal/platform/objstore"
	"commitflow/internal/services/extract/domain"
)

// SnapshotWriter lands a commit stream as one bronze parquet object per logical date
type SnapshotWriter struct {
	store  domain.ObjectWriter
	prefix string
}

// NewSnapshotWriter writes under prefix in store
func NewSnapshotWriter(store domain.ObjectWriter, prefix string) *SnapshotWriter {
	if store == nil {
		panic("extract.SnapshotWriter requires a non nil ObjectWriter")
	}
	return &SnapshotWriter{store: store, prefix: prefix}
}

// Key returns {prefix}/dt=YYYY-MM-DD/commits.parquet
func (w *SnapshotWriter) Key(d day.Date) string {
	return objstore.PartitionKey(w.prefix, d, domain.SnapshotFile)
}

// Write drains seq and replaces the snapshot for d. Nothing is written when seq
// fails; an empty stream still produces a valid, empty file.
func (w *SnapshotWriter) Write(ctx context.Context, d day.Date, seq iter.Seq2[domain.CommitRecord, error]) (domain.SnapshotRef, error) {
	var rows []columnar.RawCommit
	for rec, err := range seq {
		if err != nil {
			return domain.SnapshotRef{}, err
		}
		rows = append(rows, toRaw(rec))
	}
	if err := ctx.Err(); err != nil {
		return domain.SnapshotRef{}, err
	}

	data, err := columnar.EncodeRaw(rows)
	if err != nil {
		return domain.SnapshotRef{}, perr.WithOp(err, "extract")
	}
	key := w.Key(d)
	if err := w.store.Put(ctx, key, data, columnar.ContentType); err != nil {
		return domain.SnapshotRef{}, perr.WithOp(err, "extract")
	}
	return domain.SnapshotRef{Key: key, Rows: len(rows), Bytes: int64(len(data))}, nil
}

func toRaw(rec domain.CommitRecord) columnar.RawCommit {
	return columnar.RawCommit{
		Page:        int32(rec.Page),
		Ordinal:     int32(rec.Ordinal),
		SHA:         rec.SHA,
		AuthorName:  rec.AuthorName,
		AuthorEmail: rec.AuthorEmail,
		Message:     rec.Message,
		AuthoredAt:  rec.AuthoredAt,
		CommittedAt: rec.CommittedAt,
	}
}

// Service composes the paginator and the snapshot writer
type Service struct {
	Source domain.CommitSource
	Writer *SnapshotWriter
}

// New constructs the extract service
func New(src domain.CommitSource, w *SnapshotWriter) *Service {
	if src == nil || w == nil {
		panic("extract.Service requires a source and a writer")
	}
	return &Service{Source: src, Writer: w}
}

// Extract implements domain.ExtractorPort
func (s *Service) Extract(ctx context.Context, win domain.Window) (domain.SnapshotRef, error) {
	if win.LogicalDate.IsZero() {
		return domain.SnapshotRef{}, perr.WithOp(perr.WithField(perr.InvalidArgf("logical date is required"), "logical_date"), "extract")
	}
	t0 := time.Now()
	ref, err := s.Writer.Write(ctx, win.LogicalDate, s.Source.Commits(ctx, win))
	if err != nil {
		return ref, err
	}
	logger.C(ctx).Info().
		Str("key", ref.Key).
		Int("rows", ref.Rows).
		Int64("bytes", ref.Bytes).
		Dur("elapsed", time.Since(t0)).
		Msg("extract: snapshot written")
	return ref, nil
}

// Key implements domain.ExtractorPort
func (s *Service) Key(d day.Date) string { return s.Writer.Key(d) }

// Daily extracts whole UTC days of one repo and ref
type Daily struct {
	svc       *Service
	repo, ref string
}

// ForRepo binds s to repo at ref
func (s *Service) ForRepo(repo, ref string) *Daily { return &Daily{svc: s, repo: repo, ref: ref} }

// Extract lands the snapshot for d
func (d *Daily) Extract(ctx context.Context, date day.Date) (domain.SnapshotRef, error) {
	return d.svc.Extract(ctx, domain.WindowFor(d.repo, d.ref, date))
}

// Key returns the bronze key for date
func (d *Daily) Key(date day.Date) string { return d.svc.Key(date) }
