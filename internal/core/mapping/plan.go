package mapping

import (
	"strings"
	"time"

	"commitflow/internal/adapters/columnar"
	"commitflow/internal/core/normalize"
	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"
)

// Plan is a compiled, immutable mapping
type Plan struct {
	Version          int
	Name             string
	MaxExcludedRatio float64

	cols     []compiledCol
	dedupKey string
}

type compiledCol struct {
	target   string
	read     func(columnar.RawCommit) string
	fallback func(columnar.RawCommit) string
	cast     string
	required bool
}

// Report counts what happened to every input row
type Report struct {
	MappingVersion int
	Total          int
	Staged         int
	Excluded       int
	Duplicates     int
	OutOfWindow    int
	Reasons        map[string]int // missing:<col> | cast:<col>
}

// ExcludedRatio is excluded rows over all input rows, 0 for an empty input
func (r Report) ExcludedRatio() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Excluded) / float64(r.Total)
}

// Result is the staged rows plus the accounting
type Result struct {
	Rows   []columnar.StagedCommit
	Report Report
}

func newPlan(s Spec) *Plan {
	p := &Plan{
		Version:          s.Version,
		Name:             s.Name,
		MaxExcludedRatio: s.Quality.MaxExcludedRatio,
		dedupKey:         s.Dedup.Key,
	}
	for _, c := range s.Columns {
		cc := compiledCol{target: c.Target, read: rawFields[c.Source], cast: c.Cast, required: c.Required}
		if c.Fallback != "" {
			cc.fallback = rawFields[c.Fallback]
		}
		p.cols = append(p.cols, cc)
	}
	return p
}

// WithThreshold returns a copy using ratio as the exclusion threshold
func (p *Plan) WithThreshold(ratio float64) *Plan {
	cp := *p
	cp.MaxExcludedRatio = ratio
	return &cp
}

// draft holds one row's mapped values before it becomes a StagedCommit
type draft struct {
	text map[string]string
	at   time.Time
}

// Apply maps raws for logical date d. Rows missing a required value or failing a
// cast are excluded; rows whose created_date is not d are dropped as out of window;
// later rows repeating a dedup key are dropped. Output keeps input order.
// When the excluded ratio is over the threshold the error is a DataQuality error
// and Result still carries the report.
func (p *Plan) Apply(d day.Date, raws []columnar.RawCommit) (Result, error) {
	rep := Report{MappingVersion: p.Version, Total: len(raws), Reasons: map[string]int{}}
	out := make([]columnar.StagedCommit, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))

	for _, raw := range raws {
		dr, reason := p.mapRow(raw)
		if reason != "" {
			rep.Excluded++
			rep.Reasons[reason]++
			continue
		}
		if !d.Contains(dr.at) {
			rep.OutOfWindow++
			continue
		}
		if p.dedupKey != "" {
			k := dr.key(p.dedupKey)
			if _, dup := seen[k]; dup {
				rep.Duplicates++
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, columnar.NewStagedCommit(
			dr.text["commit_sha"], dr.text["author_name"], dr.text["author_email"], dr.text["commit_message"], dr.at,
		))
	}
	rep.Staged = len(out)

	res := Result{Rows: out, Report: rep}
	if ratio := rep.ExcludedRatio(); ratio > p.MaxExcludedRatio {
		return res, perr.Newf(perr.ErrorCodeDataQuality,
			"excluded %d of %d rows (ratio %.4f > %.4f)", rep.Excluded, rep.Total, ratio, p.MaxExcludedRatio)
	}
	return res, nil
}

// mapRow returns the draft or the exclusion reason
func (p *Plan) mapRow(raw columnar.RawCommit) (draft, string) {
	dr := draft{text: make(map[string]string, len(p.cols))}
	for _, c := range p.cols {
		v := c.read(raw)
		if strings.TrimSpace(v) == "" && c.fallback != nil {
			v = c.fallback(raw)
		}
		if strings.TrimSpace(v) == "" {
			if c.required {
				return draft{}, "missing:" + c.target
			}
			continue
		}

		switch c.cast {
		case CastTimestamp:
			t, ok := normalize.Timestamp(v)
			if !ok {
				return draft{}, "cast:" + c.target
			}
			dr.at = t
		case CastSHA:
			h, ok := normalize.SHA(v)
			if !ok {
				return draft{}, "cast:" + c.target
			}
			dr.text[c.target] = h
		case CastEmail:
			e, ok := normalize.Email(v)
			if !ok {
				return draft{}, "cast:" + c.target
			}
			dr.text[c.target] = e
		default:
			s := castText(c.cast, v)
			if s == "" && c.required {
				return draft{}, "missing:" + c.target
			}
			dr.text[c.target] = s
		}
	}
	return dr, ""
}

func castText(cast, v string) string {
	switch cast {
	case CastText:
		return normalize.Text(v)
	case CastName:
		return normalize.Name(v)
	default:
		return strings.TrimSpace(normalize.Sanitize(v))
	}
}

func (d draft) key(target string) string {
	if target == "committed_at" {
		return d.at.Format(time.RFC3339Nano)
	}
	return d.text[target]
}
