// Package mapping compiles the versioned, declarative description of how raw
// commits become analytics rows, and applies it as a pure function.
package mapping

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"commitflow/internal/adapters/columnar"

	"gopkg.in/yaml.v3"
)

//go:embed commits_v1.yaml
var embedded []byte

// Cast names accepted in a mapping document
const (
	CastString    = "string"
	CastText      = "text"
	CastName      = "name"
	CastEmail     = "email"
	CastTimestamp = "timestamp"
	CastSHA       = "sha"
)

// Spec is the document as written
type Spec struct {
	Version int          `yaml:"version"`
	Name    string       `yaml:"name"`
	Columns []ColumnSpec `yaml:"columns"`
	Derived []DerivedCol `yaml:"derived"`
	Dedup   DedupSpec    `yaml:"dedup"`
	Quality QualitySpec  `yaml:"quality"`
}

// ColumnSpec maps one raw field to one target column
type ColumnSpec struct {
	Target   string `yaml:"target"`
	Source   string `yaml:"source"`
	Fallback string `yaml:"fallback,omitempty"` // read when source is blank
	Cast     string `yaml:"cast"`
	Required bool   `yaml:"required"`
}

// DerivedCol computes a target from an already mapped column
type DerivedCol struct {
	Target string `yaml:"target"`
	From   string `yaml:"from"`
	Func   string `yaml:"func"`
}

// DedupSpec selects the uniqueness key and which occurrence survives
type DedupSpec struct {
	Key  string `yaml:"key"`
	Keep string `yaml:"keep"`
}

// QualitySpec carries the default exclusion threshold
type QualitySpec struct {
	MaxExcludedRatio float64 `yaml:"max_excluded_ratio"`
}

// rawFields are the readable fields of a raw commit
var rawFields = map[string]func(columnar.RawCommit) string{
	"sha":          func(r columnar.RawCommit) string { return r.SHA },
	"author_name":  func(r columnar.RawCommit) string { return r.AuthorName },
	"author_email": func(r columnar.RawCommit) string { return r.AuthorEmail },
	"message":      func(r columnar.RawCommit) string { return r.Message },
	"authored_at":  func(r columnar.RawCommit) string { return r.AuthoredAt },
	"committed_at": func(r columnar.RawCommit) string { return r.CommittedAt },
}

var knownCasts = map[string]bool{
	CastString: true, CastText: true, CastName: true, CastEmail: true, CastTimestamp: true, CastSHA: true,
}

// Default returns the compiled embedded mapping
func Default() (*Plan, error) { return Load(embedded) }

// MustDefault panics when the embedded mapping does not compile
func MustDefault() *Plan {
	p, err := Default()
	if err != nil {
		panic(err)
	}
	return p
}

// Load parses and compiles a mapping document
func Load(doc []byte) (*Plan, error) {
	var s Spec
	dec := yaml.NewDecoder(strings.NewReader(string(doc)))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("mapping: parse: %w", err)
	}
	return Compile(s)
}

// Compile validates a Spec against the staged row contract
func Compile(s Spec) (*Plan, error) {
	if s.Version <= 0 {
		return nil, fmt.Errorf("mapping: version must be positive")
	}
	if s.Quality.MaxExcludedRatio < 0 || s.Quality.MaxExcludedRatio > 1 {
		return nil, fmt.Errorf("mapping: max_excluded_ratio %v outside [0,1]", s.Quality.MaxExcludedRatio)
	}

	targets := map[string]string{} // target -> cast
	for i, c := range s.Columns {
		if c.Target == "" {
			return nil, fmt.Errorf("mapping: column %d has no target", i)
		}
		if _, dup := targets[c.Target]; dup {
			return nil, fmt.Errorf("mapping: duplicate target %q", c.Target)
		}
		if _, ok := rawFields[c.Source]; !ok {
			return nil, fmt.Errorf("mapping: %s: unknown source %q", c.Target, c.Source)
		}
		if _, ok := rawFields[c.Fallback]; c.Fallback != "" && !ok {
			return nil, fmt.Errorf("mapping: %s: unknown fallback %q", c.Target, c.Fallback)
		}
		if !knownCasts[c.Cast] {
			return nil, fmt.Errorf("mapping: %s: unknown cast %q", c.Target, c.Cast)
		}
		targets[c.Target] = c.Cast
	}
	for _, d := range s.Derived {
		if _, dup := targets[d.Target]; dup {
			return nil, fmt.Errorf("mapping: duplicate target %q", d.Target)
		}
		if d.Func != "utc_date" {
			return nil, fmt.Errorf("mapping: %s: unknown func %q", d.Target, d.Func)
		}
		if targets[d.From] != CastTimestamp {
			return nil, fmt.Errorf("mapping: %s: utc_date needs a timestamp column, got %q", d.Target, d.From)
		}
		targets[d.Target] = "date"
	}

	// every staged column must be produced, with a matching kind
	want := map[string]string{
		"commit_sha": "", "author_name": "", "author_email": "", "commit_message": "",
		"committed_at": CastTimestamp, "created_date": "date",
	}
	var missing []string
	for col, kind := range want {
		got, ok := targets[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		if kind != "" && got != kind {
			return nil, fmt.Errorf("mapping: %s must be %s, got %s", col, kind, got)
		}
		if kind == "" && (got == CastTimestamp || got == "date") {
			return nil, fmt.Errorf("mapping: %s must be a text cast, got %s", col, got)
		}
	}
	if len(targets) != len(want) {
		for t := range targets {
			if _, ok := want[t]; !ok {
				return nil, fmt.Errorf("mapping: unknown target %q", t)
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("mapping: targets not produced: %s", strings.Join(missing, ", "))
	}

	if s.Dedup.Key != "" {
		if _, ok := targets[s.Dedup.Key]; !ok {
			return nil, fmt.Errorf("mapping: dedup key %q is not a target", s.Dedup.Key)
		}
		if s.Dedup.Keep != "" && s.Dedup.Keep != "first" {
			return nil, fmt.Errorf("mapping: dedup keep %q unsupported (only first)", s.Dedup.Keep)
		}
	}

	return newPlan(s), nil
}
