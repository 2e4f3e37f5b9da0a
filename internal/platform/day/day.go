// Package day models the pipeline's logical date: a UTC calendar day that names
// the extraction window, the object storage partition and the warehouse partition
package day

import (
	"time"

	perr "commitflow/internal/platform/errors"
)

// Layout is the canonical text form (dt=YYYY-MM-DD)
const Layout = "2006-01-02"

// Date is a UTC calendar day; the zero value is not a valid logical date
type Date struct{ t time.Time }

// Parse reads YYYY-MM-DD
func Parse(s string) (Date, error) {
	t, err := time.ParseInLocation(Layout, s, time.UTC)
	if err != nil {
		return Date{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "logical date %q is not YYYY-MM-DD", s)
	}
	return Date{t: t}, nil
}

// MustParse is Parse for constants and tests
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Of truncates t to its UTC calendar day
func Of(t time.Time) Date {
	u := t.UTC()
	return Date{t: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// IsZero reports whether d was never set
func (d Date) IsZero() bool { return d.t.IsZero() }

// String renders YYYY-MM-DD
func (d Date) String() string { return d.t.Format(Layout) }

// PartitionID renders the clickhouse partition id of a Date partition key (YYYYMMDD)
func (d Date) PartitionID() string { return d.t.Format("20060102") }

// Start is 00:00:00Z of the day
func (d Date) Start() time.Time { return d.t }

// End is 00:00:00Z of the following day; windows are [Start, End)
func (d Date) End() time.Time { return d.t.AddDate(0, 0, 1) }

// Next returns the following day
func (d Date) Next() Date { return Date{t: d.End()} }

// Before reports whether d is strictly earlier than o
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// Equal reports calendar equality
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// Contains reports whether t falls on this UTC day
func (d Date) Contains(t time.Time) bool { return Of(t).Equal(d) }

// Range lists every day from start through end inclusive
func Range(start, end Date) ([]Date, error) {
	if start.IsZero() || end.IsZero() {
		return nil, perr.InvalidArgf("range bounds are required")
	}
	if end.Before(start) {
		return nil, perr.InvalidArgf("range end %s is before start %s", end, start)
	}
	var out []Date
	for d := start; !end.Before(d); d = d.Next() {
		out = append(out, d)
	}
	return out, nil
}

// MarshalText implements encoding.TextMarshaler
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Date) UnmarshalText(b []byte) error {
	p, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = p
	return nil
}
