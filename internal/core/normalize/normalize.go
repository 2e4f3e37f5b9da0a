// Package normalize holds the text and value casts the mapping engine applies
// to raw commit fields. Every cast is a pure function of its input.
package normalize

import (
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// identity chains are pooled; transformers carry state between calls
var identPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			runes.Remove(runes.In(unicode.Cf)), // ZWJ, ZWNJ, BOM
			width.Fold,
		)
	},
}

// Text cleans free text: control bytes and invalid UTF-8 dropped, NFC composed.
// Newlines and tabs survive.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return norm.NFC.String(Sanitize(s))
}

// Name cleans a display name: identity folding plus whitespace collapsed
func Name(s string) string {
	return strings.Join(strings.Fields(ident(s)), " ")
}

// Email cleans an address and lowercases its domain. ok is false when the
// result is not a plausible single address.
func Email(s string) (string, bool) {
	e := strings.TrimSpace(ident(s))
	at := strings.LastIndexByte(e, '@')
	if at <= 0 || at == len(e)-1 || strings.IndexByte(e, '@') != at {
		return "", false
	}
	if strings.IndexFunc(e, unicode.IsSpace) >= 0 {
		return "", false
	}
	return e[:at] + "@" + strings.ToLower(e[at+1:]), true
}

// SHA returns a full git object id in lowercase. ok is false unless the
// trimmed input is exactly 40 hex digits.
func SHA(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 40 {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", false
		}
	}
	return s, true
}

// Timestamp parses RFC 3339 (with or without fractional seconds) or unix
// seconds, returning UTC truncated to microseconds
func Timestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC().Truncate(time.Microsecond), true
	}
	if isDigits(s) {
		sec, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return time.Unix(sec, 0).UTC(), true
		}
	}
	return time.Time{}, false
}

// Sanitize drops what the warehouse must not store: C0 controls other than
// newline, carriage return and tab, DEL, C1 controls and bytes that are not
// valid UTF-8. U+FFFD goes with them. Clean input comes back unchanged.
func Sanitize(s string) string {
	if utf8.ValidString(s) && strings.IndexFunc(s, control) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == utf8.RuneError || control(r) {
			return -1
		}
		return r
	}, s)
}

func control(r rune) bool {
	switch r {
	case '\n', '\r', '\t':
		return false
	}
	return r < 0x20 || (r >= 0x7f && r <= 0x9f)
}

func ident(s string) string {
	if s == "" {
		return ""
	}
	s = Sanitize(s)
	tr := identPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	identPool.Put(tr)
	if err != nil {
		return s
	}
	return out
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
