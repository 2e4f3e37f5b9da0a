// Package raw reads prefixed environment variables without logging anything,
// so the logger can be configured from it
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Env is a view of the environment under a key prefix
type Env struct{ prefix string }

// New returns the unprefixed view
func New() Env { return Env{} }

// Prefix narrows the view, e.g. New().Prefix("LOG_")
func (e Env) Prefix(p string) Env { return Env{prefix: e.prefix + p} }

// Key is the full variable name for k
func (e Env) Key(k string) string { return e.prefix + k }

// Lookup returns the trimmed value of k; blank counts as unset
func (e Env) Lookup(k string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(e.Key(k)))
	return v, v != ""
}

// Get returns the value of k or def
func (e Env) Get(k, def string) string {
	if v, ok := e.Lookup(k); ok {
		return v
	}
	return def
}

// Bool reads k as a boolean. yes/no and on/off are accepted too; anything
// unparseable is def.
func (e Env) Bool(k string, def bool) bool {
	v, ok := e.Lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Int reads k as an int, def when unset or unparseable
func (e Env) Int(k string, def int) int {
	v, ok := e.Lookup(k)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
