// Package strings holds small string assertions used during wiring
package strings

import std "strings"

// MustString returns s, panicking with name when s is blank
func MustString(s string, name string) string {
	if std.TrimSpace(s) == "" {
		panic(name + " is required")
	}
	return s
}

// MustPrefix turns s into a route prefix with one leading slash and no
// trailing one. The bare root panics.
func MustPrefix(s string) string {
	s = "/" + std.Trim(s, " /")
	if s == "/" {
		panic("root path is required")
	}
	return s
}
