// Package config reads settings from prefixed environment variables. Bad
// values fall back to the default with a warning.
package config

import (
	"strconv"
	"strings"
	"time"

	"commitflow/internal/platform/config/raw"
	"commitflow/internal/platform/logger"
)

// Conf is a prefixed view of the environment; New().Prefix("CORE_API_")
type Conf struct{ env raw.Env }

// New returns the unprefixed view
func New() Conf { return Conf{env: raw.New()} }

// Prefix narrows the view
func (c Conf) Prefix(p string) Conf { return Conf{env: c.env.Prefix(p)} }

// may reads key through parse, falling back to def when unset or unparseable
func may[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	s, ok := c.env.Lookup(key)
	if !ok {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().
			Str("key", c.env.Key(key)).
			Str("value", s).
			Interface("default", def).
			Msg("invalid config value, using default")
		return def
	}
	return v
}

// MayString returns key or def
func (c Conf) MayString(key, def string) string { return c.env.Get(key, def) }

// MayInt returns key as an int or def
func (c Conf) MayInt(key string, def int) int { return may(c, key, def, strconv.Atoi) }

// MayFloat64 returns key as a float or def
func (c Conf) MayFloat64(key string, def float64) float64 {
	return may(c, key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// MayBool returns key as a bool or def
func (c Conf) MayBool(key string, def bool) bool { return may(c, key, def, strconv.ParseBool) }

// MayDuration returns key as a duration ("250ms", "2h") or def
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, time.ParseDuration)
}

// MayRatio returns key as a fraction in [0,1] or def. Values outside the
// range panic; they are nearly always a percentage given by mistake.
func (c Conf) MayRatio(key string, def float64) float64 {
	v := c.MayFloat64(key, def)
	if v < 0 || v > 1 {
		logger.Get().Panic().Str("key", c.env.Key(key)).Float64("value", v).Msg("ratio must be within [0,1]")
	}
	return v
}

// MayCSV splits key on commas, dropping blanks; def when nothing is left
func (c Conf) MayCSV(key string, def []string) []string {
	s, ok := c.env.Lookup(key)
	if !ok {
		return def
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns key or def, panicking when the value is not one of allowed
// (compared case-insensitively)
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	if v == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return v
		}
	}
	logger.Get().Panic().Str("key", c.env.Key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
