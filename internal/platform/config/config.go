// Package config handles application configuration via environment variables.
//
// A Conf is a namespaced view over the environment: New() for the root,
// Prefix("PROVIDER_") for a scope. Must* accessors panic on missing or
// malformed values and are meant for boot; May* accessors fall back to a
// default and log when the value is present but malformed.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"codefrog/internal/platform/logger"
)

// Conf is a namespaced view over environment variables
type Conf struct{ prefix string }

// New creates a root Conf (no prefix)
func New() Conf { return Conf{} }

// Prefix creates a child Conf, e.g. cfg.Prefix("PROVIDER_")
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// key composes the fully-qualified env var name
func (c Conf) key(k string) string { return c.prefix + k }

// MustString panics if the key is missing or empty
func (c Conf) MustString(key string) string {
	k := c.key(key)
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		logger.Get().Panic().Str("key", k).Msg("missing required env")
	}
	return v
}

// MustInt panics if the key is missing, empty, or not an int
func (c Conf) MustInt(key string) int {
	s := strings.TrimSpace(os.Getenv(c.key(key)))
	if s == "" {
		logger.Get().Panic().Str("key", c.key(key)).Msg("missing required env")
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		logger.Get().Panic().Str("key", c.key(key)).Str("value", s).Msg("invalid int value")
	}
	return v
}

// MustPEM returns the value of key as PEM bytes.
// The value is either inline PEM (possibly with literal \n escapes, the way
// hosting providers hand out app private keys) or a path to a PEM file.
func (c Conf) MustPEM(key string) []byte {
	s := c.MustString(key)
	if strings.Contains(s, "-----BEGIN") {
		return []byte(strings.ReplaceAll(s, `\n`, "\n"))
	}
	b, err := os.ReadFile(s)
	if err != nil {
		logger.Get().Panic().Str("key", c.key(key)).Err(err).Msg("cannot read PEM file")
	}
	return b
}

// MustDir returns the directory named by key, creating it when missing
func (c Conf) MustDir(key string) string {
	dir := c.MustString(key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Get().Panic().Str("key", c.key(key)).Str("dir", dir).Err(err).Msg("cannot create directory")
	}
	return dir
}

// MayDir returns the directory named by key or def, creating it when missing
func (c Conf) MayDir(key, def string) string {
	dir := c.MayString(key, def)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("dir", dir).Err(err).Msg("cannot create directory")
	}
	return dir
}

// Require ensures that all given keys are present (non-empty). Panics otherwise.
func (c Conf) Require(keys ...string) {
	for _, k := range keys {
		if strings.TrimSpace(os.Getenv(c.key(k))) == "" {
			logger.Get().Panic().Str("key", c.key(k)).Msg("missing required env")
		}
	}
}

// MayString returns the value or def if missing/empty
func (c Conf) MayString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(c.key(key)))
	if v == "" {
		return def
	}
	return v
}

// MayInt returns the value or def if missing/empty; logs and returns def if invalid
func (c Conf) MayInt(key string, def int) int {
	s := strings.TrimSpace(os.Getenv(c.key(key)))
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Int("default", def).Msg("invalid int; using default")
	return def
}

// MayBool returns the value or def if missing/empty; logs and returns def if invalid
func (c Conf) MayBool(key string, def bool) bool {
	s := strings.TrimSpace(os.Getenv(c.key(key)))
	if s == "" {
		return def
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Bool("default", def).Msg("invalid bool; using default")
	return def
}

// MayDuration returns the value or def if missing/empty; logs and returns def if invalid.
// Plain integers are read as seconds so operators can say TASK_EXPIRATION=1800.
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	s := strings.TrimSpace(os.Getenv(c.key(key)))
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Dur("default", def).Msg("invalid duration; using default")
	return def
}

// MayCSV returns a slice of strings from a comma-separated env var; def if missing/empty
func (c Conf) MayCSV(key string, def []string) []string {
	s := strings.TrimSpace(os.Getenv(c.key(key)))
	if s == "" {
		return def
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
