// Package raw is a logging-free view over environment variables.
// The logger bootstraps itself from here, so this package must not
// import the logger (or anything that does).
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Conf reads env vars under a prefix without any logging side effects
type Conf struct{ prefix string }

// New creates a root Conf (no prefix)
func New() Conf { return Conf{} }

// Prefix returns a child Conf with an additional prefix
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// Get returns the value for key or def when missing/empty
func (c Conf) Get(key, def string) string {
	v := strings.TrimSpace(os.Getenv(c.prefix + key))
	if v == "" {
		return def
	}
	return v
}

// GetBool returns the bool value for key or def when missing/invalid
func (c Conf) GetBool(key string, def bool) bool {
	s := strings.TrimSpace(os.Getenv(c.prefix + key))
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

// GetInt returns the int value for key or def when missing/invalid
func (c Conf) GetInt(key string, def int) int {
	s := strings.TrimSpace(os.Getenv(c.prefix + key))
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
