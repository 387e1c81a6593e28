// Package config reads settings from the environment, optionally layered over a
// config file whose keys are the same names as the env vars
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cancioneiro/internal/platform/logger"

	"github.com/spf13/viper"
)

// FileEnv names the env var Default reads the config file path from
const FileEnv = "CONFIG_FILE"

// Conf is a prefixed view, cfg.Prefix("CORE_API_").MayInt("PORT", ...) reads CORE_API_PORT.
// Env always wins over the file
type Conf struct {
	prefix string
	v      *viper.Viper
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}

// New returns an env only root Conf
func New() Conf { return Conf{v: newViper()} }

// Load returns a root Conf layered over the file at path (yaml, toml or json by extension).
// An empty path is the same as New
func Load(path string) (Conf, error) {
	v := newViper()
	if path == "" {
		return Conf{v: v}, nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Conf{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Conf{v: v}, nil
}

// Default is Load on the path in CONFIG_FILE
func Default() (Conf, error) { return Load(New().MayString(FileEnv, "")) }

// Prefix returns a child view with p appended to the prefix
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p, v: c.v} }

// File reports the config file in use, empty when env only
func (c Conf) File() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

func (c Conf) key(k string) string { return c.prefix + k }

// lookup returns the trimmed value and whether it was set to something non empty.
// The zero Conf reads the environment
func (c Conf) lookup(k string) (string, bool) {
	v := c.v
	if v == nil {
		v = newViper()
	}
	raw := v.Get(c.key(k))
	if raw == nil {
		return "", false
	}
	var s string
	switch x := raw.(type) {
	case []any:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			parts = append(parts, fmt.Sprint(p))
		}
		s = strings.Join(parts, ",")
	default:
		s = fmt.Sprint(x)
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// may parses key with parse, falling back to def when unset or unparsable
func may[T any](c Conf, key string, def T, kind string, parse func(string) (T, error)) T {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Interface("default", def).
			Msg("invalid " + kind + ", using default")
		return def
	}
	return v
}

// MustString panics when key is unset
func (c Conf) MustString(key string) string {
	s, ok := c.lookup(key)
	if !ok {
		logger.Get().Panic().Str("key", c.key(key)).Msg("missing required config")
	}
	return s
}

// MayString returns the value or def
func (c Conf) MayString(key, def string) string {
	if s, ok := c.lookup(key); ok {
		return s
	}
	return def
}

// MayInt returns the value or def, logging when the value is not an int
func (c Conf) MayInt(key string, def int) int {
	return may(c, key, def, "int", strconv.Atoi)
}

// MayFloat64 returns the value or def, logging when the value is not a float
func (c Conf) MayFloat64(key string, def float64) float64 {
	return may(c, key, def, "float", func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// MayBool returns the value or def, logging when the value is not a bool
func (c Conf) MayBool(key string, def bool) bool {
	return may(c, key, def, "bool", strconv.ParseBool)
}

// MayDuration returns the value or def, logging when the value is not a duration like 250ms
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, "duration", time.ParseDuration)
}

// MayCSV splits a comma separated value (or a file list) and drops blanks. def when nothing is left
func (c Conf) MayCSV(key string, def []string) []string {
	s, ok := c.lookup(key)
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

// MayEnum returns the value when it is one of allowed (case insensitive), def when unset,
// and panics otherwise since a typo in a mode switch should stop the process
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
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
