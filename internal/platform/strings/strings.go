// Package strings holds the few string helpers modules and repos share
package strings

import std "strings"

// MustString returns s, or panics naming what was missing when s is blank
func MustString(s, name string) string {
	if std.TrimSpace(s) == "" {
		panic(name + " is required")
	}
	return s
}

// MustPrefix cleans a mount prefix to one leading slash and no trailing one.
// A blank or root prefix panics since modules mounted at / use Group instead
func MustPrefix(s string) string {
	s = "/" + std.Trim(std.TrimSpace(s), "/ ")
	if s == "/" {
		panic("root path is required")
	}
	return s
}

// Ptr returns &s, or nil for an empty s so it binds as NULL
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
