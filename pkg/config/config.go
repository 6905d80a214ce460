// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config implements the layered configuration store: nested
// maps with dotted-path access, lazy ${dotted.path} interpolation,
// environment-section overlay, and file inheritance via extends.
package config

import (
	"fmt"
	"strings"
)

// Error reports a configuration problem: a malformed file, an
// unresolvable path, a bad extends target, or an interpolation cycle.
type Error struct {
	File   string
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("config")
	if e.File != "" {
		fmt.Fprintf(&b, " %s", e.File)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Config is a nested key/value mapping with dotted-path access.
// Entries hold raw values; interpolation happens on every read, so a
// later Set is visible through every entry that references the
// updated path.
type Config struct {
	data map[string]any
	// root is the mapping interpolation tokens resolve against.
	// For section views (per-command args, environ) it points at the
	// merged globals rather than the section itself.
	root map[string]any
}

// New wraps data in a Config that interpolates against itself.
func New(data map[string]any) *Config {
	if data == nil {
		data = make(map[string]any)
	}
	return &Config{data: data, root: data}
}

// Section wraps data in a Config whose interpolation tokens resolve
// against the given root instead of the section itself.
func Section(data, root map[string]any) *Config {
	if data == nil {
		data = make(map[string]any)
	}
	return &Config{data: data, root: root}
}

// Raw returns the underlying mapping, uninterpolated.
func (c *Config) Raw() map[string]any { return c.data }

// Has reports whether the dotted path exists, without interpolating.
func (c *Config) Has(path string) bool {
	_, ok := lookup(c.data, path)
	return ok
}

// Get returns the interpolated value at the dotted path. A missing
// key is an *Error.
func (c *Config) Get(path string) (any, error) {
	raw, ok := lookup(c.data, path)
	if !ok {
		return nil, &Error{Path: path, Reason: "no such key"}
	}
	return c.resolve(raw, make(map[string]bool))
}

// MustGet is Get for keys the caller knows exist; it panics on a
// missing key or an interpolation error.
func (c *Config) MustGet(path string) any {
	v, err := c.Get(path)
	if err != nil {
		panic(err)
	}
	return v
}

// GetDefault is Get with a fallback for missing keys. Interpolation
// problems in a present value still surface as errors.
func (c *Config) GetDefault(path string, def any) (any, error) {
	raw, ok := lookup(c.data, path)
	if !ok {
		return def, nil
	}
	return c.resolve(raw, make(map[string]bool))
}

// Set writes a raw value at the dotted path, creating intermediate
// maps as needed. Non-map intermediates are replaced.
func (c *Config) Set(path string, value any) {
	parts := strings.Split(path, ".")
	m := c.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// Resolved returns a deep copy of the whole mapping with every value
// interpolated.
func (c *Config) Resolved() (map[string]any, error) {
	v, err := c.resolve(c.data, make(map[string]bool))
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

// lookup walks a dotted path through nested maps without
// interpolating.
func lookup(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = data
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Merge deep-merges src over dst and returns dst. Nested maps merge
// key by key; everything else is overwritten. dst may be nil.
func Merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				dst[k] = Merge(copyMap(dm), sm)
				continue
			}
		}
		dst[k] = v
	}
	return dst
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
