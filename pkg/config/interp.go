// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// resolve interpolates a raw value. Maps and lists are resolved
// recursively; strings have their ${dotted.path} tokens substituted;
// everything else passes through unchanged.
func (c *Config) resolve(v any, visited map[string]bool) (any, error) {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			r, err := c.resolve(item, visited)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			r, err := c.resolve(item, visited)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case string:
		return c.interpolate(v, visited)
	}
	return v, nil
}

// interpolate substitutes ${dotted.path} tokens in s. A string that
// is exactly one token resolves to the referenced value with its type
// intact. A token embedded in other text substitutes the value's
// string form, with non-string values JSON-encoded. $${ escapes a
// literal ${.
func (c *Config) interpolate(s string, visited map[string]bool) (any, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}
	if path, ok := wholeToken(s); ok {
		return c.resolvePath(path, visited)
	}

	var b strings.Builder
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], "$${") {
			b.WriteString("${")
			i += 3
			continue
		}
		if !strings.HasPrefix(s[i:], "${") {
			b.WriteByte(s[i])
			i++
			continue
		}
		end := strings.IndexByte(s[i:], '}')
		if end < 0 {
			return nil, &Error{Path: s, Reason: "unterminated ${ token"}
		}
		path := s[i+2 : i+end]
		v, err := c.resolvePath(path, visited)
		if err != nil {
			return nil, err
		}
		b.WriteString(stringForm(v))
		i += end + 1
	}
	return b.String(), nil
}

// wholeToken reports whether s is exactly one unescaped ${path}
// token, and returns the path.
func wholeToken(s string) (string, bool) {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return "", false
	}
	path := s[2 : len(s)-1]
	if strings.ContainsAny(path, "{}$") {
		return "", false
	}
	return path, true
}

// resolvePath reads the value the token refers to from the root
// mapping, interpolating it in turn. The visited set is the current
// resolution stack; revisiting a path on it is a cycle.
func (c *Config) resolvePath(path string, visited map[string]bool) (any, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, &Error{Reason: "empty ${} token"}
	}
	if visited[path] {
		return nil, &Error{Path: path, Reason: "interpolation cycle"}
	}
	raw, ok := lookup(c.root, path)
	if !ok {
		return nil, &Error{Path: path, Reason: "no such key"}
	}
	visited[path] = true
	v, err := (&Config{data: c.root, root: c.root}).resolve(raw, visited)
	delete(visited, path)
	return v, err
}

// stringForm renders an interpolated value for embedding in a larger
// string.
func stringForm(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return "null"
	case bool, int, int64, float64:
		return fmt.Sprintf("%v", v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
