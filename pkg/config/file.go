// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultFiles are the config file candidates probed in order; the
// first one found wins.
var DefaultFiles = []string{"commands.yaml", "commands.yml", "runlet.yaml", "runlet.toml"}

// The TOML variant nests everything under this top-level table so the
// file can coexist with other tool config.
const tomlTablePrefix = "runlet"

// allowed top-level keys of a config file, besides extends.
var allowedKeys = map[string]bool{
	"globals": true,
	"envs":    true,
	"args":    true,
	"environ": true,
}

// Discover probes DefaultFiles in dir and returns the first one that
// exists.
func Discover(dir string) (string, bool) {
	for _, name := range DefaultFiles {
		path := filepath.Join(dir, name)
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path, true
		}
	}
	return "", false
}

// File is one loaded config file with extends already folded in.
type File struct {
	Path    string
	Globals map[string]any
	Envs    map[string]any
	Args    map[string]any
	Environ map[string]any
}

// Load reads and decodes the file at path, recursively merging in any
// extends chain. The extending file's own sections win over the
// extended file's.
func Load(path string) (*File, error) {
	return load(path, map[string]bool{})
}

func load(path string, loading map[string]bool) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if loading[abs] {
		return nil, &Error{File: path, Reason: "extends cycle"}
	}
	loading[abs] = true
	defer delete(loading, abs)

	raw, err := decode(path)
	if err != nil {
		return nil, err
	}

	f := &File{Path: path}
	if extends, ok := raw["extends"]; ok {
		target, ok := extends.(string)
		if !ok {
			return nil, &Error{File: path, Reason: "extends must be a file path string"}
		}
		base, err := load(filepath.Join(filepath.Dir(path), target), loading)
		if err != nil {
			return nil, &Error{File: path, Reason: "loading extends target", Err: err}
		}
		f.Globals = base.Globals
		f.Envs = base.Envs
		f.Args = base.Args
		f.Environ = base.Environ
		delete(raw, "extends")
	}

	for key := range raw {
		if !allowedKeys[key] {
			return nil, &Error{
				File:   path,
				Path:   key,
				Reason: "unknown top-level key (expected globals, envs, args, or environ)",
			}
		}
	}
	for key, dst := range map[string]*map[string]any{
		"globals": &f.Globals,
		"envs":    &f.Envs,
		"args":    &f.Args,
		"environ": &f.Environ,
	} {
		section, ok := raw[key]
		if !ok {
			continue
		}
		m, ok := section.(map[string]any)
		if !ok {
			return nil, &Error{File: path, Path: key, Reason: "section must be a mapping"}
		}
		*dst = Merge(*dst, m)
	}
	return f, nil
}

func decode(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{File: path, Reason: "reading file", Err: err}
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &Error{File: path, Reason: "decoding YAML", Err: err}
		}
	case ".toml":
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, &Error{File: path, Reason: "decoding TOML", Err: err}
		}
		table, ok := doc[tomlTablePrefix].(map[string]any)
		if !ok {
			return nil, &Error{
				File:   path,
				Reason: fmt.Sprintf("TOML config requires a top-level [%s] table", tomlTablePrefix),
			}
		}
		raw = table
	default:
		return nil, &Error{File: path, Reason: "unsupported config file extension"}
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	return normalizeMap(raw), nil
}

// normalizeMap rewrites nested map[any]any values (as older YAML
// decoders and some documents produce) into map[string]any so the
// rest of the package sees one map shape.
func normalizeMap(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

func normalizeValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return normalizeMap(v)
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[fmt.Sprintf("%v", k)] = normalizeValue(item)
		}
		return out
	case []any:
		for i, item := range v {
			v[i] = normalizeValue(item)
		}
		return v
	}
	return v
}
