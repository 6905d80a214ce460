// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"sort"
)

// Store is the loaded configuration for one run: the file's sections
// with an environment overlay applied, exposed as lazily-interpolated
// views. The raw sections stay mutable through Globals().Set so that
// interpolation picks up later writes.
type Store struct {
	file *File
	env  string

	// globals is file globals with the selected env's variables
	// merged over them and the whole envs mapping exposed under the
	// envs key. It is the interpolation root for every section view.
	globals map[string]any
	// envOverlay is the selected env's variables alone (without its
	// args subsection); the precedence resolver applies it as a
	// distinct layer above programmatic globals.
	envOverlay map[string]any
}

// NewStore builds a Store from an already-loaded file. env selects an
// envs section to overlay; empty means none. An unknown env is an
// *Error.
func NewStore(f *File, env string) (*Store, error) {
	if f == nil {
		f = &File{}
	}
	s := &Store{file: f, env: env}

	s.globals = Merge(nil, f.Globals)
	if len(f.Envs) > 0 {
		// The whole envs mapping stays reachable for introspection.
		s.globals["envs"] = f.Envs
	}
	if env != "" {
		section, ok := f.Envs[env].(map[string]any)
		if !ok {
			return nil, &Error{
				File:   f.Path,
				Path:   "envs." + env,
				Reason: fmt.Sprintf("unknown env %q (have: %v)", env, envNames(f.Envs)),
			}
		}
		overlay := copyMap(section)
		// The env's args subsection is a distinct precedence layer,
		// not an env global.
		delete(overlay, "args")
		s.envOverlay = overlay
		s.globals = Merge(s.globals, overlay)
	}
	return s, nil
}

// Env returns the selected environment name, or "".
func (s *Store) Env() string { return s.env }

// Path returns the loaded config file path, or "".
func (s *Store) Path() string { return s.file.Path }

// Globals returns the merged globals view. Writes through Set are
// visible to every reference from other sections.
func (s *Store) Globals() *Config {
	return New(s.globals)
}

// FileGlobals returns the interpolated globals the file itself
// declares, without the env overlay. References still resolve against
// the full merged root, so an env can redirect what a file global
// points at.
func (s *Store) FileGlobals() (map[string]any, error) {
	if len(s.file.Globals) == 0 {
		return nil, nil
	}
	return Section(s.file.Globals, s.globals).Resolved()
}

// EnvGlobals returns the interpolated variables of the selected env
// section, without its args subsection. Nil when no env is selected.
func (s *Store) EnvGlobals() (map[string]any, error) {
	if len(s.envOverlay) == 0 {
		return nil, nil
	}
	return Section(s.envOverlay, s.globals).Resolved()
}

// Args returns the interpolated top-level default args for the
// command, or nil when the file declares none.
func (s *Store) Args(command string) (map[string]any, error) {
	return s.sectionArgs(s.file.Args, command)
}

// EnvArgs returns the interpolated default args the selected env
// declares for the command, or nil.
func (s *Store) EnvArgs(command string) (map[string]any, error) {
	if s.env == "" {
		return nil, nil
	}
	section, _ := s.file.Envs[s.env].(map[string]any)
	args, _ := section["args"].(map[string]any)
	return s.sectionArgs(args, command)
}

func (s *Store) sectionArgs(args map[string]any, command string) (map[string]any, error) {
	raw, ok := args[command]
	if !ok {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &Error{
			File:   s.file.Path,
			Path:   "args." + command,
			Reason: "command args must be a mapping",
		}
	}
	resolved, err := Section(m, s.globals).Resolved()
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// Environ returns the interpolated environ section as strings, ready
// to materialize into the process environment.
func (s *Store) Environ() (map[string]string, error) {
	if len(s.file.Environ) == 0 {
		return nil, nil
	}
	resolved, err := Section(s.file.Environ, s.globals).Resolved()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(resolved))
	for k, v := range resolved {
		out[k] = stringForm(v)
	}
	return out, nil
}

func envNames(envs map[string]any) []string {
	names := make([]string, 0, len(envs))
	for name := range envs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
