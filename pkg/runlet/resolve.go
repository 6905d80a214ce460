// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runlet

import (
	"fmt"
	"strings"
	"time"

	"github.com/runlet/runlet/pkg/arg"
	"github.com/runlet/runlet/pkg/config"
)

// EnvVarPrefix is the prefix of environment variables consulted as
// per-command argument defaults: RUNLET_<COMMAND>_<PARAM>.
const EnvVarPrefix = "RUNLET"

// resolve merges every argument source for one invocation, lowest
// precedence first:
//
//  1. command-declared parameter defaults
//  2. config file globals
//  3. globals passed programmatically
//  4. selected env's globals
//  5. selected env's args for the command
//  6. top-level config args for the command
//  7. environment variables
//  8. command-line parsed values
//  9. direct-call keyword arguments
//
// Later layers win per key; map values merge recursively instead of
// being replaced wholesale.
func (r *Runner) resolve(cmd *Command, parsed map[string]any, direct map[string]any) (map[string]any, error) {
	name := cmd.QualifiedName()
	catchAll := cmd.Schema().VarKeyword
	final := make(map[string]any)

	for _, p := range cmd.params() {
		if p.Default != nil {
			final[p.Name] = p.Default
		}
	}

	fileGlobals, err := r.store.FileGlobals()
	if err != nil {
		return nil, err
	}
	applyGlobals(final, cmd, catchAll, fileGlobals)
	applyGlobals(final, cmd, catchAll, r.Globals)
	envGlobals, err := r.store.EnvGlobals()
	if err != nil {
		return nil, err
	}
	applyGlobals(final, cmd, catchAll, envGlobals)

	envArgs, err := r.store.EnvArgs(name)
	if err != nil {
		return nil, err
	}
	if err := applyConfigArgs(final, cmd, name, envArgs); err != nil {
		return nil, err
	}
	fileArgs, err := r.store.Args(name)
	if err != nil {
		return nil, err
	}
	if err := applyConfigArgs(final, cmd, name, fileArgs); err != nil {
		return nil, err
	}

	if err := r.applyEnvVars(final, cmd, name); err != nil {
		return nil, err
	}

	for k, v := range parsed {
		applyValue(final, k, v)
	}

	for k, v := range direct {
		k = arg.NormalizeName(k)
		if cmd.findParam(k) == nil && catchAll != nil {
			applyCatchAll(final, catchAll, k, v)
			continue
		}
		applyValue(final, k, v)
	}

	if err := finishResolution(final, cmd, name); err != nil {
		return nil, err
	}
	return final, nil
}

// applyGlobals folds one globals layer into final. A global applies
// only where a matching parameter exists; unmatched keys flow into a
// var-keyword catch-all when the command has one.
func applyGlobals(final map[string]any, cmd *Command, catchAll *arg.Param, globals map[string]any) {
	for k, v := range globals {
		k = arg.NormalizeName(k)
		if p := cmd.findParam(k); p != nil {
			applyValue(final, p.Name, v)
		} else if catchAll != nil {
			applyCatchAll(final, catchAll, k, v)
		}
	}
}

// applyConfigArgs folds a per-command default-args layer into final.
// Unlike globals, every name must match a parameter; unknown names
// are a CommandError rather than being silently dropped.
func applyConfigArgs(final map[string]any, cmd *Command, command string, args map[string]any) error {
	for k, v := range args {
		k = arg.NormalizeName(k)
		p := cmd.findParam(k)
		if p == nil {
			return &CommandError{
				Command: command,
				Arg:     k,
				Reason:  "unknown default argument in config",
			}
		}
		applyValue(final, p.Name, v)
	}
	return nil
}

// applyEnvVars folds in environment-variable defaults. Each
// parameter's variable is its declared EnvVar, or
// RUNLET_<COMMAND>_<PARAM> by convention.
func (r *Runner) applyEnvVars(final map[string]any, cmd *Command, command string) error {
	lookup := r.LookupEnv
	if lookup == nil {
		return nil
	}
	for _, p := range cmd.params() {
		name := p.EnvVar
		if name == "" {
			name = EnvVarPrefix + "_" + envToken(command) + "_" + envToken(p.Name)
		}
		raw, ok := lookup(name)
		if !ok {
			continue
		}
		v, err := p.Convert(raw)
		if err != nil {
			return &CommandError{
				Command: command,
				Arg:     p.Name,
				Reason:  fmt.Sprintf("bad value in $%s: %v", name, err),
			}
		}
		applyValue(final, p.Name, v)
	}
	return nil
}

func envToken(s string) string {
	s = strings.NewReplacer("-", "_", ":", "_", ".", "_").Replace(s)
	return strings.ToUpper(s)
}

// applyValue overwrites final[name], merging recursively when both
// the old and new values are maps.
func applyValue(final map[string]any, name string, v any) {
	if newMap, ok := toStringMap(v); ok {
		if oldMap, ok := toStringMap(final[name]); ok {
			final[name] = config.Merge(config.Merge(nil, oldMap), newMap)
			return
		}
	}
	final[name] = v
}

func applyCatchAll(final map[string]any, catchAll *arg.Param, key string, v any) {
	m, _ := final[catchAll.Name].(map[string]any)
	if m == nil {
		m = make(map[string]any)
		final[catchAll.Name] = m
	}
	m[key] = v
}

func toStringMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// finishResolution normalizes containers and numeric types to the
// declared parameter shapes, validates choices, and checks that every
// required parameter ended up with a value.
func finishResolution(final map[string]any, cmd *Command, command string) error {
	for _, p := range cmd.params() {
		v, ok := final[p.Name]
		if !ok {
			if p.Kind == arg.PositionalRequired || p.Required {
				return &CommandError{
					Command: command,
					Arg:     p.Name,
					Reason:  "missing required argument",
				}
			}
			continue
		}
		v = normalizeValue(p, v)
		final[p.Name] = v

		if len(p.Choices) > 0 {
			if err := checkChoices(p, v, command); err != nil {
				return err
			}
		}
	}
	return nil
}

// normalizeValue coerces a resolved value to the parameter's declared
// container kind and scalar type. Config decoders hand back int64 and
// []string where the core works with int and []any.
func normalizeValue(p *arg.Param, v any) any {
	if p.Container == arg.List {
		switch list := v.(type) {
		case []any:
			out := make([]any, len(list))
			for i, item := range list {
				out[i] = normalizeScalar(p, item)
			}
			return out
		case []string:
			out := make([]any, len(list))
			for i, item := range list {
				out[i] = normalizeScalar(p, item)
			}
			return out
		case bool:
			// A value-optional list flag given bare.
			return v
		default:
			return []any{normalizeScalar(p, v)}
		}
	}
	if p.Container == arg.Map {
		if m, ok := v.(map[string]any); ok {
			return m
		}
		return v
	}
	return normalizeScalar(p, v)
}

func normalizeScalar(p *arg.Param, v any) any {
	switch p.Type {
	case arg.Int:
		switch v := v.(type) {
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	case arg.Float:
		switch v := v.(type) {
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
	case arg.Duration:
		if s, ok := v.(string); ok {
			if d, err := time.ParseDuration(s); err == nil {
				return d
			}
		}
	}
	return v
}

func checkChoices(p *arg.Param, v any, command string) error {
	values := []any{v}
	if p.Container == arg.List {
		if list, ok := v.([]any); ok {
			values = list
		}
	}
	for _, item := range values {
		s := fmt.Sprintf("%v", item)
		ok := false
		for _, choice := range p.Choices {
			if strings.EqualFold(s, choice) {
				ok = true
				break
			}
		}
		if !ok {
			return &CommandError{
				Command: command,
				Arg:     p.Name,
				Reason:  fmt.Sprintf("invalid choice %q (expected one of: %s)", s, strings.Join(p.Choices, ", ")),
			}
		}
	}
	return nil
}
