// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arg models command parameters and compiles them into
// command-line option tables.
package arg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind classifies how a parameter receives its value.
type Kind int

const (
	// PositionalRequired must be supplied by a positional token.
	PositionalRequired Kind = iota
	// PositionalWithDefault may be filled positionally or via its
	// option spellings; it falls back to its default otherwise.
	PositionalWithDefault
	// Optional is reachable only through its option spellings.
	Optional
	// VarPositional collects all remaining positional tokens.
	VarPositional
	// VarKeyword is a catch-all for unmatched keyword values. It has
	// no option spellings; values reach it only through config
	// globals or direct calls.
	VarKeyword
)

func (k Kind) String() string {
	switch k {
	case PositionalRequired:
		return "positional"
	case PositionalWithDefault:
		return "positional-with-default"
	case Optional:
		return "optional"
	case VarPositional:
		return "var-positional"
	case VarKeyword:
		return "var-keyword"
	}
	return "unknown"
}

// Type is a parameter's declared value type.
type Type int

const (
	String Type = iota
	Int
	Float
	Bool
	Duration
	// JSON decodes the token as JSON when possible and falls back to
	// the raw string.
	JSON
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Duration:
		return "duration"
	case JSON:
		return "json"
	}
	return "unknown"
}

// Container is a parameter's collection kind. Strings are never
// containers.
type Container int

const (
	NoContainer Container = iota
	List
	Map
)

// Arity is the number of values one occurrence of a parameter
// consumes. Values greater than one are fixed-N arities.
type Arity int

const (
	Single     Arity = 1
	ZeroOrOne  Arity = -1
	ZeroOrMore Arity = -2
)

// Param is one fully-resolved parameter of a command.
type Param struct {
	Name      string // normalized: underscores replaced with dashes
	Kind      Kind
	Type      Type
	Container Container
	Arity     Arity
	Default   any
	Choices   []string
	Help      string

	Long         string // e.g. "--name"; empty for pure positionals
	Short        string // e.g. "-n"
	InverseLong  string // e.g. "--no-name" for bools
	InverseShort string // e.g. "-N"
	NoInverse    bool

	KeywordOnly bool   // excluded from the option table
	Group       string // mutual-exclusion group id
	EnvVar      string

	// Inherited marks a parameter merged in from a base command.
	Inherited bool
	// Required is set for option-only parameters without a default
	// (e.g. a fixed-N positional demoted to an option).
	Required bool
}

// IsBool reports whether the parameter is a plain boolean flag.
func (p *Param) IsBool() bool {
	return p.Type == Bool && p.Container == NoContainer
}

// TakesValue reports whether the parameter's option spellings consume
// a following token.
func (p *Param) TakesValue() bool {
	if p.IsBool() {
		return false
	}
	return p.Arity != 0
}

// HasOptions reports whether the parameter has command-line option
// spellings at all.
func (p *Param) HasOptions() bool {
	if p.KeywordOnly || p.Kind == VarKeyword || p.Kind == VarPositional {
		return false
	}
	return p.Kind != PositionalRequired || p.Long != ""
}

func (p *Param) String() string {
	return fmt.Sprintf("%s(%s %s)", p.Name, p.Kind, p.Type)
}

// NormalizeName converts an identifier-style name to its command-line
// form: a single trailing underscore is chomped (the convention for
// avoiding reserved words) and remaining underscores become dashes.
func NormalizeName(name string) string {
	if strings.HasSuffix(name, "_") && !strings.HasSuffix(name, "__") {
		name = name[:len(name)-1]
	}
	return strings.ReplaceAll(name, "_", "-")
}

// Convert parses a raw command-line token into the parameter's
// declared type.
func (p *Param) Convert(raw string) (any, error) {
	return convert(p.Type, raw)
}

func convert(t Type, raw string) (any, error) {
	switch t {
	case String:
		return raw, nil
	case Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", raw)
		}
		return n, nil
	case Float:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", raw)
		}
		return f, nil
	case Bool:
		switch raw {
		case "1", "true":
			return true, nil
		case "0", "false":
			return false, nil
		}
		return nil, fmt.Errorf("bool value must be one of 1, true, 0, or false; got %q", raw)
	case Duration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("not a duration: %q", raw)
		}
		return d, nil
	case JSON:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return raw, nil
		}
		return v, nil
	}
	return raw, nil
}

// SchemaError reports a bad parameter or command declaration. It is
// raised at registration time, never during a call.
type SchemaError struct {
	Command string
	Param   string
	Reason  string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("schema error")
	if e.Command != "" {
		fmt.Fprintf(&b, " in command %q", e.Command)
	}
	if e.Param != "" {
		fmt.Fprintf(&b, " for parameter %q", e.Param)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// ParseError reports malformed or conflicting command-line tokens.
// The invocation it belongs to fails; prior commands in the chain have
// already run and are not rolled back.
type ParseError struct {
	Command string
	Option  string
	Reason  string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Command != "" {
		fmt.Fprintf(&b, "%s: ", e.Command)
	}
	if e.Option != "" {
		fmt.Fprintf(&b, "%s: ", e.Option)
	}
	b.WriteString(e.Reason)
	return b.String()
}
