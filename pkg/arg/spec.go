// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arg

import (
	"fmt"
	"regexp"
	"time"
)

var (
	shortOptionRe = regexp.MustCompile(`^-[A-Za-z]$`)
	longOptionRe  = regexp.MustCompile(`^--[A-Za-z0-9]+(-[A-Za-z0-9]+)*$`)
)

// Spec declares one parameter. Specs are built with New and chained
// setters, then turned into Params by Build:
//
//	arg.New("host").Default("localhost").Short("H").Help("Remote host")
type Spec struct {
	name        string
	typ         Type
	typeSet     bool
	container   Container
	arity       Arity
	aritySet    bool
	def         any
	defSet      bool
	choices     []string
	help        string
	short       string
	long        string
	noInverse   bool
	keywordOnly bool
	variadic    bool
	varKeyword  bool
	optionOnly  bool
	group       string
	envVar      string
}

// New starts the declaration of a parameter with the given name.
// Underscores in the name are normalized to dashes.
func New(name string) *Spec {
	return &Spec{name: NormalizeName(name)}
}

// Type sets the declared value type.
func (s *Spec) Type(t Type) *Spec { s.typ = t; s.typeSet = true; return s }

// List marks the parameter as collecting repeated values into a list.
func (s *Spec) List() *Spec { s.container = List; return s }

// Map marks the parameter as collecting name:value items into a map.
func (s *Spec) Map() *Spec { s.container = Map; return s }

// Default sets the default value; it also makes the parameter
// non-required.
func (s *Spec) Default(v any) *Spec { s.def = v; s.defSet = true; return s }

// Choices restricts accepted values to the given set, in order.
func (s *Spec) Choices(choices ...string) *Spec { s.choices = choices; return s }

// Help sets the parameter's help text.
func (s *Spec) Help(text string) *Spec { s.help = text; return s }

// Short sets an explicit short flag letter, e.g. "n" for -n.
func (s *Spec) Short(letter string) *Spec { s.short = "-" + letter; return s }

// Long overrides the derived long option spelling.
func (s *Spec) Long(name string) *Spec { s.long = "--" + NormalizeName(name); return s }

// NArgs sets the parameter's arity.
func (s *Spec) NArgs(a Arity) *Spec { s.arity = a; s.aritySet = true; return s }

// NoInverse disables the automatic --no-name inverse for bool
// parameters.
func (s *Spec) NoInverse() *Spec { s.noInverse = true; return s }

// KeywordOnly excludes the parameter from the option table entirely;
// it can only be filled through config defaults or direct calls.
func (s *Spec) KeywordOnly() *Spec { s.keywordOnly = true; return s }

// Variadic makes the parameter the command's var-positional; it
// collects all remaining positional tokens.
func (s *Spec) Variadic() *Spec { s.variadic = true; return s }

// VarKeyword makes the parameter the command's keyword catch-all.
func (s *Spec) VarKeyword() *Spec { s.varKeyword = true; return s }

// OptionOnly forces a parameter that would otherwise be positional to
// be reachable only through its option spellings.
func (s *Spec) OptionOnly() *Spec { s.optionOnly = true; return s }

// Group assigns the parameter to a mutual-exclusion group.
func (s *Spec) Group(name string) *Spec { s.group = name; return s }

// EnvVar overrides the environment variable consulted for a default.
func (s *Spec) EnvVar(name string) *Spec { s.envVar = name; return s }

// Schema is the ordered parameter collection of one command, plus the
// metadata the resolver needs.
type Schema struct {
	Params        []*Param
	ByName        map[string]*Param
	VarPositional *Param
	VarKeyword    *Param
}

// Find returns the parameter with the given (possibly unnormalized)
// name, or nil.
func (s *Schema) Find(name string) *Param {
	return s.ByName[NormalizeName(name)]
}

// Build validates the given specs and produces the command's Schema.
// All declaration problems surface here, at registration time, as
// SchemaError.
func Build(command string, specs ...*Spec) (*Schema, error) {
	schema := &Schema{ByName: make(map[string]*Param, len(specs))}
	fail := func(param, format string, args ...any) error {
		return &SchemaError{Command: command, Param: param, Reason: fmt.Sprintf(format, args...)}
	}

	used := map[string]bool{"-h": true} // -h is reserved for help
	for _, s := range specs {
		if s.short != "" {
			if !shortOptionRe.MatchString(s.short) {
				return nil, fail(s.name, "short option must be a single letter, got %q", s.short)
			}
			if used[s.short] {
				return nil, fail(s.name, "short option %s already taken", s.short)
			}
			used[s.short] = true
		}
		if s.long != "" && !longOptionRe.MatchString(s.long) {
			return nil, fail(s.name, "malformed long option %q", s.long)
		}
	}

	sawDefaultedPositional := false
	for _, s := range specs {
		if s.name == "" {
			return nil, fail("", "parameter has no name")
		}
		if _, dup := schema.ByName[s.name]; dup {
			return nil, fail(s.name, "duplicate parameter")
		}

		p := &Param{
			Name:        s.name,
			Type:        s.typ,
			Container:   s.container,
			Arity:       Single,
			Choices:     s.choices,
			Help:        s.help,
			Short:       s.short,
			Long:        s.long,
			NoInverse:   s.noInverse,
			KeywordOnly: s.keywordOnly,
			Group:       s.group,
			EnvVar:      s.envVar,
		}
		if s.aritySet {
			p.Arity = s.arity
		}
		if s.defSet {
			p.Default = s.def
		}

		// The declared type and the default's runtime type jointly
		// determine container-ness. Strings are never containers.
		if p.Container == NoContainer && s.defSet {
			switch s.def.(type) {
			case []any, []string, []int:
				p.Container = List
			case map[string]any, map[string]string:
				p.Container = Map
			}
		}
		if !s.typeSet && s.defSet {
			p.Type = typeOf(s.def)
		}

		switch {
		case s.varKeyword:
			if schema.VarKeyword != nil {
				return nil, fail(s.name, "command already has a var-keyword parameter")
			}
			p.Kind = VarKeyword
			p.Container = Map
			schema.VarKeyword = p
		case s.variadic:
			if schema.VarPositional != nil {
				return nil, fail(s.name, "command already has a var-positional parameter")
			}
			p.Kind = VarPositional
			p.Container = List
			p.Arity = ZeroOrMore
			schema.VarPositional = p
		case s.defSet || s.keywordOnly:
			p.Kind = PositionalWithDefault
		default:
			p.Kind = PositionalRequired
			p.Required = true
		}

		// A fixed-N positional cannot coexist with a left-to-right
		// token stream; it is only reachable as an option.
		if p.Arity > 1 && (p.Kind == PositionalRequired || p.Kind == PositionalWithDefault) {
			p.Kind = Optional
			p.Container = List
		}
		if s.optionOnly && (p.Kind == PositionalRequired || p.Kind == PositionalWithDefault) {
			p.Kind = Optional
		}
		if s.keywordOnly {
			p.Kind = Optional
		}

		switch p.Kind {
		case PositionalRequired:
			if sawDefaultedPositional {
				return nil, fail(s.name, "required positional after a positional with a default")
			}
		case PositionalWithDefault:
			if !s.keywordOnly {
				sawDefaultedPositional = true
			}
		}

		if p.Type == Bool && len(p.Choices) > 0 {
			return nil, fail(s.name, "bool parameter cannot have choices")
		}
		if p.Container == Map && len(p.Choices) > 0 {
			return nil, fail(s.name, "map parameter cannot have choices")
		}

		assignOptions(p, used)
		schema.Params = append(schema.Params, p)
		schema.ByName[p.Name] = p
	}

	return schema, nil
}

// assignOptions fills in the long, short, and inverse spellings for
// parameters that have options. Shorts are auto-assigned from the
// first unused candidate letter; -h stays reserved for help.
func assignOptions(p *Param, used map[string]bool) {
	if p.KeywordOnly || p.Kind == VarKeyword || p.Kind == VarPositional || p.Kind == PositionalRequired {
		return
	}
	if p.Long == "" {
		p.Long = "--" + p.Name
	}
	if p.Short == "" {
		p.Short = pickShort(p.Name, used)
	}
	if p.IsBool() && !p.NoInverse {
		if p.InverseLong == "" {
			p.InverseLong = invertLong(p.Long)
		}
		if p.InverseShort == "" && p.Short != "" {
			upper := "-" + string(p.Short[1]^0x20) // toggle case of ASCII letter
			if isUpperShort(upper) && !used[upper] {
				p.InverseShort = upper
				used[upper] = true
			}
		}
	}
}

func isUpperShort(s string) bool {
	return len(s) == 2 && s[1] >= 'A' && s[1] <= 'Z'
}

func pickShort(name string, used map[string]bool) string {
	first := name[0]
	var candidates []byte
	if first == 'h' {
		// Leave -h alone; try the upper-case variant only.
		candidates = []byte{first &^ 0x20}
	} else {
		candidates = []byte{first, first &^ 0x20}
	}
	for _, c := range candidates {
		if c < 'A' || (c > 'Z' && c < 'a') || c > 'z' {
			continue
		}
		short := "-" + string(c)
		if !used[short] {
			used[short] = true
			return short
		}
	}
	return ""
}

// invertLong derives the inverse spelling of a boolean long option.
func invertLong(long string) string {
	switch {
	case long == "--yes":
		return "--no"
	case long == "--no":
		return "--yes"
	case len(long) > 5 && long[:5] == "--no-":
		return "--" + long[5:]
	case len(long) > 5 && long[:5] == "--is-":
		return "--not-" + long[5:]
	case len(long) > 7 && long[:7] == "--with-":
		return "--without-" + long[7:]
	}
	return "--no-" + long[2:]
}

func typeOf(v any) Type {
	switch v := v.(type) {
	case bool:
		return Bool
	case int, int64:
		return Int
	case float64, float32:
		return Float
	case time.Duration:
		return Duration
	case string:
		return String
	case []any:
		if len(v) > 0 {
			return typeOf(v[0])
		}
		return String
	case []string:
		return String
	case []int:
		return Int
	}
	return String
}
