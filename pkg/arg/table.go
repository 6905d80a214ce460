// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arg

import (
	"strings"
)

// Entry maps one option spelling to its parameter. Inverse reports
// whether the spelling is the parameter's negating form.
type Entry struct {
	Param   *Param
	Inverse bool
}

// Table is a command's compiled option table: every accepted spelling
// mapped to its parameter, plus the positional layout the segment
// parser walks.
type Table struct {
	Command string

	// Params holds the command's own parameters in declaration
	// order, followed by inherited ones.
	Params []*Param
	// Positionals are the CLI-fillable positional parameters:
	// required first, then defaulted, in declaration order.
	Positionals   []*Param
	VarPositional *Param

	options map[string]Entry // folded spelling -> entry
}

// Compile builds the table for a command from its own schema plus any
// parameters inherited from a base command. Inherited parameters are
// merged at lower precedence: a subcommand's own name or spelling
// always wins, and inherited positionals become option-only.
func Compile(command string, schema *Schema, inherited []*Param) (*Table, error) {
	t := &Table{
		Command: command,
		options: make(map[string]Entry),
	}

	for _, p := range schema.Params {
		switch p.Kind {
		case PositionalRequired, PositionalWithDefault:
			if !p.KeywordOnly {
				t.Positionals = append(t.Positionals, p)
			}
		case VarPositional:
			t.VarPositional = p
		}
		t.Params = append(t.Params, p)
		if err := t.addSpellings(p, false); err != nil {
			return nil, err
		}
	}

	for _, p := range inherited {
		if !p.HasOptions() {
			continue
		}
		if _, taken := schema.ByName[p.Name]; taken {
			continue
		}
		ip := *p
		ip.Inherited = true
		if ip.Kind == PositionalWithDefault {
			ip.Kind = Optional
		}
		t.Params = append(t.Params, &ip)
		_ = t.addSpellings(&ip, true) // inherited conflicts are skipped, not errors
	}

	return t, nil
}

func (t *Table) addSpellings(p *Param, inherited bool) error {
	if !p.HasOptions() {
		return nil
	}
	add := func(spelling string, inverse bool) error {
		if spelling == "" {
			return nil
		}
		key := foldSpelling(spelling)
		if prev, ok := t.options[key]; ok {
			if inherited {
				// The subcommand's own spelling wins.
				return nil
			}
			return &SchemaError{
				Command: t.Command,
				Param:   p.Name,
				Reason:  "option " + spelling + " already maps to parameter " + prev.Param.Name,
			}
		}
		t.options[key] = Entry{Param: p, Inverse: inverse}
		return nil
	}
	if err := add(p.Long, false); err != nil {
		return err
	}
	if err := add(p.Short, false); err != nil {
		return err
	}
	if err := add(p.InverseLong, true); err != nil {
		return err
	}
	return add(p.InverseShort, true)
}

// foldSpelling lowercases long options for case-insensitive matching.
// Short options stay case-sensitive because the inverse of -x is -X.
func foldSpelling(spelling string) string {
	if len(spelling) == 2 && spelling[0] == '-' {
		return spelling
	}
	return strings.ToLower(spelling)
}

// Lookup resolves an option spelling (without any =value part) to its
// entry.
func (t *Table) Lookup(spelling string) (Entry, bool) {
	e, ok := t.options[foldSpelling(spelling)]
	return e, ok
}

// TakesValue reports whether the spelling is a known option that
// consumes a following token.
func (t *Table) TakesValue(spelling string) bool {
	e, ok := t.Lookup(spelling)
	if !ok {
		return false
	}
	return !e.Inverse && e.Param.TakesValue()
}

// Find returns the parameter with the given name, if present.
func (t *Table) Find(name string) *Param {
	name = NormalizeName(name)
	for _, p := range t.Params {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}
