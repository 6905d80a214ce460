// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arg

import (
	"fmt"
	"strings"
)

// Parsed is the raw outcome of parsing one command segment. Values
// are converted to the parameters' declared types but not yet merged
// with config or defaults; that is the resolver's job.
type Parsed struct {
	Values map[string]any
	// Spelling records, per parameter, the option spelling that last
	// set it. Positionally-filled parameters have no entry.
	Spelling map[string]string
	// Rest holds the tokens after a literal --, passed through
	// verbatim.
	Rest []string
	// groups tracks which spelling claimed each mutual-exclusion
	// group.
	groups map[string]string
}

// Parse matches one command segment's tokens against the table.
// Grouped short options are expanded against this table first, so
// -xyz behaves exactly like -x -y -z.
func Parse(t *Table, tokens []string) (*Parsed, error) {
	tokens = ExpandShortOptions(t, tokens)
	p := &Parsed{
		Values:   make(map[string]any),
		Spelling: make(map[string]string),
		groups:   make(map[string]string),
	}
	var positionals []string

	i := 0
	for i < len(tokens) {
		tok := tokens[i]

		if tok == "--" {
			p.Rest = append(p.Rest, tokens[i+1:]...)
			break
		}

		if !looksLikeOption(tok) {
			positionals = append(positionals, tok)
			i++
			continue
		}

		spelling, inline, hasInline := cutOption(tok)
		if err := CheckOptionToken(spelling); err != nil {
			err.(*ParseError).Command = t.Command
			return nil, err
		}
		e, ok := t.Lookup(spelling)
		if !ok {
			return nil, &ParseError{Command: t.Command, Option: spelling, Reason: "unknown option"}
		}
		param := e.Param
		p.Spelling[param.Name] = spelling

		if param.Group != "" {
			if prev, clash := p.groups[param.Group]; clash && prev != param.Name {
				return nil, &ParseError{
					Command: t.Command,
					Option:  spelling,
					Reason:  fmt.Sprintf("not allowed together with an option for %q", prev),
				}
			}
			p.groups[param.Group] = param.Name
		}

		if e.Inverse {
			if hasInline {
				return nil, &ParseError{Command: t.Command, Option: spelling, Reason: "takes no value"}
			}
			p.Values[param.Name] = false
			i++
			continue
		}
		if param.IsBool() {
			if hasInline {
				v, err := param.Convert(inline)
				if err != nil {
					return nil, &ParseError{Command: t.Command, Option: spelling, Reason: err.Error()}
				}
				p.Values[param.Name] = v
			} else {
				p.Values[param.Name] = true
			}
			i++
			continue
		}

		var raw []string
		if hasInline {
			raw = []string{inline}
			i++
		} else {
			var err error
			raw, i, err = consumeValues(t, param, spelling, tokens, i+1)
			if err != nil {
				return nil, err
			}
		}

		if err := p.collect(t, param, spelling, raw); err != nil {
			return nil, err
		}
		continue
	}

	if err := p.fillPositionals(t, positionals); err != nil {
		return nil, err
	}
	return p, nil
}

// consumeValues gathers the value tokens one option occurrence takes,
// starting at index i. It returns the values and the next index.
func consumeValues(t *Table, param *Param, spelling string, tokens []string, i int) ([]string, int, error) {
	isValue := func(j int) bool {
		if j >= len(tokens) || tokens[j] == "--" {
			return false
		}
		return !looksLikeOption(tokens[j])
	}

	switch {
	case param.Arity == ZeroOrOne:
		if isValue(i) {
			return []string{tokens[i]}, i + 1, nil
		}
		return nil, i, nil
	case param.Arity == ZeroOrMore:
		var raw []string
		for isValue(i) {
			raw = append(raw, tokens[i])
			i++
		}
		return raw, i, nil
	case param.Arity > 1:
		want := int(param.Arity)
		var raw []string
		for len(raw) < want && isValue(i) {
			raw = append(raw, tokens[i])
			i++
		}
		if len(raw) != want {
			return nil, i, &ParseError{
				Command: t.Command,
				Option:  spelling,
				Reason:  fmt.Sprintf("expected %d values, got %d", want, len(raw)),
			}
		}
		return raw, i, nil
	default:
		if !isValue(i) {
			return nil, i, &ParseError{Command: t.Command, Option: spelling, Reason: "missing value"}
		}
		return []string{tokens[i]}, i + 1, nil
	}
}

// collect converts raw value tokens and stores them, accumulating
// repeated occurrences into the parameter's container kind.
func (p *Parsed) collect(t *Table, param *Param, spelling string, raw []string) error {
	fail := func(reason string) error {
		return &ParseError{Command: t.Command, Option: spelling, Reason: reason}
	}

	switch param.Container {
	case Map:
		m, _ := p.Values[param.Name].(map[string]any)
		if m == nil {
			m = make(map[string]any)
		}
		for _, item := range raw {
			name, value, ok := strings.Cut(item, ":")
			if !ok {
				return fail(fmt.Sprintf("expected name:<value>, got %q", item))
			}
			v, err := param.Convert(value)
			if err != nil {
				return fail(err.Error())
			}
			m[name] = v
		}
		p.Values[param.Name] = m
	case List:
		list, _ := p.Values[param.Name].([]any)
		if param.Arity == ZeroOrOne && len(raw) == 0 {
			// A bare occurrence of a value-optional list flag means
			// "enabled, all items": represented as true.
			if list == nil {
				p.Values[param.Name] = true
			}
			return nil
		}
		for _, item := range raw {
			v, err := param.Convert(item)
			if err != nil {
				return fail(err.Error())
			}
			list = append(list, v)
		}
		p.Values[param.Name] = list
	default:
		if param.Arity == ZeroOrOne && len(raw) == 0 {
			// Flag-or-value: a bare occurrence is true.
			p.Values[param.Name] = true
			return nil
		}
		if len(raw) != 1 {
			return fail("takes a single value")
		}
		v, err := param.Convert(raw[0])
		if err != nil {
			return fail(err.Error())
		}
		p.Values[param.Name] = v
	}
	return nil
}

// fillPositionals assigns leftover non-option tokens to the table's
// positional parameters: required ones first, then defaulted ones,
// then the var-positional.
func (p *Parsed) fillPositionals(t *Table, tokens []string) error {
	i := 0
	for _, param := range t.Positionals {
		if _, set := p.Values[param.Name]; set {
			// Already supplied via an option spelling.
			continue
		}
		if i >= len(tokens) {
			if param.Kind == PositionalRequired {
				// Leave it unset; the resolver decides whether a
				// config layer fills it or it is truly missing.
			}
			continue
		}
		v, err := param.Convert(tokens[i])
		if err != nil {
			return &ParseError{Command: t.Command, Option: param.Name, Reason: err.Error()}
		}
		p.Values[param.Name] = v
		i++
	}
	if i < len(tokens) {
		if t.VarPositional == nil {
			return &ParseError{
				Command: t.Command,
				Reason:  fmt.Sprintf("unexpected argument %q", tokens[i]),
			}
		}
		var list []any
		for ; i < len(tokens); i++ {
			v, err := t.VarPositional.Convert(tokens[i])
			if err != nil {
				return &ParseError{Command: t.Command, Option: t.VarPositional.Name, Reason: err.Error()}
			}
			list = append(list, v)
		}
		p.Values[t.VarPositional.Name] = list
	}
	return nil
}

// ExpandShortOptions converts grouped short options like -abc into
// -a -b -c using the table. If a letter in the group takes a value,
// the remainder of the token becomes that letter's value and
// expansion stops: -abcVALUE becomes -a -b -c VALUE only when c is
// the value-taking letter. Tokens after -- are never touched.
func ExpandShortOptions(t *Table, tokens []string) []string {
	var out []string
	changed := false
	for i, tok := range tokens {
		if tok == "--" {
			out = append(out, tokens[i:]...)
			break
		}
		group, value := SplitShortGroup(t, tok)
		if group == nil {
			out = append(out, tok)
			continue
		}
		changed = true
		out = append(out, group...)
		if value != "" {
			out = append(out, value)
		}
	}
	if !changed {
		return tokens
	}
	return out
}

// SplitShortGroup parses a token like -xyz into its component short
// options. It returns (nil, "") when the token is not a short group:
// every letter up to the first value-taking one must be a known short
// option, so tokens like -12 stay plain values. Any characters after
// a value-taking letter become that option's value.
func SplitShortGroup(t *Table, tok string) (group []string, value string) {
	if len(tok) < 3 || tok[0] != '-' || tok[1] == '-' || tok[2] == '=' {
		return nil, ""
	}
	for i := 1; i < len(tok); i++ {
		short := "-" + string(tok[i])
		if _, ok := t.Lookup(short); !ok {
			return nil, ""
		}
		group = append(group, short)
		if t.TakesValue(short) {
			if i+1 < len(tok) {
				value = tok[i+1:]
			}
			break
		}
	}
	return group, value
}

// CheckOptionToken rejects malformed long-option spellings before any
// parsing or partitioning side effects occur.
func CheckOptionToken(spelling string) error {
	if !strings.HasPrefix(spelling, "--") {
		return nil
	}
	if !longOptionRe.MatchString(spelling) {
		return &ParseError{Option: spelling, Reason: "malformed option"}
	}
	return nil
}

func looksLikeOption(tok string) bool {
	if tok == "" || tok == "-" || tok == "--" {
		return false
	}
	if !strings.HasPrefix(tok, "-") || strings.HasPrefix(tok, "---") {
		return false
	}
	if isNumeric(tok) {
		// Negative numbers are values, not options.
		return false
	}
	return strings.Trim(tok, "-") != ""
}

// isNumeric reports whether the token is a signed integer or decimal
// literal, so that negative numbers can be option values.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	start := 0
	if s[0] == '-' || s[0] == '+' {
		if len(s) == 1 {
			return false
		}
		start = 1
	}
	hasDigit, hasDot := false, false
	for i := start; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			hasDigit = true
		case s[i] == '.' && !hasDot:
			hasDot = true
		default:
			return false
		}
	}
	return hasDigit
}

// cutOption splits an option token into its spelling and inline
// =value part.
func cutOption(tok string) (spelling, value string, hasValue bool) {
	spelling, value, hasValue = strings.Cut(tok, "=")
	return spelling, value, hasValue
}
