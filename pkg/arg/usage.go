// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arg

import (
	"fmt"
	"sort"
	"strings"
)

// Usage returns the one-line synopsis for the command: positionals in
// declaration order, then a marker for the options.
func Usage(t *Table) string {
	var b strings.Builder
	b.WriteString(t.Command)
	for _, p := range t.Positionals {
		switch p.Kind {
		case PositionalRequired:
			fmt.Fprintf(&b, " <%s>", p.Name)
		default:
			fmt.Fprintf(&b, " [%s]", p.Name)
		}
	}
	if t.VarPositional != nil {
		fmt.Fprintf(&b, " [%s ...]", t.VarPositional.Name)
	}
	if len(t.Params) > 0 {
		b.WriteString(" [options]")
	}
	return b.String()
}

// Help renders the full help text for the command: the synopsis, the
// command's description, and one entry per parameter showing its
// spellings, type, choices and default.
func Help(t *Table, description string) string {
	var b strings.Builder
	b.WriteString("usage: ")
	b.WriteString(Usage(t))
	b.WriteString("\n")
	if description != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(description, "\n"))
		b.WriteString("\n")
	}

	var entries [][2]string
	for _, p := range t.Params {
		if !p.HasOptions() {
			continue
		}
		entries = append(entries, [2]string{spellings(p), annotate(p)})
	}
	if len(entries) == 0 {
		return b.String()
	}

	width := 0
	for _, e := range entries {
		if len(e[0]) > width {
			width = len(e[0])
		}
	}
	b.WriteString("\noptions:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "  %-*s  %s\n", width, e[0], strings.TrimRight(e[1], " "))
	}
	return b.String()
}

// spellings formats a parameter's option spellings, short first, with
// inverse forms appended for booleans.
func spellings(p *Param) string {
	var parts []string
	if p.Short != "" {
		parts = append(parts, p.Short)
	}
	if p.Long != "" {
		parts = append(parts, p.Long)
	}
	if p.InverseShort != "" {
		parts = append(parts, p.InverseShort)
	}
	if p.InverseLong != "" {
		parts = append(parts, p.InverseLong)
	}
	s := strings.Join(parts, ", ")
	if !p.IsBool() && p.TakesValue() {
		s += " " + strings.ToUpper(strings.ReplaceAll(p.Name, "-", "_"))
	}
	return s
}

// annotate builds the right-hand help column for a parameter.
func annotate(p *Param) string {
	var parts []string
	if p.Help != "" {
		parts = append(parts, p.Help)
	}
	if !p.IsBool() && p.Type != String {
		parts = append(parts, fmt.Sprintf("(%s)", p.Type))
	}
	if len(p.Choices) > 0 {
		choices := make([]string, len(p.Choices))
		copy(choices, p.Choices)
		sort.Strings(choices)
		parts = append(parts, fmt.Sprintf("one of: %s", strings.Join(choices, ", ")))
	}
	if p.Default != nil && p.Kind != PositionalRequired {
		if s, ok := p.Default.(string); !ok || s != "" {
			parts = append(parts, fmt.Sprintf("[default: %v]", p.Default))
		}
	}
	if p.Inherited {
		parts = append(parts, "(inherited)")
	}
	return strings.Join(parts, " ")
}
