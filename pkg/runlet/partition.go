// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runlet

import (
	"strings"

	"github.com/runlet/runlet/pkg/arg"
)

// Segment is one partitioned command invocation: the command it
// addresses and the raw tokens that belong to it.
type Segment struct {
	// Name is the token the segment was split on, possibly a
	// qualified base:sub name.
	Name    string
	Command *Command
	Argv    []string
	// Direct marks a qualified base:sub invocation, which skips the
	// base implementation.
	Direct bool
}

// PartitionMain splits the raw token stream into the main
// invocation's tokens and the remainder that starts the command
// chain. Main tokens are consumed left to right against the main
// option table: known options take their values, grouped shorts are
// expanded, and the first non-option token ends the segment. Unknown
// option-looking tokens stay in the main segment so the main parser
// can report them. A literal -- ends the main segment explicitly.
func PartitionMain(table *arg.Table, tokens []string) (main, rest []string, err error) {
	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		if tok == "--" {
			i++
			break
		}
		if !looksLikeOption(tok) {
			break
		}
		if strings.HasPrefix(tok, "--") {
			spelling, _, _ := strings.Cut(tok, "=")
			if err := arg.CheckOptionToken(spelling); err != nil {
				return nil, nil, err
			}
		}

		if group, value := arg.SplitShortGroup(table, tok); group != nil {
			main = append(main, group...)
			switch {
			case value != "":
				main = append(main, value)
			case table.TakesValue(group[len(group)-1]) && i+1 < len(tokens):
				main = append(main, tokens[i+1])
				i++
			}
			i++
			continue
		}

		main = append(main, tok)
		spelling, _, hasInline := strings.Cut(tok, "=")
		if !hasInline && table.TakesValue(spelling) && i+1 < len(tokens) {
			main = append(main, tokens[i+1])
			i++
		}
		i++
	}
	return main, tokens[i:], nil
}

// PartitionCommands splits the post-main tokens into one segment per
// command. A segment starts at a registered command name (qualified
// names included) and runs until the next top-level command name that
// is not the value of a preceding value-taking option. A token
// escaped with a leading colon is unescaped and kept as an argument.
func (r *Registry) PartitionCommands(tokens []string) ([]Segment, error) {
	var segments []Segment
	for len(tokens) > 0 {
		name := tokens[0]
		cmd, ok := r.Lookup(name)
		if !ok {
			return nil, &CommandError{Command: name, Reason: "unknown command"}
		}
		seg := Segment{
			Name:    arg.NormalizeName(name),
			Command: cmd,
			Direct:  strings.Contains(name, ":"),
		}
		table := cmd.table

		i := 1
		verbatim := false
		for i < len(tokens) {
			tok := tokens[i]
			if tok == "--" {
				verbatim = true
			}
			if !verbatim && r.Has(tok) {
				// A command name ends the segment unless the
				// previous token was an option still waiting for
				// this value.
				prev := ""
				if i > 1 {
					prev = tokens[i-1]
				}
				if !takesValueToken(table, prev) {
					break
				}
			}
			if !verbatim && strings.HasPrefix(tok, ":") && tok != ":" && r.Has(tok[1:]) {
				tok = tok[1:]
			}
			seg.Argv = append(seg.Argv, tok)
			i++
		}
		segments = append(segments, seg)
		tokens = tokens[i:]
	}
	return segments, nil
}

// takesValueToken reports whether tok is an option spelling of the
// table that consumes a following token. Inline =value spellings have
// already consumed theirs.
func takesValueToken(t *arg.Table, tok string) bool {
	if t == nil || !strings.HasPrefix(tok, "-") {
		return false
	}
	if strings.Contains(tok, "=") {
		return false
	}
	return t.TakesValue(tok)
}

// splitSubcommand splits a base command's segment tokens at the first
// token naming one of its subcommands, unless that token is the value
// of a preceding value-taking option. It returns the base's own
// tokens, the subcommand, and the subcommand's tokens; sub is nil
// when the segment stays entirely with the base.
func splitSubcommand(cmd *Command, tokens []string) (own []string, sub *Command, subTokens []string) {
	for i, tok := range tokens {
		if tok == "--" {
			break
		}
		s, ok := cmd.Sub(tok)
		if !ok {
			continue
		}
		if i > 0 && takesValueToken(cmd.table, tokens[i-1]) {
			continue
		}
		return tokens[:i], s, tokens[i+1:]
	}
	return tokens, nil, nil
}

func looksLikeOption(tok string) bool {
	if tok == "" || tok == "-" || tok == "--" {
		return false
	}
	return strings.HasPrefix(tok, "-") && !strings.HasPrefix(tok, "---") && strings.Trim(tok, "-") != ""
}
