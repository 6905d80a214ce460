// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arg

import (
	"strings"
	"testing"
)

func TestCompile_InheritedParams(t *testing.T) {
	base, err := Build("remote",
		New("host").Default("localhost"),
		New("verbose").Default(false),
	)
	if err != nil {
		t.Fatalf("Build(remote) error = %v", err)
	}
	sub, err := Build("remote:copy",
		New("src"),
		New("dest"),
		// Shadows the base's verbose.
		New("verbose").Default(true),
	)
	if err != nil {
		t.Fatalf("Build(remote:copy) error = %v", err)
	}

	table, err := Compile("remote:copy", sub, base.Params)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	host, ok := table.Lookup("--host")
	if !ok {
		t.Fatal("Lookup(--host) = false, want inherited param")
	}
	if !host.Param.Inherited {
		t.Error("host.Inherited = false, want true")
	}
	if host.Param.Kind != Optional {
		t.Errorf("host.Kind = %v, want Optional", host.Param.Kind)
	}

	verbose, ok := table.Lookup("--verbose")
	if !ok {
		t.Fatal("Lookup(--verbose) = false")
	}
	if verbose.Param.Inherited {
		t.Error("verbose resolved to the inherited param, want the subcommand's own")
	}
	if verbose.Param.Default != true {
		t.Errorf("verbose.Default = %v, want true", verbose.Param.Default)
	}

	// Inherited params never become positionals of the subcommand.
	for _, p := range table.Positionals {
		if p.Inherited {
			t.Errorf("inherited param %q in positionals", p.Name)
		}
	}
}

func TestCompile_DuplicateOwnSpellingFails(t *testing.T) {
	schema, err := Build("dup",
		New("value").Default("").Long("thing"),
		New("variant").Default("").Long("thing").Short("x"),
	)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	_, err = Compile("dup", schema, nil)
	if err == nil {
		t.Fatal("Compile() error = nil, want SchemaError for duplicate --thing")
	}
	if !strings.Contains(err.Error(), "--thing") {
		t.Errorf("error %q does not mention the duplicate spelling", err)
	}
}

func TestTable_ShortLookupIsCaseSensitive(t *testing.T) {
	table := mustTable(t, "flags",
		New("all").Default(false),
	)
	if e, ok := table.Lookup("-a"); !ok || e.Inverse {
		t.Errorf("Lookup(-a) = %+v, %v; want non-inverse entry", e, ok)
	}
	if e, ok := table.Lookup("-A"); !ok || !e.Inverse {
		t.Errorf("Lookup(-A) = %+v, %v; want inverse entry", e, ok)
	}
	if _, ok := table.Lookup("--ALL"); !ok {
		t.Error("Lookup(--ALL) = false, want case-insensitive long match")
	}
}

func TestUsage(t *testing.T) {
	table := mustTable(t, "deploy",
		New("target"),
		New("version").Default(""),
		New("files").Variadic(),
	)
	got := Usage(table)
	want := "deploy <target> [version] [files ...] [options]"
	if got != want {
		t.Errorf("Usage() = %q, want %q", got, want)
	}
}

func TestHelp_MentionsSpellingsAndDefaults(t *testing.T) {
	table := mustTable(t, "serve",
		New("port").Default(8000),
		New("reload").Default(false),
	)
	help := Help(table, "Serve the site locally.")
	for _, want := range []string{
		"usage: serve",
		"Serve the site locally.",
		"--port", "-p", "[default: 8000]",
		"--reload", "--no-reload",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("Help() missing %q:\n%s", want, help)
		}
	}
}
