// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runlet

import (
	"errors"
	"reflect"
	"testing"

	"github.com/runlet/runlet/pkg/arg"
)

func noop(*Call) (int, error) { return 0, nil }

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()

	local := MustCommand("local", "Run a local command.", noop,
		arg.New("cmd"),
		arg.New("cd").Default(""),
		arg.New("echo").Default(false),
	)
	deploy := MustCommand("deploy", "Deploy the app.", noop,
		arg.New("target"),
		arg.New("version").Default(""),
	)
	remote := MustCommand("remote", "Remote operations.", noop,
		arg.New("action"),
		arg.New("host").Default("localhost"),
		arg.New("verbose").Default(false),
	)
	remote.Selector = "action"
	copyCmd := MustCommand("copy", "Copy files to the remote host.", noop,
		arg.New("src"),
		arg.New("dest").Default("."),
	)

	for _, cmd := range []*Command{local, deploy, remote} {
		if err := reg.Register(cmd); err != nil {
			t.Fatal(err)
		}
	}
	if err := reg.RegisterSub("remote", copyCmd); err != nil {
		t.Fatal(err)
	}
	if err := reg.Freeze(); err != nil {
		t.Fatal(err)
	}
	return reg
}

func mainTable(t *testing.T) *arg.Table {
	t.Helper()
	main := mainCommand()
	table, err := arg.Compile(main.Name, main.schema, nil)
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func TestPartitionMain(t *testing.T) {
	table := mainTable(t)

	tests := []struct {
		name     string
		tokens   []string
		wantMain []string
		wantRest []string
	}{
		{
			name:     "no main flags",
			tokens:   []string{"deploy", "prod"},
			wantMain: nil,
			wantRest: []string{"deploy", "prod"},
		},
		{
			name:     "flags with values",
			tokens:   []string{"-e", "prod", "--debug", "deploy", "prod"},
			wantMain: []string{"-e", "prod", "--debug"},
			wantRest: []string{"deploy", "prod"},
		},
		{
			name:     "inline value",
			tokens:   []string{"--env=prod", "deploy"},
			wantMain: []string{"--env=prod"},
			wantRest: []string{"deploy"},
		},
		{
			name:     "grouped shorts expand",
			tokens:   []string{"-dEe", "prod", "deploy"},
			wantMain: []string{"-d", "-E", "-e", "prod"},
			wantRest: []string{"deploy"},
		},
		{
			name:     "explicit end of main args",
			tokens:   []string{"-d", "--", "deploy"},
			wantMain: []string{"-d"},
			wantRest: []string{"deploy"},
		},
		{
			name:     "unknown option stays in main segment",
			tokens:   []string{"--bogus", "deploy"},
			wantMain: []string{"--bogus"},
			wantRest: []string{"deploy"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			main, rest, err := PartitionMain(table, tt.tokens)
			if err != nil {
				t.Fatalf("PartitionMain() error = %v", err)
			}
			if !reflect.DeepEqual(main, tt.wantMain) {
				t.Errorf("main = %v, want %v", main, tt.wantMain)
			}
			if !reflect.DeepEqual(rest, tt.wantRest) {
				t.Errorf("rest = %v, want %v", rest, tt.wantRest)
			}
		})
	}
}

func TestPartitionMain_MalformedLongFails(t *testing.T) {
	table := mainTable(t)
	_, _, err := PartitionMain(table, []string{"--bad--opt-", "deploy"})
	var perr *arg.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("PartitionMain() error = %v, want *arg.ParseError", err)
	}
}

func TestPartitionCommands(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name   string
		tokens []string
		want   []Segment
	}{
		{
			name:   "single command",
			tokens: []string{"deploy", "prod", "--version", "1.2"},
			want: []Segment{
				{Name: "deploy", Argv: []string{"prod", "--version", "1.2"}},
			},
		},
		{
			name:   "chain splits on command names",
			tokens: []string{"local", "ls", "deploy", "prod"},
			want: []Segment{
				{Name: "local", Argv: []string{"ls"}},
				{Name: "deploy", Argv: []string{"prod"}},
			},
		},
		{
			name: "command name as option value stays in segment",
			// --cd takes a value, so the following "deploy" is that
			// value, not a new command.
			tokens: []string{"local", "ls", "--cd", "deploy", "deploy", "prod"},
			want: []Segment{
				{Name: "local", Argv: []string{"ls", "--cd", "deploy"}},
				{Name: "deploy", Argv: []string{"prod"}},
			},
		},
		{
			name:   "escaped command name is an argument",
			tokens: []string{"local", ":deploy"},
			want: []Segment{
				{Name: "local", Argv: []string{"deploy"}},
			},
		},
		{
			name:   "qualified subcommand",
			tokens: []string{"remote:copy", "a.txt"},
			want: []Segment{
				{Name: "remote:copy", Argv: []string{"a.txt"}, Direct: true},
			},
		},
		{
			name:   "verbatim tail stays with its command",
			tokens: []string{"local", "sh", "--", "deploy", "-x"},
			want: []Segment{
				{Name: "local", Argv: []string{"sh", "--", "deploy", "-x"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.PartitionCommands(tt.tokens)
			if err != nil {
				t.Fatalf("PartitionCommands() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d segments, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i].Name != tt.want[i].Name {
					t.Errorf("segment %d name = %q, want %q", i, got[i].Name, tt.want[i].Name)
				}
				if !reflect.DeepEqual(got[i].Argv, tt.want[i].Argv) {
					t.Errorf("segment %d argv = %v, want %v", i, got[i].Argv, tt.want[i].Argv)
				}
				if got[i].Direct != tt.want[i].Direct {
					t.Errorf("segment %d direct = %v, want %v", i, got[i].Direct, tt.want[i].Direct)
				}
			}
		})
	}
}

func TestPartitionCommands_UnknownCommandFails(t *testing.T) {
	reg := testRegistry(t)
	_, err := reg.PartitionCommands([]string{"bogus"})
	var cerr *CommandError
	if !errors.As(err, &cerr) {
		t.Fatalf("PartitionCommands() error = %v, want *CommandError", err)
	}
}

func TestSplitSubcommand(t *testing.T) {
	reg := testRegistry(t)
	remote := reg.Get("remote")

	own, sub, subTokens := splitSubcommand(remote, []string{"--verbose", "copy", "a.txt", "b"})
	if !reflect.DeepEqual(own, []string{"--verbose"}) {
		t.Errorf("own = %v", own)
	}
	if sub == nil || sub.Name != "copy" {
		t.Fatalf("sub = %v, want copy", sub)
	}
	if !reflect.DeepEqual(subTokens, []string{"a.txt", "b"}) {
		t.Errorf("subTokens = %v", subTokens)
	}

	// --host takes a value, so "copy" right after it is that value.
	own, sub, _ = splitSubcommand(remote, []string{"--host", "copy"})
	if sub != nil {
		t.Errorf("sub = %v, want nil", sub.Name)
	}
	if !reflect.DeepEqual(own, []string{"--host", "copy"}) {
		t.Errorf("own = %v", own)
	}
}
