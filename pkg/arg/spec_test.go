// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arg

import (
	"errors"
	"testing"
)

func TestBuild_Kinds(t *testing.T) {
	schema, err := Build("deploy",
		New("target"),
		New("version").Default(""),
		New("dry_run").Default(false),
		New("hosts").Variadic(),
		New("extra").VarKeyword(),
	)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	wantKinds := map[string]Kind{
		"target":  PositionalRequired,
		"version": PositionalWithDefault,
		"dry-run": PositionalWithDefault,
		"hosts":   VarPositional,
		"extra":   VarKeyword,
	}
	for name, want := range wantKinds {
		p := schema.Find(name)
		if p == nil {
			t.Fatalf("Find(%q) = nil", name)
		}
		if p.Kind != want {
			t.Errorf("%s: Kind = %v, want %v", name, p.Kind, want)
		}
	}
	if schema.VarPositional == nil || schema.VarPositional.Name != "hosts" {
		t.Errorf("VarPositional = %v, want hosts", schema.VarPositional)
	}
	if schema.VarKeyword == nil || schema.VarKeyword.Name != "extra" {
		t.Errorf("VarKeyword = %v, want extra", schema.VarKeyword)
	}
}

func TestBuild_RequiredAfterDefaultedFails(t *testing.T) {
	_, err := Build("bad",
		New("first").Default("x"),
		New("second"),
	)
	var serr *SchemaError
	if !errors.As(err, &serr) {
		t.Fatalf("Build() error = %v, want *SchemaError", err)
	}
	if serr.Param != "second" {
		t.Errorf("SchemaError.Param = %q, want %q", serr.Param, "second")
	}
}

func TestBuild_TypeInference(t *testing.T) {
	schema, err := Build("infer",
		New("count").Default(3),
		New("rate").Default(0.5),
		New("verbose").Default(false),
		New("tags").Default([]string{"a"}),
		New("name").Default("x"),
	)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		name      string
		wantType  Type
		container Container
	}{
		{"count", Int, NoContainer},
		{"rate", Float, NoContainer},
		{"verbose", Bool, NoContainer},
		{"tags", String, List},
		{"name", String, NoContainer},
	}
	for _, tt := range tests {
		p := schema.Find(tt.name)
		if p.Type != tt.wantType {
			t.Errorf("%s: Type = %v, want %v", tt.name, p.Type, tt.wantType)
		}
		if p.Container != tt.container {
			t.Errorf("%s: Container = %v, want %v", tt.name, p.Container, tt.container)
		}
	}
}

func TestBuild_OptionSpellings(t *testing.T) {
	schema, err := Build("opts",
		New("value").Default(""),
		New("version").Default(""),
		New("host").Default("localhost"),
		New("hide").Default(false),
	)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		name      string
		wantLong  string
		wantShort string
	}{
		{"value", "--value", "-v"},
		// -v is taken, so version gets the upper-case fallback.
		{"version", "--version", "-V"},
		{"host", "--host", "-H"}, // -h is reserved for help
		{"hide", "--hide", ""},   // -h reserved, -H taken
	}
	for _, tt := range tests {
		p := schema.Find(tt.name)
		if p.Long != tt.wantLong {
			t.Errorf("%s: Long = %q, want %q", tt.name, p.Long, tt.wantLong)
		}
		if p.Short != tt.wantShort {
			t.Errorf("%s: Short = %q, want %q", tt.name, p.Short, tt.wantShort)
		}
	}
}

func TestBuild_BoolInverses(t *testing.T) {
	schema, err := Build("flags",
		New("color").Default(true),
		New("yes").Default(false),
		New("with_tests").Default(true),
		New("quiet").Default(false).NoInverse(),
	)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		name            string
		wantInverseLong string
	}{
		{"color", "--no-color"},
		{"yes", "--no"},
		{"with-tests", "--without-tests"},
		{"quiet", ""},
	}
	for _, tt := range tests {
		p := schema.Find(tt.name)
		if p.InverseLong != tt.wantInverseLong {
			t.Errorf("%s: InverseLong = %q, want %q", tt.name, p.InverseLong, tt.wantInverseLong)
		}
	}

	if got := schema.Find("color").InverseShort; got != "-C" {
		t.Errorf("color: InverseShort = %q, want -C", got)
	}
	if got := schema.Find("quiet").InverseShort; got != "" {
		t.Errorf("quiet: InverseShort = %q, want empty", got)
	}
}

func TestBuild_FixedArityBecomesOption(t *testing.T) {
	schema, err := Build("fixed",
		New("pair").NArgs(2).Type(Int),
	)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	p := schema.Find("pair")
	if p.Kind != Optional {
		t.Errorf("Kind = %v, want Optional", p.Kind)
	}
	if p.Container != List {
		t.Errorf("Container = %v, want List", p.Container)
	}
}

func TestBuild_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		specs []*Spec
	}{
		{"duplicate name", []*Spec{New("x").Default(1), New("x").Default(2)}},
		{"duplicate short", []*Spec{New("alpha").Default("").Short("a"), New("beta").Default("").Short("a")}},
		{"short is -h", []*Spec{New("host").Default("").Short("h")}},
		{"bool with choices", []*Spec{New("flag").Default(false).Choices("a", "b")}},
		{"map with choices", []*Spec{New("vals").Map().Default(map[string]any{}).Choices("a")}},
		{"two variadics", []*Spec{New("a").Variadic(), New("b").Variadic()}},
		{"malformed long", []*Spec{New("x").Default("").Long("bad--name-")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build("bad", tt.specs...)
			var serr *SchemaError
			if !errors.As(err, &serr) {
				t.Fatalf("Build() error = %v, want *SchemaError", err)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"dry_run", "dry-run"},
		{"type_", "type"},
		{"plain", "plain"},
		{"a_b_c", "a-b-c"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
