// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "commands.yaml", `
globals:
  host: example.com
  port: 8080
envs:
  prod:
    host: prod.example.com
    args:
      deploy:
        version: "2.0"
args:
  deploy:
    workers: 4
environ:
  APP_HOST: ${host}
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	wantGlobals := map[string]any{"host": "example.com", "port": 8080}
	if diff := cmp.Diff(wantGlobals, f.Globals); diff != "" {
		t.Errorf("Globals mismatch (-want +got):\n%s", diff)
	}
	if _, ok := f.Envs["prod"]; !ok {
		t.Error("Envs missing prod")
	}
	if diff := cmp.Diff(map[string]any{"deploy": map[string]any{"workers": 4}}, f.Args); diff != "" {
		t.Errorf("Args mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_TOMLRequiresTable(t *testing.T) {
	dir := t.TempDir()

	good := writeFile(t, dir, "runlet.toml", `
[runlet.globals]
host = "example.com"

[runlet.args.deploy]
workers = 2
`)
	f, err := Load(good)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Globals["host"] != "example.com" {
		t.Errorf("Globals[host] = %v", f.Globals["host"])
	}

	bare := writeFile(t, dir, "bare.toml", `
[globals]
host = "example.com"
`)
	_, err = Load(bare)
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Load(bare) error = %v, want *Error", err)
	}
}

func TestLoad_UnknownTopLevelKeyFails(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "commands.yaml", `
globals:
  x: 1
settings:
  y: 2
`)
	_, err := Load(path)
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Load() error = %v, want *Error", err)
	}
}

func TestLoad_Extends(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
globals:
  host: base.example.com
  port: 22
args:
  deploy:
    workers: 1
`)
	path := writeFile(t, dir, "commands.yaml", `
extends: base.yaml
globals:
  host: child.example.com
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	// The extending file's own keys win; inherited keys remain.
	want := map[string]any{"host": "child.example.com", "port": 22}
	if diff := cmp.Diff(want, f.Globals); diff != "" {
		t.Errorf("Globals mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"deploy": map[string]any{"workers": 1}}, f.Args); diff != "" {
		t.Errorf("Args mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ExtendsCycleFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "extends: b.yaml\n")
	writeFile(t, dir, "b.yaml", "extends: a.yaml\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Load() error = %v, want *Error", err)
	}
}

func TestDiscover_Order(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "runlet.yaml", "globals:\n  x: 1\n")
	writeFile(t, dir, "commands.yaml", "globals:\n  x: 2\n")

	path, ok := Discover(dir)
	if !ok {
		t.Fatal("Discover() = false, want found")
	}
	if filepath.Base(path) != "commands.yaml" {
		t.Errorf("Discover() = %s, want commands.yaml first", path)
	}

	if _, ok := Discover(t.TempDir()); ok {
		t.Error("Discover(empty) = true, want false")
	}
}

func TestStore_EnvOverlay(t *testing.T) {
	f := &File{
		Globals: map[string]any{"host": "example.com", "port": 22},
		Envs: map[string]any{
			"prod": map[string]any{
				"host": "prod.example.com",
				"args": map[string]any{
					"deploy": map[string]any{"version": "9"},
				},
			},
		},
	}

	s, err := NewStore(f, "prod")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	g := s.Globals()
	if got, _ := g.Get("host"); got != "prod.example.com" {
		t.Errorf("host = %v, want prod.example.com", got)
	}
	if got, _ := g.Get("port"); got != 22 {
		t.Errorf("port = %v, want 22", got)
	}
	// The whole envs mapping is reachable for introspection.
	if got, _ := g.Get("envs.prod.host"); got != "prod.example.com" {
		t.Errorf("envs.prod.host = %v", got)
	}
	// The env's args subsection is not an env global.
	if g.Has("args") {
		t.Error("env args leaked into globals")
	}

	envArgs, err := s.EnvArgs("deploy")
	if err != nil {
		t.Fatalf("EnvArgs() error = %v", err)
	}
	if diff := cmp.Diff(map[string]any{"version": "9"}, envArgs); diff != "" {
		t.Errorf("EnvArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_UnknownEnvFails(t *testing.T) {
	f := &File{Envs: map[string]any{"prod": map[string]any{}}}
	_, err := NewStore(f, "staging")
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("NewStore() error = %v, want *Error", err)
	}
}

func TestStore_ArgsInterpolateAgainstGlobals(t *testing.T) {
	f := &File{
		Globals: map[string]any{"version": "3.1"},
		Args: map[string]any{
			"deploy": map[string]any{
				"tag":     "app-${version}",
				"workers": 2,
			},
		},
	}

	s, err := NewStore(f, "")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	args, err := s.Args("deploy")
	if err != nil {
		t.Fatalf("Args() error = %v", err)
	}
	want := map[string]any{"tag": "app-3.1", "workers": 2}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Errorf("Args mismatch (-want +got):\n%s", diff)
	}

	if args, err := s.Args("other"); err != nil || args != nil {
		t.Errorf("Args(other) = %v, %v; want nil, nil", args, err)
	}
}

func TestStore_Environ(t *testing.T) {
	f := &File{
		Globals: map[string]any{"host": "example.com", "port": 8080},
		Environ: map[string]any{
			"APP_HOST": "${host}",
			"APP_PORT": "${port}",
		},
	}
	s, err := NewStore(f, "")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	environ, err := s.Environ()
	if err != nil {
		t.Fatalf("Environ() error = %v", err)
	}
	want := map[string]string{"APP_HOST": "example.com", "APP_PORT": "8080"}
	if diff := cmp.Diff(want, environ); diff != "" {
		t.Errorf("Environ mismatch (-want +got):\n%s", diff)
	}
}
