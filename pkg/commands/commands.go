// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package commands provides the built-in commands shipped with the
// runlet binary: show-config, local, git-version and release.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/runlet/runlet/pkg/arg"
	"github.com/runlet/runlet/pkg/exec"
	"github.com/runlet/runlet/pkg/runlet"
)

// Builtins holds the shared dependencies of the built-in commands.
type Builtins struct {
	Runner exec.Runner
}

func New() *Builtins {
	return &Builtins{Runner: exec.Local{}}
}

// Register adds all built-in commands to reg. Call before Freeze.
func (b *Builtins) Register(reg *runlet.Registry) error {
	cmds := []*runlet.Command{
		runlet.MustCommand("show-config",
			"Show resolved configuration",
			b.showConfig,
			arg.New("name").List().OptionOnly().Default([]any{}).Help("Show only these dotted keys"),
			arg.New("flat").OptionOnly().Default(false).Help("Flat dotted listing instead of nested"),
			arg.New("values").OptionOnly().Default(false).Help("Print values only (implies --flat)"),
			arg.New("exclude").List().OptionOnly().Default([]any{}).Help("Dotted keys to skip"),
		),
		runlet.MustCommand("local",
			"Run a local shell command",
			b.local,
			arg.New("cmd").Variadic().Help("Program and arguments"),
			arg.New("cd").OptionOnly().Default("").Help("Working directory to change to first"),
			arg.New("environ").Map().OptionOnly().Default(map[string]any{}).Help("Extra NAME:value environment entries"),
			arg.New("shell").OptionOnly().Default(false).Help("Join the arguments and run through sh -c"),
			arg.New("echo").OptionOnly().Default(false).Help("Echo the command before running it"),
			arg.New("raise-on-error").OptionOnly().Default(true).Help("Fail when the command exits nonzero"),
			arg.New("dry-run").OptionOnly().Default(false).Help("Print the command instead of running it"),
		),
		runlet.MustCommand("git-version",
			"Print the tag for HEAD, falling back to the short hash",
			b.gitVersion,
			arg.New("short").OptionOnly().Default(true).Help("Abbreviate the fallback hash"),
		),
		runlet.MustCommand("release",
			"Tag the next version and optionally push the tag",
			b.release,
			arg.New("bump").Default("patch").Choices("major", "minor", "patch").
				Help("Which version component to increment"),
			arg.New("prefix").OptionOnly().Default("v").Help("Tag prefix"),
			arg.New("message").OptionOnly().Default("").Help("Tag message (defaults to the version)"),
			arg.New("push").OptionOnly().Default(false).Help("Push the new tag to origin"),
			arg.New("dry-run").OptionOnly().Default(true).Help("Print the git commands instead of running them"),
		),
	}
	for _, cmd := range cmds {
		if err := reg.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builtins) showConfig(call *runlet.Call) (int, error) {
	values := call.Bool("values")
	flat := call.Bool("flat") || values
	exclude := call.Strings("exclude")

	resolved, err := call.Globals.Resolved()
	if err != nil {
		return 1, err
	}

	names := call.Strings("name")
	if len(names) == 0 {
		printConfig(call, "", 0, resolved, flat, values, exclude)
		return 0, nil
	}
	for _, name := range names {
		v, ok := lookupDotted(resolved, name)
		if !ok {
			return 1, &runlet.CommandError{
				Command: "show-config",
				Arg:     "name",
				Reason:  fmt.Sprintf("unknown config key %q", name),
			}
		}
		if m, isMap := v.(map[string]any); isMap {
			if !flat {
				fmt.Fprintf(call.Stdout, "%s =>\n", name)
			}
			printConfig(call, name, 1, m, flat, values, exclude)
		} else {
			printLeaf(call, name, v, values)
		}
	}
	return 0, nil
}

func printConfig(call *runlet.Call, prefix string, depth int, m map[string]any, flat, values bool, exclude []string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pad := strings.Repeat("    ", depth)
	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if excluded(path, exclude) {
			continue
		}
		v := m[k]
		if sub, ok := v.(map[string]any); ok {
			if !flat {
				fmt.Fprintf(call.Stdout, "%s%s =>\n", pad, k)
				printConfig(call, path, depth+1, sub, flat, values, exclude)
			} else {
				printConfig(call, path, 0, sub, flat, values, exclude)
			}
			continue
		}
		if flat {
			printLeaf(call, path, v, values)
		} else {
			fmt.Fprintf(call.Stdout, "%s%s => %v\n", pad, k, v)
		}
	}
}

func printLeaf(call *runlet.Call, path string, v any, values bool) {
	if values {
		fmt.Fprintf(call.Stdout, "%v\n", v)
	} else {
		fmt.Fprintf(call.Stdout, "%s => %v\n", path, v)
	}
}

func excluded(path string, exclude []string) bool {
	for _, e := range exclude {
		if path == e || strings.HasPrefix(path, e+".") {
			return true
		}
	}
	return false
}

func lookupDotted(m map[string]any, path string) (any, bool) {
	var v any = m
	for _, part := range strings.Split(path, ".") {
		mm, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = mm[part]; !ok {
			return nil, false
		}
	}
	return v, true
}

func (b *Builtins) local(call *runlet.Call) (int, error) {
	args := call.Strings("cmd")
	args = append(args, call.Rest...)
	if len(args) == 0 {
		return 1, &runlet.CommandError{Command: "local", Arg: "cmd", Reason: "no command given"}
	}

	var env []string
	for k, v := range call.Map("environ") {
		env = append(env, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(env)

	c := exec.Cmd{
		Args:   args,
		Dir:    call.String("cd"),
		Env:    env,
		Stdout: call.Stdout,
		Stderr: call.Stderr,
	}
	if call.Bool("shell") {
		c.Shell = strings.Join(args, " ")
		c.Args = nil
	}

	display := strings.Join(args, " ")
	if call.Bool("dry-run") {
		call.Printer.Echo("[DRY RUN]", display)
		return 0, nil
	}
	if call.Bool("echo") || call.Echo {
		if c.Dir != "" {
			call.Printer.Echo(c.Dir+">", display)
		} else {
			call.Printer.Echo(display)
		}
	}

	res, err := b.Runner.Run(context.Background(), c)
	if err != nil {
		return 1, err
	}
	if res.ExitCode != 0 && call.Bool("raise-on-error") {
		return res.ExitCode, fmt.Errorf("command %q exited with code %d", display, res.ExitCode)
	}
	return res.ExitCode, nil
}

func (b *Builtins) gitVersion(call *runlet.Call) (int, error) {
	ctx := context.Background()

	res, err := b.Runner.Run(ctx, exec.Cmd{Args: []string{"git", "rev-parse", "--is-inside-work-tree"}})
	if err != nil || res.ExitCode != 0 {
		return 1, fmt.Errorf("git-version: not inside a git work tree")
	}

	// Annotated tag pointing at HEAD, if any.
	res, err = b.Runner.Run(ctx, exec.Cmd{Args: []string{"git", "describe", "--exact-match"}})
	if err == nil && res.ExitCode == 0 {
		fmt.Fprintln(call.Stdout, strings.TrimSpace(res.Stdout))
		return 0, nil
	}

	args := []string{"git", "rev-parse"}
	if call.Bool("short") {
		args = append(args, "--short")
	}
	args = append(args, "HEAD")
	res, err = b.Runner.Run(ctx, exec.Cmd{Args: args})
	if err != nil {
		return 1, err
	}
	if res.ExitCode != 0 {
		return res.ExitCode, fmt.Errorf("git-version: %s", strings.TrimSpace(res.Stderr))
	}
	fmt.Fprintln(call.Stdout, strings.TrimSpace(res.Stdout))
	return 0, nil
}

func (b *Builtins) release(call *runlet.Call) (int, error) {
	ctx := context.Background()
	prefix := call.String("prefix")

	current := semver.MustParse("0.0.0")
	res, err := b.Runner.Run(ctx, exec.Cmd{Args: []string{"git", "describe", "--tags", "--abbrev=0"}})
	if err == nil && res.ExitCode == 0 {
		tag := strings.TrimSpace(res.Stdout)
		v, perr := semver.NewVersion(strings.TrimPrefix(tag, prefix))
		if perr != nil {
			return 1, fmt.Errorf("release: latest tag %q is not a version: %w", tag, perr)
		}
		current = v
	}

	var next semver.Version
	switch call.String("bump") {
	case "major":
		next = current.IncMajor()
	case "minor":
		next = current.IncMinor()
	default:
		next = current.IncPatch()
	}

	tagName := prefix + next.String()
	message := call.String("message")
	if message == "" {
		message = "Release " + next.String()
	}

	steps := [][]string{{"git", "tag", "-a", tagName, "-m", message}}
	if call.Bool("push") {
		steps = append(steps, []string{"git", "push", "origin", tagName})
	}

	if call.Bool("dry-run") {
		for _, step := range steps {
			call.Printer.Echo("[DRY RUN]", strings.Join(step, " "))
		}
		call.Printer.Info("Would release", tagName, "(current:", prefix+current.String()+")")
		return 0, nil
	}

	for _, step := range steps {
		res, err := b.Runner.Run(ctx, exec.Cmd{Args: step, Stdout: call.Stdout, Stderr: call.Stderr})
		if err != nil {
			return 1, err
		}
		if res.ExitCode != 0 {
			return res.ExitCode, fmt.Errorf("release: %q exited with code %d", strings.Join(step, " "), res.ExitCode)
		}
	}
	call.Printer.Success("Released", tagName)
	return 0, nil
}
