// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runlet ties the pieces together: the command registry with
// subcommand trees, the argv partitioner, the precedence resolver
// that merges config, environment and CLI values, and the dispatcher
// that runs a chain of invocations left to right.
package runlet

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/runlet/runlet/pkg/arg"
	"github.com/runlet/runlet/pkg/config"
	"github.com/runlet/runlet/pkg/printer"
)

// CommandError reports a problem resolving one invocation's
// arguments: an unknown command, an unrecognized default-arg name in
// config, an invalid choice, or a missing required argument.
type CommandError struct {
	Command string
	Arg     string
	Reason  string
}

func (e *CommandError) Error() string {
	var b strings.Builder
	if e.Command != "" {
		fmt.Fprintf(&b, "%s: ", e.Command)
	}
	if e.Arg != "" {
		fmt.Fprintf(&b, "%s: ", e.Arg)
	}
	b.WriteString(e.Reason)
	return b.String()
}

// Impl is a command's implementation. It returns the invocation's
// exit code.
type Impl func(call *Call) (int, error)

// Command is one registered command: a name, a parameter schema, an
// implementation, and optionally a tree of subcommands.
type Command struct {
	Name string
	Help string

	// Selector names the positional parameter that picks a
	// subcommand. Required when the command has subcommands.
	Selector string

	schema *arg.Schema
	impl   Impl

	parent   *Command
	subs     map[string]*Command
	subOrder []string

	// table is compiled by Registry.Freeze.
	table *arg.Table
	// original is the command this one replaced, if any.
	original *Command
}

// NewCommand builds a command from parameter specs. Declaration
// problems surface here as arg.SchemaError.
func NewCommand(name, help string, impl Impl, specs ...*arg.Spec) (*Command, error) {
	name = arg.NormalizeName(name)
	schema, err := arg.Build(name, specs...)
	if err != nil {
		return nil, err
	}
	return &Command{
		Name:   name,
		Help:   help,
		schema: schema,
		impl:   impl,
		subs:   make(map[string]*Command),
	}, nil
}

// MustCommand is NewCommand for static declarations; it panics on a
// bad schema.
func MustCommand(name, help string, impl Impl, specs ...*arg.Spec) *Command {
	c, err := NewCommand(name, help, impl, specs...)
	if err != nil {
		panic(err)
	}
	return c
}

// QualifiedName returns the name used for direct invocation:
// base:sub for subcommands, the plain name otherwise.
func (c *Command) QualifiedName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.QualifiedName() + ":" + c.Name
}

// Schema returns the command's parameter schema.
func (c *Command) Schema() *arg.Schema { return c.schema }

// Table returns the compiled option table. Nil until the registry is
// frozen.
func (c *Command) Table() *arg.Table { return c.table }

// Parent returns the enclosing base command, or nil.
func (c *Command) Parent() *Command { return c.parent }

// Original returns the command this one replaced at registration, or
// nil.
func (c *Command) Original() *Command { return c.original }

// Sub returns the named subcommand.
func (c *Command) Sub(name string) (*Command, bool) {
	sub, ok := c.subs[arg.NormalizeName(name)]
	return sub, ok
}

// Subcommands returns the subcommands in declaration order.
func (c *Command) Subcommands() []*Command {
	out := make([]*Command, 0, len(c.subOrder))
	for _, name := range c.subOrder {
		out = append(out, c.subs[name])
	}
	return out
}

// selectorParam returns the schema parameter named by Selector.
func (c *Command) selectorParam() *arg.Param {
	if c.Selector == "" {
		return nil
	}
	return c.schema.Find(c.Selector)
}

// params returns the full parameter set an invocation resolves
// against: the compiled table's own plus inherited parameters once
// the registry is frozen, the bare schema before that.
func (c *Command) params() []*arg.Param {
	if c.table != nil {
		return c.table.Params
	}
	return c.schema.Params
}

// findParam resolves a normalized name against params().
func (c *Command) findParam(name string) *arg.Param {
	if c.table != nil {
		return c.table.Find(name)
	}
	return c.schema.Find(name)
}

// inheritable returns the base parameters a subcommand's table merges
// in: everything except the selector and the variadic catch-alls.
func (c *Command) inheritable() []*arg.Param {
	sel := c.selectorParam()
	var out []*arg.Param
	for _, p := range c.schema.Params {
		if p == sel || p.Kind == arg.VarPositional || p.Kind == arg.VarKeyword {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Call carries one resolved invocation into a command
// implementation.
type Call struct {
	Command *Command
	// Args is the final argument mapping after precedence
	// resolution, keyed by normalized parameter name.
	Args map[string]any
	// Rest holds tokens after a literal --, passed through verbatim.
	Rest []string

	Env     string
	Globals *config.Config
	Debug   bool
	Echo    bool

	Printer *printer.Printer
	Stdout  io.Writer
	Stderr  io.Writer
}

// String returns the named argument as a string. Missing or
// differently-typed values return "".
func (c *Call) String(name string) string {
	s, _ := c.Args[arg.NormalizeName(name)].(string)
	return s
}

// Bool returns the named argument as a bool.
func (c *Call) Bool(name string) bool {
	b, _ := c.Args[arg.NormalizeName(name)].(bool)
	return b
}

// Int returns the named argument as an int, converting compatible
// numeric types.
func (c *Call) Int(name string) int {
	switch v := c.Args[arg.NormalizeName(name)].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Float returns the named argument as a float64.
func (c *Call) Float(name string) float64 {
	switch v := c.Args[arg.NormalizeName(name)].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Duration returns the named argument as a time.Duration.
func (c *Call) Duration(name string) time.Duration {
	switch v := c.Args[arg.NormalizeName(name)].(type) {
	case time.Duration:
		return v
	case string:
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return 0
}

// Strings returns a list-valued argument with its elements rendered
// as strings.
func (c *Call) Strings(name string) []string {
	v := c.Args[arg.NormalizeName(name)]
	switch v := v.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = fmt.Sprintf("%v", item)
		}
		return out
	}
	return nil
}

// Map returns a map-valued argument.
func (c *Call) Map(name string) map[string]any {
	m, _ := c.Args[arg.NormalizeName(name)].(map[string]any)
	return m
}

// Has reports whether the argument has a resolved value.
func (c *Call) Has(name string) bool {
	_, ok := c.Args[arg.NormalizeName(name)]
	return ok
}
