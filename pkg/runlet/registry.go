// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runlet

import (
	"sort"
	"strings"

	"github.com/runlet/runlet/pkg/arg"
)

// Registry maps names to commands. It is open for registration at
// startup and frozen once command loading finishes; freezing compiles
// every option table and populates subcommand selector choices.
type Registry struct {
	commands map[string]*Command
	order    []string
	frozen   bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register adds a top-level command. Duplicate names are an
// arg.SchemaError; use Replace to override an existing command.
func (r *Registry) Register(cmd *Command) error {
	if r.frozen {
		return &arg.SchemaError{Command: cmd.Name, Reason: "registry is frozen"}
	}
	if _, dup := r.commands[cmd.Name]; dup {
		return &arg.SchemaError{Command: cmd.Name, Reason: "command already registered"}
	}
	r.commands[cmd.Name] = cmd
	r.order = append(r.order, cmd.Name)
	return nil
}

// Replace registers cmd over an already-registered command of the
// same name. The replaced command stays reachable through the new
// command's Original accessor. Replacing a name that is not
// registered is an arg.SchemaError.
func (r *Registry) Replace(cmd *Command) error {
	if r.frozen {
		return &arg.SchemaError{Command: cmd.Name, Reason: "registry is frozen"}
	}
	prev, ok := r.commands[cmd.Name]
	if !ok {
		return &arg.SchemaError{Command: cmd.Name, Reason: "no command to replace"}
	}
	cmd.original = prev
	r.commands[cmd.Name] = cmd
	return nil
}

// RegisterSub attaches cmd as a subcommand of the named parent.
func (r *Registry) RegisterSub(parent string, cmd *Command) error {
	if r.frozen {
		return &arg.SchemaError{Command: cmd.Name, Reason: "registry is frozen"}
	}
	base, ok := r.Lookup(parent)
	if !ok {
		return &arg.SchemaError{Command: cmd.Name, Reason: "unknown parent command " + parent}
	}
	if _, dup := base.subs[cmd.Name]; dup {
		return &arg.SchemaError{
			Command: base.QualifiedName() + ":" + cmd.Name,
			Reason:  "subcommand already registered",
		}
	}
	cmd.parent = base
	base.subs[cmd.Name] = cmd
	base.subOrder = append(base.subOrder, cmd.Name)
	return nil
}

// Freeze closes the registry and compiles every command's option
// table. A base command with subcommands must name a Selector
// positional; its choices default to the registered subcommand
// names.
func (r *Registry) Freeze() error {
	if r.frozen {
		return nil
	}
	for _, name := range r.order {
		if err := freeze(r.commands[name]); err != nil {
			return err
		}
	}
	r.frozen = true
	return nil
}

func freeze(cmd *Command) error {
	if len(cmd.subs) > 0 {
		sel := cmd.selectorParam()
		if sel == nil {
			return &arg.SchemaError{
				Command: cmd.QualifiedName(),
				Reason:  "command has subcommands but no selector positional",
			}
		}
		if sel.Kind != arg.PositionalRequired && sel.Kind != arg.PositionalWithDefault {
			return &arg.SchemaError{
				Command: cmd.QualifiedName(),
				Param:   sel.Name,
				Reason:  "selector must be a positional parameter",
			}
		}
		if len(sel.Choices) == 0 {
			sel.Choices = append([]string(nil), cmd.subOrder...)
		}
	} else if cmd.Selector != "" && cmd.selectorParam() == nil {
		return &arg.SchemaError{
			Command: cmd.QualifiedName(),
			Param:   cmd.Selector,
			Reason:  "selector names an unknown parameter",
		}
	}

	var inherited []*arg.Param
	if cmd.parent != nil {
		inherited = cmd.parent.inheritable()
	}
	table, err := arg.Compile(cmd.QualifiedName(), cmd.schema, inherited)
	if err != nil {
		return err
	}
	cmd.table = table

	for _, name := range cmd.subOrder {
		if err := freeze(cmd.subs[name]); err != nil {
			return err
		}
	}
	return nil
}

// Frozen reports whether the registry has been frozen.
func (r *Registry) Frozen() bool { return r.frozen }

// Lookup resolves a command name, including qualified base:sub names
// that address a subcommand directly.
func (r *Registry) Lookup(name string) (*Command, bool) {
	name = arg.NormalizeName(name)
	first, rest, qualified := strings.Cut(name, ":")
	cmd, ok := r.commands[first]
	if !ok {
		return nil, false
	}
	if !qualified {
		return cmd, true
	}
	for _, part := range strings.Split(rest, ":") {
		cmd, ok = cmd.Sub(part)
		if !ok {
			return nil, false
		}
	}
	return cmd, true
}

// Has reports whether name addresses a registered command, qualified
// names included.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns the top-level command names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Get returns the named command or nil.
func (r *Registry) Get(name string) *Command {
	cmd, _ := r.Lookup(name)
	return cmd
}
