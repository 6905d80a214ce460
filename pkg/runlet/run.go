// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runlet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/runlet/runlet/pkg/arg"
	"github.com/runlet/runlet/pkg/config"
	"github.com/runlet/runlet/pkg/printer"
)

// Version is the program version reported by the info flag.
const Version = "0.1.0"

// Runner drives one run: it partitions the raw command line, loads
// config, resolves each invocation's arguments and dispatches the
// chain strictly left to right.
type Runner struct {
	Registry *Registry

	// Globals is the programmatic globals layer; -g values from the
	// command line are merged over it.
	Globals map[string]any
	Env     string
	Echo    bool
	Debug   bool

	// LookupEnv sources per-command argument defaults from the
	// environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// Setenv materializes the config's environ section. Defaults to
	// os.Setenv.
	Setenv func(key, value string) error

	Printer *printer.Printer
	Stdout  io.Writer
	Stderr  io.Writer

	store *config.Store
}

// NewRunner returns a Runner with process defaults and an empty
// config store.
func NewRunner(reg *Registry) *Runner {
	store, _ := config.NewStore(nil, "")
	return &Runner{
		Registry:  reg,
		Globals:   make(map[string]any),
		LookupEnv: os.LookupEnv,
		Setenv:    os.Setenv,
		Printer:   printer.Default(),
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		store:     store,
	}
}

// Store returns the loaded config store.
func (r *Runner) Store() *config.Store { return r.store }

// LoadConfig loads the config file at path (or probes the default
// candidates in dir "." when path is empty) and applies the selected
// env. With no path and no discoverable file the store stays empty.
func (r *Runner) LoadConfig(path string) error {
	if path == "" {
		var ok bool
		path, ok = config.Discover(".")
		if !ok {
			store, err := config.NewStore(nil, "")
			if err != nil {
				return err
			}
			if r.Env != "" {
				return &config.Error{
					Path:   "envs." + r.Env,
					Reason: "env selected but no config file found",
				}
			}
			r.store = store
			return nil
		}
	}
	f, err := config.Load(path)
	if err != nil {
		return err
	}
	store, err := config.NewStore(f, r.Env)
	if err != nil {
		return err
	}
	r.store = store
	return nil
}

// mainCommand declares the main invocation's own flags.
func mainCommand() *Command {
	return MustCommand("runlet",
		"Run one or more commands in succession.",
		nil,
		arg.New("config_file").Default("").Short("f").
			Help("Config file to load instead of probing the default names"),
		arg.New("env").Default("").
			Help("Selects the envs section merged over globals"),
		arg.New("globals").Map().Type(arg.JSON).Default(map[string]any{}).
			Help("Global variables for all commands (name:<json> items)"),
		arg.New("version").Default("").Short("V").
			Help("Added to globals when set"),
		arg.New("echo").Default(false).Short("E").NoInverse().
			Help("Echo commands before running them"),
		arg.New("environ").Map().Default(map[string]any{}).
			Help("Extra environment variables set before commands run"),
		arg.New("info").Default(false).NoInverse().Group("meta-show").
			Help("Show program info and exit"),
		arg.New("list").Default(false).NoInverse().Group("meta-show").
			Help("List commands and exit (-l names only, --list with usage)"),
		arg.New("debug").Default(false).
			Help("Print debugging detail and propagate full errors"),
	)
}

// Main is the top-level entry: it consumes the main flags, loads
// config, runs the command chain and converts taxonomy errors into
// one-line diagnostics and a non-zero exit, unless the debug flag
// asks for full detail.
func (r *Runner) Main(argv []string) int {
	code, err := r.main(argv)
	if err == nil {
		return code
	}
	if r.Debug {
		r.Printer.Errorf("%+v", err)
	} else {
		r.Printer.Error(userMessage(err))
	}
	if code == 0 {
		code = 1
	}
	return code
}

// ensureFrozen compiles the option tables on first use so callers can
// skip an explicit Freeze.
func (r *Runner) ensureFrozen() error {
	if r.Registry.Frozen() {
		return nil
	}
	return r.Registry.Freeze()
}

func (r *Runner) main(argv []string) (int, error) {
	if err := r.ensureFrozen(); err != nil {
		return 0, err
	}
	main := mainCommand()
	table, err := arg.Compile(main.Name, main.schema, nil)
	if err != nil {
		return 0, err
	}

	mainArgv, rest, err := PartitionMain(table, argv)
	if err != nil {
		return 0, err
	}
	if helpRequested(mainArgv) {
		fmt.Fprint(r.Stdout, arg.Help(table, main.Help))
		return 0, nil
	}
	parsed, err := arg.Parse(table, mainArgv)
	if err != nil {
		return 0, err
	}

	if debug, ok := parsed.Values["debug"].(bool); ok {
		r.Debug = debug
	}
	if env, _ := parsed.Values["env"].(string); env != "" {
		r.Env = env
	}
	if g, ok := parsed.Values["globals"].(map[string]any); ok {
		r.Globals = config.Merge(r.Globals, g)
	}
	// Command-line conveniences mirrored into globals.
	if r.Env != "" {
		r.Globals["env"] = r.Env
	}
	if v, _ := parsed.Values["version"].(string); v != "" {
		r.Globals["version"] = v
	}
	if echo, ok := parsed.Values["echo"].(bool); ok && echo {
		r.Echo = true
		r.Globals["echo"] = true
	}
	if r.Debug {
		r.Globals["debug"] = true
	}

	path, _ := parsed.Values["config-file"].(string)
	if err := r.LoadConfig(path); err != nil {
		return 0, err
	}
	if err := r.applyEnviron(parsed.Values["environ"]); err != nil {
		return 0, err
	}

	if r.Debug {
		r.Printer.Debug("Config file:", r.store.Path())
		r.Printer.Debug("Env:", r.Env)
		r.Printer.Debug("Main args:", mainArgv)
		r.Printer.Debug("Command args:", rest)
	}

	if info, _ := parsed.Values["info"].(bool); info {
		fmt.Fprintln(r.Stdout, "runlet", Version)
		return 0, nil
	}
	if list, _ := parsed.Values["list"].(bool); list {
		r.printCommands(parsed.Spelling["list"] != "-l")
		return 0, nil
	}
	if len(rest) == 0 {
		r.Printer.Warning("No command(s) specified")
		r.printCommands(false)
		return 0, nil
	}

	return r.Run(rest)
}

// applyEnviron materializes the config environ section plus any
// --environ overrides into the process environment, once per run.
func (r *Runner) applyEnviron(flag any) error {
	environ, err := r.store.Environ()
	if err != nil {
		return err
	}
	if environ == nil {
		environ = make(map[string]string)
	}
	if extra, ok := flag.(map[string]any); ok {
		for k, v := range extra {
			environ[k] = fmt.Sprintf("%v", v)
		}
	}
	for k, v := range environ {
		if err := r.Setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Run partitions the post-main tokens into command segments and
// dispatches them strictly left to right. An error aborts the rest of
// the chain; the returned exit code is the last invocation's.
func (r *Runner) Run(tokens []string) (int, error) {
	if err := r.ensureFrozen(); err != nil {
		return 1, err
	}
	segments, err := r.Registry.PartitionCommands(tokens)
	if err != nil {
		return 1, err
	}
	code := 0
	for _, seg := range segments {
		// For a qualified base:sub segment the command is already
		// the subcommand, so the base implementation never runs.
		code, err = r.runChain(seg.Command, seg.Argv)
		if err != nil {
			return 1, err
		}
	}
	return code, nil
}

// Call invokes a command programmatically with direct keyword
// arguments, the highest-precedence layer.
func (r *Runner) Call(name string, kwargs map[string]any) (int, error) {
	if err := r.ensureFrozen(); err != nil {
		return 1, err
	}
	cmd, ok := r.Registry.Lookup(name)
	if !ok {
		return 1, &CommandError{Command: name, Reason: "unknown command"}
	}
	args, err := r.resolve(cmd, nil, kwargs)
	if err != nil {
		return 1, err
	}
	return r.invoke(cmd, args, nil)
}

// runChain parses and runs one segment: the command itself first,
// then, when the tokens select a subcommand, the subcommand after it.
func (r *Runner) runChain(cmd *Command, tokens []string) (int, error) {
	own, sub, subTokens := splitSubcommand(cmd, tokens)

	if helpRequested(own) {
		fmt.Fprint(r.Stdout, arg.Help(cmd.table, cmd.Help))
		return 0, nil
	}
	parsed, err := arg.Parse(cmd.table, own)
	if err != nil {
		return 1, err
	}
	if sub != nil {
		if sel := cmd.selectorParam(); sel != nil {
			parsed.Values[sel.Name] = sub.Name
		}
	}

	args, err := r.resolve(cmd, parsed.Values, nil)
	if err != nil {
		return 1, err
	}
	code, err := r.invoke(cmd, args, parsed.Rest)
	if err != nil {
		return code, err
	}
	if sub != nil {
		return r.runChain(sub, subTokens)
	}
	return code, nil
}

// invoke runs one resolved invocation.
func (r *Runner) invoke(cmd *Command, args map[string]any, rest []string) (int, error) {
	if cmd.impl == nil {
		return 0, nil
	}
	call := &Call{
		Command: cmd,
		Args:    args,
		Rest:    rest,
		Env:     r.Env,
		Globals: r.store.Globals(),
		Debug:   r.Debug,
		Echo:    r.Echo,
		Printer: r.Printer,
		Stdout:  r.Stdout,
		Stderr:  r.Stderr,
	}
	return cmd.impl(call)
}

// printCommands lists the registered commands; the long form adds a
// usage line per command and its subcommands.
func (r *Runner) printCommands(long bool) {
	names := r.Registry.Names()
	if len(names) == 0 {
		r.Printer.Warning("No commands available")
		return
	}
	fmt.Fprint(r.Stdout, "\nAvailable commands:\n\n")
	for _, name := range names {
		cmd := r.Registry.Get(name)
		if long && cmd.table != nil {
			fmt.Fprintf(r.Stdout, "    %s\n", arg.Usage(cmd.table))
			for _, sub := range subTree(cmd) {
				fmt.Fprintf(r.Stdout, "    %s\n", arg.Usage(sub.table))
			}
		} else {
			fmt.Fprintf(r.Stdout, "    %s\n", name)
		}
	}
	fmt.Fprint(r.Stdout, "\nFor detailed help on a command: runlet <command> --help\n")
}

// subTree returns all descendants of cmd in declaration order.
func subTree(cmd *Command) []*Command {
	var out []*Command
	for _, sub := range cmd.Subcommands() {
		out = append(out, sub)
		out = append(out, subTree(sub)...)
	}
	return out
}

// helpRequested reports whether -h or --help appears before any
// literal --.
func helpRequested(tokens []string) bool {
	for _, tok := range tokens {
		if tok == "--" {
			return false
		}
		if tok == "-h" || strings.EqualFold(tok, "--help") {
			return true
		}
	}
	return false
}

// userMessage renders a taxonomy error as a one-line diagnostic.
func userMessage(err error) string {
	var (
		schemaErr  *arg.SchemaError
		parseErr   *arg.ParseError
		configErr  *config.Error
		commandErr *CommandError
	)
	switch {
	case errors.As(err, &schemaErr):
		return schemaErr.Error()
	case errors.As(err, &parseErr):
		return parseErr.Error()
	case errors.As(err, &configErr):
		return configErr.Error()
	case errors.As(err, &commandErr):
		return commandErr.Error()
	}
	return strings.SplitN(err.Error(), "\n", 2)[0]
}
