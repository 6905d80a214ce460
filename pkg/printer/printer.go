// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package printer writes colorized diagnostics. Errors, warnings and
// debug output go to stderr; informational output goes to stdout.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgBlue)
	debugColor   = color.New(color.FgCyan)
	echoColor    = color.New(color.FgMagenta)
)

// Printer writes leveled, colorized messages to a pair of streams.
// The zero value is unusable; use New.
type Printer struct {
	Out io.Writer
	Err io.Writer
}

var std = New(os.Stdout, os.Stderr)

// New returns a Printer writing to the given streams.
func New(out, errOut io.Writer) *Printer {
	return &Printer{Out: out, Err: errOut}
}

// Default returns the process-wide printer on stdout/stderr.
func Default() *Printer { return std }

func (p *Printer) print(w io.Writer, c *color.Color, args ...any) {
	fmt.Fprint(w, c.Sprint(strings.TrimSuffix(fmt.Sprintln(args...), "\n")), "\n")
}

func (p *Printer) Error(args ...any)   { p.print(p.Err, errorColor, args...) }
func (p *Printer) Warning(args ...any) { p.print(p.Err, warningColor, args...) }
func (p *Printer) Success(args ...any) { p.print(p.Out, successColor, args...) }
func (p *Printer) Info(args ...any)    { p.print(p.Out, infoColor, args...) }
func (p *Printer) Debug(args ...any)   { p.print(p.Err, debugColor, args...) }

// Echo prints a command line about to be executed.
func (p *Printer) Echo(args ...any) { p.print(p.Out, echoColor, args...) }

func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintln(p.Err, errorColor.Sprintf(format, args...))
}

func (p *Printer) Debugf(format string, args ...any) {
	fmt.Fprintln(p.Err, debugColor.Sprintf(format, args...))
}

// Plain prints without any coloring.
func (p *Printer) Plain(args ...any) { fmt.Fprintln(p.Out, args...) }

// HR prints a horizontal rule to visually separate sections of
// output.
func (p *Printer) HR() {
	fmt.Fprintln(p.Out, strings.Repeat("=", 79))
}
