// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package exec runs local subprocesses for built-in commands. It is the
// only package in the module that spawns processes or touches the
// terminal; everything else stays pure.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Cmd describes a subprocess to run.
type Cmd struct {
	// Args is the program and its arguments. When Shell is set, Args is
	// joined and run through "sh -c" instead.
	Args  []string
	Shell string

	// Dir is the working directory. Empty means inherit.
	Dir string

	// Env entries are appended to the parent environment.
	Env []string

	// Stdin, Stdout and Stderr mirror the subprocess streams. Nil
	// writers discard; output is captured in Result regardless.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Pty runs the command under a pseudo-terminal sized to Stdout when
	// it is a terminal. Stdout and stderr are merged in that case.
	Pty bool
}

// Result holds the outcome of a finished subprocess.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner runs subprocesses. The local implementation is Local; tests
// substitute their own.
type Runner interface {
	Run(ctx context.Context, c Cmd) (Result, error)
}

// Local runs commands on the local machine.
type Local struct{}

func (Local) Run(ctx context.Context, c Cmd) (Result, error) {
	cmd, err := buildCmd(ctx, c)
	if err != nil {
		return Result{}, err
	}
	if c.Pty {
		return runPty(cmd, c)
	}
	return runPlain(cmd, c)
}

func buildCmd(ctx context.Context, c Cmd) (*osexec.Cmd, error) {
	var cmd *osexec.Cmd
	switch {
	case c.Shell != "":
		cmd = osexec.CommandContext(ctx, "sh", "-c", c.Shell)
	case len(c.Args) > 0:
		cmd = osexec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	default:
		return nil, errors.New("exec: empty command")
	}
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd, nil
}

func runPlain(cmd *osexec.Cmd, c Cmd) (Result, error) {
	var outBuf, errBuf bytes.Buffer
	cmd.Stdin = c.Stdin
	cmd.Stdout = teeWriter(&outBuf, c.Stdout)
	cmd.Stderr = teeWriter(&errBuf, c.Stderr)
	err := cmd.Run()
	res := Result{
		ExitCode: exitCode(cmd, err),
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
	}
	if err != nil && res.ExitCode == 0 {
		return res, fmt.Errorf("exec %s: %w", cmd.Path, err)
	}
	return res, nil
}

func runPty(cmd *osexec.Cmd, c Cmd) (Result, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return Result{}, fmt.Errorf("open pty: %w", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	if f, ok := c.Stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if cols, rows, err := term.GetSize(int(f.Fd())); err == nil {
			setWinsize(ptmx, cols, rows)
		}
	}

	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("exec %s: %w", cmd.Path, err)
	}
	tty.Close()

	var outBuf bytes.Buffer
	var wg errgroup.Group
	wg.Go(func() error {
		_, err := io.Copy(teeWriter(&outBuf, c.Stdout), ptmx)
		if shouldReportCopyErr(err) {
			return err
		}
		return nil
	})
	if c.Stdin != nil {
		go io.Copy(ptmx, c.Stdin)
	}

	waitErr := cmd.Wait()
	ptmx.Close()
	if err := wg.Wait(); err != nil {
		return Result{}, fmt.Errorf("mirror pty: %w", err)
	}
	res := Result{
		ExitCode: exitCode(cmd, waitErr),
		Stdout:   outBuf.String(),
	}
	if waitErr != nil && res.ExitCode == 0 {
		return res, fmt.Errorf("exec %s: %w", cmd.Path, waitErr)
	}
	return res, nil
}

func setWinsize(f *os.File, cols, rows int) {
	unix.IoctlSetWinsize(int(f.Fd()), syscall.TIOCSWINSZ, &unix.Winsize{
		Col: uint16(cols),
		Row: uint16(rows),
	})
}

// Reads from a closed pty master fail with EIO on Linux once the child
// exits; that is normal teardown, not an error worth surfacing.
func shouldReportCopyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EIO) {
		return false
	}
	return true
}

func teeWriter(buf *bytes.Buffer, mirror io.Writer) io.Writer {
	if mirror == nil {
		return buf
	}
	return io.MultiWriter(buf, mirror)
}

func exitCode(cmd *osexec.Cmd, err error) int {
	if err == nil {
		return 0
	}
	var ee *osexec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return 0
}
