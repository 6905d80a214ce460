// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// A minimal project-local task runner built on the runlet library. It
// registers one custom command next to the built-ins and reads its
// defaults from the commands.yaml in this directory.
package main

import (
	"fmt"
	"os"

	"github.com/runlet/runlet/pkg/arg"
	"github.com/runlet/runlet/pkg/commands"
	"github.com/runlet/runlet/pkg/runlet"
)

func main() {
	reg := runlet.NewRegistry()
	if err := commands.New().Register(reg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	greet := runlet.MustCommand("greet",
		"Say hello",
		func(call *runlet.Call) (int, error) {
			fmt.Fprintf(call.Stdout, "Hello, %s!\n", call.String("name"))
			return 0, nil
		},
		arg.New("name").Default("World").Help("Who to greet"),
	)
	if err := reg.Register(greet); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	r := runlet.NewRunner(reg)
	os.Exit(r.Main(os.Args[1:]))
}
