// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The runlet command runs configured commands from the console.
package main

import (
	"os"

	"github.com/runlet/runlet/pkg/commands"
	"github.com/runlet/runlet/pkg/printer"
	"github.com/runlet/runlet/pkg/runlet"
)

func main() {
	reg := runlet.NewRegistry()
	if err := commands.New().Register(reg); err != nil {
		printer.Default().Error(err.Error())
		os.Exit(1)
	}
	r := runlet.NewRunner(reg)
	os.Exit(r.Main(os.Args[1:]))
}
