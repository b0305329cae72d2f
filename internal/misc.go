// hicprep: iterative mapping and model optimization for Hi-C data.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/3dgenomes/hicprep/blob/master/LICENSE.txt>.

package internal

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/exascience/pargo/pipeline"
)

// RunPipeline is p.Run() followed by p.Err()
func RunPipeline(p *pipeline.Pipeline) error {
	p.Run()
	return p.Err()
}

// RunCmd is cmd.Run(), with the command line and its standard error
// output attached to any error.
func RunCmd(cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	if cmd.Stderr == nil {
		cmd.Stderr = &stderr
	}
	if err := cmd.Run(); err != nil {
		return cmdError(cmd, &stderr, err)
	}
	return nil
}

func cmdError(cmd *exec.Cmd, stderr *bytes.Buffer, err error) error {
	msg := strings.TrimSpace(stderr.String())
	if msg == "" {
		return fmt.Errorf("%w, while running %v", err, strings.Join(cmd.Args, " "))
	}
	return fmt.Errorf("%w, while running %v: %v", err, strings.Join(cmd.Args, " "), msg)
}

// RunChain runs the given commands as a shell-like pipeline, where the
// standard output of each command is the standard input of the next
// one. The first command's standard input and the last command's
// standard output must be set by the caller. All commands are waited
// for, and the first error is returned.
func RunChain(cmds ...*exec.Cmd) (err error) {
	if len(cmds) == 0 {
		return nil
	}
	stderrs := make([]*bytes.Buffer, len(cmds))
	for i, cmd := range cmds {
		if cmd.Stderr == nil {
			stderrs[i] = &bytes.Buffer{}
			cmd.Stderr = stderrs[i]
		}
		if i > 0 {
			if cmd.Stdin, err = cmds[i-1].StdoutPipe(); err != nil {
				return err
			}
		}
	}
	started := 0
	for _, cmd := range cmds {
		if err = cmd.Start(); err != nil {
			err = fmt.Errorf("%w, while starting %v", err, strings.Join(cmd.Args, " "))
			break
		}
		started++
	}
	for i := 0; i < started; i++ {
		if nerr := cmds[i].Wait(); nerr != nil && err == nil {
			buf := stderrs[i]
			if buf == nil {
				buf = &bytes.Buffer{}
			}
			err = cmdError(cmds[i], buf, nerr)
		}
	}
	return err
}
