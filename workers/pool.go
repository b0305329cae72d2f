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

// Package workers runs independent tasks on a bounded number of
// workers.
package workers

import (
	"context"
	"fmt"
	"runtime"

	"github.com/exascience/pargo/pipeline"

	"github.com/3dgenomes/hicprep/internal"
)

// A Task is one unit of work, identified by its index.
type Task func(ctx context.Context, index int) error

// A Pool runs tasks with at most Workers tasks in flight. Zero or
// negative Workers means runtime.GOMAXPROCS(0).
type Pool struct {
	Workers int
}

func (pool Pool) workers() int {
	if pool.Workers > 0 {
		return pool.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Run runs the tasks 0 to n-1 and returns their errors, indexed by
// task. Every task runs in a batch of its own, so no state is carried
// from one task to the next. A panicking task is reported as an
// error. Tasks that did not start before ctx was done report the
// context error.
func (pool Pool) Run(ctx context.Context, n int, task Task) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}
	indexes := make([]int, n)
	for i := range indexes {
		indexes[i] = i
	}
	var p pipeline.Pipeline
	p.Source(indexes)
	p.NofBatches(n)
	p.Add(pipeline.LimitedPar(pool.workers(), pipeline.Receive(func(_ int, data interface{}) interface{} {
		for _, i := range data.([]int) {
			errs[i] = runTask(ctx, task, i)
		}
		return nil
	})))
	if err := internal.RunPipeline(&p); err != nil {
		for i := range errs {
			if errs[i] == nil {
				errs[i] = err
			}
		}
	}
	return errs
}

func runTask(ctx context.Context, task Task, i int) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %v panicked: %v", i, r)
		}
	}()
	return task(ctx, i)
}
