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

package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	const n = 50
	var running, maxRunning int32
	results := make([]int, n)
	errs := Pool{Workers: 3}.Run(context.Background(), n, func(_ context.Context, i int) error {
		current := atomic.AddInt32(&running, 1)
		for {
			max := atomic.LoadInt32(&maxRunning)
			if current <= max || atomic.CompareAndSwapInt32(&maxRunning, max, current) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&running, -1)
		results[i] = i * i
		if i%10 == 0 {
			return errors.New("failed")
		}
		return nil
	})
	if len(errs) != n {
		t.Fatal("Run failed")
	}
	for i := 0; i < n; i++ {
		if results[i] != i*i {
			t.Error("task", i, "did not run")
		}
		if (errs[i] != nil) != (i%10 == 0) {
			t.Error("task", i, "error failed", errs[i])
		}
	}
	if maxRunning > 3 {
		t.Error("Run exceeded the number of workers", maxRunning)
	}
}

func TestRunPanic(t *testing.T) {
	errs := Pool{Workers: 2}.Run(context.Background(), 4, func(_ context.Context, i int) error {
		if i == 2 {
			panic("boom")
		}
		return nil
	})
	if errs[2] == nil || errs[0] != nil || errs[3] != nil {
		t.Error("Run did not isolate a panicking task", errs)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := int32(0)
	errs := Pool{}.Run(ctx, 5, func(context.Context, int) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	if ran != 0 {
		t.Error("Run started tasks after cancellation")
	}
	for _, err := range errs {
		if err != context.Canceled {
			t.Error("Run did not report cancellation", err)
		}
	}
}
