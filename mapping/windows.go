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

package mapping

import "fmt"

// A Window is a range of bases [Start, End) of a raw read that is
// kept for alignment in one mapping round.
type Window struct {
	Start, End int
}

// Len returns the number of bases in the window.
func (w Window) Len() int {
	return w.End - w.Start
}

// Windows is a queue of mapping windows, consumed front to back.
type Windows struct {
	starts, stops []int
}

// NewWindows returns a queue over parallel start and stop positions.
// The queue ends as soon as either sequence is exhausted.
func NewWindows(starts, stops []int) *Windows {
	return &Windows{
		starts: append([]int(nil), starts...),
		stops:  append([]int(nil), stops...),
	}
}

// Len returns the number of windows left in the queue.
func (ws *Windows) Len() int {
	if len(ws.starts) < len(ws.stops) {
		return len(ws.starts)
	}
	return len(ws.stops)
}

// Pop removes the next window from the queue. It returns false if
// the queue is exhausted.
func (ws *Windows) Pop() (Window, bool) {
	if ws.Len() == 0 {
		return Window{}, false
	}
	w := Window{Start: ws.starts[0], End: ws.stops[0]}
	ws.starts, ws.stops = ws.starts[1:], ws.stops[1:]
	return w, true
}

// Trimming returns the number of bases to remove at the 5' and 3'
// ends of a read of the given raw length so that exactly length bases
// starting at start remain.
func Trimming(rawLength, start, length int) (trim5, trim3 int, err error) {
	trim5, trim3 = start, rawLength-start-length
	if trim5 < 0 || trim3 < 0 || length <= 0 {
		return 0, 0, fmt.Errorf("invalid window of %v bases at %v for reads of length %v", length, start, rawLength)
	}
	return trim5, trim3, nil
}
