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

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/3dgenomes/hicprep/sam"
)

// MappedReads is the merged set of uniquely mapped reads of an
// iterative mapping run, keyed by read identifier.
type MappedReads map[string]sam.ReadRecord

// ParseMappedReads loads the uniquely mapped reads of the given SAM
// files. Reads found in later files replace reads found in earlier
// files. Files that do not exist contribute zero reads. The second
// result holds the number of reads found in each file.
func ParseMappedReads(paths []string) (MappedReads, []int, error) {
	reads := make(MappedReads)
	counts := make([]int, len(paths))
	for i, path := range paths {
		err := sam.ScanUniqueReads(path, func(r sam.ReadRecord) {
			reads[r.ID] = r
			counts[i]++
		})
		switch {
		case errors.Is(err, os.ErrNotExist):
			counts[i] = 0
		case err != nil:
			return reads, counts, fmt.Errorf("%w, while parsing mapped reads", err)
		}
	}
	return reads, counts, nil
}

// Sorted returns the reads ordered by identifier.
func (reads MappedReads) Sorted() []sam.ReadRecord {
	result := make([]sam.ReadRecord, 0, len(reads))
	for _, r := range reads {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Write writes the reads ordered by identifier.
func (reads MappedReads) Write(out io.Writer) error {
	return sam.WriteReads(out, reads.Sorted())
}
