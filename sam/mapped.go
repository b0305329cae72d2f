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

package sam

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// A ReadRecord is a uniquely mapped read.
type ReadRecord struct {
	ID       string
	RName    string
	Pos      int32
	Positive bool
	Seq      string
}

// NewReadRecord extracts the read record of the given alignment.
func NewReadRecord(aln *Alignment) ReadRecord {
	return ReadRecord{
		ID:       aln.ReadID(),
		RName:    aln.RNAME,
		Pos:      aln.Position(),
		Positive: !aln.IsReversed(),
		Seq:      aln.SEQ,
	}
}

// Format writes the read record as a tab-separated line.
func (r ReadRecord) Format(out *bufio.Writer) error {
	strand := "0"
	if r.Positive {
		strand = "1"
	}
	_, err := fmt.Fprintf(out, "%v\t%v\t%v\t%v\t%v\n", r.ID, r.RName, strconv.FormatInt(int64(r.Pos), 10), strand, r.Seq)
	return err
}

// A Classification partitions the read identifiers found in a SAM
// file into uniquely mapped and non-unique (or unmapped) reads.
type Classification struct {
	Unique    map[string]struct{}
	NonUnique map[string]struct{}
}

// Retain reports whether a read has to be mapped again in a next
// round. Reads that were not seen at all are retained, as are reads
// of which at least one alignment is non-unique.
func (c *Classification) Retain(id string) bool {
	if _, ok := c.NonUnique[id]; ok {
		return true
	}
	_, ok := c.Unique[id]
	return !ok
}

// Classify scans the given SAM or BAM file and classifies every read
// identifier in it. Secondary and supplementary alignments are
// ignored.
func Classify(name string) (*Classification, error) {
	c := &Classification{
		Unique:    make(map[string]struct{}),
		NonUnique: make(map[string]struct{}),
	}
	err := ScanAlignments(name, func(_ *Header, alns []*Alignment) error {
		for _, aln := range alns {
			if aln.IsSecondary() || aln.IsSupplementary() {
				continue
			}
			if aln.IsNonUnique() {
				c.NonUnique[aln.ReadID()] = struct{}{}
			} else {
				c.Unique[aln.ReadID()] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w, while classifying reads in %v", err, name)
	}
	return c, nil
}

// CollectNonUnique returns the identifiers of all reads in the given
// SAM or BAM file that are unmapped or not uniquely mapped.
func CollectNonUnique(name string) (map[string]struct{}, error) {
	c, err := Classify(name)
	if err != nil {
		return nil, err
	}
	return c.NonUnique, nil
}

// ScanUniqueReads passes the read record of every uniquely mapped
// primary alignment in the given file to receive, in file order.
func ScanUniqueReads(name string, receive func(ReadRecord)) error {
	return ScanAlignments(name, func(_ *Header, alns []*Alignment) error {
		for _, aln := range alns {
			if aln.IsSecondary() || aln.IsSupplementary() || aln.IsNonUnique() {
				continue
			}
			receive(NewReadRecord(aln))
		}
		return nil
	})
}

// WriteReads writes the given read records to out, one per line.
func WriteReads(out io.Writer, reads []ReadRecord) error {
	w := bufio.NewWriter(out)
	for _, r := range reads {
		if err := r.Format(w); err != nil {
			return err
		}
	}
	return w.Flush()
}
