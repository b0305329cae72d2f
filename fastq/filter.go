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

package fastq

import (
	"fmt"

	"github.com/exascience/pargo/pipeline"
	"github.com/willf/bitset"

	"github.com/3dgenomes/hicprep/internal"
)

const filterBatchSize = 16384

// A Predicate decides whether a record is kept. The ordinal is the
// 0-based position of the record in the input file.
type Predicate func(ordinal uint, rec *Record) bool

// A keptBatch holds the formatted kept records of one batch, and
// their ordinals.
type keptBatch struct {
	data []byte
	kept []uint
}

// Filter copies the records of in that satisfy keep to out. The
// predicate is evaluated in parallel, while records are written in
// input order. Filter returns the set of ordinals of the kept records.
func Filter(in, out string, keep Predicate) (kept *bitset.BitSet, err error) {
	reader, err := Open(in)
	if err != nil {
		return nil, err
	}
	defer func() {
		if nerr := reader.Close(); err == nil {
			err = nerr
		}
	}()
	writer, err := Create(out)
	if err != nil {
		return nil, err
	}
	defer func() {
		if nerr := writer.Close(); err == nil {
			err = nerr
		}
	}()
	kept = bitset.New(0)
	var p pipeline.Pipeline
	p.Source(reader)
	// fixed batch size, so that ordinals can be derived from batch serial numbers
	p.SetVariableBatchSize(filterBatchSize, filterBatchSize)
	p.Add(
		pipeline.LimitedPar(0, pipeline.Receive(func(serial int, data interface{}) interface{} {
			records := data.([]*Record)
			offset := uint(serial * filterBatchSize)
			batch := keptBatch{data: internal.ReserveByteBuffer()}
			for index, rec := range records {
				ordinal := offset + uint(index)
				if keep(ordinal, rec) {
					batch.data = rec.AppendFormat(batch.data)
					batch.kept = append(batch.kept, ordinal)
				}
			}
			return batch
		})),
		pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
			batch := data.(keptBatch)
			defer internal.ReleaseByteBuffer(batch.data)
			if _, err := writer.Write(batch.data); err != nil {
				p.SetErr(fmt.Errorf("%v, while writing %v", err, out))
				return nil
			}
			for _, ordinal := range batch.kept {
				kept.Set(ordinal)
			}
			return nil
		})),
	)
	if err = internal.RunPipeline(&p); err != nil {
		return nil, fmt.Errorf("%w, while filtering %v", err, in)
	}
	return kept, nil
}

// FilterByIDs copies the records of in whose read identifier is in
// ids to out.
func FilterByIDs(in, out string, ids map[string]struct{}) (*bitset.BitSet, error) {
	return Filter(in, out, func(_ uint, rec *Record) bool {
		_, ok := ids[rec.ID()]
		return ok
	})
}
