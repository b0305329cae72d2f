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

// Package mapping implements iterative mapping of Hi-C reads: reads
// are aligned on growing windows of their sequence, and only the
// reads that did not map uniquely are aligned again in the next round.
package mapping

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/willf/bitset"

	"github.com/3dgenomes/hicprep/fastq"
	"github.com/3dgenomes/hicprep/internal"
	"github.com/3dgenomes/hicprep/sam"
)

// ErrNoRawLength is returned when the raw read length of a FASTQ file
// cannot be determined.
var ErrNoRawLength = errors.New("cannot determine raw read length")

// Options for an iterative mapping run.
type Options struct {
	Index            string
	Fastq            string
	Output           string
	RangeStart       []int
	RangeStop        []int
	SingleEnd        bool
	Threads          int
	MaxEditDistance  float64
	Mismatches       float64
	MaxReadsPerChunk int
	TempDir          string
	Aligner          Aligner
}

// DefaultOptions returns options with the default thresholds.
func DefaultOptions() Options {
	return Options{
		Threads:         4,
		MaxEditDistance: 0.04,
		Mismatches:      0.04,
		TempDir:         os.TempDir(),
	}
}

// A Round reports on one mapping round.
type Round struct {
	Window
	Trim5, Trim3 int
	// Fastq is the file given to the aligner. After the first round it
	// is a filtered temporary file that Run removes.
	Fastq  string
	Output string
	// Input is the number of reads given to the aligner, and Retained
	// the number of reads passed on to the next round.
	Input, Retained uint
	// Missing is set when the aligner produced no output.
	Missing bool
}

// A Result lists the SAM files produced by a run, and its rounds.
type Result struct {
	Outputs []string
	Rounds  []Round
}

func (result *Result) append(other *Result) {
	result.Outputs = append(result.Outputs, other.Outputs...)
	result.Rounds = append(result.Rounds, other.Rounds...)
}

// RawReadLength returns the raw read length of a FASTQ file, taken
// from the length= field of the first header, or else from the length
// of the first sequence.
func RawReadLength(name string) (int, error) {
	r, err := fastq.Open(name)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	rec, err := r.Read()
	if err == io.EOF {
		return 0, fmt.Errorf("%w: %v is empty", ErrNoRawLength, name)
	}
	if err != nil {
		return 0, err
	}
	for _, field := range strings.Fields(rec.Header) {
		if strings.HasPrefix(field, "length=") {
			length, err := strconv.Atoi(strings.TrimPrefix(field, "length="))
			if err != nil {
				return 0, fmt.Errorf("%w: %v, while parsing %v", ErrNoRawLength, err, field)
			}
			return length, nil
		}
	}
	if len(rec.Sequence) == 0 {
		return 0, fmt.Errorf("%w: first record of %v has no sequence", ErrNoRawLength, name)
	}
	return len(rec.Sequence), nil
}

// Run performs iterative mapping. It produces one SAM file per
// window, named Output.<window length>, or Output.<chunk>.<window
// length> when the input is split into chunks.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Aligner == nil {
		opts.Aligner = NewGemAligner()
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	rawLength, err := RawReadLength(opts.Fastq)
	if err != nil {
		return nil, err
	}
	if opts.MaxReadsPerChunk <= 0 {
		return run(ctx, opts, rawLength)
	}
	log.Printf("Split input file %v into chunks", opts.Fastq)
	chunks, split, err := fastq.Chunk(opts.Fastq, filepath.Join(opts.TempDir, filepath.Base(opts.Fastq)), opts.MaxReadsPerChunk)
	if err != nil {
		return nil, err
	}
	log.Printf("%v chunks obtained", len(chunks))
	if split {
		defer func() {
			if err := internal.RemoveFiles(chunks...); err != nil {
				log.Printf("%v, while removing chunks", err)
			}
		}()
	}
	result := &Result{}
	for i, chunk := range chunks {
		chunkOpts := opts
		chunkOpts.Fastq = chunk
		chunkOpts.Output = opts.Output + "." + strconv.Itoa(i+1)
		chunkOpts.MaxReadsPerChunk = 0
		chunkResult, err := run(ctx, chunkOpts, rawLength)
		if err != nil {
			return result, err
		}
		result.append(chunkResult)
	}
	return result, nil
}

func run(ctx context.Context, opts Options, rawLength int) (result *Result, err error) {
	result = &Result{}
	lines, err := fastq.LineCount(opts.Fastq)
	if err != nil {
		return result, err
	}
	reads := uint(lines / 4)
	windows := NewWindows(opts.RangeStart, opts.RangeStop)
	input := opts.Fastq
	var active *bitset.BitSet
	var temps []string
	defer func() {
		if nerr := internal.RemoveFiles(temps...); nerr != nil && err == nil {
			err = nerr
		}
	}()
	for {
		window, ok := windows.Pop()
		if !ok {
			return result, nil
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		trim5, trim3, err := Trimming(rawLength, window.Start, window.Len())
		if err != nil {
			return result, err
		}
		round := Round{
			Window: window,
			Trim5:  trim5,
			Trim3:  trim3,
			Fastq:  input,
			Output: opts.Output + "." + strconv.Itoa(window.Len()),
			Input:  reads,
		}
		if err := opts.Aligner.Align(ctx, AlignRequest{
			Index:           opts.Index,
			Input:           input,
			Output:          round.Output,
			Trim5:           trim5,
			Trim3:           trim3,
			Threads:         opts.Threads,
			MaxEditDistance: opts.MaxEditDistance,
			Mismatches:      opts.Mismatches,
			SingleEnd:       opts.SingleEnd,
			TempDir:         opts.TempDir,
		}); err != nil {
			return result, err
		}
		classification := &sam.Classification{}
		if internal.Exists(round.Output) {
			result.Outputs = append(result.Outputs, round.Output)
			if windows.Len() > 0 {
				if classification, err = sam.Classify(round.Output); err != nil {
					return result, err
				}
			}
		} else {
			round.Missing = true
			log.Printf("No alignments in %v, all reads of this round are retained", round.Output)
		}
		if windows.Len() == 0 {
			result.Rounds = append(result.Rounds, round)
			return result, nil
		}
		next := filepath.Join(opts.TempDir, filepath.Base(opts.Fastq)+"."+strconv.Itoa(window.Len()))
		previous := active
		kept, err := fastq.Filter(opts.Fastq, next, func(ordinal uint, rec *fastq.Record) bool {
			return (previous == nil || previous.Test(ordinal)) && classification.Retain(rec.ID())
		})
		temps = append(temps, next)
		if err != nil {
			return result, err
		}
		round.Retained = kept.Count()
		log.Printf("Round %v-%v: %v reads retained for the next round",
			window.Start, window.End, humanize.Comma(int64(round.Retained)))
		result.Rounds = append(result.Rounds, round)
		active, input, reads = kept, next, kept.Count()
	}
}
