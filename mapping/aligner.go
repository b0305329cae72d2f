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
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/3dgenomes/hicprep/internal"
	"github.com/3dgenomes/hicprep/utils"
)

// An AlignRequest describes one trim, align and convert step.
type AlignRequest struct {
	Index           string
	Input           string
	Output          string
	Trim5, Trim3    int
	Threads         int
	MaxEditDistance float64
	Mismatches      float64
	SingleEnd       bool
	TempDir         string
}

// An Aligner trims the reads of a FASTQ file, aligns them against a
// genome index, and writes the alignments as a SAM file.
type Aligner interface {
	Align(ctx context.Context, req AlignRequest) error
}

// GemAligner runs the GEM tool chain as a pipe of three processes:
// a read filter for hard trimming, the mapper, and the SAM converter.
type GemAligner struct {
	Filter string
	Mapper string
	ToSam  string
}

// NewGemAligner returns a GemAligner with the default binary names.
func NewGemAligner() *GemAligner {
	return &GemAligner{
		Filter: "gt.filter",
		Mapper: "gem-mapper",
		ToSam:  "gem-2-sam",
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Commands returns the command chain for the given request, without
// standard input attached.
func (gem *GemAligner) Commands(ctx context.Context, req AlignRequest) []*exec.Cmd {
	threads := strconv.Itoa(req.Threads)
	filterArgs := []string{"--hard-trim", strconv.Itoa(req.Trim5) + "," + strconv.Itoa(req.Trim3), "-t", threads}
	if !req.SingleEnd {
		filterArgs = append(filterArgs, "--paired-end")
	}
	toSamArgs := []string{"-I", req.Index, "-o", req.Output, "-T", threads}
	if req.SingleEnd {
		toSamArgs = append(toSamArgs, "--expect-single-end-reads")
	} else {
		toSamArgs = append(toSamArgs, "--expect-paired-end-reads")
	}
	return []*exec.Cmd{
		exec.CommandContext(ctx, gem.Filter, filterArgs...),
		exec.CommandContext(ctx, gem.Mapper,
			"-I", req.Index,
			"--min-decoded-strata", "0",
			"--max-decoded-matches", "2",
			"-e", formatFloat(req.MaxEditDistance),
			"-m", formatFloat(req.Mismatches),
			"-T", threads),
		exec.CommandContext(ctx, gem.ToSam, toSamArgs...),
	}
}

// Align implements the Aligner interface.
func (gem *GemAligner) Align(ctx context.Context, req AlignRequest) (err error) {
	file, err := os.Open(req.Input)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := file.Close(); err == nil {
			err = nerr
		}
	}()
	input, gz, err := utils.HandleGzip(bufio.NewReader(file))
	if err != nil {
		return fmt.Errorf("%v, while opening %v", err, req.Input)
	}
	if gz != nil {
		defer func() {
			if nerr := gz.Close(); err == nil {
				err = nerr
			}
		}()
	}
	cmds := gem.Commands(ctx, req)
	cmds[0].Stdin = input
	if err = internal.RunChain(cmds...); err != nil {
		return fmt.Errorf("%v, while aligning %v", err, req.Input)
	}
	return nil
}
