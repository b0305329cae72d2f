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

// Package sam parses the SAM output of short-read aligners, and
// classifies the aligned reads of an iterative mapping round.
//
// Alignments are parsed in parallel batches using pargo pipelines. An
// InputFile implements pipeline.Source, so it can be used directly as
// the source of such a pipeline. BAM files are decoded by an external
// samtools process.
//
// A read is considered uniquely mapped if it is mapped, has no XS
// (suboptimal hit) tag, and does not report more than one hit in its
// NH tag. All other reads are non-unique, and are candidates for
// another mapping round on a longer window of their sequence.
package sam
