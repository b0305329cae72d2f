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

package cmd

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/willf/bitset"

	"github.com/3dgenomes/hicprep/fastq"
	"github.com/3dgenomes/hicprep/sam"
)

// FilterFastqHelp is the help string for this command.
const FilterFastqHelp = "filter-fastq parameters:\n" +
	"hicprep filter-fastq fastq-file sam-file output-file\n" +
	"[--non-unique-only]\n" +
	"[--log-path path]\n"

// FilterFastq implements the hicprep filter-fastq command. It keeps
// the reads that still have to be mapped after the given SAM file.
func FilterFastq() error {
	var (
		nonUniqueOnly bool
		logPath       string
	)

	var flags flag.FlagSet

	flags.BoolVar(&nonUniqueOnly, "non-unique-only", false, "keep only reads that occur unmapped or non-uniquely mapped in the SAM file")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	if len(os.Args) < 5 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, FilterFastqHelp)
		os.Exit(1)
	}

	input := getFilename(os.Args[2], FilterFastqHelp)
	samFile := getFilename(os.Args[3], FilterFastqHelp)
	output := getFilename(os.Args[4], FilterFastqHelp)

	parseFlags(&flags, 5, FilterFastqHelp)

	setLogOutput(logPath)

	// sanity checks

	sanityChecksFailed := !checkExist("", input)
	if !checkExist("", samFile) {
		sanityChecksFailed = true
	}
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, FilterFastqHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " filter-fastq ", input, " ", samFile, " ", output)
	if nonUniqueOnly {
		fmt.Fprint(&command, " --non-unique-only")
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	var kept *bitset.BitSet
	if nonUniqueOnly {
		ids, err := sam.CollectNonUnique(samFile)
		if err != nil {
			return err
		}
		if kept, err = fastq.FilterByIDs(input, output, ids); err != nil {
			return err
		}
	} else {
		c, err := sam.Classify(samFile)
		if err != nil {
			return err
		}
		if kept, err = fastq.Filter(input, output, func(_ uint, rec *fastq.Record) bool {
			return c.Retain(rec.ID())
		}); err != nil {
			return err
		}
	}
	log.Printf("Kept %v reads in %v.", humanize.Comma(int64(kept.Count())), output)
	return nil
}
