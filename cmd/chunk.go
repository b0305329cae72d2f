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

	"github.com/3dgenomes/hicprep/fastq"
)

// ChunkHelp is the help string for this command.
const ChunkHelp = "chunk parameters:\n" +
	"hicprep chunk fastq-file output-base\n" +
	"--max-reads nr\n" +
	"[--log-path path]\n"

// Chunk implements the hicprep chunk command.
func Chunk() error {
	var (
		maxReads int
		logPath  string
	)

	var flags flag.FlagSet

	flags.IntVar(&maxReads, "max-reads", 0, "maximum number of reads per chunk")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, ChunkHelp)
		os.Exit(1)
	}

	input := getFilename(os.Args[2], ChunkHelp)
	output := getFilename(os.Args[3], ChunkHelp)

	parseFlags(&flags, 4, ChunkHelp)

	setLogOutput(logPath)

	// sanity checks

	sanityChecksFailed := !checkExist("", input)
	if !checkCreate("", output+".1") {
		sanityChecksFailed = true
	}
	if maxReads <= 0 {
		log.Println("Error: Invalid max-reads: ", maxReads)
		sanityChecksFailed = true
	}
	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, ChunkHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " chunk ", input, " ", output)
	fmt.Fprint(&command, " --max-reads ", maxReads)
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	chunks, split, err := fastq.Chunk(input, output, maxReads)
	if err != nil {
		return err
	}
	if !split {
		log.Printf("%v has at most %v reads and is not split.", input, humanize.Comma(int64(maxReads)))
		return nil
	}
	for _, chunk := range chunks {
		fmt.Println(chunk)
	}
	log.Printf("Split %v into %v chunks.", input, len(chunks))
	return nil
}
