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

	"github.com/3dgenomes/hicprep/mapping"
)

// ParseSamHelp is the help string for this command.
const ParseSamHelp = "parse-sam parameters:\n" +
	"hicprep parse-sam output-file sam-file [sam-file]...\n" +
	"[--log-path path]\n"

// ParseSam implements the hicprep parse-sam command, which merges the
// uniquely mapped reads of the rounds of an iterative mapping run.
func ParseSam() (err error) {
	var logPath string

	var flags flag.FlagSet

	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, ParseSamHelp)
		os.Exit(1)
	}

	output := getFilename(os.Args[2], ParseSamHelp)
	inputs, next := getFilenames(3, ParseSamHelp)

	parseFlags(&flags, next, ParseSamHelp)

	setLogOutput(logPath)

	// sanity checks

	if !checkCreate("", output) {
		fmt.Fprint(os.Stderr, ParseSamHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " parse-sam ", output)
	for _, input := range inputs {
		fmt.Fprint(&command, " ", input)
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	reads, counts, err := mapping.ParseMappedReads(inputs)
	if err != nil {
		return err
	}
	for i, input := range inputs {
		log.Printf("%v: %v uniquely mapped reads", input, humanize.Comma(int64(counts[i])))
	}
	file, err := os.Create(output)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := file.Close(); err == nil {
			err = nerr
		}
	}()
	if err = reads.Write(file); err != nil {
		return err
	}
	log.Printf("Wrote %v reads to %v.", humanize.Comma(int64(len(reads))), output)
	return nil
}
