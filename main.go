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

// hicprep maps Hi-C reads iteratively on growing read windows, and
// optimizes the parameters of 3D model generation against Hi-C
// contact matrices.
//
// Please see https://github.com/3dgenomes/hicprep for a documentation
// of the tool.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/shenwei356/bio/seq"

	"github.com/3dgenomes/hicprep/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: map, chunk, filter-fastq, parse-sam, optimize, rescore, describe")
	fmt.Fprint(os.Stderr, "\n", cmd.MapHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.ChunkHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.FilterFastqHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.ParseSamHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.OptimizeHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.RescoreHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.DescribeHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, cmd.HelpMessage+"\n")
		printHelp()
		os.Exit(1)
	}

	// reads are handed to the aligner as they are
	seq.ValidateSeq = false

	var err error
	switch os.Args[1] {
	case "map":
		err = cmd.Map()
	case "chunk":
		err = cmd.Chunk()
	case "filter-fastq":
		err = cmd.FilterFastq()
	case "parse-sam":
		err = cmd.ParseSam()
	case "optimize":
		err = cmd.Optimize()
	case "rescore":
		err = cmd.Rescore()
	case "describe":
		err = cmd.Describe()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	default:
		log.Println("Unknown command:", os.Args[1])
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
