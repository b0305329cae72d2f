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
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/3dgenomes/hicprep/trace"
)

// DescribeHelp is the help string for this command.
var DescribeHelp = "describe parameters:\n" +
	"hicprep describe workdir\n" +
	"[--tables table[,table]...]\n" +
	"[--tsv file]\n" +
	"[--tmpdb path]\n" +
	"Tables are given by name, name prefix, or number:\n" +
	tableList()

func tableList() string {
	var list strings.Builder
	for i, table := range trace.Tables {
		fmt.Fprintf(&list, "  %v: %v\n", i+1, table)
	}
	return list.String()
}

// Describe implements the hicprep describe command, which prints the
// jobs and results recorded in a working directory.
func Describe() (err error) {
	var tables, tsv, tmpdb string

	var flags flag.FlagSet

	flags.StringVar(&tables, "tables", "", "comma-separated tables to show (default all)")
	flags.StringVar(&tsv, "tsv", "", "write the tables in tab-separated format to this file")
	flags.StringVar(&tmpdb, "tmpdb", "", "directory in which to work on a copy of the database")

	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, DescribeHelp)
		os.Exit(1)
	}

	workdir := getFilename(os.Args[2], DescribeHelp)

	parseFlags(&flags, 3, DescribeHelp)

	// sanity checks

	sanityChecksFailed := !checkExist("", filepath.Join(workdir, trace.FileName))
	selected, terr := trace.ResolveTables(splitList(tables))
	if terr != nil {
		log.Println("Error:", terr)
		sanityChecksFailed = true
	}
	if tsv != "" && !checkCreate("--tsv", tsv) {
		sanityChecksFailed = true
	}
	if tmpdb != "" && !checkExist("--tmpdb", tmpdb) {
		sanityChecksFailed = true
	}
	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, DescribeHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " describe ", workdir)
	fmt.Fprint(&command, " --tables ", strings.Join(selected, ","))
	if tsv != "" {
		fmt.Fprint(&command, " --tsv ", tsv)
	}
	if tmpdb != "" {
		fmt.Fprint(&command, " --tmpdb ", tmpdb)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	dbFile := filepath.Join(workdir, trace.FileName)
	if tmpdb != "" {
		tmp, restore, err := trace.CopyToTemp(workdir, tmpdb)
		if err != nil {
			return err
		}
		defer func() {
			if nerr := restore(); err == nil {
				err = nerr
			}
		}()
		dbFile = tmp
	}
	db, err := trace.OpenFile(dbFile)
	if err != nil {
		return err
	}
	defer closeTrace(db, &err)

	var out io.Writer = os.Stdout
	if tsv != "" {
		file, err := os.Create(tsv)
		if err != nil {
			return err
		}
		defer func() {
			if nerr := file.Close(); err == nil {
				err = nerr
			}
		}()
		out = file
	}
	return db.Describe(out, selected, tsv != "")
}
