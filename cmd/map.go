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
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/3dgenomes/hicprep/mapping"
)

// MapHelp is the help string for this command.
const MapHelp = "map parameters:\n" +
	"hicprep map fastq-file index-file output-prefix\n" +
	"--windows start:end[,start:end]...\n" +
	"[--single-end]\n" +
	"[--read 1|2]\n" +
	"[--max-edit-distance fraction]\n" +
	"[--mismatches fraction]\n" +
	"[--max-reads-per-chunk nr]\n" +
	"[--tmp-path path]\n" +
	"[--workdir path]\n" +
	"[--gem-filter binary]\n" +
	"[--gem-mapper binary]\n" +
	"[--gem-2-sam binary]\n" +
	"[--nr-of-threads nr]\n" +
	"[--timed]\n" +
	"[--profile file]\n" +
	"[--log-path path]\n"

// parseWindows parses a comma-separated list of start:end windows into
// their starts and ends. Starts are 0-based and ends are exclusive.
func parseWindows(s string) (starts, ends []int, err error) {
	for _, window := range strings.Split(s, ",") {
		fields := strings.Split(strings.TrimSpace(window), ":")
		if len(fields) != 2 {
			return nil, nil, fmt.Errorf("invalid window %q, expected start:end", window)
		}
		start, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, nil, fmt.Errorf("%v, while parsing window %q", err, window)
		}
		end, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, nil, fmt.Errorf("%v, while parsing window %q", err, window)
		}
		if start < 0 || end <= start {
			return nil, nil, fmt.Errorf("invalid window %q", window)
		}
		starts = append(starts, start)
		ends = append(ends, end)
	}
	return starts, ends, nil
}

// Map implements the hicprep map command.
func Map() (err error) {
	var (
		windows, tmpPath, workdir, gemFilter, gemMapper, gem2Sam, profile, logPath string
		read, maxReadsPerChunk, nrOfThreads                                        int
		maxEditDistance, mismatches                                                float64
		singleEnd, timed                                                           bool
	)

	defaults := mapping.DefaultOptions()
	gem := mapping.NewGemAligner()

	var flags flag.FlagSet

	flags.StringVar(&windows, "windows", "", "comma-separated start:end windows (0-based, end exclusive) of the reads to map, in mapping order")
	flags.BoolVar(&singleEnd, "single-end", false, "map single-end reads")
	flags.IntVar(&read, "read", 1, "read number recorded in the trace database")
	flags.Float64Var(&maxEditDistance, "max-edit-distance", defaults.MaxEditDistance, "maximum edit distance allowed by the mapper")
	flags.Float64Var(&mismatches, "mismatches", defaults.Mismatches, "maximum number of mismatches allowed by the mapper")
	flags.IntVar(&maxReadsPerChunk, "max-reads-per-chunk", 0, "split the input in chunks of at most this many reads")
	flags.StringVar(&tmpPath, "tmp-path", defaults.TempDir, "directory for intermediate files")
	flags.StringVar(&workdir, "workdir", "", "working directory with the trace database to record the run in")
	flags.StringVar(&gemFilter, "gem-filter", gem.Filter, "read filter binary")
	flags.StringVar(&gemMapper, "gem-mapper", gem.Mapper, "mapper binary")
	flags.StringVar(&gem2Sam, "gem-2-sam", gem.ToSam, "SAM converter binary")
	flags.IntVar(&nrOfThreads, "nr-of-threads", defaults.Threads, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a cpu profile for the run")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	if len(os.Args) < 5 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, MapHelp)
		os.Exit(1)
	}

	input := getFilename(os.Args[2], MapHelp)
	index := getFilename(os.Args[3], MapHelp)
	output := getFilename(os.Args[4], MapHelp)

	parseFlags(&flags, 5, MapHelp)

	setLogOutput(logPath)

	// sanity checks

	sanityChecksFailed := !checkExist("", input)
	if !checkExist("", index) {
		sanityChecksFailed = true
	}
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	starts, ends, werr := parseWindows(windows)
	if werr != nil {
		log.Println("Error:", werr)
		sanityChecksFailed = true
	}
	if read != 1 && read != 2 {
		log.Println("Error: Invalid read number: ", read)
		sanityChecksFailed = true
	}
	if maxReadsPerChunk < 0 {
		log.Println("Error: Invalid max-reads-per-chunk: ", maxReadsPerChunk)
		sanityChecksFailed = true
	}
	if nrOfThreads <= 0 {
		log.Println("Error: Invalid nr-of-threads: ", nrOfThreads)
		sanityChecksFailed = true
	}
	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, MapHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " map ", input, " ", index, " ", output)
	fmt.Fprint(&command, " --windows ", windows)
	if singleEnd {
		fmt.Fprint(&command, " --single-end")
	}
	fmt.Fprint(&command, " --read ", read)
	fmt.Fprint(&command, " --max-edit-distance ", maxEditDistance)
	fmt.Fprint(&command, " --mismatches ", mismatches)
	if maxReadsPerChunk > 0 {
		fmt.Fprint(&command, " --max-reads-per-chunk ", maxReadsPerChunk)
	}
	fmt.Fprint(&command, " --tmp-path ", tmpPath)
	if workdir != "" {
		fmt.Fprint(&command, " --workdir ", workdir)
	}
	fmt.Fprint(&command, " --gem-filter ", gemFilter, " --gem-mapper ", gemMapper, " --gem-2-sam ", gem2Sam)
	fmt.Fprint(&command, " --nr-of-threads ", nrOfThreads)
	if timed {
		fmt.Fprint(&command, " --timed")
	}
	if profile != "" {
		fmt.Fprint(&command, " --profile ", profile)
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	gem.Filter, gem.Mapper, gem.ToSam = gemFilter, gemMapper, gem2Sam
	opts := defaults
	opts.Index = index
	opts.Fastq = input
	opts.Output = output
	opts.RangeStart = starts
	opts.RangeStop = ends
	opts.SingleEnd = singleEnd
	opts.Threads = nrOfThreads
	opts.MaxEditDistance = maxEditDistance
	opts.Mismatches = mismatches
	opts.MaxReadsPerChunk = maxReadsPerChunk
	opts.TempDir = tmpPath
	opts.Aligner = gem

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var result *mapping.Result
	err = timedRun(timed, profile, "Iterative mapping.", 1, func() (err error) {
		result, err = mapping.Run(ctx, opts)
		return err
	})
	if err != nil {
		return err
	}

	paths := make([]string, len(result.Rounds))
	for i, round := range result.Rounds {
		paths[i] = round.Output
	}
	_, counts, err := mapping.ParseMappedReads(paths)
	if err != nil {
		return err
	}
	for i, round := range result.Rounds {
		log.Printf("Window %v:%v: %v reads in from %v, %v uniquely mapped, output %v", round.Start, round.End,
			humanize.Comma(int64(round.Input)), round.Fastq, humanize.Comma(int64(counts[i])), round.Output)
	}

	db, job, err := openTrace(workdir, "map", command.String())
	if err != nil {
		return err
	}
	defer closeTrace(db, &err)
	if db == nil {
		return nil
	}
	// filtered round inputs are temporary, so each round is traced as
	// the original FASTQ and its window
	for i, round := range result.Rounds {
		window := fmt.Sprintf("%v:%v", round.Start, round.End)
		if err = db.RecordMappedInput(job, input, int(round.Input), window, read); err != nil {
			return err
		}
		if !round.Missing {
			if err = db.RecordMappedOutput(job, round.Output, window, counts[i]); err != nil {
				return err
			}
		}
	}
	return nil
}
