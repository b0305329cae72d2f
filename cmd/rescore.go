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

	"github.com/3dgenomes/hicprep/models"
	"github.com/3dgenomes/hicprep/optimizer"
)

// RescoreHelp is the help string for this command.
const RescoreHelp = "rescore parameters:\n" +
	"hicprep rescore output-file models-file [models-file]...\n" +
	"[--corr spearman | pearson]\n" +
	"[--off-diag nr]\n" +
	"[--n-models nr]\n" +
	"[--n-keep nr]\n" +
	"[--close-bins nr]\n" +
	"[--load report[,report]...]\n" +
	"[--workdir path]\n" +
	"[--nr-of-workers nr]\n" +
	"[--verbose]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// Rescore implements the hicprep rescore command, which scores saved
// model ensembles again.
func Rescore() (err error) {
	var (
		corr, load, workdir, logPath                    string
		offDiag, nModels, nKeep, closeBins, nrOfWorkers int
		verbose, timed                                  bool
	)

	defaultOpts, defaultSearch := optimizer.DefaultOptions(), optimizer.DefaultGridSearch()

	var flags flag.FlagSet

	flags.StringVar(&corr, "corr", defaultSearch.Corr, "correlation method")
	flags.IntVar(&offDiag, "off-diag", defaultSearch.OffDiag, "minimum distance in bins of the compared bin pairs")
	flags.IntVar(&nModels, "n-models", defaultOpts.NModels, "number of models the ensembles were generated with")
	flags.IntVar(&nKeep, "n-keep", defaultOpts.NKeep, "number of models kept in the ensembles")
	flags.IntVar(&closeBins, "close-bins", defaultOpts.CloseBins, "number of adjacent particles considered neighbors")
	flags.StringVar(&load, "load", "", "comma-separated reports of previous optimizations to merge")
	flags.StringVar(&workdir, "workdir", "", "working directory with the trace database to record the run in")
	flags.IntVar(&nrOfWorkers, "nr-of-workers", 0, "number of ensembles scored in parallel")
	flags.BoolVar(&verbose, "verbose", false, "log every score")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, RescoreHelp)
		os.Exit(1)
	}

	output := getFilename(os.Args[2], RescoreHelp)
	inputs, next := getFilenames(3, RescoreHelp)

	parseFlags(&flags, next, RescoreHelp)

	setLogOutput(logPath)

	// sanity checks

	sanityChecksFailed := !checkCreate("", output)
	for _, input := range inputs {
		if !checkExist("", input) {
			sanityChecksFailed = true
		}
	}
	reports := splitList(load)
	for _, report := range reports {
		if !checkExist("--load", report) {
			sanityChecksFailed = true
		}
	}
	if corr != models.Spearman && corr != models.Pearson {
		log.Println("Error: Invalid correlation method: ", corr)
		sanityChecksFailed = true
	}
	if nrOfWorkers < 0 {
		log.Println("Error: Invalid nr-of-workers: ", nrOfWorkers)
		sanityChecksFailed = true
	}
	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, RescoreHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " rescore ", output)
	for _, input := range inputs {
		fmt.Fprint(&command, " ", input)
	}
	fmt.Fprint(&command, " --corr ", corr, " --off-diag ", offDiag)
	fmt.Fprint(&command, " --n-models ", nModels, " --n-keep ", nKeep, " --close-bins ", closeBins)
	if load != "" {
		fmt.Fprint(&command, " --load ", load)
	}
	if workdir != "" {
		fmt.Fprint(&command, " --workdir ", workdir)
	}
	if nrOfWorkers > 0 {
		fmt.Fprint(&command, " --nr-of-workers ", nrOfWorkers)
	}
	if verbose {
		fmt.Fprint(&command, " --verbose")
	}
	if timed {
		fmt.Fprint(&command, " --timed")
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	opt := optimizer.New(nil, optimizer.Options{NModels: nModels, NKeep: nKeep, CloseBins: closeBins})
	for _, report := range reports {
		if err = opt.LoadFromFile(report); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = timedRun(timed, "", "Scoring ensembles.", 1, func() error {
		return opt.LoadGridSearch(ctx, inputs, optimizer.Rescoring{
			Corr:    corr,
			OffDiag: offDiag,
			Workers: nrOfWorkers,
			Verbose: verbose,
		})
	})
	if err != nil {
		return err
	}
	if err = opt.WriteResult(output); err != nil {
		return err
	}

	best, score := opt.BestParameters("")
	log.Printf("Best correlation %v with scale %v, kbending %v, maxdist %v, lowfreq %v, upfreq %v, dcutoff %v.",
		score, best.Scale, best.Kbending, best.Maxdist, best.Lowfreq, best.Upfreq, best.Dcutoff)

	db, job, err := openTrace(workdir, "rescore", command.String())
	if err != nil {
		return err
	}
	defer closeTrace(db, &err)
	return recordModels(db, job, output, opt)
}
