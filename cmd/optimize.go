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

	"github.com/3dgenomes/hicprep/hic"
	"github.com/3dgenomes/hicprep/models"
	"github.com/3dgenomes/hicprep/optimizer"
	"github.com/3dgenomes/hicprep/trace"
)

// OptimizeHelp is the help string for this command.
const OptimizeHelp = "optimize parameters:\n" +
	"hicprep optimize matrix-file output-file\n" +
	"--resolution bp\n" +
	"--generator binary\n" +
	"[--generator-args args]\n" +
	"[--start bin]\n" +
	"[--end bin]\n" +
	"[--config toml-file]\n" +
	"[--scale values]\n" +
	"[--kbending values]\n" +
	"[--maxdist values]\n" +
	"[--lowfreq values]\n" +
	"[--upfreq values]\n" +
	"[--dcutoff values]\n" +
	"[--corr spearman | pearson]\n" +
	"[--off-diag nr]\n" +
	"[--n-models nr]\n" +
	"[--n-keep nr]\n" +
	"[--close-bins nr]\n" +
	"[--container values]\n" +
	"[--load report[,report]...]\n" +
	"[--save-models file]\n" +
	"[--best-config toml-file]\n" +
	"[--workdir path]\n" +
	"[--progress]\n" +
	"[--verbose]\n" +
	"[--nr-of-threads nr]\n" +
	"[--timed]\n" +
	"[--profile file]\n" +
	"[--log-path path]\n" +
	"Values are given as start:stop:step, as a comma-separated list, or as a single value.\n"

func parseFloats(s string) ([]float64, error) {
	var result []float64
	for _, field := range strings.Split(s, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, nil
}

func splitList(s string) []string {
	var result []string
	for _, field := range strings.Split(s, ",") {
		if field = strings.TrimSpace(field); field != "" {
			result = append(result, field)
		}
	}
	return result
}

// recordModels records all results of an optimizer in the trace
// database of workdir.
func recordModels(db *trace.DB, job int64, report string, opt *optimizer.Optimizer) error {
	if db == nil {
		return nil
	}
	for _, k := range opt.Results.Keys() {
		if err := db.RecordModels(job, report, k.Fields(), opt.Results[k]); err != nil {
			return err
		}
	}
	return nil
}

// Optimize implements the hicprep optimize command.
func Optimize() (err error) {
	var (
		resolution                                                  float64
		start, end, offDiag, nModels, nKeep, closeBins, nrOfThreads int
		generator, generatorArgs, configFile, corr, container, load string
		saveModels, bestConfig, workdir, profile, logPath           string
		progress, verbose, timed                                    bool
		scale, kbending, maxdist, lowfreq, upfreq, dcutoff          optimizer.Axis
	)

	defaultOpts, defaultSearch := optimizer.DefaultOptions(), optimizer.DefaultGridSearch()

	var flags flag.FlagSet

	flags.Float64Var(&resolution, "resolution", 0, "resolution of the Hi-C matrix in base pairs")
	flags.StringVar(&generator, "generator", "", "model generation binary")
	flags.StringVar(&generatorArgs, "generator-args", "", "arguments passed to the model generation binary")
	flags.IntVar(&start, "start", 1, "first bin of the region to model (1-based)")
	flags.IntVar(&end, "end", 0, "last bin of the region to model (inclusive, default the last bin)")
	flags.StringVar(&configFile, "config", "", "TOML file with optimization settings")
	flags.Var(&scale, "scale", "scale values (default "+defaultSearch.Scale.String()+")")
	flags.Var(&kbending, "kbending", "bending rigidity values (default "+defaultSearch.Kbending.String()+")")
	flags.Var(&maxdist, "maxdist", "maximum distance values (default "+defaultSearch.Maxdist.String()+")")
	flags.Var(&lowfreq, "lowfreq", "lower z-score bound values (default "+defaultSearch.Lowfreq.String()+")")
	flags.Var(&upfreq, "upfreq", "upper z-score bound values (default "+defaultSearch.Upfreq.String()+")")
	flags.Var(&dcutoff, "dcutoff", "contact distance cutoffs in bead units (default "+defaultSearch.Dcutoff.String()+")")
	flags.StringVar(&corr, "corr", defaultSearch.Corr, "correlation method")
	flags.IntVar(&offDiag, "off-diag", defaultSearch.OffDiag, "minimum distance in bins of the compared bin pairs")
	flags.IntVar(&nModels, "n-models", defaultOpts.NModels, "number of models to generate")
	flags.IntVar(&nKeep, "n-keep", defaultOpts.NKeep, "number of models to keep")
	flags.IntVar(&closeBins, "close-bins", defaultOpts.CloseBins, "number of adjacent particles considered neighbors")
	flags.StringVar(&container, "container", "", "comma-separated container shape parameters")
	flags.StringVar(&load, "load", "", "comma-separated reports of previous optimizations to merge")
	flags.StringVar(&saveModels, "save-models", "", "save the generated ensembles to this file")
	flags.StringVar(&bestConfig, "best-config", "", "write the best parameters to this TOML file")
	flags.StringVar(&workdir, "workdir", "", "working directory with the trace database to record the run in")
	flags.BoolVar(&progress, "progress", false, "show a progress bar")
	flags.BoolVar(&verbose, "verbose", false, "log every parameter combination")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads, passed on to the model generator")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a cpu profile for the run")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, OptimizeHelp)
		os.Exit(1)
	}

	input := getFilename(os.Args[2], OptimizeHelp)
	output := getFilename(os.Args[3], OptimizeHelp)

	parseFlags(&flags, 4, OptimizeHelp)

	setLogOutput(logPath)

	// sanity checks

	sanityChecksFailed := !checkExist("", input)
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if resolution <= 0 {
		log.Println("Error: Invalid resolution: ", resolution)
		sanityChecksFailed = true
	}
	if generator == "" {
		log.Println("Error: Missing model generator.")
		sanityChecksFailed = true
	}
	reports := splitList(load)
	for _, report := range reports {
		if !checkExist("--load", report) {
			sanityChecksFailed = true
		}
	}
	if configFile != "" && !checkExist("--config", configFile) {
		sanityChecksFailed = true
	}
	if saveModels != "" && !checkCreate("--save-models", saveModels) {
		sanityChecksFailed = true
	}
	if bestConfig != "" && !checkCreate("--best-config", bestConfig) {
		sanityChecksFailed = true
	}
	var containerValues []float64
	if container != "" {
		var cerr error
		if containerValues, cerr = parseFloats(container); cerr != nil {
			log.Println("Error: Invalid container: ", cerr)
			sanityChecksFailed = true
		}
	}
	if !checkThreads(nrOfThreads) {
		sanityChecksFailed = true
	}
	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, OptimizeHelp)
		os.Exit(1)
	}

	opts, gs := defaultOpts, defaultSearch
	if configFile != "" {
		config, err := optimizer.LoadConfig(configFile)
		if err != nil {
			return err
		}
		config.Apply(&opts, &gs)
	}
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scale":
			gs.Scale = scale
		case "kbending":
			gs.Kbending = kbending
		case "maxdist":
			gs.Maxdist = maxdist
		case "lowfreq":
			gs.Lowfreq = lowfreq
		case "upfreq":
			gs.Upfreq = upfreq
		case "dcutoff":
			gs.Dcutoff = dcutoff
		case "corr":
			gs.Corr = corr
		case "off-diag":
			gs.OffDiag = offDiag
		case "n-models":
			opts.NModels = nModels
		case "n-keep":
			opts.NKeep = nKeep
		case "close-bins":
			opts.CloseBins = closeBins
		case "container":
			opts.Container = containerValues
		}
	})
	if gs.Corr != models.Spearman && gs.Corr != models.Pearson {
		log.Println("Error: Invalid correlation method: ", gs.Corr)
		fmt.Fprint(os.Stderr, OptimizeHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " optimize ", input, " ", output)
	fmt.Fprint(&command, " --resolution ", resolution)
	fmt.Fprint(&command, " --generator ", generator)
	if generatorArgs != "" {
		fmt.Fprintf(&command, " --generator-args %q", generatorArgs)
	}
	fmt.Fprint(&command, " --start ", start)
	if end > 0 {
		fmt.Fprint(&command, " --end ", end)
	}
	if configFile != "" {
		fmt.Fprint(&command, " --config ", configFile)
	}
	fmt.Fprint(&command, " --scale ", gs.Scale, " --kbending ", gs.Kbending, " --maxdist ", gs.Maxdist)
	fmt.Fprint(&command, " --lowfreq ", gs.Lowfreq, " --upfreq ", gs.Upfreq, " --dcutoff ", gs.Dcutoff)
	fmt.Fprint(&command, " --corr ", gs.Corr, " --off-diag ", gs.OffDiag)
	fmt.Fprint(&command, " --n-models ", opts.NModels, " --n-keep ", opts.NKeep, " --close-bins ", opts.CloseBins)
	if len(opts.Container) > 0 {
		fmt.Fprint(&command, " --container ", strings.Trim(fmt.Sprint(opts.Container), "[]"))
	}
	if load != "" {
		fmt.Fprint(&command, " --load ", load)
	}
	if saveModels != "" {
		fmt.Fprint(&command, " --save-models ", saveModels)
	}
	if bestConfig != "" {
		fmt.Fprint(&command, " --best-config ", bestConfig)
	}
	if workdir != "" {
		fmt.Fprint(&command, " --workdir ", workdir)
	}
	if progress {
		fmt.Fprint(&command, " --progress")
	}
	if verbose {
		fmt.Fprint(&command, " --verbose")
	}
	if nrOfThreads > 0 {
		fmt.Fprint(&command, " --nr-of-threads ", nrOfThreads)
	}
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

	matrix, err := hic.LoadMatrix(input)
	if err != nil {
		return err
	}
	if end == 0 {
		end = matrix.Size()
	}
	exp, err := optimizer.NewExperiment(matrix, resolution, start, end)
	if err != nil {
		return err
	}
	opt := optimizer.New(exp, opts)
	for _, report := range reports {
		if err = opt.LoadFromFile(report); err != nil {
			return err
		}
		log.Printf("Loaded %v results from %v.", len(opt.Results), report)
	}

	gs.Generator = &models.CommandGenerator{
		Command: generator,
		Args:    strings.Fields(generatorArgs),
	}
	gs.SaveModels = saveModels
	gs.Verbose = verbose
	if nrOfThreads > 0 {
		gs.NCPUs = nrOfThreads
	}
	var bar *progressBar
	if progress {
		bar = newProgressBar("parameter combinations: ")
		gs.Progress = bar.report
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = timedRun(timed, profile, "Grid search.", 1, func() error {
		return opt.RunGridSearch(ctx, gs)
	})
	if bar != nil {
		bar.wait()
	}
	// results computed before an interruption are still written
	if werr := opt.WriteResult(output); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}

	best, score := opt.BestParameters(input)
	log.Printf("Best correlation %v with scale %v, kbending %v, maxdist %v, lowfreq %v, upfreq %v, dcutoff %v.",
		score, best.Scale, best.Kbending, best.Maxdist, best.Lowfreq, best.Upfreq, best.Dcutoff)
	if bestConfig != "" {
		if err = optimizer.WriteConfig(bestConfig, best, score); err != nil {
			return err
		}
	}

	db, job, err := openTrace(workdir, "optimize", command.String())
	if err != nil {
		return err
	}
	defer closeTrace(db, &err)
	return recordModels(db, job, output, opt)
}
