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

// Package optimizer searches the parameter space of 3D model
// generation for the combination whose models best reproduce the
// contacts observed in a Hi-C experiment.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/3dgenomes/hicprep/hic"
	"github.com/3dgenomes/hicprep/models"
)

// An Experiment is the region of a Hi-C experiment models are
// optimized for.
type Experiment struct {
	Resolution float64
	Zscores    []hic.Cell
	Values     [][]float64
	Zeros      []bool
}

// NewExperiment prepares bins start to end (1-based, inclusive) of a
// contact matrix for optimization.
func NewExperiment(m hic.Matrix, resolution float64, start, end int) (*Experiment, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("invalid resolution %v", resolution)
	}
	region, err := m.Region(start, end)
	if err != nil {
		return nil, err
	}
	return &Experiment{
		Resolution: resolution,
		Zscores:    region.ZScores(),
		Values:     region,
		Zeros:      region.Zeros(),
	}, nil
}

// NLoci returns the number of particles of the models.
func (exp *Experiment) NLoci() int {
	return len(exp.Values)
}

// Options are the model generation settings of an optimizer. Results
// are only comparable between optimizers with the same options.
type Options struct {
	NModels   int
	NKeep     int
	CloseBins int
	Container []float64
}

// DefaultOptions returns the default model generation settings.
func DefaultOptions() Options {
	return Options{NModels: 500, NKeep: 100, CloseBins: 1}
}

// An Optimizer accumulates correlation scores over grid searches and
// loaded reports.
type Optimizer struct {
	Options
	Experiment *Experiment
	Results    Results

	ScaleRange, KbendingRange, MaxdistRange RangeSet
	LowfreqRange, UpfreqRange, DcutoffRange RangeSet

	// index of the combinations in Results, valid while it covers
	// indexed keys
	prefixes map[Prefix]struct{}
	indexed  int
}

// New returns an optimizer for the given experiment. The experiment
// may be nil for an optimizer that only loads and re-scores results.
func New(exp *Experiment, opts Options) *Optimizer {
	return &Optimizer{
		Options:    opts,
		Experiment: exp,
		Results:    make(Results),
	}
}

func (opt *Optimizer) ranges() [6]*RangeSet {
	return [6]*RangeSet{
		&opt.ScaleRange, &opt.KbendingRange, &opt.MaxdistRange,
		&opt.LowfreqRange, &opt.UpfreqRange, &opt.DcutoffRange,
	}
}

// store records a result and merges its values into the ranges.
func (opt *Optimizer) store(k Key, score float64) {
	_, found := opt.Results[k]
	opt.Results.Set(k, score)
	if opt.prefixes != nil && !found {
		opt.prefixes[k.Prefix] = struct{}{}
		opt.indexed++
	}
	for i, v := range k.Fields() {
		opt.ranges()[i].Insert(v)
	}
}

// computed reports whether a result exists for the given parameter
// combination at any cutoff. The index is rebuilt when Results was
// modified directly.
func (opt *Optimizer) computed(p Prefix) bool {
	if opt.prefixes == nil || opt.indexed != len(opt.Results) {
		opt.prefixes = make(map[Prefix]struct{}, len(opt.Results))
		for k := range opt.Results {
			opt.prefixes[k.Prefix] = struct{}{}
		}
		opt.indexed = len(opt.Results)
	}
	_, found := opt.prefixes[p]
	return found
}

// A GridSearch describes one sweep over the parameter space.
type GridSearch struct {
	Scale, Kbending, Maxdist, Lowfreq, Upfreq, Dcutoff Axis

	Corr    string
	OffDiag int
	NCPUs   int

	UseHiC                  bool
	UseConfiningEnvironment bool
	UseExcludedVolume       bool

	// Generator produces the model ensembles.
	Generator models.Generator
	// SaveModels, if set, names a collection file that receives the
	// reduced ensembles of all combinations with a non-zero score.
	SaveModels string
	// Progress, if set, is called after each combination.
	Progress func(done, total int)
	Verbose  bool
}

// DefaultGridSearch returns a grid search over the default axes.
func DefaultGridSearch() GridSearch {
	return GridSearch{
		Scale:                   Value(0.01),
		Kbending:                Value(0),
		Maxdist:                 Range(400, 1500, 100),
		Lowfreq:                 Range(-1, 0, 0.1),
		Upfreq:                  Range(0, 1, 0.1),
		Dcutoff:                 Value(2),
		Corr:                    models.Spearman,
		OffDiag:                 1,
		NCPUs:                   1,
		UseHiC:                  true,
		UseConfiningEnvironment: true,
		UseExcludedVolume:       true,
	}
}

// ErrNoExperiment is returned when a grid search is run on an
// optimizer without experiment.
var ErrNoExperiment = errors.New("no experiment to optimize for")

func (gs *GridSearch) axes() [6]Axis {
	return [6]Axis{gs.Scale, gs.Kbending, gs.Maxdist, gs.Lowfreq, gs.Upfreq, gs.Dcutoff}
}

var axisNames = [6]string{"scale", "kbending", "maxdist", "lowfreq", "upfreq", "dcutoff"}

// product returns all combinations of the given axes values, varying
// the last axis fastest.
func product(axes [5][]string) []Prefix {
	var result []Prefix
	for _, scale := range axes[0] {
		for _, kbending := range axes[1] {
			for _, maxdist := range axes[2] {
				for _, lowfreq := range axes[3] {
					for _, upfreq := range axes[4] {
						result = append(result, Prefix{scale, kbending, maxdist, lowfreq, upfreq})
					}
				}
			}
		}
	}
	return result
}

// RunGridSearch generates and scores models for every combination of
// the axes values that has no result yet. A combination whose models
// cannot be generated or scored gets score 0 at the first cutoff.
// The returned error reports invalid arguments, cancellation, or a
// failure to save models; results computed so far are kept.
func (opt *Optimizer) RunGridSearch(ctx context.Context, gs GridSearch) error {
	if opt.Experiment == nil {
		return ErrNoExperiment
	}
	if gs.Generator == nil {
		return errors.New("no model generator")
	}
	var values [6][]string
	for i, axis := range gs.axes() {
		v, err := axis.Canonical()
		if err != nil {
			return fmt.Errorf("%v, while expanding %v values", err, axisNames[i])
		}
		values[i] = v
	}
	cutoffs := values[5]
	for i, set := range opt.ranges() {
		set.Merge(values[i]...)
	}
	combinations := product([5][]string{values[0], values[1], values[2], values[3], values[4]})
	if gs.Verbose {
		log.Printf("Optimizing %v particles", opt.Experiment.NLoci())
	}
	var saved models.Collection
	for count, p := range combinations {
		if err := ctx.Err(); err != nil {
			return err
		}
		if opt.computed(p) {
			if gs.Verbose {
				log.Printf("  xx  %v\t%v\t%v\t%v\t%v  already computed", p.Scale, p.Kbending, p.Maxdist, p.Lowfreq, p.Upfreq)
			}
		} else {
			key, score, ens := opt.evaluate(ctx, &gs, p, cutoffs)
			opt.store(key, score)
			if gs.Verbose {
				log.Printf("  %-4v%-5v\t%-8v\t%-7v\t%-7v\t%-6v\t%-7v%v",
					count+1, p.Scale, p.Kbending, p.Maxdist, p.Lowfreq, p.Upfreq, key.Dcutoff, Round(score, 4))
			}
			if gs.SaveModels != "" && score != 0 && ens != nil {
				saved = append(saved, models.Entry{
					Scale: p.Scale, Kbending: p.Kbending, Maxdist: p.Maxdist,
					Lowfreq: p.Lowfreq, Upfreq: p.Upfreq, Dcutoff: key.Dcutoff,
					Ensemble: ens.Reduce(),
				})
			}
		}
		if gs.Progress != nil {
			gs.Progress(count+1, len(combinations))
		}
	}
	if gs.SaveModels != "" {
		if err := models.SaveCollection(gs.SaveModels, saved); err != nil {
			return fmt.Errorf("%v, while saving models", err)
		}
	}
	return nil
}

// Config returns the physical configuration for a parameter
// combination.
func (p Prefix) Config() map[string]float64 {
	return map[string]float64{
		"kforce":   5,
		"scale":    parse(p.Scale),
		"kbending": parse(p.Kbending),
		"lowrdist": 100,
		"maxdist":  float64(int(parse(p.Maxdist))),
		"lowfreq":  parse(p.Lowfreq),
		"upfreq":   parse(p.Upfreq),
	}
}

// CutoffDistance converts a cutoff in bead units into a distance for
// the given resolution and scale.
func CutoffDistance(dcutoff, resolution, scale float64) int {
	return int(dcutoff * resolution * scale)
}

// evaluate generates an ensemble and finds the cutoff with the highest
// correlation. Failures are logged and give score 0 at the first
// cutoff.
func (opt *Optimizer) evaluate(ctx context.Context, gs *GridSearch, p Prefix, cutoffs []string) (key Key, score float64, ens *models.Ensemble) {
	exp := opt.Experiment
	key = Key{Prefix: p, Dcutoff: cutoffs[0]}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("  SKIPPING: %v", r)
			key, score, ens = Key{Prefix: p, Dcutoff: cutoffs[0]}, 0, nil
		}
	}()
	config := p.Config()
	ens, err := gs.Generator.Generate(ctx, &models.Request{
		Zscores:                 exp.Zscores,
		Values:                  exp.Values,
		Resolution:              exp.Resolution,
		NLoci:                   exp.NLoci(),
		NModels:                 opt.NModels,
		NKeep:                   opt.NKeep,
		Config:                  config,
		Container:               opt.Container,
		CloseBins:               opt.CloseBins,
		Zeros:                   exp.Zeros,
		UseHiC:                  gs.UseHiC,
		UseConfiningEnvironment: gs.UseConfiningEnvironment,
		UseExcludedVolume:       gs.UseExcludedVolume,
		NCPUs:                   gs.NCPUs,
	})
	if err != nil {
		log.Printf("  SKIPPING: %v", err)
		return key, 0, nil
	}
	if ens.Original == nil {
		ens.Original = exp.Values
	}
	if ens.Zeros == nil {
		ens.Zeros = exp.Zeros
	}
	distances := make([]int, len(cutoffs))
	for i, c := range cutoffs {
		distances[i] = CutoffDistance(parse(c), exp.Resolution, config["scale"])
	}
	matrices, err := ens.ContactMatrices(distances)
	if err != nil {
		log.Printf("  SKIPPING: %v", err)
		return key, 0, nil
	}
	best := 0.0
	for i, c := range cutoffs {
		corr, err := ens.Correlate(float64(distances[i]), gs.Corr, gs.OffDiag, matrices[distances[i]])
		if err != nil {
			log.Printf("  SKIPPING: %v", err)
			return Key{Prefix: p, Dcutoff: cutoffs[0]}, 0, nil
		}
		if best < corr {
			best, key.Dcutoff = corr, c
		}
	}
	return key, best, ens
}
