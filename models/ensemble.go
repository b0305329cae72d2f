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

// Package models represents ensembles of 3D models generated for a
// set of physical parameters, and scores them against Hi-C data.
package models

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/exascience/pargo/parallel"
	"gonum.org/v1/gonum/stat"

	"github.com/3dgenomes/hicprep/hic"
)

// A Point is the position of one particle.
type Point struct {
	X, Y, Z float64
}

func distance(p, q Point) float64 {
	dx, dy, dz := p.X-q.X, p.Y-q.Y, p.Z-q.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// A Model is one generated structure, with one particle per locus.
type Model struct {
	Particles []Point
	Objective float64
}

// An Ensemble holds the models generated for one parameter
// combination, together with the data they were generated from.
type Ensemble struct {
	NLoci      int
	Resolution float64
	Models     []Model
	Config     map[string]float64
	Original   [][]float64
	Zeros      []bool
	Zscores    []hic.Cell
}

// Correlation methods.
const (
	Spearman = "spearman"
	Pearson  = "pearson"
)

// ErrTooFewPairs is returned when too few bin pairs are left to
// compute a correlation.
var ErrTooFewPairs = errors.New("too few bin pairs to correlate")

// ErrShape is returned when the models or the original data of an
// ensemble do not have one entry per locus.
var ErrShape = errors.New("ensemble does not match its number of loci")

func (ens *Ensemble) checkModels() error {
	for m, model := range ens.Models {
		if len(model.Particles) != ens.NLoci {
			return fmt.Errorf("%w: model %v has %v particles, expected %v", ErrShape, m, len(model.Particles), ens.NLoci)
		}
	}
	return nil
}

func (ens *Ensemble) checkOriginal() error {
	if len(ens.Original) != ens.NLoci {
		return fmt.Errorf("%w: original data has %v bins, expected %v", ErrShape, len(ens.Original), ens.NLoci)
	}
	for i, row := range ens.Original {
		if len(row) != ens.NLoci {
			return fmt.Errorf("%w: row %v of the original data has %v bins, expected %v", ErrShape, i, len(row), ens.NLoci)
		}
	}
	return nil
}

func (ens *Ensemble) isZero(i int) bool {
	return i < len(ens.Zeros) && ens.Zeros[i]
}

// ContactMatrix returns, for every pair of loci, the fraction of
// models in which their particles are closer than cutoff.
func (ens *Ensemble) ContactMatrix(cutoff float64) ([][]float64, error) {
	if err := ens.checkModels(); err != nil {
		return nil, err
	}
	n := ens.NLoci
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}
	if len(ens.Models) == 0 {
		return matrix, nil
	}
	total := float64(len(ens.Models))
	parallel.Range(0, n, 0, func(low, high int) {
		for i := low; i < high; i++ {
			if ens.isZero(i) {
				continue
			}
			matrix[i][i] = 1
			for j := i + 1; j < n; j++ {
				count := 0
				for _, model := range ens.Models {
					if distance(model.Particles[i], model.Particles[j]) < cutoff {
						count++
					}
				}
				matrix[i][j] = float64(count) / total
			}
		}
	})
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			matrix[j][i] = matrix[i][j]
		}
	}
	return matrix, nil
}

// ContactMatrices computes the contact matrix at each of the given
// cutoffs.
func (ens *Ensemble) ContactMatrices(cutoffs []int) (map[int][][]float64, error) {
	result := make(map[int][][]float64, len(cutoffs))
	for _, cutoff := range cutoffs {
		if _, ok := result[cutoff]; !ok {
			matrix, err := ens.ContactMatrix(float64(cutoff))
			if err != nil {
				return nil, err
			}
			result[cutoff] = matrix
		}
	}
	return result, nil
}

// Correlate returns the correlation between the model contacts at the
// given cutoff and the original data, over all pairs of non-empty bins
// that are at least offDiag bins apart. If contacts is nil, the
// contact matrix is computed.
func (ens *Ensemble) Correlate(cutoff float64, method string, offDiag int, contacts [][]float64) (float64, error) {
	if method != Spearman && method != Pearson {
		return 0, fmt.Errorf("unknown correlation method %v", method)
	}
	if err := ens.checkOriginal(); err != nil {
		return 0, err
	}
	if contacts == nil {
		var err error
		if contacts, err = ens.ContactMatrix(cutoff); err != nil {
			return 0, err
		}
	} else if len(contacts) != ens.NLoci {
		return 0, fmt.Errorf("%w: contact matrix has %v bins, expected %v", ErrShape, len(contacts), ens.NLoci)
	}
	if offDiag < 1 {
		offDiag = 1
	}
	var model, real []float64
	for i := 0; i < ens.NLoci; i++ {
		if ens.isZero(i) {
			continue
		}
		for j := i + offDiag; j < ens.NLoci; j++ {
			if ens.isZero(j) {
				continue
			}
			m, r := contacts[i][j], ens.Original[i][j]
			if math.IsNaN(m) || math.IsNaN(r) {
				continue
			}
			model = append(model, m)
			real = append(real, r)
		}
	}
	if len(model) < 3 {
		return 0, fmt.Errorf("%w: %v pairs at cutoff %v", ErrTooFewPairs, len(model), cutoff)
	}
	if method == Spearman {
		model, real = ranks(model), ranks(real)
	}
	corr := stat.Correlation(model, real, nil)
	if math.IsNaN(corr) {
		return 0, fmt.Errorf("undefined %v correlation at cutoff %v", method, cutoff)
	}
	return corr, nil
}

// ranks returns the 1-based ranks of the values, where tied values
// receive the average of their ranks.
func ranks(values []float64) []float64 {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return values[order[i]] < values[order[j]] })
	result := make([]float64, len(values))
	for i := 0; i < len(order); {
		j := i + 1
		for j < len(order) && values[order[j]] == values[order[i]] {
			j++
		}
		rank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			result[order[k]] = rank
		}
		i = j
	}
	return result
}

// Reduce returns a copy of the ensemble without z-scores, which are
// not needed for re-scoring.
func (ens *Ensemble) Reduce() *Ensemble {
	reduced := *ens
	reduced.Zscores = nil
	return &reduced
}
