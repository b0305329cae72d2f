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

package optimizer

import "math"

// A Config is a parameter combination ready to be used for modeling.
type Config struct {
	Scale     float64 `json:"scale" toml:"scale"`
	Kbending  float64 `json:"kbending" toml:"kbending"`
	Maxdist   float64 `json:"maxdist" toml:"maxdist"`
	Lowfreq   float64 `json:"lowfreq" toml:"lowfreq"`
	Upfreq    float64 `json:"upfreq" toml:"upfreq"`
	Dcutoff   float64 `json:"dcutoff" toml:"dcutoff"`
	Reference string  `json:"reference" toml:"reference"`
	Kforce    float64 `json:"kforce" toml:"kforce"`
}

// BestParameters returns the parameter combination with the highest
// score, and that score. Of several combinations with the same score,
// the first one in numerical key order is returned. Without results,
// all parameters are NaN and the score is 0.
func (opt *Optimizer) BestParameters(reference string) (Config, float64) {
	nan := math.NaN()
	config := Config{
		Scale: nan, Kbending: nan, Maxdist: nan,
		Lowfreq: nan, Upfreq: nan, Dcutoff: nan,
		Reference: reference, Kforce: 5,
	}
	score := 0.0
	for _, k := range opt.Results.Keys() {
		if v := opt.Results[k]; v > score {
			score = v
			config.Scale, config.Kbending, config.Maxdist = parse(k.Scale), parse(k.Kbending), parse(k.Maxdist)
			config.Lowfreq, config.Upfreq, config.Dcutoff = parse(k.Lowfreq), parse(k.Upfreq), parse(k.Dcutoff)
		}
	}
	return config, score
}

// An Array is a dense 5-dimensional array of scores, indexed by the
// positions of scale, kbending, maxdist, lowfreq and upfreq in their
// ranges.
type Array struct {
	Shape [5]int
	Data  []float64
}

func (a *Array) offset(index [5]int) int {
	offset := 0
	for d, i := range index {
		offset = offset*a.Shape[d] + i
	}
	return offset
}

// At returns the score at the given index.
func (a *Array) At(index [5]int) float64 {
	return a.Data[a.offset(index)]
}

// ResultArray returns the scores as a dense array. Each cell holds the
// score at the smallest cutoff stored for its combination, or NaN if
// there is none.
func (opt *Optimizer) ResultArray() *Array {
	ranges := opt.ranges()
	a := &Array{}
	size := 1
	for d := range a.Shape {
		a.Shape[d] = ranges[d].Len()
		size *= a.Shape[d]
	}
	a.Data = make([]float64, size)
	for i := range a.Data {
		a.Data[i] = math.NaN()
	}
	best := make(map[Prefix]string)
	for k := range opt.Results {
		if c, ok := best[k.Prefix]; !ok || numericLess(k.Dcutoff, c) {
			best[k.Prefix] = k.Dcutoff
		}
	}
	for p, c := range best {
		var index [5]int
		valid := true
		for d, v := range [5]string{p.Scale, p.Kbending, p.Maxdist, p.Lowfreq, p.Upfreq} {
			if index[d] = ranges[d].Index(v); index[d] < 0 {
				valid = false
			}
		}
		if valid {
			a.Data[a.offset(index)] = opt.Results[Key{p, c}]
		}
	}
	return a
}
