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

import (
	"log"
	"sort"

	psort "github.com/exascience/pargo/sort"
)

// A Prefix identifies one model generation run: the five physical
// parameters without the distance cutoff.
type Prefix struct {
	Scale, Kbending, Maxdist, Lowfreq, Upfreq string
}

// NoCutoff stands for a cutoff that has not been chosen yet. It is
// never stored in Results.
const NoCutoff = ""

// A Key identifies one result: a parameter combination and the
// distance cutoff its correlation was computed at. All fields are
// canonical strings.
type Key struct {
	Prefix
	Dcutoff string
}

// Fields returns the key fields in report order.
func (k Key) Fields() [6]string {
	return [6]string{k.Scale, k.Kbending, k.Maxdist, k.Lowfreq, k.Upfreq, k.Dcutoff}
}

// KeyLess orders keys numerically, field by field in report order.
func KeyLess(a, b Key) bool {
	fa, fb := a.Fields(), b.Fields()
	for i := range fa {
		if fa[i] != fb[i] {
			return numericLess(fa[i], fb[i])
		}
	}
	return false
}

// Results maps parameter combinations to correlation scores.
type Results map[Key]float64

// Set stores a score, replacing any previous score for the same key.
func (r Results) Set(k Key, score float64) {
	if k.Dcutoff == NoCutoff {
		log.Panicf("result for %v stored without cutoff", k.Prefix)
	}
	r[k] = score
}

// Cutoffs returns the cutoffs stored for the given parameter
// combination, in numerical order.
func (r Results) Cutoffs(p Prefix) []string {
	var cutoffs []string
	for k := range r {
		if k.Prefix == p {
			cutoffs = append(cutoffs, k.Dcutoff)
		}
	}
	sort.Slice(cutoffs, func(i, j int) bool { return numericLess(cutoffs[i], cutoffs[j]) })
	return cutoffs
}

type keySorter []Key

func (s keySorter) SequentialSort(i, j int) {
	keys := s[i:j]
	sort.Slice(keys, func(i, j int) bool { return KeyLess(keys[i], keys[j]) })
}

func (s keySorter) NewTemp() psort.StableSorter { return make(keySorter, len(s)) }

func (s keySorter) Len() int { return len(s) }

func (s keySorter) Less(i, j int) bool { return KeyLess(s[i], s[j]) }

func (s keySorter) Assign(p psort.StableSorter) func(i, j, len int) {
	dst, src := s, p.(keySorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// Keys returns all keys in numerical order.
func (r Results) Keys() []Key {
	keys := make([]Key, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	psort.StableSort(keySorter(keys))
	return keys
}

// Clone returns a copy of the results.
func (r Results) Clone() Results {
	clone := make(Results, len(r))
	for k, v := range r {
		clone[k] = v
	}
	return clone
}
