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

import "sort"

// A RangeSet is a numerically sorted set of canonical values of one
// parameter.
type RangeSet struct {
	values []string
}

// NewRangeSet returns a set with the given values.
func NewRangeSet(values ...string) *RangeSet {
	set := &RangeSet{}
	set.Merge(values...)
	return set
}

func (set *RangeSet) search(value string) int {
	return sort.Search(len(set.values), func(i int) bool {
		return !numericLess(set.values[i], value)
	})
}

// Index returns the position of value in the set, or -1.
func (set *RangeSet) Index(value string) int {
	i := set.search(value)
	if i < len(set.values) && set.values[i] == value {
		return i
	}
	return -1
}

// Contains reports whether value is in the set.
func (set *RangeSet) Contains(value string) bool {
	return set.Index(value) >= 0
}

// Insert adds value to the set, and reports whether it was new.
func (set *RangeSet) Insert(value string) bool {
	i := set.search(value)
	if i < len(set.values) && set.values[i] == value {
		return false
	}
	set.values = append(set.values, "")
	copy(set.values[i+1:], set.values[i:])
	set.values[i] = value
	return true
}

// Merge adds all values to the set, and returns the number of new
// values.
func (set *RangeSet) Merge(values ...string) (added int) {
	for _, v := range values {
		if set.Insert(v) {
			added++
		}
	}
	return added
}

// Len returns the number of values in the set.
func (set *RangeSet) Len() int {
	return len(set.values)
}

// Values returns the values in numerical order.
func (set *RangeSet) Values() []string {
	return append([]string(nil), set.values...)
}

// Floats returns the numerical values in order.
func (set *RangeSet) Floats() []float64 {
	result := make([]float64, len(set.values))
	for i, v := range set.values {
		result[i] = parse(v)
	}
	return result
}
