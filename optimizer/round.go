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
	"math"
	"strconv"
)

// Digits is the number of decimals parameter values are rounded to.
// ScaleDigits is used for scale values read from report files.
const (
	Digits      = 4
	ScaleDigits = 5
)

// Round rounds x half away from zero to the given number of decimals,
// and returns its canonical representation: integral values have no
// fractional part, and other values use the shortest representation
// that parses back to the same value. Round is idempotent on its
// parsed output.
func Round(x float64, digits int) string {
	pow := math.Pow(10, float64(digits))
	r := math.Round(x*pow) / pow
	if math.IsInf(r, 0) {
		r = x
	}
	switch {
	case r == 0:
		return "0"
	case r == math.Trunc(r):
		return strconv.FormatFloat(r, 'f', 0, 64)
	default:
		return strconv.FormatFloat(r, 'f', -1, 64)
	}
}

// RoundString parses s and returns Round of its value.
func RoundString(s string, digits int) (string, error) {
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", err
	}
	return Round(x, digits), nil
}

// parse returns the value of a canonical string. Canonical strings are
// produced by Round, so they always parse.
func parse(s string) float64 {
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return x
}

// numericLess orders canonical strings by value.
func numericLess(a, b string) bool {
	x, y := parse(a), parse(b)
	if x == y || (math.IsNaN(x) && math.IsNaN(y)) {
		return a < b
	}
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.IsNaN(y)
	}
	return x < y
}
