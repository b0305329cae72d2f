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
	"fmt"
	"math"
	"strconv"
	"strings"
)

// An Axis describes the values of one parameter: a single value, an
// explicit list, or a range from start to stop inclusive, by step.
type Axis struct {
	values            []float64
	start, stop, step float64
	isRange           bool
}

// Value returns an axis with a single value.
func Value(x float64) Axis {
	return Axis{values: []float64{x}}
}

// List returns an axis with the given values.
func List(xs ...float64) Axis {
	return Axis{values: append([]float64(nil), xs...)}
}

// Range returns an axis from start to stop by step. The stop value is
// included if it is within half a step of the last value.
func Range(start, stop, step float64) Axis {
	return Axis{start: start, stop: stop, step: step, isRange: true}
}

// IsZero reports whether the axis has not been set.
func (a Axis) IsZero() bool {
	return !a.isRange && len(a.values) == 0
}

// Floats returns the values of the axis.
func (a Axis) Floats() ([]float64, error) {
	if !a.isRange {
		if len(a.values) == 0 {
			return nil, fmt.Errorf("empty parameter axis")
		}
		return append([]float64(nil), a.values...), nil
	}
	if a.step <= 0 || math.IsNaN(a.step) {
		return nil, fmt.Errorf("invalid step %v in parameter range %v", a.step, a)
	}
	end := a.stop + a.step/2
	n := int(math.Ceil((end - a.start) / a.step))
	if n <= 0 {
		return nil, fmt.Errorf("empty parameter range %v", a)
	}
	values := make([]float64, n)
	for i := range values {
		values[i] = a.start + float64(i)*a.step
	}
	return values, nil
}

// Canonical returns the canonical strings of the axis values, rounded
// to Digits decimals, without duplicates, in axis order.
func (a Axis) Canonical() ([]string, error) {
	floats, err := a.Floats()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(floats))
	values := make([]string, 0, len(floats))
	for _, f := range floats {
		s := Round(f, Digits)
		if !seen[s] {
			seen[s] = true
			values = append(values, s)
		}
	}
	return values, nil
}

func (a Axis) String() string {
	if a.isRange {
		return fmt.Sprintf("%v:%v:%v", a.start, a.stop, a.step)
	}
	values := make([]string, len(a.values))
	for i, v := range a.values {
		values[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(values, ",")
}

// ParseAxis parses an axis given as start:stop:step, as a
// comma-separated list, or as a single value.
func ParseAxis(s string) (Axis, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Axis{}, fmt.Errorf("empty parameter axis")
	}
	parseFloats := func(fields []string) ([]float64, error) {
		result := make([]float64, len(fields))
		for i, field := range fields {
			f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%v, while parsing parameter axis %v", err, s)
			}
			result[i] = f
		}
		return result, nil
	}
	if strings.Contains(s, ":") {
		fields := strings.Split(s, ":")
		if len(fields) != 3 {
			return Axis{}, fmt.Errorf("invalid parameter range %v, expected start:stop:step", s)
		}
		floats, err := parseFloats(fields)
		if err != nil {
			return Axis{}, err
		}
		return Range(floats[0], floats[1], floats[2]), nil
	}
	floats, err := parseFloats(strings.Split(s, ","))
	if err != nil {
		return Axis{}, err
	}
	return List(floats...), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so that axes can
// be read from configuration files.
func (a *Axis) UnmarshalText(text []byte) (err error) {
	*a, err = ParseAxis(string(text))
	return err
}

// Set implements flag.Value.
func (a *Axis) Set(s string) (err error) {
	*a, err = ParseAxis(s)
	return err
}
