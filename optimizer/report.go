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
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrIncompatible is returned when a report was computed with
	// different model generation settings.
	ErrIncompatible = errors.New("incompatible optimization report")

	// ErrMalformedReport is returned for report lines that cannot be
	// parsed.
	ErrMalformedReport = errors.New("malformed optimization report")
)

const reportColumns = "# scale\tkbending\tmax_dist\tlow_freq\tup_freq\tdcutoff\tcorrelation\n"

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'g', -1, 64)
}

// bestCutoff returns the lowest cutoff that reaches the highest score
// of a parameter combination.
func (r Results) bestCutoff(p Prefix) (string, float64, bool) {
	cutoffs := r.Cutoffs(p)
	if len(cutoffs) == 0 {
		return NoCutoff, math.NaN(), false
	}
	best, score := cutoffs[0], r[Key{p, cutoffs[0]}]
	for _, c := range cutoffs[1:] {
		if s := r[Key{p, c}]; s > score || (math.IsNaN(score) && !math.IsNaN(s)) {
			best, score = c, s
		}
	}
	return best, score, true
}

// WriteResult writes a report of all results, with one line per
// parameter combination at its best cutoff.
func (opt *Optimizer) WriteResult(name string) (err error) {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := file.Close(); err == nil {
			err = nerr
		}
	}()
	out := bufio.NewWriter(file)
	fmt.Fprintf(out, "## n_models: %v n_keep: %v close_bins: %v\n", opt.NModels, opt.NKeep, opt.CloseBins)
	out.WriteString(reportColumns)
	var last Prefix
	for i, k := range opt.Results.Keys() {
		if i > 0 && k.Prefix == last {
			continue
		}
		last = k.Prefix
		cutoff, score, _ := opt.Results.bestCutoff(k.Prefix)
		fmt.Fprintf(out, "  %-5s\t%-8s\t%-8s\t%-8s\t%-7s\t%-7s\t%-11s\n",
			k.Scale, k.Kbending, k.Maxdist, k.Lowfreq, k.Upfreq, cutoff, formatScore(score))
	}
	if err = out.Flush(); err != nil {
		return fmt.Errorf("%v, while writing %v", err, name)
	}
	return nil
}

func (opt *Optimizer) checkReportHeader(line, name string) error {
	fields := strings.Fields(line)
	if len(fields) != 7 || fields[1] != "n_models:" || fields[3] != "n_keep:" || fields[5] != "close_bins:" {
		return fmt.Errorf("%w: invalid header %q in %v", ErrMalformedReport, line, name)
	}
	var settings [3]int
	for i, field := range []string{fields[2], fields[4], fields[6]} {
		v, err := strconv.Atoi(field)
		if err != nil {
			return fmt.Errorf("%w: %v, while parsing header of %v", ErrMalformedReport, err, name)
		}
		settings[i] = v
	}
	if expected := [3]int{opt.NModels, opt.NKeep, opt.CloseBins}; settings != expected {
		return fmt.Errorf("%w: %v has n_models, n_keep, close_bins %v, expected %v", ErrIncompatible, name, settings, expected)
	}
	return nil
}

func parseReportLine(fields []string) (Key, float64, error) {
	var raw [6]string
	var result string
	switch len(fields) {
	case 7:
		copy(raw[:], fields[:6])
		result = fields[6]
	case 6:
		// reports without kbending list scale maxdist upfreq lowfreq dcutoff
		raw = [6]string{fields[0], "0", fields[1], fields[3], fields[2], fields[4]}
		result = fields[5]
	default:
		return Key{}, 0, fmt.Errorf("%v fields", len(fields))
	}
	var canonical [6]string
	for i, v := range raw {
		digits := Digits
		if i == 0 {
			digits = ScaleDigits
		}
		s, err := RoundString(v, digits)
		if err != nil {
			return Key{}, 0, err
		}
		canonical[i] = s
	}
	score, err := strconv.ParseFloat(result, 64)
	if err != nil {
		return Key{}, 0, err
	}
	return Key{
		Prefix:  Prefix{canonical[0], canonical[1], canonical[2], canonical[3], canonical[4]},
		Dcutoff: canonical[5],
	}, score, nil
}

// LoadFromFile merges the results of a report written by WriteResult.
// Nothing is merged if the report is incompatible or malformed.
func (opt *Optimizer) LoadFromFile(name string) (err error) {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := file.Close(); err == nil {
			err = nerr
		}
	}()
	loaded := make(Results)
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "##"):
			if err := opt.checkReportHeader(line, name); err != nil {
				return err
			}
			continue
		case strings.HasPrefix(line, "#"):
			continue
		}
		k, score, err := parseReportLine(strings.Fields(line))
		if err != nil {
			return fmt.Errorf("%w: %v, while parsing line %v of %v", ErrMalformedReport, err, lineNo, name)
		}
		loaded[k] = score
	}
	if err = scanner.Err(); err != nil {
		return err
	}
	for k, score := range loaded {
		opt.store(k, score)
	}
	return nil
}
