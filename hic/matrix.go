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

// Package hic loads Hi-C contact matrices and prepares them as input
// for model generation.
package hic

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// A Matrix is a dense square contact matrix.
type Matrix [][]float64

// Size returns the number of bins of the matrix.
func (m Matrix) Size() int {
	return len(m)
}

// LoadMatrix reads a dense matrix of whitespace-separated values.
// Empty lines and lines starting with '#' are ignored.
func LoadMatrix(name string) (m Matrix, err error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if nerr := file.Close(); err == nil {
			err = nerr
		}
	}()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<28)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		row := make([]float64, len(fields))
		for i, field := range fields {
			if row[i], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("%v, while parsing line %v of %v", err, lineNo, name)
			}
		}
		m = append(m, row)
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	for i, row := range m {
		if len(row) != len(m) {
			return nil, fmt.Errorf("row %v of %v has %v values, expected %v", i+1, name, len(row), len(m))
		}
	}
	return m, nil
}

// Region returns the sub-matrix of bins start to end, 1-based and
// inclusive.
func (m Matrix) Region(start, end int) (Matrix, error) {
	if start < 1 || end > len(m) || start > end {
		return nil, fmt.Errorf("invalid region %v-%v of a matrix with %v bins", start, end, len(m))
	}
	region := make(Matrix, 0, end-start+1)
	for _, row := range m[start-1 : end] {
		region = append(region, append([]float64(nil), row[start-1:end]...))
	}
	return region, nil
}

// Zeros returns the mask of empty bins, whose rows sum to zero.
func (m Matrix) Zeros() []bool {
	zeros := make([]bool, len(m))
	for i, row := range m {
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		zeros[i] = sum == 0
	}
	return zeros
}

// A Cell is a value at bin pair (I, J), with I < J.
type Cell struct {
	I, J  int
	Value float64
}

// ZScores returns the z-scores of the log10 of all positive
// off-diagonal values of the upper triangle of the matrix, skipping
// empty bins.
func (m Matrix) ZScores() []Cell {
	zeros := m.Zeros()
	var cells []Cell
	var values []float64
	for i := range m {
		if zeros[i] {
			continue
		}
		for j := i + 1; j < len(m); j++ {
			if zeros[j] || m[i][j] <= 0 {
				continue
			}
			v := math.Log10(m[i][j])
			cells = append(cells, Cell{I: i, J: j, Value: v})
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil
	}
	mean, std := stat.MeanStdDev(values, nil)
	for k := range cells {
		if std == 0 || math.IsNaN(std) {
			cells[k].Value = 0
		} else {
			cells[k].Value = (cells[k].Value - mean) / std
		}
	}
	return cells
}
