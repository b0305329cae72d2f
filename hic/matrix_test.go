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

package hic

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMatrix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.tsv")
	contents := "# chr1 at 100kb\n1 2 0 4\n2 1 3 0\n\n0 3 1 5\n4 0 5 1\n"
	if err := os.WriteFile(path, []byte(contents), 0666); err != nil {
		t.Fatal(err)
	}
	m, err := LoadMatrix(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Size() != 4 || m[2][3] != 5 {
		t.Error("LoadMatrix failed", m)
	}
	region, err := m.Region(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if region.Size() != 2 || region[0][1] != 3 || region[1][1] != 1 {
		t.Error("Region failed", region)
	}
	if _, err := m.Region(0, 5); err == nil {
		t.Error("Region accepted invalid bounds")
	}
}

func TestLoadMatrixNotSquare(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.tsv")
	if err := os.WriteFile(path, []byte("1 2\n3\n"), 0666); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadMatrix(path); err == nil {
		t.Error("LoadMatrix accepted a ragged matrix")
	}
}

func TestZScores(t *testing.T) {
	m := Matrix{
		{1, 10, 0, 100},
		{10, 1, 0, 1000},
		{0, 0, 0, 0},
		{100, 1000, 0, 1},
	}
	zeros := m.Zeros()
	if zeros[0] || !zeros[2] {
		t.Error("Zeros failed", zeros)
	}
	cells := m.ZScores()
	if len(cells) != 3 {
		t.Fatal("ZScores failed", cells)
	}
	// log10 values 1, 2, 3 have mean 2 and sample standard deviation 1
	expected := map[[2]int]float64{{0, 1}: -1, {0, 3}: 0, {1, 3}: 1}
	for _, c := range cells {
		if math.Abs(c.Value-expected[[2]int{c.I, c.J}]) > 1e-9 {
			t.Error("ZScores failed at", c)
		}
	}
}
