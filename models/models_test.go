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

package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// lineEnsemble returns an ensemble of n loci on a line, spaced one
// unit apart, and a second model spaced two units apart.
func lineEnsemble(n int) *Ensemble {
	ens := &Ensemble{NLoci: n, Resolution: 1}
	for _, spacing := range []float64{1, 2} {
		var model Model
		for i := 0; i < n; i++ {
			model.Particles = append(model.Particles, Point{X: float64(i) * spacing})
		}
		ens.Models = append(ens.Models, model)
	}
	ens.Original = make([][]float64, n)
	for i := range ens.Original {
		ens.Original[i] = make([]float64, n)
		for j := range ens.Original[i] {
			ens.Original[i][j] = 1 / (1 + math.Abs(float64(i-j)))
		}
	}
	return ens
}

func TestContactMatrix(t *testing.T) {
	ens := lineEnsemble(4)
	m, err := ens.ContactMatrix(2.5)
	if err != nil {
		t.Fatal(err)
	}
	// distance 1: both models (1 and 2), distance 2: first model only (2, 4)
	if m[0][1] != 1 || m[0][2] != 0.5 || m[0][3] != 0 || m[3][1] != 0.5 || m[2][2] != 1 {
		t.Error("ContactMatrix failed", m)
	}
	ms, err := ens.ContactMatrices([]int{1, 3, 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 || ms[3][0][1] != 1 || ms[1][0][1] != 0 {
		t.Error("ContactMatrices failed")
	}
}

func TestCorrelate(t *testing.T) {
	ens := lineEnsemble(6)
	for _, method := range []string{Spearman, Pearson} {
		corr, err := ens.Correlate(4.5, method, 1, nil)
		if err != nil {
			t.Fatal(err)
		}
		if corr <= 0.5 || corr > 1 {
			t.Error("Correlate failed for", method, corr)
		}
	}
	if _, err := ens.Correlate(4.5, "kendall", 1, nil); err == nil {
		t.Error("Correlate accepted an unknown method")
	}
	if _, err := ens.Correlate(4.5, Spearman, 5, nil); !errors.Is(err, ErrTooFewPairs) {
		t.Error("Correlate did not report too few pairs", err)
	}
	ens.Zeros = []bool{false, true, true, true, true, false}
	if _, err := ens.Correlate(4.5, Pearson, 1, nil); !errors.Is(err, ErrTooFewPairs) {
		t.Error("Correlate did not skip empty bins", err)
	}
}

func TestEnsembleShape(t *testing.T) {
	ens := lineEnsemble(6)
	ens.Models[1].Particles = ens.Models[1].Particles[:2]
	if _, err := ens.ContactMatrix(2.5); !errors.Is(err, ErrShape) {
		t.Error("ContactMatrix accepted a model with too few particles", err)
	}
	if _, err := ens.Correlate(4.5, Spearman, 1, nil); !errors.Is(err, ErrShape) {
		t.Error("Correlate accepted a model with too few particles", err)
	}
	ens = lineEnsemble(6)
	ens.Original[3] = ens.Original[3][:4]
	if _, err := ens.Correlate(4.5, Spearman, 1, nil); !errors.Is(err, ErrShape) {
		t.Error("Correlate accepted a short row of original data", err)
	}
}

func TestRanks(t *testing.T) {
	r := ranks([]float64{10, 30, 20, 20})
	expected := []float64{1, 4, 2.5, 2.5}
	for i := range r {
		if r[i] != expected[i] {
			t.Fatal("ranks failed", r)
		}
	}
}

func TestCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.gz")
	ens := lineEnsemble(3)
	ens.Config = map[string]float64{"scale": 0.01, "kforce": 5}
	c := Collection{{Scale: "0.01", Kbending: "0", Maxdist: "400", Lowfreq: "-1", Upfreq: "1", Dcutoff: "2", Ensemble: ens.Reduce()}}
	if err := SaveCollection(path, c); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadCollection(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].Maxdist != "400" || loaded[0].Ensemble.NLoci != 3 ||
		loaded[0].Ensemble.Config["scale"] != 0.01 || len(loaded[0].Ensemble.Models) != 2 {
		t.Error("LoadCollection failed", loaded)
	}
}

func TestCommandGenerator(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no shell available")
	}
	dir := t.TempDir()
	fixture := filepath.Join(dir, "fixture.ens")
	if err := WriteEnsemble(fixture, lineEnsemble(3)); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "generate.sh")
	copied := filepath.Join(dir, "request.json")
	if err := os.WriteFile(script, []byte("cp \"$3\" \""+copied+"\" && cp \"$1\" \"$5\"\n"), 0666); err != nil {
		t.Fatal(err)
	}
	g := &CommandGenerator{Command: sh, Args: []string{script, fixture}, TempDir: dir}
	req := &Request{NLoci: 3, Config: map[string]float64{"kforce": 5}, Zeros: []bool{false, true, false}}
	ens, err := g.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if ens.NLoci != 3 || ens.Config["kforce"] != 5 || len(ens.Zeros) != 3 {
		t.Error("Generate failed", ens)
	}
	data, err := os.ReadFile(copied)
	if err != nil {
		t.Fatal(err)
	}
	var sent struct {
		NLoci int    `json:"nloci"`
		Zeros []bool `json:"zeros"`
	}
	if err := json.Unmarshal(data, &sent); err != nil {
		t.Fatal(err)
	}
	if sent.NLoci != 3 || fmt.Sprint(sent.Zeros) != "[true false true]" {
		t.Error("request does not mark the bins with data", string(data))
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 3 {
		t.Error("Generate left temporary files behind")
	}
}
