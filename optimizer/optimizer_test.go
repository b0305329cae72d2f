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
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/3dgenomes/hicprep/hic"
	"github.com/3dgenomes/hicprep/models"
)

func TestRound(t *testing.T) {
	tests := []struct {
		x        float64
		digits   int
		expected string
	}{
		{2.000, 4, "2"},
		{2.0001, 4, "2.0001"},
		{1.23456, 4, "1.2346"},
		{0.00004, 4, "0"},
		{-0.00004, 4, "0"},
		{-0.7000000000000001, 4, "-0.7"},
		{1500, 4, "1500"},
		{0.010000, 5, "0.01"},
		{-2.5, 0, "-3"},
	}
	for _, test := range tests {
		s := Round(test.x, test.digits)
		if s != test.expected {
			t.Errorf("Round(%v, %v) = %v, expected %v", test.x, test.digits, s, test.expected)
		}
		again, err := RoundString(s, test.digits)
		if err != nil {
			t.Fatal(err)
		}
		if again != s {
			t.Errorf("Round is not idempotent for %v: %v, then %v", test.x, s, again)
		}
	}
	if _, err := RoundString("abc", Digits); err == nil {
		t.Error("RoundString accepted a non-number")
	}
}

func TestParseAxis(t *testing.T) {
	axis, err := ParseAxis("400:1500:100")
	if err != nil {
		t.Fatal(err)
	}
	values, err := axis.Canonical()
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 12 || values[0] != "400" || values[11] != "1500" {
		t.Error("range expansion failed", values)
	}
	values, err = Range(-1, 0, 0.1).Canonical()
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 11 || values[3] != "-0.7" || values[10] != "0" {
		t.Error("fractional range expansion failed", values)
	}
	for s, expected := range map[string][]string{
		"0.01":     {"0.01"},
		"1,2,3":    {"1", "2", "3"},
		"2, 2, 1":  {"2", "1"},
		"0:0.2:.1": {"0", "0.1", "0.2"},
	} {
		axis, err := ParseAxis(s)
		if err != nil {
			t.Fatal(err)
		}
		values, err := axis.Canonical()
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(values, expected) {
			t.Errorf("ParseAxis(%q) gives %v, expected %v", s, values, expected)
		}
	}
	for _, s := range []string{"", "1:2", "a,b", "1:0:1", "0:1:0"} {
		axis, err := ParseAxis(s)
		if err == nil {
			_, err = axis.Canonical()
		}
		if err == nil {
			t.Errorf("ParseAxis(%q) succeeded", s)
		}
	}
}

func TestRangeSet(t *testing.T) {
	set := NewRangeSet("10", "2", "-1", "2")
	if !reflect.DeepEqual(set.Values(), []string{"-1", "2", "10"}) {
		t.Error("NewRangeSet failed", set.Values())
	}
	if set.Insert("2") || !set.Insert("3") || set.Index("3") != 2 || set.Index("4") != -1 {
		t.Error("Insert failed", set.Values())
	}
	if added := set.Merge("3", "0.5", "100"); added != 2 || set.Len() != 6 || !set.Contains("0.5") {
		t.Error("Merge failed", set.Values())
	}
	if f := set.Floats(); f[0] != -1 || f[5] != 100 {
		t.Error("Floats failed", f)
	}
}

func testExperiment(t *testing.T) *Experiment {
	const n = 6
	m := make(hic.Matrix, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			m[i][j] = 10 / (1 + math.Abs(float64(i-j)))
		}
	}
	exp, err := NewExperiment(m, 100, 1, n)
	if err != nil {
		t.Fatal(err)
	}
	return exp
}

// lineGenerator generates two models of particles on a line, spaced
// one and two units apart, and counts its calls.
type lineGenerator struct {
	calls int32
	fail  bool
}

func (g *lineGenerator) Generate(_ context.Context, req *models.Request) (*models.Ensemble, error) {
	atomic.AddInt32(&g.calls, 1)
	if g.fail {
		return nil, errors.New("generation failed")
	}
	ens := &models.Ensemble{NLoci: req.NLoci, Resolution: req.Resolution, Config: req.Config}
	for _, spacing := range []float64{1, 2} {
		var model models.Model
		for i := 0; i < req.NLoci; i++ {
			model.Particles = append(model.Particles, models.Point{X: float64(i) * spacing})
		}
		ens.Models = append(ens.Models, model)
	}
	return ens, nil
}

func testGridSearch(g models.Generator) GridSearch {
	gs := DefaultGridSearch()
	gs.Maxdist = List(400, 500)
	gs.Lowfreq = Value(0)
	gs.Upfreq = Value(1)
	gs.Dcutoff = List(2, 3)
	gs.Generator = g
	return gs
}

func TestGridSearchMemoization(t *testing.T) {
	g := &lineGenerator{}
	opt := New(testExperiment(t), DefaultOptions())
	gs := testGridSearch(g)
	if err := opt.RunGridSearch(context.Background(), gs); err != nil {
		t.Fatal(err)
	}
	if g.calls != 2 || len(opt.Results) != 2 {
		t.Fatal("first grid search failed", g.calls, opt.Results)
	}
	for k, score := range opt.Results {
		if score <= 0 || (k.Dcutoff != "2" && k.Dcutoff != "3") {
			t.Error("unexpected result", k, score)
		}
	}
	gs.Maxdist = List(400, 500, 600)
	if err := opt.RunGridSearch(context.Background(), gs); err != nil {
		t.Fatal(err)
	}
	if g.calls != 3 || len(opt.Results) != 3 {
		t.Error("grid search did not skip computed combinations", g.calls, len(opt.Results))
	}
	if opt.MaxdistRange.Len() != 3 || opt.DcutoffRange.Len() != 2 || opt.ScaleRange.Values()[0] != "0.01" {
		t.Error("ranges not merged", opt.MaxdistRange.Values(), opt.DcutoffRange.Values())
	}
	loaded := New(testExperiment(t), DefaultOptions())
	for k, score := range opt.Results {
		loaded.Results[k] = score
	}
	g = &lineGenerator{}
	if err := loaded.RunGridSearch(context.Background(), gs); err != nil {
		t.Fatal(err)
	}
	if g.calls != 0 || len(loaded.Results) != 3 {
		t.Error("grid search did not skip results set directly", g.calls, len(loaded.Results))
	}
	delete(loaded.Results, loaded.Results.Keys()[0])
	if err := loaded.RunGridSearch(context.Background(), gs); err != nil {
		t.Fatal(err)
	}
	if g.calls != 1 || len(loaded.Results) != 3 {
		t.Error("grid search did not recompute a removed combination", g.calls, len(loaded.Results))
	}
}

func TestGridSearchFailure(t *testing.T) {
	opt := New(testExperiment(t), DefaultOptions())
	gs := testGridSearch(&lineGenerator{fail: true})
	if err := opt.RunGridSearch(context.Background(), gs); err != nil {
		t.Fatal(err)
	}
	if len(opt.Results) != 2 {
		t.Fatal("failed combinations not recorded", opt.Results)
	}
	for k, score := range opt.Results {
		if score != 0 || k.Dcutoff != "2" {
			t.Error("failure not recorded at the first cutoff with score 0", k, score)
		}
	}
}

// shortGenerator returns models with fewer particles than loci, or
// panics.
type shortGenerator struct {
	panics bool
}

func (g shortGenerator) Generate(_ context.Context, req *models.Request) (*models.Ensemble, error) {
	if g.panics {
		panic("generator crashed")
	}
	ens := &models.Ensemble{NLoci: req.NLoci, Resolution: req.Resolution, Config: req.Config}
	ens.Models = []models.Model{{Particles: []models.Point{{X: 0}, {X: 1}}}}
	return ens, nil
}

func TestGridSearchMalformedEnsemble(t *testing.T) {
	for _, g := range []shortGenerator{{}, {panics: true}} {
		opt := New(testExperiment(t), DefaultOptions())
		gs := testGridSearch(g)
		gs.SaveModels = filepath.Join(t.TempDir(), "models.gz")
		if err := opt.RunGridSearch(context.Background(), gs); err != nil {
			t.Fatal(err)
		}
		if len(opt.Results) != 2 {
			t.Fatal("malformed ensembles not recorded", g, opt.Results)
		}
		for k, score := range opt.Results {
			if score != 0 || k.Dcutoff != "2" {
				t.Error("malformed ensemble not recorded at the first cutoff with score 0", g, k, score)
			}
		}
		c, err := models.LoadCollection(gs.SaveModels)
		if err != nil {
			t.Fatal(err)
		}
		if len(c) != 0 {
			t.Error("malformed ensembles were saved", len(c))
		}
	}
}

func TestGridSearchErrors(t *testing.T) {
	opt := New(nil, DefaultOptions())
	if err := opt.RunGridSearch(context.Background(), testGridSearch(&lineGenerator{})); !errors.Is(err, ErrNoExperiment) {
		t.Error("grid search without experiment", err)
	}
	opt = New(testExperiment(t), DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := &lineGenerator{}
	if err := opt.RunGridSearch(ctx, testGridSearch(g)); !errors.Is(err, context.Canceled) || g.calls != 0 {
		t.Error("grid search not cancelled", err, g.calls)
	}
}

func TestSaveModels(t *testing.T) {
	opt := New(testExperiment(t), DefaultOptions())
	gs := testGridSearch(&lineGenerator{})
	gs.SaveModels = filepath.Join(t.TempDir(), "models.gz")
	if err := opt.RunGridSearch(context.Background(), gs); err != nil {
		t.Fatal(err)
	}
	c, err := models.LoadCollection(gs.SaveModels)
	if err != nil {
		t.Fatal(err)
	}
	if len(c) != 2 || c[0].Ensemble == nil || c[0].Ensemble.Zscores != nil || c[0].Ensemble.Original == nil {
		t.Fatal("saved collection is incomplete", c)
	}
	rescored := New(nil, DefaultOptions())
	if err := rescored.LoadGridSearch(context.Background(), []string{gs.SaveModels}, Rescoring{Corr: models.Spearman, OffDiag: 1, Workers: 2}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rescored.Results, opt.Results) {
		t.Error("re-scoring does not reproduce the grid search", rescored.Results, opt.Results)
	}
}

func testResults() *Optimizer {
	opt := New(nil, DefaultOptions())
	p1 := Prefix{"0.01", "0", "400", "-0.5", "0.5"}
	p2 := Prefix{"0.01", "0", "500", "-0.5", "0.5"}
	p3 := Prefix{"0.02", "0", "400", "-0.5", "0.5"}
	opt.store(Key{p1, "2"}, 0.5)
	opt.store(Key{p2, "3"}, 0.8)
	opt.store(Key{p3, "2"}, 0.8)
	return opt
}

func TestWriteLoad(t *testing.T) {
	opt := testResults()
	path := filepath.Join(t.TempDir(), "result.txt")
	if err := opt.WriteResult(path); err != nil {
		t.Fatal(err)
	}
	loaded := New(nil, DefaultOptions())
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.Results, opt.Results) {
		t.Error("round trip failed", loaded.Results, opt.Results)
	}
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.Results, opt.Results) || loaded.MaxdistRange.Len() != 2 {
		t.Error("loading twice changed the results", loaded.Results)
	}
	other := New(nil, Options{NModels: 50, NKeep: 10, CloseBins: 1})
	if err := other.LoadFromFile(path); !errors.Is(err, ErrIncompatible) || len(other.Results) != 0 {
		t.Error("incompatible report accepted", err, other.Results)
	}
}

func TestWriteBestCutoff(t *testing.T) {
	opt := New(nil, DefaultOptions())
	p := Prefix{"0.01", "0", "400", "-0.5", "0.5"}
	opt.store(Key{p, "3"}, 0.7)
	opt.store(Key{p, "2"}, 0.4)
	opt.store(Key{p, "4"}, 0.7)
	path := filepath.Join(t.TempDir(), "result.txt")
	if err := opt.WriteResult(path); err != nil {
		t.Fatal(err)
	}
	loaded := New(nil, DefaultOptions())
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatal(err)
	}
	if len(loaded.Results) != 1 || loaded.Results[Key{p, "3"}] != 0.7 {
		t.Error("report does not hold the lowest best cutoff", loaded.Results)
	}
}

func TestLoadLegacy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.txt")
	report := "## n_models: 500 n_keep: 100 close_bins: 1\n" +
		"# scale\tmax_dist\tup_freq\tlow_freq\tdcutoff\tcorrelation\n" +
		"  0.010000\t400.0\t0.5\t-0.5\t2.0\t0.75\n"
	if err := os.WriteFile(path, []byte(report), 0666); err != nil {
		t.Fatal(err)
	}
	opt := New(nil, DefaultOptions())
	if err := opt.LoadFromFile(path); err != nil {
		t.Fatal(err)
	}
	k := Key{Prefix{"0.01", "0", "400", "-0.5", "0.5"}, "2"}
	if score, ok := opt.Results[k]; !ok || score != 0.75 {
		t.Error("legacy report not loaded", opt.Results)
	}
	if err := os.WriteFile(path, []byte("  0.01\t0\t400\n"), 0666); err != nil {
		t.Fatal(err)
	}
	if err := opt.LoadFromFile(path); !errors.Is(err, ErrMalformedReport) {
		t.Error("malformed report accepted", err)
	}
}

func TestBestParameters(t *testing.T) {
	config, score := New(nil, DefaultOptions()).BestParameters("ref")
	if score != 0 || !math.IsNaN(config.Scale) || !math.IsNaN(config.Dcutoff) || config.Kforce != 5 {
		t.Error("empty results", config, score)
	}
	config, score = testResults().BestParameters("ref")
	if score != 0.8 || config.Scale != 0.01 || config.Maxdist != 500 || config.Dcutoff != 3 ||
		config.Lowfreq != -0.5 || config.Reference != "ref" {
		t.Error("BestParameters failed", config, score)
	}
}

func TestResultArray(t *testing.T) {
	opt := testResults()
	opt.store(Key{Prefix{"0.01", "0", "500", "-0.5", "0.5"}, "2"}, 0.1)
	a := opt.ResultArray()
	if a.Shape != [5]int{2, 1, 2, 1, 1} || len(a.Data) != 4 {
		t.Fatal("wrong shape", a.Shape)
	}
	if a.At([5]int{0, 0, 0, 0, 0}) != 0.5 || a.At([5]int{0, 0, 1, 0, 0}) != 0.1 ||
		a.At([5]int{1, 0, 0, 0, 0}) != 0.8 || !math.IsNaN(a.At([5]int{1, 0, 1, 0, 0})) {
		t.Error("ResultArray failed", a.Data)
	}
}

func TestLoadGridSearchFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.gz")
	c := models.Collection{
		{Scale: "0.01", Kbending: "0", Maxdist: "400", Lowfreq: "0", Upfreq: "1", Dcutoff: "2"},
		{Scale: "0.01", Kbending: "0", Maxdist: "500", Lowfreq: "0", Upfreq: "1", Dcutoff: "2",
			Ensemble: &models.Ensemble{NLoci: 2, Resolution: 100, Original: [][]float64{{1, 1}, {1, 1}}}},
	}
	if err := models.SaveCollection(path, c); err != nil {
		t.Fatal(err)
	}
	opt := New(nil, DefaultOptions())
	if err := opt.LoadGridSearch(context.Background(), []string{path}, Rescoring{Corr: models.Pearson, OffDiag: 1, Workers: 2}); err != nil {
		t.Fatal(err)
	}
	if len(opt.Results) != 2 {
		t.Fatal("failed entries not recorded", opt.Results)
	}
	for k, score := range opt.Results {
		if !math.IsNaN(score) {
			t.Error("failure not recorded as NaN", k, score)
		}
	}
	if err := opt.LoadGridSearch(context.Background(), []string{path + ".missing"}, Rescoring{Corr: models.Pearson}); err == nil {
		t.Error("missing collection accepted")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optimize.toml")
	data := "maxdist = \"400:600:100\"\nupfreq = \"0.5,1\"\ncorr = \"pearson\"\nn_models = 50\nuse_HiC = false\n"
	if err := os.WriteFile(path, []byte(data), 0666); err != nil {
		t.Fatal(err)
	}
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	opts, gs := DefaultOptions(), DefaultGridSearch()
	config.Apply(&opts, &gs)
	maxdist, _ := gs.Maxdist.Canonical()
	upfreq, _ := gs.Upfreq.Canonical()
	if len(maxdist) != 3 || len(upfreq) != 2 || gs.Corr != models.Pearson || opts.NModels != 50 ||
		opts.NKeep != 100 || gs.UseHiC || !gs.UseExcludedVolume || gs.Scale.String() != "0.01" {
		t.Error("LoadConfig failed", maxdist, upfreq, gs, opts)
	}
	if err := os.WriteFile(path, []byte("corr = \"kendall\"\n"), 0666); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig accepted an unknown correlation method")
	}
}
