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

package mapping

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/3dgenomes/hicprep/fastq"
)

const rawLength = 75

func TestTrimming(t *testing.T) {
	tests := []struct{ raw, start, length, trim5, trim3 int }{
		{75, 0, 25, 0, 50},
		{75, 0, 75, 0, 0},
		{100, 10, 40, 10, 50},
	}
	for _, test := range tests {
		trim5, trim3, err := Trimming(test.raw, test.start, test.length)
		if err != nil {
			t.Fatal(err)
		}
		if trim5 != test.trim5 || trim3 != test.trim3 {
			t.Error("Trimming failed", test, trim5, trim3)
		}
	}
	if _, _, err := Trimming(50, 10, 45); err == nil {
		t.Error("Trimming accepted a window beyond the read")
	}
}

func TestWindows(t *testing.T) {
	ws := NewWindows([]int{0, 0, 0}, []int{25, 50})
	if ws.Len() != 2 {
		t.Error("Windows.Len failed")
	}
	var popped []Window
	for {
		w, ok := ws.Pop()
		if !ok {
			break
		}
		popped = append(popped, w)
	}
	if len(popped) != 2 || popped[1] != (Window{0, 50}) || popped[1].Len() != 50 {
		t.Error("Windows.Pop failed", popped)
	}
}

// fakeAligner maps read i uniquely in round i%3. Before that, the read
// is unmapped, multi-mapped, ambiguous, or absent from the output.
type fakeAligner struct {
	inputs  [][]string
	files   []string
	skip    map[int]bool
	nrReads int
}

func readIndex(id string) (i int) {
	fmt.Sscanf(id, "read%d", &i)
	return i
}

func (f *fakeAligner) Align(_ context.Context, req AlignRequest) error {
	round := (rawLength-req.Trim5-req.Trim3)/25 - 1
	var ids []string
	if err := fastq.Each(req.Input, func(rec *fastq.Record) error {
		ids = append(ids, rec.ID())
		return nil
	}); err != nil {
		return err
	}
	f.inputs = append(f.inputs, ids)
	f.files = append(f.files, req.Input)
	if f.skip[round] {
		return nil
	}
	file, err := os.Create(req.Output)
	if err != nil {
		return err
	}
	out := bufio.NewWriter(file)
	fmt.Fprintf(out, "@HD\tVN:1.5\n@SQ\tSN:chr1\tLN:100000\n")
	for _, id := range ids {
		i := readIndex(id)
		seq := strings.Repeat("A", rawLength-req.Trim5-req.Trim3)
		switch {
		case i%3 == round:
			fmt.Fprintf(out, "%v/1\t0\tchr1\t%v\t255\t*\t*\t0\t0\t%v\t*\tNH:i:1\n", id, 100+i, seq)
		case i%3 == 2 && i%2 == 0:
			fmt.Fprintf(out, "%v/1\t4\t*\t0\t0\t*\t*\t0\t0\t%v\t*\n", id, seq)
		case i%3 == 2:
			fmt.Fprintf(out, "%v/1\t16\tchr1\t%v\t255\t*\t*\t0\t0\t%v\t*\tNH:i:3\n", id, 100+i, seq)
		case i%2 == 0:
			// no alignment at all
		default:
			fmt.Fprintf(out, "%v/1\t0\tchr1\t%v\t255\t*\t*\t0\t0\t%v\t*\tXS:i:10\n", id, 100+i, seq)
		}
	}
	if err := out.Flush(); err != nil {
		return err
	}
	return file.Close()
}

func writeReads(t *testing.T, path string, n int) {
	t.Helper()
	w, err := fastq.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		rec := fastq.Record{
			Header:   fmt.Sprintf("@read%v/1 length=%v", i, rawLength),
			Sequence: strings.Repeat("A", rawLength),
			Plus:     "+",
			Quality:  strings.Repeat("I", rawLength),
		}
		if err := w.WriteRecord(&rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func testOptions(t *testing.T, n int, aligner Aligner) Options {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Fastq = filepath.Join(dir, "reads.fastq")
	opts.Output = filepath.Join(dir, "out", "reads.sam")
	opts.Index = "genome.gem"
	opts.RangeStart = []int{0, 0, 0}
	opts.RangeStop = []int{25, 50, 75}
	opts.TempDir = filepath.Join(dir, "tmp")
	opts.Aligner = aligner
	for _, d := range []string{filepath.Dir(opts.Output), opts.TempDir} {
		if err := os.MkdirAll(d, 0777); err != nil {
			t.Fatal(err)
		}
	}
	writeReads(t, opts.Fastq, n)
	return opts
}

func sortedIndexes(ids []string) []int {
	result := make([]int, 0, len(ids))
	for _, id := range ids {
		result = append(result, readIndex(id))
	}
	sort.Ints(result)
	return result
}

func assertEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Error("temporary files left behind in", dir, len(entries))
	}
}

func TestRun(t *testing.T) {
	const n = 30
	aligner := &fakeAligner{}
	opts := testOptions(t, n, aligner)
	result, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Outputs) != 3 {
		t.Fatal("Run produced", len(result.Outputs), "outputs")
	}
	for i, length := range []int{25, 50, 75} {
		if result.Outputs[i] != fmt.Sprintf("%v.%v", opts.Output, length) {
			t.Error("Run output naming failed", result.Outputs[i])
		}
	}
	if len(aligner.inputs) != 3 {
		t.Fatal("Run called the aligner", len(aligner.inputs), "times")
	}
	for round, ids := range aligner.inputs {
		indexes := sortedIndexes(ids)
		var expected []int
		for i := 0; i < n; i++ {
			if i%3 >= round {
				expected = append(expected, i)
			}
		}
		if fmt.Sprint(indexes) != fmt.Sprint(expected) {
			t.Errorf("round %v input failed: got %v, expected %v", round, indexes, expected)
		}
	}
	expected := []struct{ input, retained uint }{{30, 20}, {20, 10}, {10, 0}}
	for i, round := range result.Rounds {
		if round.Input != expected[i].input || round.Retained != expected[i].retained {
			t.Error("round", i, "counts failed", round.Input, round.Retained)
		}
	}
	if r := result.Rounds[0]; r.Trim5 != 0 || r.Trim3 != 50 {
		t.Error("round 0 trimming failed", r.Trim5, r.Trim3)
	}
	if result.Rounds[0].Fastq != opts.Fastq {
		t.Error("round 0 input failed", result.Rounds[0].Fastq)
	}
	if r := result.Rounds[2]; r.Fastq != filepath.Join(opts.TempDir, filepath.Base(opts.Fastq)+".50") || r.Fastq != aligner.files[2] {
		t.Error("round 2 input failed", r.Fastq)
	}
	assertEmpty(t, opts.TempDir)

	reads, counts, err := ParseMappedReads(append(result.Outputs, opts.Output+".100"))
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(counts) != "[10 10 10 0]" {
		t.Error("ParseMappedReads counts failed", counts)
	}
	if len(reads) != n {
		t.Error("ParseMappedReads failed", len(reads))
	}
	if r, ok := reads["read4"]; !ok || r.Pos != 104 || !r.Positive || len(r.Seq) != 50 {
		t.Error("ParseMappedReads record failed", r)
	}
	var out strings.Builder
	if err := reads.Write(&out); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "read0\t") {
		t.Error("MappedReads.Write failed")
	}
}

func TestRunMissingOutput(t *testing.T) {
	const n = 12
	aligner := &fakeAligner{skip: map[int]bool{0: true}}
	opts := testOptions(t, n, aligner)
	result, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Outputs) != 2 {
		t.Error("Run produced", len(result.Outputs), "outputs, expected 2")
	}
	if !result.Rounds[0].Missing || result.Rounds[0].Retained != n {
		t.Error("Run lost reads after a missing output", result.Rounds[0])
	}
	if len(aligner.inputs[1]) != n {
		t.Error("second round input failed", len(aligner.inputs[1]))
	}
}

func TestRunChunked(t *testing.T) {
	const n = 25
	aligner := &fakeAligner{}
	opts := testOptions(t, n, aligner)
	opts.MaxReadsPerChunk = 10
	result, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Outputs) != 9 {
		t.Fatal("chunked Run produced", len(result.Outputs), "outputs")
	}
	if result.Outputs[3] != opts.Output+".2.25" {
		t.Error("chunked output naming failed", result.Outputs[3])
	}
	if len(aligner.inputs) != 9 || len(aligner.inputs[0]) != 10 || len(aligner.inputs[6]) != 5 {
		t.Error("chunked aligner inputs failed")
	}
	assertEmpty(t, opts.TempDir)
}

func TestRunCancelled(t *testing.T) {
	opts := testOptions(t, 3, &fakeAligner{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, opts); err != context.Canceled {
		t.Error("Run ignored cancellation", err)
	}
}

func TestGemCommands(t *testing.T) {
	gem := NewGemAligner()
	cmds := gem.Commands(context.Background(), AlignRequest{
		Index:           "genome.gem",
		Output:          "out.sam.25",
		Trim5:           0,
		Trim3:           50,
		Threads:         8,
		MaxEditDistance: 0.04,
		Mismatches:      0.04,
	})
	if len(cmds) != 3 {
		t.Fatal("Commands failed")
	}
	if got := strings.Join(cmds[0].Args[1:], " "); got != "--hard-trim 0,50 -t 8 --paired-end" {
		t.Error("filter arguments failed:", got)
	}
	if got := strings.Join(cmds[1].Args[1:], " "); !strings.Contains(got, "-e 0.04 -m 0.04 -T 8") {
		t.Error("mapper arguments failed:", got)
	}
	if got := strings.Join(cmds[2].Args[1:], " "); got != "-I genome.gem -o out.sam.25 -T 8 --expect-paired-end-reads" {
		t.Error("converter arguments failed:", got)
	}
}
