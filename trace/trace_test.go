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

package trace

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/3dgenomes/hicprep/internal"
)

func TestResolveTables(t *testing.T) {
	tables, err := ResolveTables([]string{"2", "Models", "map"})
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{"jobs", "models", "mapped_outputs", "mapped_inputs"}
	if !reflect.DeepEqual(tables, expected) {
		t.Error("ResolveTables failed", tables)
	}
	if tables, _ := ResolveTables(nil); len(tables) != 13 || tables[12] != "modeled_regions" {
		t.Error("ResolveTables without arguments failed", tables)
	}
	for _, arg := range []string{"14", "0", "foo", ""} {
		if _, err := ResolveTables([]string{arg}); err == nil {
			t.Errorf("ResolveTables accepted %q", arg)
		}
	}
}

func testDB(t *testing.T) (*DB, string) {
	workdir := filepath.Join(t.TempDir(), "work")
	db, err := Open(workdir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, workdir
}

func TestRecord(t *testing.T) {
	db, workdir := testDB(t)
	job, err := db.RecordJob("map", "--index idx")
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(workdir, "reads.sam")
	if err = db.RecordMappedInput(job, filepath.Join(workdir, "reads.fastq"), 100, "1:50", 1); err != nil {
		t.Fatal(err)
	}
	if err = db.RecordMappedOutput(job, out, "1:50", 42); err != nil {
		t.Fatal(err)
	}
	id1, err := db.RecordPath(job, out, "SAM")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := db.RecordPath(job, out, "SAM")
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Error("RecordPath duplicated a path", id1, id2)
	}
	if err = db.RecordModels(job, filepath.Join(workdir, "result.txt"), [6]string{"0.01", "0", "400", "-0.5", "0.5", "2"}, 0.75); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err = db.Describe(&buf, []string{"jobs", "mapped_outputs", "models"}, false); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	if !strings.Contains(s, "JOBS") || !strings.Contains(s, db.RunID) || !strings.Contains(s, "Uniquely_mapped") ||
		!strings.Contains(s, "42") || !strings.Contains(s, "0.75") || strings.Contains(s, "MAPPED_INPUTS") {
		t.Error("Describe failed", s)
	}

	buf.Reset()
	if err = db.Describe(&buf, []string{"jobs", "mapped_outputs", "mapped_inputs"}, true); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	expected := []string{
		"# MAPPED_INPUTS",
		"Entries\tTrim\tRead",
		"100\t1:50\t1",
		"# MAPPED_OUTPUTS",
		"PATHid\tWindow\tUniquely_mapped",
		"2\t1:50\t42",
	}
	if !reflect.DeepEqual(lines, expected) {
		t.Errorf("Describe as TSV gives %q", lines)
	}
}

func TestCopyToTemp(t *testing.T) {
	db, workdir := testDB(t)
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	tmp, restore, err := CopyToTemp(workdir, dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(tmp) != dir || !strings.HasPrefix(filepath.Base(tmp), "trace_") || !internal.Exists(tmp) {
		t.Fatal("CopyToTemp failed", tmp)
	}
	copied, err := OpenFile(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = copied.RecordJob("describe", ""); err != nil {
		t.Fatal(err)
	}
	if err = copied.Close(); err != nil {
		t.Fatal(err)
	}
	if err = restore(); err != nil {
		t.Fatal(err)
	}
	if internal.Exists(tmp) {
		t.Error("temporary database not removed")
	}
	reopened, err := Open(workdir)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	var buf bytes.Buffer
	if err = reopened.Describe(&buf, []string{"jobs"}, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "describe") {
		t.Error("changes to the temporary database not copied back", buf.String())
	}
}
