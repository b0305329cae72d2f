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
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/3dgenomes/hicprep/internal"
)

// FileName is the name of the trace database in a working directory.
const FileName = "trace.db"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS paths(
		Id INTEGER PRIMARY KEY AUTOINCREMENT,
		JOBid INTEGER,
		Path TEXT UNIQUE,
		Type TEXT)`,
	`CREATE TABLE IF NOT EXISTS jobs(
		Id INTEGER PRIMARY KEY AUTOINCREMENT,
		Run_id TEXT,
		Date TEXT,
		Name TEXT,
		Parameters TEXT)`,
	`CREATE TABLE IF NOT EXISTS mapped_inputs(
		Id INTEGER PRIMARY KEY AUTOINCREMENT,
		JOBid INTEGER,
		PATHid INTEGER,
		Entries INTEGER,
		Trim TEXT,
		Read INTEGER)`,
	`CREATE TABLE IF NOT EXISTS mapped_outputs(
		Id INTEGER PRIMARY KEY AUTOINCREMENT,
		JOBid INTEGER,
		PATHid INTEGER,
		Window TEXT,
		Uniquely_mapped INTEGER)`,
	`CREATE TABLE IF NOT EXISTS models(
		Id INTEGER PRIMARY KEY AUTOINCREMENT,
		JOBid INTEGER,
		PATHid INTEGER,
		Scale TEXT,
		Kbending TEXT,
		Maxdist TEXT,
		Lowfreq TEXT,
		Upfreq TEXT,
		Dcutoff TEXT,
		Correlation REAL)`,
}

// A DB is an open trace database. All jobs recorded through one DB
// share its RunID.
type DB struct {
	db    *sql.DB
	RunID string
	Path  string
}

// Open opens the trace database of a working directory, creating the
// directory, the database, and its tables as needed.
func Open(workdir string) (*DB, error) {
	if err := os.MkdirAll(workdir, 0777); err != nil {
		return nil, err
	}
	return OpenFile(filepath.Join(workdir, FileName))
}

// OpenFile opens a trace database by file name.
func OpenFile(name string) (*DB, error) {
	db, err := sql.Open("sqlite", name)
	if err != nil {
		return nil, err
	}
	for _, stmt := range schema {
		if _, err = db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%v, while initializing trace database %v", err, name)
		}
	}
	return &DB{db: db, RunID: uuid.New().String(), Path: name}, nil
}

// Close closes the database.
func (t *DB) Close() error {
	return t.db.Close()
}

// RecordJob records a job and returns its id.
func (t *DB) RecordJob(name, parameters string) (int64, error) {
	result, err := t.db.Exec("INSERT INTO jobs(Run_id, Date, Name, Parameters) VALUES(?,?,?,?)",
		t.RunID, time.Now().Format(time.RFC3339), name, parameters)
	if err != nil {
		return 0, fmt.Errorf("%v, while recording job %v", err, name)
	}
	return result.LastInsertId()
}

// RecordPath records a file created or used by a job and returns its
// id. A path that is already known keeps its id.
func (t *DB) RecordPath(jobID int64, path, kind string) (int64, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if _, err := t.db.Exec("INSERT OR IGNORE INTO paths(JOBid, Path, Type) VALUES(?,?,?)", jobID, path, kind); err != nil {
		return 0, fmt.Errorf("%v, while recording path %v", err, path)
	}
	var id int64
	if err := t.db.QueryRow("SELECT Id FROM paths WHERE Path = ?", path).Scan(&id); err != nil {
		return 0, fmt.Errorf("%v, while recording path %v", err, path)
	}
	return id, nil
}

// RecordMappedInput records the input of one mapping round: the FASTQ
// file its reads are drawn from, the number of reads given to the
// aligner, and the read window.
func (t *DB) RecordMappedInput(jobID int64, path string, entries int, trim string, read int) error {
	pathID, err := t.RecordPath(jobID, path, "FASTQ")
	if err != nil {
		return err
	}
	_, err = t.db.Exec("INSERT INTO mapped_inputs(JOBid, PATHid, Entries, Trim, Read) VALUES(?,?,?,?,?)",
		jobID, pathID, entries, trim, read)
	return err
}

// RecordMappedOutput records the output of one mapping round, with
// the number of uniquely mapped reads.
func (t *DB) RecordMappedOutput(jobID int64, path, window string, uniquelyMapped int) error {
	pathID, err := t.RecordPath(jobID, path, "SAM")
	if err != nil {
		return err
	}
	_, err = t.db.Exec("INSERT INTO mapped_outputs(JOBid, PATHid, Window, Uniquely_mapped) VALUES(?,?,?,?)",
		jobID, pathID, window, uniquelyMapped)
	return err
}

// RecordModels records the score of a parameter combination, given as
// scale, kbending, maxdist, lowfreq, upfreq and dcutoff.
func (t *DB) RecordModels(jobID int64, path string, fields [6]string, correlation float64) error {
	pathID, err := t.RecordPath(jobID, path, "OPTIMIZATION")
	if err != nil {
		return err
	}
	_, err = t.db.Exec(`INSERT INTO models(JOBid, PATHid, Scale, Kbending, Maxdist, Lowfreq, Upfreq, Dcutoff, Correlation)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		jobID, pathID, fields[0], fields[1], fields[2], fields[3], fields[4], fields[5], correlation)
	return err
}

// CopyToTemp copies the trace database of a working directory to a
// uniquely named file in dir. The returned function copies it back and
// removes the temporary file.
func CopyToTemp(workdir, dir string) (string, func() error, error) {
	src := filepath.Join(workdir, FileName)
	tmp := filepath.Join(dir, "trace_"+strings.ReplaceAll(uuid.New().String(), "-", ""))
	if err := internal.CopyFile(tmp, src); err != nil {
		return "", nil, err
	}
	return tmp, func() error {
		if err := internal.CopyFile(src, tmp); err != nil {
			return err
		}
		return os.Remove(tmp)
	}, nil
}
