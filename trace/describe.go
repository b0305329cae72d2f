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
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// omitted returns the columns left out of tab-separated output.
func omitted(table, column string) bool {
	switch column {
	case "JOBid", "Id", "Input":
		return true
	case "PATHid":
		return table != "mapped_outputs"
	}
	return false
}

func formatValue(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "None"
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Describe writes the contents of all existing tables that are in the
// given list. With tsv set, the jobs and paths tables and the id
// columns are skipped, and values are tab separated.
func (t *DB) Describe(w io.Writer, tables []string, tsv bool) error {
	wanted := make(map[string]bool, len(tables))
	for _, table := range tables {
		wanted[strings.ToLower(table)] = true
	}
	rows, err := t.db.Query("SELECT name FROM sqlite_master WHERE type='table' ORDER BY rowid")
	if err != nil {
		return err
	}
	var existing []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			_ = rows.Close()
			return err
		}
		existing = append(existing, name)
	}
	if err = rows.Close(); err != nil {
		return err
	}
	out := bufio.NewWriter(w)
	for _, name := range existing {
		lower := strings.ToLower(name)
		if !wanted[lower] || (tsv && (lower == "jobs" || lower == "paths")) {
			continue
		}
		if err = t.describeTable(out, name, tsv); err != nil {
			return fmt.Errorf("%v, while describing table %v", err, name)
		}
	}
	return out.Flush()
}

func (t *DB) describeTable(w io.Writer, table string, tsv bool) (err error) {
	rows, err := t.db.Query("SELECT * FROM " + table)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := rows.Close(); err == nil {
			err = nerr
		}
	}()
	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	var keep []int
	for i, c := range columns {
		if !tsv || !omitted(strings.ToLower(table), c) {
			keep = append(keep, i)
		}
	}
	var tw *tabwriter.Writer
	if tsv {
		fmt.Fprintf(w, "# %v\n", strings.ToUpper(table))
	} else {
		fmt.Fprintf(w, "\n%v\n", strings.ToUpper(table))
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.Debug)
		w = tw
	}
	fields := make([]string, len(keep))
	for i, c := range keep {
		fields[i] = columns[c]
	}
	fmt.Fprintln(w, strings.Join(fields, "\t"))
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	for rows.Next() {
		if err = rows.Scan(pointers...); err != nil {
			return err
		}
		for i, c := range keep {
			fields[i] = formatValue(values[c])
		}
		fmt.Fprintln(w, strings.Join(fields, "\t"))
	}
	if err = rows.Err(); err != nil {
		return err
	}
	if tw != nil {
		return tw.Flush()
	}
	return nil
}
