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

// Package trace records jobs and their results in the trace database
// of a working directory, and describes its contents.
package trace

import (
	"fmt"
	"strconv"
	"strings"
)

// Tables lists the tables of a trace database. A table is also
// referred to by its 1-based position in this list.
var Tables = []string{
	"paths",
	"jobs",
	"mapped_outputs",
	"mapped_inputs",
	"parsed_outputs",
	"intersection_outputs",
	"filter_outputs",
	"normalize_outputs",
	"merge_stats",
	"merge_outputs",
	"segment_outputs",
	"models",
	"modeled_regions",
}

func tableIndex(name string) int {
	for i, table := range Tables {
		if table == name {
			return i
		}
	}
	return -1
}

// ResolveTables returns the table names referred to by the given
// arguments: table names, indexes into Tables, or prefixes of table
// names. Tables matched by a prefix come after all other tables.
// Without arguments, all tables are returned.
func ResolveTables(args []string) ([]string, error) {
	if len(args) == 0 {
		return append([]string(nil), Tables...), nil
	}
	var tables, recovered []string
	for _, arg := range args {
		arg = strings.ToLower(strings.TrimSpace(arg))
		if i := tableIndex(arg); i >= 0 {
			tables = append(tables, arg)
			continue
		}
		if i, err := strconv.Atoi(arg); err == nil && i >= 1 && i <= len(Tables) {
			tables = append(tables, Tables[i-1])
			continue
		}
		found := false
		if arg != "" {
			for _, table := range Tables {
				if strings.HasPrefix(table, arg) {
					recovered = append(recovered, table)
					found = true
				}
			}
		}
		if !found {
			return nil, fmt.Errorf("invalid table %q (choose from %v)", arg, strings.Join(Tables, ", "))
		}
	}
	return append(tables, recovered...), nil
}
