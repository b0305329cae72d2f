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
	"bufio"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/klauspost/pgzip"
)

// An Entry is the ensemble generated for one parameter combination,
// and the distance cutoff it was scored at. Parameters are stored in
// their canonical string representation.
type Entry struct {
	Scale, Kbending, Maxdist string
	Lowfreq, Upfreq, Dcutoff string
	Ensemble                 *Ensemble
}

// A Collection is a list of ensembles, stored together in one file.
type Collection []Entry

func create(name string, value interface{}) (err error) {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := file.Close(); err == nil {
			err = nerr
		}
	}()
	buf := bufio.NewWriter(file)
	gz := pgzip.NewWriter(buf)
	if err = gob.NewEncoder(gz).Encode(value); err != nil {
		return fmt.Errorf("%v, while writing %v", err, name)
	}
	if err = gz.Close(); err != nil {
		return err
	}
	return buf.Flush()
}

func load(name string, value interface{}) (err error) {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := file.Close(); err == nil {
			err = nerr
		}
	}()
	gz, err := pgzip.NewReader(bufio.NewReader(file))
	if err != nil {
		return fmt.Errorf("%v, while opening %v", err, name)
	}
	defer func() {
		if nerr := gz.Close(); err == nil {
			err = nerr
		}
	}()
	if err = gob.NewDecoder(gz).Decode(value); err != nil {
		return fmt.Errorf("%v, while reading %v", err, name)
	}
	return nil
}

// SaveCollection writes a collection as a compressed gob stream.
func SaveCollection(name string, c Collection) error {
	return create(name, c)
}

// LoadCollection reads a collection written by SaveCollection.
func LoadCollection(name string) (c Collection, err error) {
	err = load(name, &c)
	return c, err
}

// WriteEnsemble writes a single ensemble as a compressed gob stream.
func WriteEnsemble(name string, ens *Ensemble) error {
	return create(name, ens)
}

// ReadEnsemble reads an ensemble written by WriteEnsemble.
func ReadEnsemble(name string) (*Ensemble, error) {
	ens := &Ensemble{}
	if err := load(name, ens); err != nil {
		return nil, err
	}
	return ens, nil
}
