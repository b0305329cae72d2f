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
	"fmt"
	"log"
	"math"

	"github.com/3dgenomes/hicprep/models"
	"github.com/3dgenomes/hicprep/workers"
)

// A Rescoring describes how stored ensembles are scored again.
type Rescoring struct {
	Corr    string
	OffDiag int
	Workers int
	Verbose bool
}

func canonicalEntryKey(e *models.Entry) (Key, error) {
	var canonical [6]string
	for i, v := range [6]string{e.Scale, e.Kbending, e.Maxdist, e.Lowfreq, e.Upfreq, e.Dcutoff} {
		s, err := RoundString(v, Digits)
		if err != nil {
			return Key{}, fmt.Errorf("%v, while parsing %v of a stored ensemble", err, axisNames[i])
		}
		canonical[i] = s
	}
	return Key{
		Prefix:  Prefix{canonical[0], canonical[1], canonical[2], canonical[3], canonical[4]},
		Dcutoff: canonical[5],
	}, nil
}

// rescore correlates a stored ensemble at its stored cutoff.
func rescore(e *models.Entry, key Key, r *Rescoring) (float64, error) {
	ens := e.Ensemble
	if ens == nil {
		return math.NaN(), fmt.Errorf("no ensemble stored for %v", key)
	}
	distance := CutoffDistance(parse(key.Dcutoff), ens.Resolution, parse(key.Scale))
	return ens.Correlate(float64(distance), r.Corr, r.OffDiag, nil)
}

// LoadGridSearch loads ensemble collections and scores every stored
// ensemble again, in parallel. An ensemble that cannot be scored gets
// a NaN score. Results are merged after all ensembles are scored.
func (opt *Optimizer) LoadGridSearch(ctx context.Context, paths []string, r Rescoring) error {
	var entries models.Collection
	for _, path := range paths {
		c, err := models.LoadCollection(path)
		if err != nil {
			return err
		}
		entries = append(entries, c...)
	}
	keys := make([]Key, len(entries))
	for i := range entries {
		k, err := canonicalEntryKey(&entries[i])
		if err != nil {
			return err
		}
		keys[i] = k
	}
	scores := make([]float64, len(entries))
	errs := workers.Pool{Workers: r.Workers}.Run(ctx, len(entries), func(_ context.Context, i int) error {
		score, err := rescore(&entries[i], keys[i], &r)
		// each ensemble is only needed by its own task
		entries[i].Ensemble = nil
		if err != nil {
			scores[i] = math.NaN()
			return err
		}
		scores[i] = score
		return nil
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, k := range keys {
		if errs[i] != nil {
			log.Printf("ERROR %v, while scoring %v", errs[i], k.Fields())
			scores[i] = math.NaN()
		} else if r.Verbose {
			log.Printf("  %-5v\t%-8v\t%-7v\t%-8v\t%-8v\t%-7v\t%v",
				k.Scale, k.Kbending, k.Maxdist, k.Lowfreq, k.Upfreq, k.Dcutoff, scores[i])
		}
		opt.store(k, scores[i])
	}
	return nil
}
