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
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/3dgenomes/hicprep/hic"
	"github.com/3dgenomes/hicprep/internal"
)

// A Request asks for an ensemble of models for one parameter
// combination.
type Request struct {
	Zscores                 []hic.Cell         `json:"zscores"`
	Values                  [][]float64        `json:"values"`
	Resolution              float64            `json:"resolution"`
	NLoci                   int                `json:"nloci"`
	NModels                 int                `json:"n_models"`
	NKeep                   int                `json:"n_keep"`
	Config                  map[string]float64 `json:"config"`
	Container               []float64          `json:"container,omitempty"`
	CloseBins               int                `json:"close_bins"`
	Zeros                   []bool             `json:"-"`
	UseHiC                  bool               `json:"use_HiC"`
	UseConfiningEnvironment bool               `json:"use_confining_environment"`
	UseExcludedVolume       bool               `json:"use_excluded_volume"`
	NCPUs                   int                `json:"n_cpus"`
}

// MarshalJSON writes the request for an external program. Zeros marks
// empty bins, but the "zeros" array follows the TADbit convention and
// is true for the bins that have data.
func (req *Request) MarshalJSON() ([]byte, error) {
	type plain Request
	filled := make([]bool, len(req.Zeros))
	for i, zero := range req.Zeros {
		filled[i] = !zero
	}
	return json.Marshal(struct {
		*plain
		Filled []bool `json:"zeros"`
	}{(*plain)(req), filled})
}

// A Generator produces model ensembles.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Ensemble, error)
}

// CommandGenerator runs an external model generation program. The
// program is called with the given arguments, followed by
// --request <json file> --output <ensemble file>, and must write the
// ensemble in the format of WriteEnsemble.
type CommandGenerator struct {
	Command string
	Args    []string
	TempDir string
}

// Generate implements the Generator interface.
func (g *CommandGenerator) Generate(ctx context.Context, req *Request) (ens *Ensemble, err error) {
	dir := g.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	base := filepath.Join(dir, "hicprep-"+uuid.New().String())
	reqFile, outFile := base+".json", base+".ens"
	defer func() {
		if nerr := internal.RemoveFiles(reqFile, outFile); err == nil {
			err = nerr
		}
	}()
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if err = os.WriteFile(reqFile, data, 0666); err != nil {
		return nil, err
	}
	args := append(append([]string(nil), g.Args...), "--request", reqFile, "--output", outFile)
	if err = internal.RunCmd(exec.CommandContext(ctx, g.Command, args...)); err != nil {
		return nil, fmt.Errorf("%w, while generating models", err)
	}
	if ens, err = ReadEnsemble(outFile); err != nil {
		return nil, err
	}
	if ens.Original == nil {
		ens.Original = req.Values
	}
	if ens.Zeros == nil {
		ens.Zeros = req.Zeros
	}
	if ens.Config == nil {
		ens.Config = req.Config
	}
	return ens, nil
}
