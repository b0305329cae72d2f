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
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/3dgenomes/hicprep/models"
)

// A FileConfig is the contents of an optimizer configuration file.
// Axes are strings in the format of ParseAxis.
type FileConfig struct {
	Scale    Axis `toml:"scale"`
	Kbending Axis `toml:"kbending"`
	Maxdist  Axis `toml:"maxdist"`
	Lowfreq  Axis `toml:"lowfreq"`
	Upfreq   Axis `toml:"upfreq"`
	Dcutoff  Axis `toml:"dcutoff"`

	Corr    string `toml:"corr"`
	OffDiag *int   `toml:"off_diag"`

	NModels   *int      `toml:"n_models"`
	NKeep     *int      `toml:"n_keep"`
	CloseBins *int      `toml:"close_bins"`
	Container []float64 `toml:"container"`

	UseHiC                  *bool `toml:"use_HiC"`
	UseConfiningEnvironment *bool `toml:"use_confining_environment"`
	UseExcludedVolume       *bool `toml:"use_excluded_volume"`
}

// LoadConfig reads an optimizer configuration file.
func LoadConfig(name string) (*FileConfig, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	var config FileConfig
	if err = toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%v, while reading optimizer configuration %v", err, name)
	}
	switch config.Corr {
	case "", models.Spearman, models.Pearson:
	default:
		return nil, fmt.Errorf("unknown correlation method %v in %v", config.Corr, name)
	}
	return &config, nil
}

// Apply overrides the given options and grid search with all settings
// present in the configuration.
func (config *FileConfig) Apply(opts *Options, gs *GridSearch) {
	axes := [6]*Axis{&gs.Scale, &gs.Kbending, &gs.Maxdist, &gs.Lowfreq, &gs.Upfreq, &gs.Dcutoff}
	for i, a := range [6]Axis{config.Scale, config.Kbending, config.Maxdist, config.Lowfreq, config.Upfreq, config.Dcutoff} {
		if !a.IsZero() {
			*axes[i] = a
		}
	}
	if config.Corr != "" {
		gs.Corr = config.Corr
	}
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setInt(&gs.OffDiag, config.OffDiag)
	setInt(&opts.NModels, config.NModels)
	setInt(&opts.NKeep, config.NKeep)
	setInt(&opts.CloseBins, config.CloseBins)
	if config.Container != nil {
		opts.Container = config.Container
	}
	setBool(&gs.UseHiC, config.UseHiC)
	setBool(&gs.UseConfiningEnvironment, config.UseConfiningEnvironment)
	setBool(&gs.UseExcludedVolume, config.UseExcludedVolume)
}

// WriteConfig writes a parameter combination as a TOML file.
func WriteConfig(name string, config Config, score float64) error {
	data, err := toml.Marshal(struct {
		Config
		Correlation float64 `toml:"correlation"`
	}{config, score})
	if err != nil {
		return err
	}
	return os.WriteFile(name, data, 0666)
}
