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

package cmd

import (
	"os"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progressBar reports grid search progress on stderr. The bar is
// created on the first report, when the total is known.
type progressBar struct {
	name string
	pbs  *mpb.Progress
	bar  *mpb.Bar
	last time.Time
}

func newProgressBar(name string) *progressBar {
	return &progressBar{name: name}
}

func (p *progressBar) report(done, total int) {
	if p.bar == nil {
		p.pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
		p.bar = p.pbs.AddBar(int64(total),
			mpb.PrependDecorators(
				decor.Name(p.name, decor.WC{W: len(p.name), C: decor.DindentRight}),
				decor.Name("", decor.WCSyncSpaceR),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
				decor.EwmaETA(decor.ET_STYLE_GO, 10),
				decor.OnComplete(decor.Name(""), ". done"),
			),
		)
		p.last = time.Now()
	}
	now := time.Now()
	p.bar.EwmaSetCurrent(int64(done), now.Sub(p.last))
	p.last = now
}

// wait waits for the bar to be rendered, aborting it if the search
// stopped early.
func (p *progressBar) wait() {
	if p.bar == nil {
		return
	}
	if !p.bar.Completed() {
		p.bar.Abort(false)
	}
	p.pbs.Wait()
}
