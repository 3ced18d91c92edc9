// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bench

import (
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotThroughput saves a line+points plot of throughput against batch size,
// one point per run, as a PNG (or any format the extension of path selects).
func PlotThroughput(results []*Result, path string) error {
	if len(results) == 0 {
		return errors.New("no results to plot")
	}
	sorted := slices.Clone(results)
	slices.SortFunc(sorted, func(a, b *Result) int { return a.BatchSize - b.BatchSize })

	xys := make(plotter.XYs, len(sorted))
	for i, r := range sorted {
		xys[i] = plotter.XY{X: float64(r.BatchSize), Y: r.Throughput}
	}

	p := plot.New()
	p.Title.Text = sorted[0].Model
	p.X.Label.Text = "batch size"
	p.Y.Label.Text = "samples/sec"
	p.Y.Min = 0
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return errors.Wrap(err, "building throughput plot")
	}
	p.Add(line, points)
	return errors.Wrapf(p.Save(8*vg.Inch, 4*vg.Inch, path), "saving plot to %q", path)
}
