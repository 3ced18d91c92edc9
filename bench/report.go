// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)
)

func newReportTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == 1 {
				s = headerRowStyle
				return
			}
			switch {
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

// String renders the run as a two-column table.
func (r *Result) String() string {
	table := newReportTable(false)
	table.Row("model", r.Model)
	table.Row("device", r.Device)
	table.Row("source", r.Source)
	table.Row("batch size", strconv.Itoa(r.BatchSize))
	table.Row("batches", humanize.Comma(int64(r.Batches)))
	table.Row("samples", humanize.Comma(int64(r.Samples)))
	table.Row("elapsed", r.Elapsed.Round(time.Millisecond).String())
	table.Row("throughput", fmt.Sprintf("%.1f samples/sec", r.Throughput))
	if r.HasAccuracy {
		table.Row("accuracy", fmt.Sprintf("%.2f%%", r.Accuracy*100))
	}
	return table.Render()
}

// Table renders several runs side by side, one row per run, for batch size
// sweeps.
func Table(results []*Result) string {
	table := newReportTable(true)
	table.Row("Model", "Source", "Batch", "Samples", "Elapsed", "Samples/sec", "Accuracy")
	for _, r := range results {
		accuracy := "-"
		if r.HasAccuracy {
			accuracy = fmt.Sprintf("%.2f%%", r.Accuracy*100)
		}
		table.Row(r.Model, r.Source,
			strconv.Itoa(r.BatchSize),
			humanize.Comma(int64(r.Samples)),
			r.Elapsed.Round(time.Millisecond).String(),
			fmt.Sprintf("%.1f", r.Throughput),
			accuracy)
	}
	return table.Render()
}

// WriteJSON saves the runs to path as a JSON array, the benchmark artifact
// other tooling consumes.
func WriteJSON(path string, results ...*Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding benchmark results")
	}
	data = append(data, '\n')
	return errors.Wrapf(os.WriteFile(path, data, 0644), "writing %q", path)
}
