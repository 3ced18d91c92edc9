// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Passage ranking demo: encodes a query and candidate passages with a
// sentence encoder and prints the passages by similarity, best first.
//
// Usage:
//
//	go run ./nlp/retrieval/demo
//	go run ./nlp/retrieval/demo -query="What is the tallest mountain?" \
//	    -passage="Mount Everest rises 8849 meters." -passage="The Nile is a river."
package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/zoo/inference"
	"github.com/gomlx/zoo/nlp/retrieval"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

type passageList []string

func (l *passageList) String() string { return strings.Join(*l, "; ") }

func (l *passageList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

var (
	flagVariant = flag.String("variant", retrieval.Variants[0],
		fmt.Sprintf("Model variant to run, one of: %s", strings.Join(retrieval.Variants, ", ")))
	flagQuery   = flag.String("query", retrieval.SampleQuery, "Query to rank the passages against.")
	flagBackend = flag.String("backend", inference.DefaultBackendConfig(),
		"Backend configuration, e.g. \"go\" or \"xla:cpu\".")
	flagPassages passageList
)

func main() {
	flag.Var(&flagPassages, "passage", "Candidate passage; repeat for more than one. Default: the sample passages.")
	klog.InitFlags(nil)
	flag.Parse()

	opts := retrieval.DefaultOptions()
	opts.Variant = *flagVariant
	opts.Query = *flagQuery
	opts.Passages = flagPassages
	opts.Config.Backend = *flagBackend

	err := exceptions.TryCatch[error](func() {
		fmt.Printf("Model: %s\n", opts.Variant)
		fmt.Printf("Query: %s\n\n", opts.Query)
		ranked := must.M1(retrieval.Run(opts))
		fmt.Println(renderRanking(ranked))
	})
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)
)

func renderRanking(ranked []retrieval.Ranked) string {
	table := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row == 1 {
				return headerRowStyle
			}
			if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			if col == 2 {
				return s.Align(lipgloss.Left)
			}
			return s.Align(lipgloss.Right)
		})
	table.Row("Rank", "Score", "Passage")
	for i, r := range ranked {
		table.Row(fmt.Sprintf("%d", i+1), fmt.Sprintf("%.4f", r.Score), r.Passage)
	}
	return table.Render()
}
