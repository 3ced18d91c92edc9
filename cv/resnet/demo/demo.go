// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// ResNet image classification demo: downloads a hub checkpoint, classifies
// the sample image (or any image URL) and prints the top-k predictions.
//
// Usage:
//
//	go run ./cv/resnet/demo
//	go run ./cv/resnet/demo -variant=Xenova/resnet-18 -batch-size=4
//	go run ./cv/resnet/demo -image=https://example.com/dog.jpg -top-k=3
package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/zoo/cv/resnet"
	"github.com/gomlx/zoo/fetch"
	"github.com/gomlx/zoo/inference"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagVariant = flag.String("variant", resnet.Variants[0],
		fmt.Sprintf("Model variant to run, one of: %s", strings.Join(resnet.Variants, ", ")))
	flagBatchSize = flag.Int("batch-size", 1, "Number of copies of the image to classify as one batch.")
	flagImage     = flag.String("image", resnet.SampleImageURL, "URL of the image to classify.")
	flagBackend   = flag.String("backend", inference.DefaultBackendConfig(),
		"Backend configuration, e.g. \"go\" or \"xla:cpu\".")
	flagFormat = flag.String("format", "float32", "Compute data format: float32, float16 or bfloat16.")
	flagTopK   = flag.Int("top-k", 5, "Number of predictions to report per sample.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	opts := resnet.DefaultOptions()
	opts.Variant = *flagVariant
	opts.BatchSize = *flagBatchSize
	opts.TopK = *flagTopK
	opts.Config.Backend = *flagBackend
	opts.Config.Format = must.M1(inference.ParseDataFormat(*flagFormat))

	err := exceptions.TryCatch[error](func() {
		fmt.Printf("Model: %s\n", opts.Variant)
		fmt.Printf("Image: %s\n", *flagImage)
		img := must.M1(fetch.Image(*flagImage))
		classes := must.M1(resnet.Classify(img, opts))
		for i, class := range classes {
			fmt.Printf("\nSample %d:\n%s\n", i, renderTopK(class))
		}
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

func renderTopK(class resnet.Classification) string {
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
			if col == 0 {
				return s.Align(lipgloss.Right)
			}
			return s.Align(lipgloss.Left)
		})
	table.Row("Rank", "Label", "Score")
	for i, p := range class.Predictions {
		table.Row(fmt.Sprintf("%d", i+1), p.Label, fmt.Sprintf("%.4f", p.Score))
	}
	return table.Render()
}
