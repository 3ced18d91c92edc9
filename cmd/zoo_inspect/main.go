// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// zoo_inspect prints what a hub checkpoint contains before you run it: config
// metadata, the ONNX graph interface, the label table and the repository file
// listing. Downloads go through the hub cache, so inspecting an already
// fetched checkpoint touches no network.
//
// Usage:
//
//	go run ./cmd/zoo_inspect Xenova/resnet-50
//	go run ./cmd/zoo_inspect Xenova/flan-t5-small -file=onnx/encoder_model.onnx
//	go run ./cmd/zoo_inspect Xenova/vit-base-patch16-224 -labels=0 -files=false
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/onnx-gomlx/onnx"
	"github.com/gomlx/zoo/checkpoint"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagFile   = flag.String("file", "onnx/model.onnx", "Path of the ONNX graph inside the repository.")
	flagLabels = flag.Int("labels", 10, "How many label table entries to print; 0 skips the table.")
	flagFiles  = flag.Bool("files", true, "List the repository files.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		klog.Errorf("Missing hub repository to inspect. See 'zoo_inspect -help'.")
		os.Exit(1)
	}
	if len(args) > 1 {
		klog.Errorf("Too many arguments. See 'zoo_inspect -help'.")
		os.Exit(1)
	}
	err := exceptions.TryCatch[error](func() { inspect(args[0]) })
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

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func newPlainTable(withHeader bool) *lgtable.Table {
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

func inspect(repoName string) {
	ckpt := must.M1(checkpoint.Download(checkpoint.New(repoName).WithONNXFile(*flagFile)))
	defer ckpt.Close()
	model := must.M1(ckpt.Model())

	config := ckpt.Config()
	fmt.Println(titleStyle.Render("Checkpoint"))
	table := newPlainTable(false)
	table.Row("repository", repoName)
	table.Row("onnx file", *flagFile)
	if size, err := fileSize(ckpt.ONNXPath()); err == nil {
		table.Row("onnx size", size)
	}
	if config.ModelType != "" {
		table.Row("model type", config.ModelType)
	}
	if len(config.Architectures) > 0 {
		table.Row("architectures", strings.Join(config.Architectures, ", "))
	}
	if info := ckpt.Repo().Info(); info != nil && info.SafeTensors.Total > 0 {
		table.Row("# parameters", humanize.Comma(int64(info.SafeTensors.Total)))
	}
	if n := ckpt.Labels().Len(); n > 0 {
		table.Row("# labels", humanize.Comma(int64(n)))
	} else if config.NumLabels > 0 {
		// Some configs state a label count without shipping the table.
		table.Row("# labels", humanize.Comma(int64(config.NumLabels)))
	}
	fmt.Println(table.Render())

	graphTable(model)
	if *flagLabels > 0 {
		labelTable(ckpt.Labels())
	}
	if *flagFiles {
		fileTable(ckpt)
	}
}

// graphTable prints the graph interface, one row per input and output, with
// dynamic axes rendered as "?".
func graphTable(model *onnx.Model) {
	fmt.Println(titleStyle.Render("Graph"))
	table := newPlainTable(true)
	table.Row("Direction", "Name", "Shape")
	inputNames, inputShapes := model.Inputs()
	for i, name := range inputNames {
		table.Row("input", name, formatDims(inputShapes[i].Dimensions))
	}
	outputNames, outputShapes := model.Outputs()
	for i, name := range outputNames {
		table.Row("output", name, formatDims(outputShapes[i].Dimensions))
	}
	fmt.Println(table.Render())
}

func labelTable(labels checkpoint.Labels) {
	if labels.Len() == 0 {
		return
	}
	fmt.Println(titleStyle.Render("Labels"))
	table := newPlainTable(true)
	table.Row("ID", "Label")
	shown := min(*flagLabels, labels.Len())
	for id := 0; id < shown; id++ {
		table.Row(strconv.Itoa(id), labels.Name(id))
	}
	if rest := labels.Len() - shown; rest > 0 {
		table.Row("", fmt.Sprintf("... %s more", humanize.Comma(int64(rest))))
	}
	fmt.Println(table.Render())
}

// fileTable lists the repository files. Sizes are known only for the files
// this run materialized locally (the ONNX graph and config.json); everything
// else is listed by name, without downloading the weights just to stat them.
func fileTable(ckpt *checkpoint.Checkpoint) {
	sizes := map[string]string{}
	if size, err := fileSize(ckpt.ONNXPath()); err == nil {
		sizes[*flagFile] = size
	}
	if path, err := ckpt.DownloadFile("config.json"); err == nil {
		if size, err := fileSize(path); err == nil {
			sizes["config.json"] = size
		}
	}

	var names []string
	for fileName, err := range ckpt.Repo().IterFileNames() {
		must.M(err)
		names = append(names, fileName)
	}
	slices.Sort(names)

	fmt.Println(titleStyle.Render("Repository files"))
	table := newPlainTable(true)
	table.Row("File", "Size")
	for _, fileName := range names {
		size, ok := sizes[fileName]
		if !ok {
			size = "-"
		}
		table.Row(fileName, size)
	}
	fmt.Println(table.Render())
}

func formatDims(dims []int) string {
	parts := make([]string, len(dims))
	for i, dim := range dims {
		if dim < 0 {
			parts[i] = "?"
		} else {
			parts[i] = strconv.Itoa(dim)
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func fileSize(path string) (string, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return humanize.Bytes(uint64(stat.Size())), nil
}
