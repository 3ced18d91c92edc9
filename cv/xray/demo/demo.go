// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Chest X-ray screening demo: scores a radiograph against the 18
// torchxrayvision pathologies and prints them best first.
//
// Usage:
//
//	go run ./cv/xray/demo
//	go run ./cv/xray/demo -onnx=/path/to/densenet121.onnx -image=https://example.com/scan.jpg
package main

import (
	"flag"
	"fmt"
	"sort"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/zoo/cv/xray"
	"github.com/gomlx/zoo/fetch"
	"github.com/gomlx/zoo/inference"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagRepo      = flag.String("repo", xray.DefaultRepo, "Hub repository holding the ONNX export.")
	flagONNX      = flag.String("onnx", "", "Local ONNX file, overrides -repo.")
	flagImage     = flag.String("image", xray.SampleImageURL, "URL of the X-ray to screen.")
	flagBatchSize = flag.Int("batch-size", 1, "Number of copies of the X-ray to screen as one batch.")
	flagBackend   = flag.String("backend", inference.DefaultBackendConfig(),
		"Backend configuration, e.g. \"go\" or \"xla:cpu\".")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	opts := xray.DefaultOptions()
	opts.Repo = *flagRepo
	opts.ONNXPath = *flagONNX
	opts.BatchSize = *flagBatchSize
	opts.Config.Backend = *flagBackend

	err := exceptions.TryCatch[error](func() {
		fmt.Printf("Image: %s\n\n", *flagImage)
		img := must.M1(fetch.Image(*flagImage))
		preds := must.M1(xray.Screen(img, opts))

		names := make([]string, 0, len(preds))
		for name := range preds {
			names = append(names, name)
		}
		sort.Slice(names, func(a, b int) bool { return preds[names[a]] > preds[names[b]] })
		for _, name := range names {
			fmt.Printf("%-28s %.4f\n", name, preds[name])
		}
	})
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}
