// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// ViT image classification demo, the float16 sibling of cv/resnet/demo.
//
// Usage:
//
//	go run ./cv/vit/demo
//	go run ./cv/vit/demo -format=float32 -batch-size=8
package main

import (
	"flag"
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/zoo/cv/vit"
	"github.com/gomlx/zoo/fetch"
	"github.com/gomlx/zoo/inference"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagVariant   = flag.String("variant", vit.Variants[0], "Model variant to run.")
	flagBatchSize = flag.Int("batch-size", 1, "Number of copies of the image to classify as one batch.")
	flagImage     = flag.String("image", vit.SampleImageURL, "URL of the image to classify.")
	flagBackend   = flag.String("backend", inference.DefaultBackendConfig(),
		"Backend configuration, e.g. \"go\" or \"xla:cpu\".")
	flagFormat = flag.String("format", "float16", "Compute data format: float32, float16 or bfloat16.")
	flagTopK   = flag.Int("top-k", 5, "Number of predictions to report per sample.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	opts := vit.DefaultOptions()
	opts.Variant = *flagVariant
	opts.BatchSize = *flagBatchSize
	opts.TopK = *flagTopK
	opts.Config.Backend = *flagBackend
	opts.Config.Format = must.M1(inference.ParseDataFormat(*flagFormat))

	err := exceptions.TryCatch[error](func() {
		fmt.Printf("Model: %s (%s compute)\n", opts.Variant, opts.Config.Format)
		fmt.Printf("Image: %s\n", *flagImage)
		img := must.M1(fetch.Image(*flagImage))
		classes := must.M1(vit.Classify(img, opts))
		for i, class := range classes {
			fmt.Printf("\nSample %d:\n", i)
			for rank, p := range class.Predictions {
				fmt.Printf("  %d. %s (%.4f)\n", rank+1, p.Label, p.Score)
			}
		}
	})
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}
