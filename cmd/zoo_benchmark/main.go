// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// zoo_benchmark sweeps batch sizes over a checkpoint and reports throughput,
// plus accuracy when the suite is labeled. The sentiment suite evaluates the
// SST-2 dev split; the resnet suite replicates the sample image into
// unlabeled batches.
//
// Every batch size runs on a fresh session, so each run pays its own
// compilation: the loop compiles on the first batch and executes one batch at
// a time from there.
//
// Usage:
//
//	go run ./cmd/zoo_benchmark                        # sentiment suite on SST-2
//	go run ./cmd/zoo_benchmark -batch-sizes=1,8,32 -progress
//	go run ./cmd/zoo_benchmark -suite=resnet -samples=256 -plot=throughput.png
package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/zoo/bench"
	"github.com/gomlx/zoo/checkpoint"
	"github.com/gomlx/zoo/cv/resnet"
	"github.com/gomlx/zoo/fetch"
	"github.com/gomlx/zoo/inference"
	"github.com/gomlx/zoo/nlp/sentiment"
	"github.com/gomlx/zoo/textenc"
	"github.com/gomlx/zoo/vision"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagSuite = flag.String("suite", "sentiment",
		"Benchmark suite: \"sentiment\" (SST-2 dev split, labeled) or \"resnet\" (replicated sample image, throughput only).")
	flagVariant = flag.String("variant", "",
		"Hub checkpoint to benchmark. Empty selects the suite's default variant.")
	flagBatchSizes = flag.String("batch-sizes", "1,2,4,8",
		"Comma separated batch sizes. Each size runs on a fresh session.")
	flagSamples = flag.Int("samples", 512,
		"Number of samples drawn from the suite's source.")
	flagMaxBatches = flag.Int("max-batches", 0,
		"Cap on batches per run; 0 runs everything the samples allow.")
	flagBackend = flag.String("backend", inference.DefaultBackendConfig(),
		"Backend configuration, e.g. \"go\" or \"xla:cpu\".")
	flagFormat   = flag.String("format", "float32", "Compute data format: float32, float16 or bfloat16.")
	flagJSON     = flag.String("json", "", "Optional path to save the results as a JSON array.")
	flagPlot     = flag.String("plot", "", "Optional path to save a throughput vs batch size plot (PNG).")
	flagProgress = flag.Bool("progress", false, "Draw a per-batch progress bar.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *flagSuite != "sentiment" && *flagSuite != "resnet" {
		klog.Fatalf("Unknown suite %q, valid suites are sentiment and resnet.", *flagSuite)
	}

	err := exceptions.TryCatch[error](func() {
		batchSizes := must.M1(parseBatchSizes(*flagBatchSizes))
		cfg := inference.Config{
			Backend: *flagBackend,
			Format:  must.M1(inference.ParseDataFormat(*flagFormat)),
		}

		var results []*bench.Result
		switch *flagSuite {
		case "sentiment":
			results = must.M1(sentimentSuite(batchSizes, cfg))
		case "resnet":
			results = must.M1(resnetSuite(batchSizes, cfg))
		}

		fmt.Println(bench.Table(results))
		if *flagJSON != "" {
			must.M(bench.WriteJSON(*flagJSON, results...))
			fmt.Printf("Results saved to %s\n", *flagJSON)
		}
		if *flagPlot != "" {
			must.M(bench.PlotThroughput(results, *flagPlot))
			fmt.Printf("Plot saved to %s\n", *flagPlot)
		}
	})
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}

// sentimentSuite benchmarks a sentiment checkpoint on the SST-2 dev split.
// Texts are tokenized padded to the full sequence length, so every batch of a
// given size shares one compiled executable.
func sentimentSuite(batchSizes []int, cfg inference.Config) ([]*bench.Result, error) {
	variant := *flagVariant
	if variant == "" {
		variant = sentiment.Variants[0]
	}
	texts, labels, err := bench.FetchSST2(*flagSamples)
	if err != nil {
		return nil, err
	}

	ckpt, err := checkpoint.Download(checkpoint.New(variant))
	if err != nil {
		return nil, err
	}
	defer ckpt.Close()
	model, err := ckpt.Model()
	if err != nil {
		return nil, err
	}
	enc, err := textenc.NewEncoder(ckpt.Repo(), sentiment.MaxLen)
	if err != nil {
		return nil, err
	}
	enc = enc.WithPadToMax()

	module := inference.WrapModule(ckpt.Name(), model)
	src, err := bench.NewTextSource("sst2-dev", texts, labels, enc, inputNames(module.Inputs()))
	if err != nil {
		return nil, err
	}
	return sweep(module, src, batchSizes, cfg)
}

// resnetSuite benchmarks an ImageNet checkpoint on batches replicated from
// the sample image. The source is unlabeled, so runs report throughput only.
func resnetSuite(batchSizes []int, cfg inference.Config) ([]*bench.Result, error) {
	variant := *flagVariant
	if variant == "" {
		variant = resnet.Variants[0]
	}
	img, err := fetch.Image(resnet.SampleImageURL)
	if err != nil {
		return nil, err
	}
	sample, err := vision.NewPreprocessor(resnet.ImageSize).Tensor(img)
	if err != nil {
		return nil, err
	}
	src, err := bench.NewRepeatedSource("coco-sample", sample, *flagSamples)
	if err != nil {
		return nil, err
	}

	ckpt, err := checkpoint.Download(checkpoint.New(variant))
	if err != nil {
		return nil, err
	}
	defer ckpt.Close()
	model, err := ckpt.Model()
	if err != nil {
		return nil, err
	}

	cfg.AutoTranspose = true
	return sweep(inference.WrapModule(ckpt.Name(), model), src, batchSizes, cfg)
}

// sweep runs one benchmark per batch size, placing a fresh session for each
// so no compiled executable carries over between runs. Each result is printed
// as it completes.
func sweep(module *inference.Module, src bench.Source, batchSizes []int, cfg inference.Config) ([]*bench.Result, error) {
	device, err := inference.NewDevice(cfg)
	if err != nil {
		return nil, err
	}
	defer device.Close()

	results := make([]*bench.Result, 0, len(batchSizes))
	for _, batchSize := range batchSizes {
		sess, err := device.Place(module)
		if err != nil {
			return nil, err
		}
		result, err := bench.Run(sess, src, bench.Options{
			Model:      module.Name(),
			Device:     device.Name(),
			BatchSize:  batchSize,
			MaxBatches: *flagMaxBatches,
			Progress:   *flagProgress,
		})
		sess.Close()
		if err != nil {
			return nil, err
		}
		fmt.Println(result)
		results = append(results, result)
	}
	return results, nil
}

// parseBatchSizes splits a comma separated list of positive batch sizes.
func parseBatchSizes(value string) ([]int, error) {
	parts := strings.Split(value, ",")
	sizes := make([]int, 0, len(parts))
	for _, part := range parts {
		size, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || size <= 0 {
			return nil, errors.Errorf("invalid batch size %q in %q", part, value)
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}

func inputNames(specs []inference.InputSpec) []string {
	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
	}
	return names
}
