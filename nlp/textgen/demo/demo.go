// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// FLAN-T5 text generation demo: greedy decoding over the encoder/decoder
// ONNX pair.
//
// Usage:
//
//	go run ./nlp/textgen/demo
//	go run ./nlp/textgen/demo -prompt="Translate to German: hello, how are you?"
//	go run ./nlp/textgen/demo -variant=Xenova/flan-t5-base -max-length=32
package main

import (
	"flag"
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/zoo/inference"
	"github.com/gomlx/zoo/nlp/textgen"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagVariant   = flag.String("variant", textgen.Variants[0], "Model variant to run.")
	flagPrompt    = flag.String("prompt", textgen.DefaultPrompt, "Prompt to generate from.")
	flagBatchSize = flag.Int("batch-size", 1, "Number of copies of the prompt to generate as one batch.")
	flagMaxLength = flag.Int("max-length", 20, "Maximum decoder length, start token included.")
	flagNoRepeat  = flag.Int("no-repeat-ngram", 2, "Ban repeating n-grams of this size; 0 disables.")
	flagBackend   = flag.String("backend", inference.DefaultBackendConfig(),
		"Backend configuration, e.g. \"go\" or \"xla:cpu\".")
	flagFormat = flag.String("format", "bfloat16", "Compute data format: float32, float16 or bfloat16.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *flagBatchSize <= 0 {
		klog.Fatalf("-batch-size must be positive, got %d", *flagBatchSize)
	}
	opts := textgen.DefaultOptions()
	opts.Variant = *flagVariant
	opts.Prompts = slices.Repeat([]string{*flagPrompt}, *flagBatchSize)
	opts.Gen.MaxLength = *flagMaxLength
	opts.Gen.NoRepeatNGram = *flagNoRepeat
	opts.Config.Backend = *flagBackend
	opts.Config.Format = must.M1(inference.ParseDataFormat(*flagFormat))

	err := exceptions.TryCatch[error](func() {
		fmt.Printf("Model: %s (%s compute)\n\n", opts.Variant, opts.Config.Format)
		results := must.M1(textgen.Run(opts))
		for i, r := range results {
			fmt.Printf("Sample ID: %d\n", i)
			fmt.Printf("Prefix text: %s\n", r.Prompt)
			fmt.Printf("Generated text: %s\n\n", r.Text)
		}
	})
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}
