// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Sentiment classification demo: labels texts with a BERT-family checkpoint,
// streaming batches through the session queues.
//
// Usage:
//
//	go run ./nlp/sentiment/demo
//	go run ./nlp/sentiment/demo -text="What a fantastic day" -text="This is awful"
//	go run ./nlp/sentiment/demo -variant=Xenova/bert-base-multilingual-uncased-sentiment
package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/zoo/inference"
	"github.com/gomlx/zoo/nlp/sentiment"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

type textList []string

func (l *textList) String() string { return strings.Join(*l, "; ") }

func (l *textList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

var (
	flagVariant = flag.String("variant", sentiment.Variants[0],
		fmt.Sprintf("Model variant to run, one of: %s", strings.Join(sentiment.Variants, ", ")))
	flagBatchSize = flag.Int("batch-size", 4, "Texts per batch.")
	flagBackend   = flag.String("backend", inference.DefaultBackendConfig(),
		"Backend configuration, e.g. \"go\" or \"xla:cpu\".")
	flagTexts textList
)

func main() {
	flag.Var(&flagTexts, "text", "Text to classify; repeat for more than one. Default: the sample texts.")
	klog.InitFlags(nil)
	flag.Parse()

	opts := sentiment.DefaultOptions()
	opts.Variant = *flagVariant
	opts.Texts = flagTexts
	opts.BatchSize = *flagBatchSize
	opts.Config.Backend = *flagBackend

	err := exceptions.TryCatch[error](func() {
		fmt.Printf("Model: %s\n\n", opts.Variant)
		results := must.M1(sentiment.Run(opts))
		for _, r := range results {
			fmt.Printf("%-12s %.4f  %s\n", r.Label, r.Score, r.Text)
		}
	})
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}
