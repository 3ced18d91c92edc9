// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sentiment classifies text with the hub's BERT-family sentiment
// checkpoints. It is the demo that exercises the streaming session: texts are
// chunked into batches, every batch is pushed up front and results are
// consumed from the output queue while later batches still execute.
package sentiment

import (
	"github.com/gomlx/zoo/checkpoint"
	"github.com/gomlx/zoo/inference"
	"github.com/gomlx/zoo/scores"
	"github.com/gomlx/zoo/textenc"
	"github.com/pkg/errors"
)

// Variants lists the checkpoints this demo knows how to run; the first entry
// is the default. The DistilBERT one takes two inputs, the multilingual BERT
// one also wants token_type_ids; the pipeline adapts to whatever the module
// declares.
var Variants = []string{
	"Xenova/distilbert-base-uncased-finetuned-sst-2-english",
	"Xenova/bert-base-multilingual-uncased-sentiment",
}

// SampleTexts are the demo inputs.
var SampleTexts = []string{
	"This movie was a delight from start to finish.",
	"The plot made no sense and the acting was worse.",
	"An instant classic, I would happily watch it again.",
	"Two hours of my life I will never get back.",
}

// MaxLen bounds every tokenized sequence.
const MaxLen = 128

// Options configures one run.
type Options struct {
	// Variant is the hub repository of the checkpoint to run.
	Variant string

	// Texts to classify; empty means SampleTexts.
	Texts []string

	// BatchSize chunks Texts into batches of this many.
	BatchSize int

	// Config is handed to the inference device and session.
	Config inference.Config
}

// DefaultOptions returns the demo defaults: the SST-2 DistilBERT, the sample
// texts, batches of four, streaming enabled.
func DefaultOptions() Options {
	return Options{
		Variant:   Variants[0],
		BatchSize: 4,
		Config: inference.Config{
			Backend:   inference.DefaultBackendConfig(),
			Format:    inference.Float32,
			Streaming: true,
		},
	}
}

// Sentiment is the predicted label for one text, with the winning softmax
// probability.
type Sentiment struct {
	Text  string
	Label string
	Score float32
}

// Run classifies the texts: checkpoint and tokenizer download, device
// initialization, module placement, then one streaming run over all batches
// with per-batch tokenization. Results come back in input order.
func Run(opts Options) ([]Sentiment, error) {
	texts := opts.Texts
	if len(texts) == 0 {
		texts = SampleTexts
	}
	if opts.BatchSize <= 0 {
		return nil, errors.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}

	ckpt, err := checkpoint.Download(checkpoint.New(opts.Variant))
	if err != nil {
		return nil, err
	}
	defer ckpt.Close()
	model, err := ckpt.Model()
	if err != nil {
		return nil, err
	}
	enc, err := textenc.NewEncoder(ckpt.Repo(), MaxLen)
	if err != nil {
		return nil, err
	}

	device, err := inference.NewDevice(opts.Config)
	if err != nil {
		return nil, err
	}
	defer device.Close()
	sess, err := device.Place(inference.WrapModule(ckpt.Name(), model))
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	names := make([]string, 0, len(sess.Inputs()))
	for _, spec := range sess.Inputs() {
		names = append(names, spec.Name)
	}

	chunks := chunkTexts(texts, opts.BatchSize)
	for _, chunk := range chunks {
		encoded, err := enc.EncodeBatch(chunk)
		if err != nil {
			return nil, err
		}
		inputs, err := encoded.ForInputs(names)
		if err != nil {
			return nil, err
		}
		if err := sess.Push(inputs...); err != nil {
			return nil, err
		}
	}

	labels := ckpt.Labels()
	results := make([]Sentiment, 0, len(texts))
	queue := sess.Run()
	for _, chunk := range chunks {
		outputs, err := queue.Get()
		if err != nil {
			return nil, err
		}
		if len(outputs) == 0 {
			return nil, errors.Errorf("checkpoint %q produced no outputs", opts.Variant)
		}
		rows, err := scores.Rows(outputs[0])
		if err != nil {
			return nil, err
		}
		if len(rows) != len(chunk) {
			return nil, errors.Errorf("model produced %d rows for a batch of %d texts", len(rows), len(chunk))
		}
		for i, row := range rows {
			probs := scores.Softmax(row)
			best := scores.ArgMax(probs)
			results = append(results, Sentiment{
				Text:  chunk[i],
				Label: labels.Name(best),
				Score: probs[best],
			})
		}
	}
	return results, nil
}

// chunkTexts splits texts into consecutive batches of at most size entries.
// The last batch may be smaller; nothing is dropped.
func chunkTexts(texts []string, size int) [][]string {
	chunks := make([][]string, 0, (len(texts)+size-1)/size)
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		chunks = append(chunks, texts[start:end])
	}
	return chunks
}
