// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bench

import (
	"time"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/zoo/scores"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

// Engine is the execution surface the benchmark loop drives: the subset of
// *inference.Session it needs.
type Engine interface {
	Compile(inputs ...*tensors.Tensor) error
	Execute(inputs ...*tensors.Tensor) ([]*tensors.Tensor, error)
}

// Options configures one benchmark run.
type Options struct {
	// Model and Device name the run in reports; the loop does not interpret
	// them.
	Model  string
	Device string

	// BatchSize is the fixed batch size. Samples that don't fill a final
	// batch are dropped.
	BatchSize int

	// MaxBatches caps how many batches run; zero means all available.
	MaxBatches int

	// Progress draws a per-batch progress bar on stderr.
	Progress bool
}

// Result is one benchmark run, ready for the report renderers.
type Result struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Model     string    `json:"model"`
	Device    string    `json:"device"`
	Source    string    `json:"source"`
	BatchSize int       `json:"batch_size"`
	Batches   int       `json:"batches"`
	Samples   int       `json:"samples"`

	Elapsed time.Duration `json:"elapsed_ns"`

	// Throughput is samples per second over the whole run, compilation
	// included.
	Throughput float64 `json:"throughput"`

	// Accuracy is the fraction of labeled samples whose top prediction
	// matched. Meaningless when HasAccuracy is false (unlabeled source).
	Accuracy    float64 `json:"accuracy"`
	HasAccuracy bool    `json:"has_accuracy"`
}

// Run feeds src through the engine batch by batch and measures the run end
// to end: compile on the first batch, then execute every batch in order. The
// wall-clock window covers the full per-batch cycle the demos go through --
// assembling inputs, executing, reducing outputs to predictions.
//
// The number of batches is src.Len()/opts.BatchSize, dropping the incomplete
// tail, capped by opts.MaxBatches. Accuracy compares each sample's
// scores.RowArgMax prediction on the first output against its label.
func Run(engine Engine, src Source, opts Options) (*Result, error) {
	if opts.BatchSize <= 0 {
		return nil, errors.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}
	batches := src.Len() / opts.BatchSize
	if opts.MaxBatches > 0 && batches > opts.MaxBatches {
		batches = opts.MaxBatches
	}
	if batches == 0 {
		return nil, errors.Errorf("source %q has %d samples, not enough for one batch of %d",
			src.Name(), src.Len(), opts.BatchSize)
	}

	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.Default(int64(batches), "benchmark")
	}

	samples := batches * opts.BatchSize
	predictions := make([]int, 0, samples)
	labels := make([]int, 0, samples)

	start := time.Now()
	for batch := 0; batch < batches; batch++ {
		inputs, batchLabels, err := src.Batch(batch*opts.BatchSize, opts.BatchSize)
		if err != nil {
			return nil, err
		}
		if batch == 0 {
			if err := engine.Compile(inputs...); err != nil {
				return nil, errors.WithMessage(err, "compiling first batch")
			}
		}
		outputs, err := engine.Execute(inputs...)
		if err != nil {
			return nil, errors.WithMessagef(err, "executing batch %d", batch)
		}
		if len(outputs) == 0 {
			return nil, errors.Errorf("model returned no outputs for batch %d", batch)
		}
		batchPredictions, err := scores.RowArgMax(outputs[0])
		if err != nil {
			return nil, errors.WithMessagef(err, "reducing outputs of batch %d", batch)
		}
		if len(batchPredictions) != len(batchLabels) {
			return nil, errors.Errorf("batch %d produced %d predictions for %d labels",
				batch, len(batchPredictions), len(batchLabels))
		}
		predictions = append(predictions, batchPredictions...)
		labels = append(labels, batchLabels...)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	elapsed := time.Since(start)
	if bar != nil {
		_ = bar.Finish()
	}

	labeled, matches := 0, 0
	for i, label := range labels {
		if label < 0 {
			continue
		}
		labeled++
		if predictions[i] == label {
			matches++
		}
	}
	result := &Result{
		RunID:      uuid.NewString(),
		Timestamp:  time.Now(),
		Model:      opts.Model,
		Device:     opts.Device,
		Source:     src.Name(),
		BatchSize:  opts.BatchSize,
		Batches:    batches,
		Samples:    samples,
		Elapsed:    elapsed,
		Throughput: float64(samples) / elapsed.Seconds(),
	}
	if labeled > 0 {
		result.Accuracy = float64(matches) / float64(labeled)
		result.HasAccuracy = true
	}
	return result, nil
}
