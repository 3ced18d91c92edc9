// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package imagenet is the shared pipeline behind the ImageNet classifier
// demos (cv/resnet, cv/vit): download a hub checkpoint, place its ONNX graph
// on a device, preprocess one sample image into a batch, run it through the
// session queues and resolve the top-k predictions against the checkpoint's
// label table.
//
// The demo packages only differ in their variant tables, preprocessing
// statistics and default inference configuration.
package imagenet

import (
	"image"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/zoo/checkpoint"
	"github.com/gomlx/zoo/inference"
	"github.com/gomlx/zoo/scores"
	"github.com/gomlx/zoo/vision"
	"github.com/pkg/errors"
)

// Options configures one classification run.
type Options struct {
	// Variant is the hub repository of the checkpoint to run.
	Variant string

	// BatchSize replicates the sample image across the batch dimension, the
	// way the original demos exercise batching.
	BatchSize int

	// TopK is how many predictions to report per batch row.
	TopK int

	// Config is handed to the inference device and session.
	Config inference.Config
}

// LabeledPrediction is one scored class with its label name resolved.
type LabeledPrediction struct {
	scores.Prediction
	Label string
}

// Classification holds the ranked predictions for one batch row.
type Classification struct {
	Predictions []LabeledPrediction
}

// Top returns the highest-scoring prediction.
func (c Classification) Top() LabeledPrediction {
	if len(c.Predictions) == 0 {
		return LabeledPrediction{Prediction: scores.Prediction{Index: -1}}
	}
	return c.Predictions[0]
}

// Classify runs the full classifier pipeline on img: checkpoint download,
// device initialization, module placement, preprocessing, one combined
// compile-and-execute run over the batch, then softmax, top-k and label
// lookup per row.
func Classify(img image.Image, prep vision.Preprocessor, opts Options) ([]Classification, error) {
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

	sample, err := prep.Tensor(img)
	if err != nil {
		return nil, err
	}
	batch, err := vision.RepeatBatch(sample, opts.BatchSize)
	if err != nil {
		return nil, err
	}

	if err := sess.Push(batch); err != nil {
		return nil, err
	}
	outputs, err := sess.Run().Get()
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, errors.Errorf("checkpoint %q produced no outputs", opts.Variant)
	}
	return Label(outputs[0], ckpt.Labels(), opts.TopK)
}

// Label converts a [batch, classes] logits tensor into per-row top-k
// predictions: softmax over each row, the k best classes, label names from
// the checkpoint's table.
func Label(logits *tensors.Tensor, labels checkpoint.Labels, k int) ([]Classification, error) {
	rows, err := scores.Rows(logits)
	if err != nil {
		return nil, err
	}
	out := make([]Classification, len(rows))
	for i, row := range rows {
		top := scores.TopK(scores.Softmax(row), k)
		preds := make([]LabeledPrediction, len(top))
		for j, p := range top {
			preds[j] = LabeledPrediction{Prediction: p, Label: labels.Name(p.Index)}
		}
		out[i] = Classification{Predictions: preds}
	}
	return out, nil
}
