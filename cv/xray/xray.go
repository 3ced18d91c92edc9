// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xray screens chest X-rays for pathologies with the torchxrayvision
// DenseNet-121 model. Unlike the ImageNet classifiers this is multi-label:
// every pathology gets an independent sigmoid score, there is no argmax and
// no softmax.
//
// The model takes the torchxrayvision input convention: a single gray
// channel, pixel values scaled to [-1024, 1024], center-cropped and resized
// to 224 (see vision.XRayTensor).
package xray

import (
	"image"
	"path/filepath"

	"github.com/gomlx/onnx-gomlx/onnx"
	"github.com/gomlx/zoo/checkpoint"
	"github.com/gomlx/zoo/fetch"
	"github.com/gomlx/zoo/inference"
	"github.com/gomlx/zoo/scores"
	"github.com/gomlx/zoo/vision"
	"github.com/pkg/errors"
)

// Pathologies are the model's output heads, in output order (the
// torchxrayvision default pathology list).
var Pathologies = []string{
	"Atelectasis",
	"Consolidation",
	"Infiltration",
	"Pneumothorax",
	"Edema",
	"Emphysema",
	"Fibrosis",
	"Effusion",
	"Pneumonia",
	"Pleural_Thickening",
	"Cardiomegaly",
	"Nodule",
	"Mass",
	"Hernia",
	"Lung Lesion",
	"Fracture",
	"Lung Opacity",
	"Enlarged Cardiomediastinum",
}

// SampleImageURL is the demo input, the sample X-ray from the
// torchxrayvision classifier space.
const SampleImageURL = "https://huggingface.co/spaces/torchxrayvision/torchxrayvision-classifier/resolve/main/16747_3_1.jpg"

// DefaultRepo is the hub repository of the "all datasets" DenseNet-121
// weights.
const DefaultRepo = "torchxrayvision/densenet121-res224-all"

// ImageSize is the model's input resolution.
const ImageSize = 224

// Options configures one screening run.
type Options struct {
	// Repo is the hub repository holding the ONNX export.
	Repo string

	// ONNXPath, when set, loads the graph from a local file instead of the
	// hub, for self-exported models.
	ONNXPath string

	// BatchSize replicates the X-ray across the batch dimension.
	BatchSize int

	// Config is handed to the inference device and session.
	Config inference.Config
}

// DefaultOptions returns the demo defaults: the hub export, batch of one,
// float32 compute on the default backend.
func DefaultOptions() Options {
	return Options{
		Repo:      DefaultRepo,
		BatchSize: 1,
		Config: inference.Config{
			Backend: inference.DefaultBackendConfig(),
			Format:  inference.Float32,
		},
	}
}

// Run fetches the sample X-ray and screens it.
func Run(opts Options) (map[string]float32, error) {
	img, err := fetch.Image(SampleImageURL)
	if err != nil {
		return nil, err
	}
	return Screen(img, opts)
}

// Screen scores one X-ray against all pathologies: model load (hub download
// or local file), device initialization, module placement, the
// torchxrayvision preprocessing chain, one combined run over the replicated
// batch and a sigmoid per output head. The first batch row is reported.
func Screen(img image.Image, opts Options) (map[string]float32, error) {
	if opts.BatchSize <= 0 {
		return nil, errors.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}

	var model *onnx.Model
	var name string
	if opts.ONNXPath != "" {
		var err error
		model, err = onnx.ReadFile(opts.ONNXPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse ONNX graph %q", opts.ONNXPath)
		}
		defer model.Close()
		name = filepath.Base(opts.ONNXPath)
	} else {
		ckpt, err := checkpoint.Download(checkpoint.New(opts.Repo))
		if err != nil {
			return nil, err
		}
		defer ckpt.Close()
		model, err = ckpt.Model()
		if err != nil {
			return nil, err
		}
		name = ckpt.Name()
	}

	device, err := inference.NewDevice(opts.Config)
	if err != nil {
		return nil, err
	}
	defer device.Close()
	sess, err := device.Place(inference.WrapModule(name, model))
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	sample, err := vision.XRayTensor(img, ImageSize)
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
		return nil, errors.Errorf("model %q produced no outputs", name)
	}
	rows, err := scores.Rows(outputs[0])
	if err != nil {
		return nil, err
	}
	return zipScores(rows[0])
}

// zipScores pairs one row of logits with the pathology names, sigmoid
// applied.
func zipScores(row []float32) (map[string]float32, error) {
	if len(row) != len(Pathologies) {
		return nil, errors.Errorf("model produced %d scores for %d pathologies", len(row), len(Pathologies))
	}
	probs := scores.Sigmoid(row)
	out := make(map[string]float32, len(Pathologies))
	for i, name := range Pathologies {
		out[name] = probs[i]
	}
	return out, nil
}
