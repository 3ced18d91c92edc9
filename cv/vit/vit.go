// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package vit classifies images with the hub's Vision Transformer ONNX
// checkpoint. It differs from cv/resnet in its preprocessing statistics (ViT
// normalizes with mean and std 0.5 rather than the ImageNet statistics) and
// in defaulting to float16 compute, the reduced-precision configuration the
// transformer stack tolerates well.
package vit

import (
	"image"

	"github.com/gomlx/zoo/cv/imagenet"
	"github.com/gomlx/zoo/fetch"
	"github.com/gomlx/zoo/inference"
	"github.com/gomlx/zoo/vision"
)

// Variants lists the checkpoints this demo knows how to run.
var Variants = []string{
	"Xenova/vit-base-patch16-224",
}

// SampleImageURL is the demo input, shared with cv/resnet.
const SampleImageURL = "http://images.cocodataset.org/val2017/000000039769.jpg"

// ImageSize is the classifier's input resolution (224 for patch16-224).
const ImageSize = 224

// Options configures one run; see imagenet.Options.
type Options = imagenet.Options

// Classification is the ranked predictions for one batch row.
type Classification = imagenet.Classification

// DefaultOptions returns the demo defaults: batch of one, top-5 predictions
// and float16 compute.
func DefaultOptions() Options {
	return Options{
		Variant:   Variants[0],
		BatchSize: 1,
		TopK:      5,
		Config: inference.Config{
			Backend:       inference.DefaultBackendConfig(),
			Format:        inference.Float16,
			AutoTranspose: true,
		},
	}
}

// preprocessor returns the ViT input pipeline: 224 resize and crop, then
// normalization to [-1, 1].
func preprocessor() vision.Preprocessor {
	return vision.NewPreprocessor(ImageSize).
		WithNormalization([3]float32{0.5, 0.5, 0.5}, [3]float32{0.5, 0.5, 0.5})
}

// Run fetches the sample image and classifies a batch of BatchSize copies of
// it with the selected variant.
func Run(opts Options) ([]Classification, error) {
	img, err := fetch.Image(SampleImageURL)
	if err != nil {
		return nil, err
	}
	return Classify(img, opts)
}

// Classify runs the full pipeline on one image.
func Classify(img image.Image, opts Options) ([]Classification, error) {
	return imagenet.Classify(img, preprocessor(), opts)
}
