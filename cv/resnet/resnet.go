// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package resnet classifies images with the hub's ResNet ONNX checkpoints
// (transformers.js exports of the torchvision weights). It is the simplest of
// the classifier demos: float32 compute, ImageNet normalization, automatic
// NHWC to NCHW transposition in the session.
package resnet

import (
	"image"

	"github.com/gomlx/zoo/cv/imagenet"
	"github.com/gomlx/zoo/fetch"
	"github.com/gomlx/zoo/inference"
	"github.com/gomlx/zoo/vision"
)

// Variants lists the checkpoints this demo knows how to run; the first entry
// is the default.
var Variants = []string{
	"Xenova/resnet-50",
	"Xenova/resnet-18",
}

// SampleImageURL is the demo input, the COCO val2017 photo of two cats on a
// couch that every classifier demo seems to agree on.
const SampleImageURL = "http://images.cocodataset.org/val2017/000000039769.jpg"

// ImageSize is the classifier's input resolution.
const ImageSize = 224

// Options configures one run; see imagenet.Options.
type Options = imagenet.Options

// Classification is the ranked predictions for one batch row.
type Classification = imagenet.Classification

// DefaultOptions returns the demo defaults: the first variant, a batch of
// one, top-5 predictions and float32 compute.
func DefaultOptions() Options {
	return Options{
		Variant:   Variants[0],
		BatchSize: 1,
		TopK:      5,
		Config: inference.Config{
			Backend:       inference.DefaultBackendConfig(),
			Format:        inference.Float32,
			AutoTranspose: true,
		},
	}
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
	return imagenet.Classify(img, vision.NewPreprocessor(ImageSize), opts)
}
