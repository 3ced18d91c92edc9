// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package vision turns sample images into the fixed-shape input tensors CV
// checkpoints expect: shortest-side resize, center crop and per-channel
// normalization for ImageNet-style classifiers, plus the grayscale
// normalization chain chest X-ray models use.
//
// Tensors are produced channels-last ([batch, height, width, channels]);
// conversion to the channels-first layout ONNX models usually want is handled
// by the inference session (see inference.Config.AutoTranspose).
package vision

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/pkg/errors"
)

// ImageNet normalization statistics, the default for hub classifier
// checkpoints.
var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocessor resizes, crops and normalizes images for a classifier with a
// square input of side Size.
type Preprocessor struct {
	Size int
	Mean [3]float32
	Std  [3]float32
}

// NewPreprocessor returns a Preprocessor with ImageNet normalization.
func NewPreprocessor(size int) Preprocessor {
	return Preprocessor{Size: size, Mean: ImageNetMean, Std: ImageNetStd}
}

// WithNormalization overrides the per-channel normalization statistics (e.g.
// ViT checkpoints use mean and std 0.5).
func (p Preprocessor) WithNormalization(mean, std [3]float32) Preprocessor {
	p.Mean, p.Std = mean, std
	return p
}

// Prepare resizes the smallest dimension to Size preserving the aspect ratio,
// then center-crops to Size×Size.
func (p Preprocessor) Prepare(img image.Image) image.Image {
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	if width < height {
		ratio := float64(width) / float64(p.Size)
		width = p.Size
		height = int(math.Round(float64(height) / ratio))
	} else if height < width {
		ratio := float64(height) / float64(p.Size)
		height = p.Size
		width = int(math.Round(float64(width) / ratio))
	} else {
		width = p.Size
		height = p.Size
	}
	resized := imaging.Resize(img, width, height, imaging.Linear)

	if width > height {
		start := (width - p.Size) / 2
		return imaging.Crop(resized, image.Rect(start, 0, start+p.Size, p.Size))
	}
	if height > width {
		start := (height - p.Size) / 2
		return imaging.Crop(resized, image.Rect(0, start, p.Size, start+p.Size))
	}
	return resized
}

// Tensor prepares the given images and packs them into a normalized
// [batch, Size, Size, 3] float32 tensor.
func (p Preprocessor) Tensor(imgs ...image.Image) (*tensors.Tensor, error) {
	if len(imgs) == 0 {
		return nil, errors.New("vision: no images to convert")
	}
	prepared := make([]image.Image, len(imgs))
	for i, img := range imgs {
		prepared[i] = p.Prepare(img)
	}
	t := images.ToTensor(dtypes.Float32).Batch(prepared)
	flat := tensors.MustCopyFlatData[float32](t)
	// ToTensor scales to [0,1]; shift to the checkpoint's statistics.
	for i := range flat {
		c := i % 3
		flat[i] = (flat[i] - p.Mean[c]) / p.Std[c]
	}
	return tensors.FromFlatDataAndDimensions(flat, len(imgs), p.Size, p.Size, 3), nil
}

// RepeatBatch replicates a single-sample tensor (first dimension 1) n times
// along the batch dimension. The original demos build their batches this way,
// repeating one sample image.
func RepeatBatch(t *tensors.Tensor, n int) (*tensors.Tensor, error) {
	if n <= 0 {
		return nil, errors.Errorf("vision: batch size must be positive, got %d", n)
	}
	dims := t.Shape().Dimensions
	if len(dims) == 0 || dims[0] != 1 {
		return nil, errors.Errorf("vision: RepeatBatch wants a single-sample tensor, got shape %s", t.Shape())
	}
	if n == 1 {
		return t, nil
	}
	flat := tensors.MustCopyFlatData[float32](t)
	repeated := make([]float32, 0, n*len(flat))
	for range n {
		repeated = append(repeated, flat...)
	}
	newDims := append([]int{n}, dims[1:]...)
	return tensors.FromFlatDataAndDimensions(repeated, newDims...), nil
}

// XRayTensor applies the chest X-ray preprocessing chain: single gray channel,
// pixel values mapped to [-1024, 1024], center crop to square, resize to
// size×size. The result is a [1, 1, size, size] float32 tensor, the
// channels-first single-channel layout X-ray models take.
func XRayTensor(img image.Image, size int) (*tensors.Tensor, error) {
	if size <= 0 {
		return nil, errors.Errorf("vision: invalid X-ray size %d", size)
	}
	bounds := img.Bounds()
	side := min(bounds.Dx(), bounds.Dy())
	square := imaging.CropCenter(img, side, side)
	resized := imaging.Resize(square, size, size, imaging.Linear)

	flat := make([]float32, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			// X-ray sources are grayscale; the first channel is the gray value.
			v := float32(resized.NRGBAAt(x, y).R)
			flat[y*size+x] = (2*(v/255) - 1) * 1024
		}
	}
	return tensors.FromFlatDataAndDimensions(flat, 1, 1, size, size), nil
}
