// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package scores implements the CPU-side post-processing applied to model
// outputs: softmax, sigmoid, argmax and top-k selection over logit slices,
// plus helpers to extract per-row scores from batched output tensors.
//
// Everything here is pure arithmetic over plain slices; none of the functions
// mutate their inputs.
package scores

import (
	"math"
	"sort"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Prediction is one scored class index, as returned by TopK.
type Prediction struct {
	Index int
	Score float32
}

// Softmax returns the softmax of xs. It is numerically stable (the maximum is
// subtracted before exponentiation) and returns an empty slice for empty input.
func Softmax(xs []float32) []float32 {
	out := make([]float32, len(xs))
	if len(xs) == 0 {
		return out
	}
	maxV := xs[ArgMax(xs)]
	var sum float64
	for i, x := range xs {
		e := math.Exp(float64(x - maxV))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// Sigmoid applies the logistic function element-wise.
func Sigmoid(xs []float32) []float32 {
	out := make([]float32, len(xs))
	for i, x := range xs {
		out[i] = float32(1.0 / (1.0 + math.Exp(-float64(x))))
	}
	return out
}

// ArgMax returns the index of the first maximum element, or -1 for an empty
// slice.
func ArgMax[T constraints.Integer | constraints.Float](xs []T) int {
	if len(xs) == 0 {
		return -1
	}
	best := 0
	for i, x := range xs[1:] {
		if x > xs[best] {
			best = i + 1
		}
	}
	return best
}

// TopK returns the k highest-scoring entries of xs, ordered by score
// descending, ties broken by lower index. k is clamped to len(xs).
func TopK(xs []float32, k int) []Prediction {
	if k > len(xs) {
		k = len(xs)
	}
	if k <= 0 {
		return nil
	}
	preds := make([]Prediction, len(xs))
	for i, x := range xs {
		preds[i] = Prediction{Index: i, Score: x}
	}
	sort.SliceStable(preds, func(a, b int) bool { return preds[a].Score > preds[b].Score })
	return preds[:k]
}

// Rows copies a [batch, n] float32 tensor out to one slice per batch row.
func Rows(t *tensors.Tensor) ([][]float32, error) {
	dims := t.Shape().Dimensions
	if len(dims) != 2 {
		return nil, errors.Errorf("scores.Rows: want a rank-2 tensor, got shape %s", t.Shape())
	}
	flat := tensors.MustCopyFlatData[float32](t)
	batch, n := dims[0], dims[1]
	rows := make([][]float32, batch)
	for i := range rows {
		rows[i] = flat[i*n : (i+1)*n]
	}
	return rows, nil
}

// RowArgMax returns the argmax of each row of a [batch, n] float32 tensor.
// This is the usual conversion from a classifier's output logits to predicted
// label indices.
func RowArgMax(t *tensors.Tensor) ([]int, error) {
	rows, err := Rows(t)
	if err != nil {
		return nil, err
	}
	idxs := make([]int, len(rows))
	for i, row := range rows {
		idxs[i] = ArgMax(row)
	}
	return idxs, nil
}
