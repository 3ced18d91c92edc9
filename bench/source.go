// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package bench drives a placed model through a labeled evaluation set and
// reports throughput and accuracy: the split compile-then-execute-per-batch
// path, timed end to end.
package bench

import (
	"slices"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/zoo/textenc"
	"github.com/pkg/errors"
)

// Source is an evaluation set that yields batches ready to feed a session.
// Labels are class indices aligned with the model's output; a label of -1
// marks an unlabeled sample (throughput-only benchmarks).
type Source interface {
	Name() string
	Len() int

	// Batch returns the input tensors covering samples [start, start+size)
	// plus their labels.
	Batch(start, size int) (inputs []*tensors.Tensor, labels []int, err error)
}

// SliceSource serves pre-computed feature rows from memory. Every sample has
// the same per-sample dimensions; a batch of size B is one [B, dims...]
// tensor assembled from the rows.
type SliceSource struct {
	name   string
	rows   [][]float32
	dims   []int
	labels []int
}

// NewSliceSource builds a source from one float32 row per sample. dims are
// the per-sample dimensions, without the batch axis. labels may be nil for
// an unlabeled set.
func NewSliceSource(name string, rows [][]float32, dims []int, labels []int) (*SliceSource, error) {
	if len(rows) == 0 {
		return nil, errors.Errorf("source %q has no samples", name)
	}
	rowLen := 1
	for _, dim := range dims {
		if dim <= 0 {
			return nil, errors.Errorf("source %q: invalid sample dimensions %v", name, dims)
		}
		rowLen *= dim
	}
	for i, row := range rows {
		if len(row) != rowLen {
			return nil, errors.Errorf("source %q: row %d has %d values, want %d for dimensions %v",
				name, i, len(row), rowLen, dims)
		}
	}
	if labels == nil {
		labels = make([]int, len(rows))
		for i := range labels {
			labels[i] = -1
		}
	} else if len(labels) != len(rows) {
		return nil, errors.Errorf("source %q: %d rows but %d labels", name, len(rows), len(labels))
	}
	return &SliceSource{
		name:   name,
		rows:   rows,
		dims:   slices.Clone(dims),
		labels: slices.Clone(labels),
	}, nil
}

// NewRepeatedSource repeats one prepared [1, dims...] sample n times,
// unlabeled. Vision throughput benchmarks use it the way the demos replicate
// a single sample image to fill a batch.
func NewRepeatedSource(name string, sample *tensors.Tensor, n int) (*SliceSource, error) {
	dims := sample.Shape().Dimensions
	if len(dims) < 2 || dims[0] != 1 {
		return nil, errors.Errorf("sample must have a leading batch axis of 1, got shape %v", dims)
	}
	if n <= 0 {
		return nil, errors.Errorf("need a positive number of repeats, got %d", n)
	}
	row := tensors.MustCopyFlatData[float32](sample)
	rows := make([][]float32, n)
	for i := range rows {
		rows[i] = row
	}
	return NewSliceSource(name, rows, dims[1:], nil)
}

func (s *SliceSource) Name() string { return s.name }
func (s *SliceSource) Len() int     { return len(s.rows) }

func (s *SliceSource) Batch(start, size int) ([]*tensors.Tensor, []int, error) {
	if err := checkRange(s.name, start, size, len(s.rows)); err != nil {
		return nil, nil, err
	}
	rowLen := len(s.rows[0])
	flat := make([]float32, 0, size*rowLen)
	for _, row := range s.rows[start : start+size] {
		flat = append(flat, row...)
	}
	dims := append([]int{size}, s.dims...)
	batch := tensors.FromFlatDataAndDimensions(flat, dims...)
	return []*tensors.Tensor{batch}, slices.Clone(s.labels[start : start+size]), nil
}

// TextSource tokenizes raw texts on demand, producing batches ordered by the
// placed module's declared input names so they can be pushed positionally.
type TextSource struct {
	name   string
	texts  []string
	labels []int
	enc    *textenc.Encoder
	inputs []string
}

// NewTextSource builds a source over texts with aligned labels (nil for
// unlabeled). inputs are the module's input names in declared order, usually
// taken from Session.Inputs; ONNX exports disagree on whether token_type_ids
// comes before or after attention_mask, so the order is not hardcoded here.
func NewTextSource(name string, texts []string, labels []int, enc *textenc.Encoder, inputs []string) (*TextSource, error) {
	if len(texts) == 0 {
		return nil, errors.Errorf("source %q has no samples", name)
	}
	if len(inputs) == 0 {
		return nil, errors.Errorf("source %q: no input names to order batches by", name)
	}
	if labels == nil {
		labels = make([]int, len(texts))
		for i := range labels {
			labels[i] = -1
		}
	} else if len(labels) != len(texts) {
		return nil, errors.Errorf("source %q: %d texts but %d labels", name, len(texts), len(labels))
	}
	return &TextSource{
		name:   name,
		texts:  texts,
		labels: slices.Clone(labels),
		enc:    enc,
		inputs: slices.Clone(inputs),
	}, nil
}

func (s *TextSource) Name() string { return s.name }
func (s *TextSource) Len() int     { return len(s.texts) }

func (s *TextSource) Batch(start, size int) ([]*tensors.Tensor, []int, error) {
	if err := checkRange(s.name, start, size, len(s.texts)); err != nil {
		return nil, nil, err
	}
	encoded, err := s.enc.EncodeBatch(s.texts[start : start+size])
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "encoding batch [%d, %d) of %q", start, start+size, s.name)
	}
	inputs, err := encoded.ForInputs(s.inputs)
	if err != nil {
		return nil, nil, err
	}
	return inputs, slices.Clone(s.labels[start : start+size]), nil
}

func checkRange(name string, start, size, total int) error {
	if start < 0 || size <= 0 || start+size > total {
		return errors.Errorf("source %q: batch [%d, %d) out of range, %d samples", name, start, start+size, total)
	}
	return nil
}
