package bench

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/stretchr/testify/require"
)

func TestSliceSource(t *testing.T) {
	rows := [][]float32{{1, 2}, {3, 4}, {5, 6}}
	src, err := NewSliceSource("pairs", rows, []int{2}, []int{7, 8, 9})
	require.NoError(t, err)
	require.Equal(t, "pairs", src.Name())
	require.Equal(t, 3, src.Len())

	inputs, labels, err := src.Batch(1, 2)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	require.Equal(t, []int{2, 2}, inputs[0].Shape().Dimensions)
	require.Equal(t, []float32{3, 4, 5, 6}, tensors.MustCopyFlatData[float32](inputs[0]))
	require.Equal(t, []int{8, 9}, labels)
}

func TestSliceSourceValidation(t *testing.T) {
	_, err := NewSliceSource("empty", nil, []int{1}, nil)
	require.Error(t, err)

	// Row length must match the sample dimensions.
	_, err = NewSliceSource("ragged", [][]float32{{1}, {2, 3}}, []int{1}, nil)
	require.Error(t, err)

	_, err = NewSliceSource("bad-dims", [][]float32{{1}}, []int{0}, nil)
	require.Error(t, err)

	_, err = NewSliceSource("bad-labels", [][]float32{{1}, {2}}, []int{1}, []int{0})
	require.Error(t, err)

	src, err := NewSliceSource("ok", [][]float32{{1}, {2}}, []int{1}, nil)
	require.NoError(t, err)
	_, _, err = src.Batch(1, 2) // Past the end.
	require.Error(t, err)
	_, _, err = src.Batch(0, 0)
	require.Error(t, err)
}

func TestNewRepeatedSource(t *testing.T) {
	sample := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4}, 1, 2, 2)
	src, err := NewRepeatedSource("same-image", sample, 5)
	require.NoError(t, err)
	require.Equal(t, 5, src.Len())

	inputs, labels, err := src.Batch(0, 3)
	require.NoError(t, err)
	require.Equal(t, []int{3, 2, 2}, inputs[0].Shape().Dimensions)
	require.Equal(t,
		[]float32{1, 2, 3, 4, 1, 2, 3, 4, 1, 2, 3, 4},
		tensors.MustCopyFlatData[float32](inputs[0]))
	require.Equal(t, []int{-1, -1, -1}, labels) // Unlabeled.

	// The sample needs a leading batch axis of one.
	_, err = NewRepeatedSource("bad", tensors.FromFlatDataAndDimensions([]float32{1, 2}, 2, 1), 3)
	require.Error(t, err)
	_, err = NewRepeatedSource("bad", sample, 0)
	require.Error(t, err)
}

func TestNewTextSourceValidation(t *testing.T) {
	names := []string{"input_ids", "attention_mask"}

	_, err := NewTextSource("empty", nil, nil, nil, names)
	require.Error(t, err)

	_, err = NewTextSource("mismatch", []string{"a", "b"}, []int{1}, nil, names)
	require.Error(t, err)

	_, err = NewTextSource("no-inputs", []string{"a"}, nil, nil, nil)
	require.Error(t, err)

	src, err := NewTextSource("ok", []string{"a", "b"}, nil, nil, names)
	require.NoError(t, err)
	require.Equal(t, 2, src.Len())
	require.Equal(t, "ok", src.Name())
}
