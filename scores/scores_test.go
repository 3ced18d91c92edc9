package scores

import (
	"math"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/stretchr/testify/require"
)

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float32{1, 2, 3})
	require.Len(t, probs, 3)
	var sum float32
	for _, p := range probs {
		sum += p
	}
	require.InDelta(t, 1.0, sum, 1e-5)
	require.Greater(t, probs[2], probs[1])
	require.Greater(t, probs[1], probs[0])

	// Large logits must not overflow.
	probs = Softmax([]float32{1000, 1000, 999})
	require.False(t, math.IsNaN(float64(probs[0])))
	require.InDelta(t, probs[0], probs[1], 1e-5)

	require.Empty(t, Softmax(nil))
}

func TestSigmoid(t *testing.T) {
	ys := Sigmoid([]float32{0, -100, 100})
	require.InDelta(t, 0.5, ys[0], 1e-6)
	require.InDelta(t, 0.0, ys[1], 1e-6)
	require.InDelta(t, 1.0, ys[2], 1e-6)
}

func TestArgMax(t *testing.T) {
	require.Equal(t, -1, ArgMax([]float32{}))
	require.Equal(t, 0, ArgMax([]float32{7}))
	require.Equal(t, 2, ArgMax([]float32{1, 3, 5, 2}))
	// First maximum wins on ties.
	require.Equal(t, 1, ArgMax([]int32{0, 9, 9, 3}))
}

func TestTopK(t *testing.T) {
	xs := []float32{0.1, 0.7, 0.2, 0.7, 0.5}
	top := TopK(xs, 3)
	require.Len(t, top, 3)
	require.Equal(t, 1, top[0].Index) // ties keep lower index first
	require.Equal(t, 3, top[1].Index)
	require.Equal(t, 4, top[2].Index)

	require.Len(t, TopK(xs, 100), len(xs))
	require.Nil(t, TopK(xs, 0))
	// Input must not be reordered.
	require.Equal(t, []float32{0.1, 0.7, 0.2, 0.7, 0.5}, xs)
}

func TestRowArgMax(t *testing.T) {
	logits := tensors.FromFlatDataAndDimensions([]float32{
		0.1, 0.9, 0.0,
		2.0, -1.0, 0.5,
	}, 2, 3)
	idxs, err := RowArgMax(logits)
	require.NoError(t, err)
	require.Equal(t, []int{1, 0}, idxs)

	_, err = RowArgMax(tensors.FromFlatDataAndDimensions([]float32{1, 2, 3}, 3))
	require.Error(t, err)
}
