package retrieval

import (
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/zoo/inference"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

func TestRankPassages(t *testing.T) {
	query := []float32{1, 0}
	embeddings := [][]float32{
		{0, 1},     // orthogonal
		{1, 0},     // identical
		{0.6, 0.8}, // partial match
		{-1, 0},    // opposite
	}
	passages := []string{"north", "east", "northeast-ish", "west"}

	ranked := rankPassages(query, embeddings, passages)
	require.Len(t, ranked, 4)
	require.Equal(t, "east", ranked[0].Passage)
	require.Equal(t, 1, ranked[0].Index)
	require.InDelta(t, 1.0, ranked[0].Score, 1e-6)
	require.Equal(t, "northeast-ish", ranked[1].Passage)
	require.Equal(t, "north", ranked[2].Passage)
	require.Equal(t, "west", ranked[3].Passage)
	require.InDelta(t, -1.0, ranked[3].Score, 1e-6)
}

func TestRankPassagesTiesKeepInputOrder(t *testing.T) {
	query := []float32{1, 0}
	embeddings := [][]float32{{1, 0}, {1, 0}}
	ranked := rankPassages(query, embeddings, []string{"first", "second"})
	require.Equal(t, "first", ranked[0].Passage)
	require.Equal(t, "second", ranked[1].Passage)
}

func TestDot(t *testing.T) {
	require.Equal(t, float32(11), dot([]float32{1, 2, 3}, []float32{3, 1, 2}))
	require.Zero(t, dot(nil, nil))
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.Equal(t, Variants[0], opts.Variant)
	require.Empty(t, opts.Query)
	require.Empty(t, opts.Passages)
}

// TestEmbedTransform runs the pooling graph on a stand-in encoder: the
// module passes its token embeddings through untouched, so the transform's
// output is checkable by hand.
func TestEmbedTransform(t *testing.T) {
	module := inference.NewModule("stub-encoder",
		[]inference.InputSpec{
			{Name: "token_embeddings", Dimensions: []int{-1, -1, 2}},
			{Name: "attention_mask", Dimensions: []int{-1, -1}},
		},
		[]string{"last_hidden_state"},
		func(_ *context.Context, _ *Graph, inputs map[string]*Node) []*Node {
			return []*Node{AddScalar(inputs["token_embeddings"], 0)}
		}).WithTransform([]string{"embeddings"}, embedTransform)

	device, err := inference.NewDevice(inference.Config{Backend: "go"})
	require.NoError(t, err)
	defer device.Close()
	sess, err := device.Place(module)
	require.NoError(t, err)
	defer sess.Close()

	// Row 0: only the first token is unmasked, so pooling selects [3, 4],
	// which normalizes to [0.6, 0.8]. Row 1 averages two identical tokens.
	hidden := tensors.FromFlatDataAndDimensions([]float32{
		3, 4, 100, 200,
		5, 0, 5, 0,
	}, 2, 2, 2)
	mask := tensors.FromFlatDataAndDimensions([]int64{1, 0, 1, 1}, 2, 2)

	outputs, err := sess.Execute(hidden, mask)
	require.NoError(t, err)
	require.Equal(t, []int{2, 2}, outputs[0].Shape().Dimensions)
	flat := tensors.MustCopyFlatData[float32](outputs[0])
	require.InDelta(t, 0.6, flat[0], 1e-5)
	require.InDelta(t, 0.8, flat[1], 1e-5)
	require.InDelta(t, 1.0, flat[2], 1e-5)
	require.InDelta(t, 0.0, flat[3], 1e-5)
}
