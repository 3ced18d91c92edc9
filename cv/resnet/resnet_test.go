package resnet

import (
	"testing"

	"github.com/gomlx/zoo/inference"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.Equal(t, Variants[0], opts.Variant)
	require.Equal(t, 1, opts.BatchSize)
	require.Equal(t, 5, opts.TopK)
	require.Equal(t, inference.Float32, opts.Config.Format)
	require.True(t, opts.Config.AutoTranspose)
}
