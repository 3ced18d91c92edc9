package sentiment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkTexts(t *testing.T) {
	texts := []string{"a", "b", "c", "d", "e"}

	chunks := chunkTexts(texts, 2)
	require.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, chunks)

	chunks = chunkTexts(texts, 5)
	require.Equal(t, [][]string{texts}, chunks)

	chunks = chunkTexts(texts, 10)
	require.Equal(t, [][]string{texts}, chunks)

	require.Empty(t, chunkTexts(nil, 3))
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.Equal(t, Variants[0], opts.Variant)
	require.Equal(t, 4, opts.BatchSize)
	require.True(t, opts.Config.Streaming)
}

func TestRunRejectsBadBatch(t *testing.T) {
	opts := DefaultOptions()
	opts.BatchSize = 0
	_, err := Run(opts)
	require.Error(t, err)
	require.Contains(t, err.Error(), "batch size")
}
