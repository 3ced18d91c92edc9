package xray

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathologies(t *testing.T) {
	require.Len(t, Pathologies, 18)
	seen := make(map[string]bool, len(Pathologies))
	for _, name := range Pathologies {
		require.NotEmpty(t, name)
		require.False(t, seen[name], "duplicate pathology %q", name)
		seen[name] = true
	}
}

func TestZipScores(t *testing.T) {
	row := make([]float32, len(Pathologies))
	row[0] = 0  // sigmoid(0) = 0.5
	row[1] = 10 // ~1
	row[2] = -10

	preds, err := zipScores(row)
	require.NoError(t, err)
	require.Len(t, preds, len(Pathologies))
	require.InDelta(t, 0.5, preds["Atelectasis"], 1e-6)
	require.Greater(t, preds["Consolidation"], float32(0.99))
	require.Less(t, preds["Infiltration"], float32(0.01))
	for name, score := range preds {
		require.GreaterOrEqual(t, score, float32(0), "pathology %q", name)
		require.LessOrEqual(t, score, float32(1), "pathology %q", name)
	}
}

func TestZipScoresRejectsWrongWidth(t *testing.T) {
	_, err := zipScores(make([]float32, 4))
	require.Error(t, err)
	require.Contains(t, err.Error(), "pathologies")
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.Equal(t, DefaultRepo, opts.Repo)
	require.Equal(t, 1, opts.BatchSize)
	require.False(t, opts.Config.AutoTranspose, "X-ray tensors are already channels-first")
}
