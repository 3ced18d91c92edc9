//go:build zoo_models

package textgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

// TestVariants downloads each encoder/decoder pair and generates from the
// sample prompt:
//
//	go test -tags zoo_models ./nlp/textgen/
func TestVariants(t *testing.T) {
	for _, variant := range Variants {
		t.Run(variant, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Variant = variant
			results, err := Run(opts)
			require.NoError(t, err)
			require.Len(t, results, 1)
			require.Equal(t, DefaultPrompt, results[0].Prompt)
			require.NotEmpty(t, results[0].Text)
			require.Greater(t, results[0].Steps, 0)
			require.Less(t, results[0].Steps, opts.Gen.MaxLength)
		})
	}
}
