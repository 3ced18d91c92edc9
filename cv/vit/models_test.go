//go:build zoo_models

package vit

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

// TestVariants downloads each checkpoint and classifies the sample image:
//
//	go test -tags zoo_models ./cv/vit/
func TestVariants(t *testing.T) {
	for _, variant := range Variants {
		t.Run(variant, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Variant = variant
			classes, err := Run(opts)
			require.NoError(t, err)
			require.Len(t, classes, 1)
			require.NotEmpty(t, classes[0].Predictions)
			require.NotEmpty(t, classes[0].Top().Label)
		})
	}
}
