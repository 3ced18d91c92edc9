package bench

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSST2(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dev.tsv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadSST2(t *testing.T) {
	path := writeSST2(t, "sentence\tlabel\n"+
		"a charming , funny film \t1\n"+
		"dull , tired and numbingly predictable \t0\n"+
		"contains a stray \" quote in the middle \t1\n")

	texts, labels, err := LoadSST2(path, 0)
	require.NoError(t, err)
	require.Len(t, texts, 3)
	require.Equal(t, []int{1, 0, 1}, labels)
	require.Contains(t, texts[0], "charming")
	require.Contains(t, texts[2], "\"")
}

func TestLoadSST2Limit(t *testing.T) {
	path := writeSST2(t, "sentence\tlabel\nfirst\t1\nsecond\t0\nthird\t1\n")

	texts, labels, err := LoadSST2(path, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, texts)
	require.Equal(t, []int{1, 0}, labels)

	// A limit past the end keeps everything.
	texts, _, err = LoadSST2(path, 100)
	require.NoError(t, err)
	require.Len(t, texts, 3)
}

func TestLoadSST2Errors(t *testing.T) {
	_, _, err := LoadSST2(filepath.Join(t.TempDir(), "missing.tsv"), 0)
	require.Error(t, err)

	path := writeSST2(t, "text\tscore\nhello \t1\n")
	_, _, err = LoadSST2(path, 0)
	require.ErrorContains(t, err, "SST-2")

	path = writeSST2(t, "sentence\tlabel\nhello \tpositive\n")
	_, _, err = LoadSST2(path, 0)
	require.Error(t, err)
}
