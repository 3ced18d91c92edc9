package inference

import (
	"flag"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/stretchr/testify/require"
)

func TestDataFormat(t *testing.T) {
	require.Equal(t, "float32", Float32.String())
	require.Equal(t, "float16", Float16.String())
	require.Equal(t, "bfloat16", BFloat16.String())

	require.Equal(t, dtypes.Float32, Float32.DType())
	require.Equal(t, dtypes.Float16, Float16.DType())
	require.Equal(t, dtypes.BFloat16, BFloat16.DType())

	for _, test := range []struct {
		value string
		want  DataFormat
	}{
		{"float32", Float32},
		{"f32", Float32},
		{"", Float32},
		{"float16", Float16},
		{"f16", Float16},
		{"bfloat16", BFloat16},
		{"bf16", BFloat16},
	} {
		got, err := ParseDataFormat(test.value)
		require.NoError(t, err, "value=%q", test.value)
		require.Equal(t, test.want, got, "value=%q", test.value)
	}

	_, err := ParseDataFormat("float8")
	require.Error(t, err)
}

func TestDataFormatFlag(t *testing.T) {
	var format DataFormat
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(&format, "format", "")
	require.NoError(t, fs.Parse([]string{"-format", "bf16"}))
	require.Equal(t, BFloat16, format)
	require.Error(t, fs.Parse([]string{"-format", "int8"}))
}

func TestConfigQueueDepth(t *testing.T) {
	require.Equal(t, DefaultQueueDepth, Config{}.queueDepth())
	require.Equal(t, 3, Config{QueueDepth: 3}.queueDepth())
}

func TestDefaultBackendConfig(t *testing.T) {
	t.Setenv("GOMLX_BACKEND", "go")
	require.Equal(t, "go", DefaultBackendConfig())
}
