// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package inference runs ONNX checkpoints through a GoMLX backend behind a
// small device/session API: open a Device, wrap a parsed model as a Module,
// place it on the device and feed batches through the resulting Session.
//
// The package is the only place in this repository that builds computation
// graphs or talks to a backend. Demos and benchmarks deal in tensors on one
// side and Config knobs on the other.
package inference

import (
	"os"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// DataFormat selects the floating point precision the model computes in.
// Inputs are cast to the selected dtype and outputs cast back to Float32, so
// callers always see Float32 results regardless of the format.
type DataFormat int

const (
	// Float32 computes in full precision. It is the zero value and the default.
	Float32 DataFormat = iota

	// Float16 computes in IEEE half precision.
	Float16

	// BFloat16 computes in bfloat16.
	BFloat16
)

// String implements fmt.Stringer and flag.Value.
func (f DataFormat) String() string {
	switch f {
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	case BFloat16:
		return "bfloat16"
	}
	return "invalid"
}

// DType returns the GoMLX dtype the format computes in.
func (f DataFormat) DType() dtypes.DType {
	switch f {
	case Float16:
		return dtypes.Float16
	case BFloat16:
		return dtypes.BFloat16
	}
	return dtypes.Float32
}

// Set implements flag.Value, accepting the names reported by String.
func (f *DataFormat) Set(value string) error {
	parsed, err := ParseDataFormat(value)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseDataFormat converts a flag value to a DataFormat.
func ParseDataFormat(value string) (DataFormat, error) {
	switch value {
	case "float32", "f32", "":
		return Float32, nil
	case "float16", "f16":
		return Float16, nil
	case "bfloat16", "bf16":
		return BFloat16, nil
	}
	return Float32, errors.Errorf("unknown data format %q, valid values are float32, float16 and bfloat16", value)
}

// DefaultQueueDepth is the input/output queue capacity used when
// Config.QueueDepth is zero.
const DefaultQueueDepth = 8

// Config carries the options applied when a module is placed on a device.
// It is consumed once at placement time; changing it afterwards has no effect
// on live sessions. The zero value is a working default.
type Config struct {
	// Backend is the backend configuration string handed verbatim to GoMLX,
	// e.g. "go" or "xla:cuda". Empty selects the SDK default, which honors
	// $GOMLX_BACKEND before falling back to the first registered backend.
	Backend string

	// Format is the on-device compute precision. See DataFormat.
	Format DataFormat

	// Streaming makes Session.Run return immediately while a worker goroutine
	// executes the queued batches. When false Run executes everything before
	// returning and the output queue is already complete.
	Streaming bool

	// AutoTranspose converts channels-last [batch, height, width, channels]
	// image inputs to the channels-first layout ONNX vision models declare.
	// It only fires for rank-4 inputs whose trailing dimension matches the
	// declared channel dimension.
	AutoTranspose bool

	// QueueDepth bounds how many batches may sit in the input queue, and the
	// output queue capacity in streaming mode. Zero means DefaultQueueDepth.
	QueueDepth int
}

// queueDepth resolves the configured depth, applying the default.
func (c Config) queueDepth() int {
	if c.QueueDepth > 0 {
		return c.QueueDepth
	}
	return DefaultQueueDepth
}

// DefaultBackendConfig reports the backend configuration an empty
// Config.Backend resolves to: $GOMLX_BACKEND when set, otherwise the first
// registered backend name.
func DefaultBackendConfig() string {
	if config := os.Getenv(backends.ConfigEnvVar); config != "" {
		return config
	}
	if names := backends.List(); len(names) > 0 {
		return names[0]
	}
	return ""
}
