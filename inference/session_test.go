package inference

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/require"
)

func testDevice(t *testing.T, cfg Config) *Device {
	t.Helper()
	return newDeviceForBackend(graphtest.BuildTestBackend(), cfg)
}

// addOneModule declares a single rank-1 input and adds 1 to it.
func addOneModule() *Module {
	return NewModule("add-one",
		[]InputSpec{{Name: "x", Dimensions: []int{-1}}},
		[]string{"y"},
		func(_ *context.Context, _ *Graph, inputs map[string]*Node) []*Node {
			return []*Node{AddScalar(inputs["x"], 1)}
		})
}

// passThroughModule returns its input unchanged, with the given declared
// dimensions.
func passThroughModule(name string, dims []int) *Module {
	return NewModule(name,
		[]InputSpec{{Name: "value", Dimensions: dims}},
		[]string{"out"},
		func(_ *context.Context, _ *Graph, inputs map[string]*Node) []*Node {
			return []*Node{AddScalar(inputs["value"], 0)}
		})
}

func vec(values ...float32) *tensors.Tensor {
	return tensors.FromFlatDataAndDimensions(values, len(values))
}

func TestSessionPushRun(t *testing.T) {
	device := testDevice(t, Config{})
	sess, err := device.Place(addOneModule())
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.Push(vec(1)))
	require.NoError(t, sess.Push(vec(2)))
	require.NoError(t, sess.Push(vec(3)))

	q := sess.Run()
	for _, want := range []float32{2, 3, 4} {
		outputs, err := q.Get()
		require.NoError(t, err)
		require.Len(t, outputs, 1)
		require.Equal(t, []float32{want}, tensors.MustCopyFlatData[float32](outputs[0]))
	}
	_, err = q.Get()
	require.ErrorIs(t, err, ErrQueueClosed)

	// The first Run drained the input queue.
	q = sess.Run()
	_, err = q.Get()
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestSessionStreaming(t *testing.T) {
	device := testDevice(t, Config{Streaming: true, QueueDepth: 4})
	sess, err := device.Place(addOneModule())
	require.NoError(t, err)
	defer sess.Close()

	for _, v := range []float32{10, 20, 30, 40} {
		require.NoError(t, sess.Push(vec(v)))
	}
	q := sess.Run()
	for _, want := range []float32{11, 21, 31, 41} {
		outputs, err := q.Get()
		require.NoError(t, err)
		require.Equal(t, []float32{want}, tensors.MustCopyFlatData[float32](outputs[0]))
	}
	_, err = q.Get()
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestSessionExecute(t *testing.T) {
	device := testDevice(t, Config{})
	sess, err := device.Place(addOneModule())
	require.NoError(t, err)
	defer sess.Close()

	outputs, err := sess.Execute(vec(5))
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	require.Equal(t, []float32{6}, tensors.MustCopyFlatData[float32](outputs[0]))

	// Input count must match the declared interface.
	_, err = sess.Execute()
	require.Error(t, err)
	_, err = sess.Execute(vec(1), vec(2))
	require.Error(t, err)
}

func TestSessionMultipleOutputs(t *testing.T) {
	module := NewModule("sum-and-double",
		[]InputSpec{{Name: "x", Dimensions: []int{-1}}},
		[]string{"sum", "double"},
		func(_ *context.Context, _ *Graph, inputs map[string]*Node) []*Node {
			return []*Node{AddScalar(inputs["x"], 1), MulScalar(inputs["x"], 2)}
		})
	device := testDevice(t, Config{})
	sess, err := device.Place(module)
	require.NoError(t, err)
	defer sess.Close()

	outputs, err := sess.Execute(vec(3))
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	require.Equal(t, []float32{4}, tensors.MustCopyFlatData[float32](outputs[0]))
	require.Equal(t, []float32{6}, tensors.MustCopyFlatData[float32](outputs[1]))
	require.Equal(t, []string{"sum", "double"}, sess.Outputs())
}

func TestSessionCompile(t *testing.T) {
	device := testDevice(t, Config{})
	sess, err := device.Place(addOneModule())
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.Compile(vec(1, 2, 3)))
	require.NoError(t, sess.Compile(vec(4, 5, 6))) // Same shapes: no-op.

	outputs, err := sess.Execute(vec(7, 8, 9))
	require.NoError(t, err)
	require.Equal(t, []float32{8, 9, 10}, tensors.MustCopyFlatData[float32](outputs[0]))
}

func TestSessionQueueFull(t *testing.T) {
	device := testDevice(t, Config{QueueDepth: 1})
	sess, err := device.Place(addOneModule())
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.Push(vec(1)))
	require.ErrorIs(t, sess.Push(vec(2)), ErrQueueFull)

	q := sess.Run()
	_, err = q.Get()
	require.NoError(t, err)

	// Run drained the input queue, Push works again.
	require.NoError(t, sess.Push(vec(3)))
}

func TestSessionClose(t *testing.T) {
	device := testDevice(t, Config{})
	sess, err := device.Place(addOneModule())
	require.NoError(t, err)

	sess.Close()
	sess.Close() // Idempotent.

	require.ErrorIs(t, sess.Push(vec(1)), ErrSessionClosed)
	require.ErrorIs(t, sess.Compile(vec(1)), ErrSessionClosed)
	_, err = sess.Execute(vec(1))
	require.ErrorIs(t, err, ErrSessionClosed)

	q := sess.Run()
	_, err = q.Get()
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionAutoTranspose(t *testing.T) {
	// Channels-first model interface, channels-last input.
	module := passThroughModule("image", []int{-1, 3, 2, 2})
	device := testDevice(t, Config{AutoTranspose: true})
	sess, err := device.Place(module)
	require.NoError(t, err)
	defer sess.Close()

	nhwc := make([]float32, 12)
	for i := range nhwc {
		nhwc[i] = float32(i)
	}
	outputs, err := sess.Execute(tensors.FromFlatDataAndDimensions(nhwc, 1, 2, 2, 3))
	require.NoError(t, err)
	require.Equal(t, []int{1, 3, 2, 2}, outputs[0].Shape().Dimensions)
	require.Equal(t,
		[]float32{0, 3, 6, 9, 1, 4, 7, 10, 2, 5, 8, 11},
		tensors.MustCopyFlatData[float32](outputs[0]))

	// Already channels-first: untouched.
	nchw := make([]float32, 12)
	for i := range nchw {
		nchw[i] = float32(i)
	}
	outputs, err = sess.Execute(tensors.FromFlatDataAndDimensions(nchw, 1, 3, 2, 2))
	require.NoError(t, err)
	require.Equal(t, []int{1, 3, 2, 2}, outputs[0].Shape().Dimensions)
	require.Equal(t, nchw, tensors.MustCopyFlatData[float32](outputs[0]))
}

func TestNeedsTranspose(t *testing.T) {
	for _, test := range []struct {
		name           string
		dims, declared []int
		want           bool
	}{
		{"channels-last", []int{1, 224, 224, 3}, []int{-1, 3, 224, 224}, true},
		{"already channels-first", []int{1, 3, 224, 224}, []int{-1, 3, 224, 224}, false},
		{"ambiguous prefers channels-first", []int{1, 3, 5, 3}, []int{-1, 3, 5, 5}, false},
		{"rank mismatch", []int{224, 224, 3}, []int{-1, 3, 224, 224}, false},
		{"declared rank mismatch", []int{1, 224, 224, 3}, []int{-1, 128}, false},
		{"dynamic channels", []int{1, 224, 224, 3}, []int{-1, -1, 224, 224}, false},
		{"no channel match", []int{1, 224, 224, 4}, []int{-1, 3, 224, 224}, false},
	} {
		require.Equal(t, test.want, needsTranspose(test.dims, test.declared), test.name)
	}
}

func TestSessionMixedPrecision(t *testing.T) {
	device := testDevice(t, Config{Format: Float16})
	sess, err := device.Place(passThroughModule("half", []int{-1}))
	require.NoError(t, err)
	defer sess.Close()

	// Values exactly representable in half precision.
	outputs, err := sess.Execute(vec(0.5, 1.25, -2))
	require.NoError(t, err)
	require.Equal(t, dtypes.Float32, outputs[0].DType())
	require.Equal(t, []float32{0.5, 1.25, -2}, tensors.MustCopyFlatData[float32](outputs[0]))
}

func TestSessionMixedPrecisionKeepsInts(t *testing.T) {
	device := testDevice(t, Config{Format: Float16})
	sess, err := device.Place(passThroughModule("ids", []int{-1}))
	require.NoError(t, err)
	defer sess.Close()

	outputs, err := sess.Execute(tensors.FromFlatDataAndDimensions([]int64{3, 4}, 2))
	require.NoError(t, err)
	require.Equal(t, dtypes.Int64, outputs[0].DType())
	require.Equal(t, []int64{3, 4}, tensors.MustCopyFlatData[int64](outputs[0]))
}

func TestSessionWithTransform(t *testing.T) {
	// Transform squares the base output and renames it; the transform also
	// sees the raw input nodes.
	module := addOneModule().WithTransform([]string{"squared", "shifted"},
		func(_ *Graph, inputs map[string]*Node, outputs []*Node) []*Node {
			return []*Node{Mul(outputs[0], outputs[0]), AddScalar(inputs["x"], 10)}
		})
	require.Equal(t, []string{"squared", "shifted"}, module.Outputs())

	device := testDevice(t, Config{})
	sess, err := device.Place(module)
	require.NoError(t, err)
	defer sess.Close()

	outputs, err := sess.Execute(vec(2, 3))
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	require.Equal(t, []float32{9, 16}, tensors.MustCopyFlatData[float32](outputs[0]))
	require.Equal(t, []float32{12, 13}, tensors.MustCopyFlatData[float32](outputs[1]))
}

func TestShapeKey(t *testing.T) {
	a := []*tensors.Tensor{vec(1)}
	b := []*tensors.Tensor{vec(9)}
	c := []*tensors.Tensor{vec(1, 2)}
	require.Equal(t, shapeKey(a), shapeKey(b))
	require.NotEqual(t, shapeKey(a), shapeKey(c))
	require.NotEqual(t, shapeKey(a), shapeKey([]*tensors.Tensor{vec(1), vec(2)}))
}

func TestAvailableBackends(t *testing.T) {
	graphtest.BuildTestBackend()
	require.Contains(t, Available(), "go")
}
