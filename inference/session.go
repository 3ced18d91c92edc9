// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package inference

import (
	"slices"
	"strings"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/pkg/errors"
)

// Session is a module placed on a device: it owns the compiled executables
// and the input/output queues. Batches flow through either the queued path
// (Push then Run) or the direct path (Compile then Execute per batch).
//
// All methods are safe for concurrent use.
type Session struct {
	cfg    Config
	module *Module
	exec   *context.Exec

	mu       sync.Mutex
	pending  [][]*tensors.Tensor
	compiled map[string]struct{}
	closed   bool

	doneCh chan struct{}
	wg     sync.WaitGroup
}

// Push enqueues one input batch for the next Run. The tensors are
// positional, matching the order of Inputs(). It fails with ErrQueueFull
// when the input queue is at capacity and ErrSessionClosed after Close.
func (s *Session) Push(inputs ...*tensors.Tensor) error {
	if err := s.checkInputs(inputs); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if len(s.pending) >= s.cfg.queueDepth() {
		return ErrQueueFull
	}
	s.pending = append(s.pending, slices.Clone(inputs))
	return nil
}

// Run drains the input queue and executes every pushed batch in FIFO order,
// delivering one result per batch to the returned queue. Without streaming
// the queue is complete when Run returns. With streaming Run returns
// immediately and a worker goroutine fills the queue while the caller
// consumes; the queue capacity provides the back-pressure.
//
// Batches pushed after Run was called go to the next Run. Running with an
// empty input queue returns an already-finished queue. On a closed session
// the queue carries a single ErrSessionClosed result.
func (s *Session) Run() *Queue {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		q := newQueue(1)
		q.put(batchResult{err: ErrSessionClosed})
		q.finish()
		return q
	}
	batches := s.pending
	s.pending = nil
	if len(batches) == 0 {
		s.mu.Unlock()
		q := newQueue(0)
		q.finish()
		return q
	}
	streaming := s.cfg.Streaming
	s.wg.Add(1)
	s.mu.Unlock()

	if streaming {
		q := newQueue(s.cfg.queueDepth())
		go func() {
			defer s.wg.Done()
			s.runBatches(q, batches, true)
		}()
		return q
	}
	q := newQueue(len(batches))
	s.runBatches(q, batches, false)
	s.wg.Done()
	return q
}

// runBatches executes batches in push order, delivering one result each and
// closing the queue after the last. When abortable (streaming), a delivery
// blocked on a full queue gives up as soon as the session closes.
func (s *Session) runBatches(q *Queue, batches [][]*tensors.Tensor, abortable bool) {
	defer q.finish()
	for _, batch := range batches {
		outputs, err := s.execute(batch)
		if err == nil {
			s.markCompiled(batch)
		}
		result := batchResult{outputs: outputs, err: err}
		if !abortable {
			q.put(result)
			continue
		}
		select {
		case q.ch <- result:
		case <-s.doneCh:
			return
		}
	}
}

// Compile builds and caches the executable for the given input shapes by
// running one warm-up batch and discarding its outputs. Compiling the same
// shapes again is a no-op, so it can sit right in front of a timed loop.
func (s *Session) Compile(inputs ...*tensors.Tensor) error {
	if err := s.checkInputs(inputs); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if _, done := s.compiled[shapeKey(inputs)]; done {
		s.mu.Unlock()
		return nil
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if _, err := s.execute(inputs); err != nil {
		return err
	}
	s.markCompiled(inputs)
	return nil
}

// Execute runs one batch synchronously and returns its outputs, compiling
// first when these input shapes were not seen before. It bypasses the
// queues; benchmarks use it as the per-batch entry point.
func (s *Session) Execute(inputs ...*tensors.Tensor) ([]*tensors.Tensor, error) {
	if err := s.checkInputs(inputs); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	outputs, err := s.execute(inputs)
	if err != nil {
		return nil, err
	}
	s.markCompiled(inputs)
	return outputs, nil
}

// Inputs returns the module's declared inputs in positional order.
func (s *Session) Inputs() []InputSpec { return s.module.Inputs() }

// Outputs returns the module's declared output names.
func (s *Session) Outputs() []string { return s.module.Outputs() }

// Close abandons any streaming run in flight, waits for executing batches to
// finish and releases the executor. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pending = nil
	close(s.doneCh)
	s.mu.Unlock()
	s.wg.Wait()
	s.exec.Finalize()
}

// execute runs one batch through the executor, converting panics from the
// graph machinery into errors.
func (s *Session) execute(inputs []*tensors.Tensor) (outputs []*tensors.Tensor, err error) {
	args := make([]any, len(inputs))
	for i, input := range inputs {
		args[i] = input
	}
	err = exceptions.TryCatch[error](func() {
		outputs = s.exec.MustExec(args...)
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "executing %q", s.module.name)
	}
	return outputs, nil
}

// checkInputs rejects batches that don't match the declared input count
// before they reach the backend.
func (s *Session) checkInputs(inputs []*tensors.Tensor) error {
	if len(inputs) != len(s.module.inputs) {
		return errors.Errorf("module %q declares %d inputs, got %d",
			s.module.name, len(s.module.inputs), len(inputs))
	}
	return nil
}

func (s *Session) markCompiled(inputs []*tensors.Tensor) {
	s.mu.Lock()
	s.compiled[shapeKey(inputs)] = struct{}{}
	s.mu.Unlock()
}

// shapeKey is the signature under which a compiled program is cached: the
// concatenation of all input shapes.
func shapeKey(inputs []*tensors.Tensor) string {
	var b strings.Builder
	for i, input := range inputs {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(input.Shape().String())
	}
	return b.String()
}

// buildGraph is the graph function behind the session's executor: it adapts
// the incoming inputs (layout, precision), runs the module's forward pass
// and normalizes floating point outputs back to Float32.
func (s *Session) buildGraph(ctx *context.Context, inputs []*Node) []*Node {
	g := inputs[0].Graph()
	compute := s.cfg.Format.DType()
	named := make(map[string]*Node, len(inputs))
	for i, node := range inputs {
		spec := s.module.inputs[i]
		if s.cfg.AutoTranspose && needsTranspose(node.Shape().Dimensions, spec.Dimensions) {
			node = TransposeAllDims(node, 0, 3, 1, 2)
		}
		if compute != dtypes.Float32 && node.DType().IsFloat() {
			node = ConvertDType(node, compute)
		}
		named[spec.Name] = node
	}
	outputs := s.module.build(ctx, g, named)
	for i, node := range outputs {
		if node.DType().IsFloat() && node.DType() != dtypes.Float32 {
			outputs[i] = ConvertDType(node, dtypes.Float32)
		}
	}
	return outputs
}

// needsTranspose reports whether a channels-last image batch must be
// permuted to the declared channels-first layout. It requires both shapes to
// be rank 4 with a static declared channel axis; an input already matching
// the declared channel dimension on axis 1 passes through.
func needsTranspose(dims, declared []int) bool {
	if len(dims) != 4 || len(declared) != 4 {
		return false
	}
	channels := declared[1]
	if channels <= 0 {
		return false
	}
	if dims[1] == channels {
		return false
	}
	return dims[3] == channels
}
