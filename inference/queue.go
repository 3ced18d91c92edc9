// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package inference

import (
	"time"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

var (
	// ErrSessionClosed is returned by Push, Run, Compile and Execute after the
	// session was closed.
	ErrSessionClosed = errors.New("session is closed")

	// ErrQueueFull is returned by Push when the input queue is at capacity.
	ErrQueueFull = errors.New("input queue is full")

	// ErrQueueClosed is returned by Queue.Get once every result has been taken.
	ErrQueueClosed = errors.New("output queue is closed")

	// ErrQueueTimeout is returned by Queue.GetWithTimeout when the deadline
	// passes before a result arrives.
	ErrQueueTimeout = errors.New("timed out waiting on output queue")
)

// batchResult pairs the outputs of one executed batch with the error from its
// execution. Exactly one of the fields is meaningful.
type batchResult struct {
	outputs []*tensors.Tensor
	err     error
}

// Queue delivers the outputs of executed batches in the order their inputs
// were pushed. It is safe for concurrent use.
type Queue struct {
	ch chan batchResult
}

func newQueue(capacity int) *Queue {
	return &Queue{ch: make(chan batchResult, capacity)}
}

// Get blocks until the outputs of the next batch are available and returns
// them, or the error that batch's execution produced. Once the session
// finished the last queued batch and all results were taken, Get returns
// ErrQueueClosed.
func (q *Queue) Get() ([]*tensors.Tensor, error) {
	result, ok := <-q.ch
	if !ok {
		return nil, ErrQueueClosed
	}
	return result.outputs, result.err
}

// GetWithTimeout is Get with a deadline: it returns ErrQueueTimeout if no
// result arrives within timeout. Nothing is dequeued on timeout.
func (q *Queue) GetWithTimeout(timeout time.Duration) ([]*tensors.Tensor, error) {
	select {
	case result, ok := <-q.ch:
		if !ok {
			return nil, ErrQueueClosed
		}
		return result.outputs, result.err
	case <-time.After(timeout):
		return nil, ErrQueueTimeout
	}
}

// TryGet returns the next result if one is already available. It never
// blocks: ok is false when the queue is empty, and the error is
// ErrQueueClosed when no more results will ever arrive.
func (q *Queue) TryGet() (outputs []*tensors.Tensor, ok bool, err error) {
	select {
	case result, open := <-q.ch:
		if !open {
			return nil, false, ErrQueueClosed
		}
		return result.outputs, true, result.err
	default:
		return nil, false, nil
	}
}

// put delivers one result, blocking when the consumer is behind and the
// channel buffer is full.
func (q *Queue) put(result batchResult) {
	q.ch <- result
}

// finish marks the end of the stream. No put may follow.
func (q *Queue) finish() {
	close(q.ch)
}
