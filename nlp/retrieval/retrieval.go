// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package retrieval ranks candidate passages against a query with a sentence
// encoder checkpoint. Query and passages are encoded in one batch; the ONNX
// encoder is extended in-graph with masked mean pooling over the token
// embeddings and L2 normalization, so the session outputs unit-length
// sentence embeddings and ranking reduces to a dot product on the host.
package retrieval

import (
	"sort"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/zoo/checkpoint"
	"github.com/gomlx/zoo/inference"
	"github.com/gomlx/zoo/scores"
	"github.com/gomlx/zoo/textenc"
	"github.com/pkg/errors"
)

// Variants lists the checkpoints this demo knows how to run; the first entry
// is the default.
var Variants = []string{
	"Xenova/all-MiniLM-L6-v2",
	"Xenova/multi-qa-MiniLM-L6-cos-v1",
}

// SampleQuery and SamplePassages are the demo inputs.
const SampleQuery = "How many people live in London?"

var SamplePassages = []string{
	"Around 9 million people live in London, making it the largest city in the United Kingdom.",
	"London is known for its financial district and for the River Thames.",
	"Paris is the capital of France and has a population of about two million.",
	"The Great Barrier Reef is the world's largest coral reef system.",
}

// MaxLen bounds every tokenized sequence.
const MaxLen = 128

// Options configures one ranking run.
type Options struct {
	// Variant is the hub repository of the checkpoint to run.
	Variant string

	// Query to rank the passages against; empty means SampleQuery.
	Query string

	// Passages to rank; empty means SamplePassages.
	Passages []string

	// Config is handed to the inference device and session.
	Config inference.Config
}

// DefaultOptions returns the demo defaults.
func DefaultOptions() Options {
	return Options{
		Variant: Variants[0],
		Config: inference.Config{
			Backend: inference.DefaultBackendConfig(),
			Format:  inference.Float32,
		},
	}
}

// Ranked is one scored passage. Index is the passage's position in the input
// order.
type Ranked struct {
	Index   int
	Passage string
	Score   float32
}

// Run encodes the query and all passages in one batch and returns the
// passages ordered by cosine similarity to the query, best first.
func Run(opts Options) ([]Ranked, error) {
	query := opts.Query
	if query == "" {
		query = SampleQuery
	}
	passages := opts.Passages
	if len(passages) == 0 {
		passages = SamplePassages
	}

	ckpt, err := checkpoint.Download(checkpoint.New(opts.Variant))
	if err != nil {
		return nil, err
	}
	defer ckpt.Close()
	model, err := ckpt.Model()
	if err != nil {
		return nil, err
	}
	enc, err := textenc.NewEncoder(ckpt.Repo(), MaxLen)
	if err != nil {
		return nil, err
	}

	module := inference.WrapModule(ckpt.Name(), model).
		WithTransform([]string{"embeddings"}, embedTransform)
	hasMask := false
	for _, spec := range module.Inputs() {
		hasMask = hasMask || spec.Name == "attention_mask"
	}
	if !hasMask {
		return nil, errors.Errorf("checkpoint %q declares no attention_mask input; pooling needs one", opts.Variant)
	}

	device, err := inference.NewDevice(opts.Config)
	if err != nil {
		return nil, err
	}
	defer device.Close()
	sess, err := device.Place(module)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	texts := append([]string{query}, passages...)
	encoded, err := enc.EncodeBatch(texts)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(sess.Inputs()))
	for _, spec := range sess.Inputs() {
		names = append(names, spec.Name)
	}
	inputs, err := encoded.ForInputs(names)
	if err != nil {
		return nil, err
	}

	if err := sess.Push(inputs...); err != nil {
		return nil, err
	}
	outputs, err := sess.Run().Get()
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, errors.Errorf("checkpoint %q produced no outputs", opts.Variant)
	}
	embeddings, err := scores.Rows(outputs[0])
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(texts) {
		return nil, errors.Errorf("model produced %d embeddings for %d texts", len(embeddings), len(texts))
	}
	return rankPassages(embeddings[0], embeddings[1:], passages), nil
}

// embedTransform appends masked mean pooling and L2 normalization onto the
// encoder's token embeddings ([batch, seq, hidden] -> [batch, hidden], unit
// length).
func embedTransform(_ *Graph, inputs map[string]*Node, outputs []*Node) []*Node {
	hidden := outputs[0]
	mask := ConvertDType(InsertAxes(inputs["attention_mask"], -1), hidden.DType())

	summed := ReduceSum(Mul(hidden, mask), 1)
	counts := ReduceSum(mask, 1)
	counts = Max(counts, OnesLike(counts))
	pooled := Div(summed, counts)

	norm := Sqrt(ReduceAndKeep(Square(pooled), ReduceSum, -1))
	return []*Node{Div(pooled, norm)}
}

// rankPassages scores each passage embedding against the query embedding and
// sorts best first. Embeddings are unit length, so the dot product is the
// cosine similarity. Ties keep input order.
func rankPassages(query []float32, embeddings [][]float32, passages []string) []Ranked {
	ranked := make([]Ranked, len(passages))
	for i, passage := range passages {
		ranked[i] = Ranked{Index: i, Passage: passage, Score: dot(query, embeddings[i])}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Score > ranked[b].Score })
	return ranked
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
