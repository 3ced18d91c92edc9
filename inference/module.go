// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package inference

import (
	"slices"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/onnx-gomlx/onnx"
)

// InputSpec describes one input a module declares: its name and the
// dimensions from the model graph, with -1 on dynamic axes (batch size,
// sequence length).
type InputSpec struct {
	Name       string
	Dimensions []int
}

// BuildFn builds the forward pass for one set of input nodes, keyed by the
// declared input names, and returns the output nodes in declared order.
type BuildFn func(ctx *context.Context, g *Graph, inputs map[string]*Node) []*Node

// TransformFn rewrites a module's outputs at graph-build time. It sees the
// input nodes (keyed by declared name) next to the outputs the wrapped module
// produced.
type TransformFn func(g *Graph, inputs map[string]*Node, outputs []*Node) []*Node

// Module is a model wrapped for placement on a Device. It carries the model
// graph plus the input and output interface it declares; Device.Place turns
// it into an executable Session.
type Module struct {
	name    string
	inputs  []InputSpec
	outputs []string

	build  BuildFn
	attach func(ctx *context.Context) error
}

// WrapModule adapts a parsed ONNX model for placement. The module inherits
// the input names and shapes the model declares; the model's weights are
// uploaded into the session context when the module is placed on a device.
//
// The model must stay open for the lifetime of any session created from the
// returned module.
func WrapModule(name string, model *onnx.Model) *Module {
	inputNames, inputShapes := model.Inputs()
	inputs := make([]InputSpec, len(inputNames))
	for i, inputName := range inputNames {
		inputs[i] = InputSpec{
			Name:       inputName,
			Dimensions: slices.Clone(inputShapes[i].Dimensions),
		}
	}
	outputNames, _ := model.Outputs()
	outputs := slices.Clone(outputNames)
	return &Module{
		name:    name,
		inputs:  inputs,
		outputs: outputs,
		build: func(ctx *context.Context, g *Graph, inputs map[string]*Node) []*Node {
			return model.CallGraph(ctx, g, inputs, outputs...)
		},
		attach: func(ctx *context.Context) error {
			return model.VariablesToContext(ctx)
		},
	}
}

// NewModule builds a Module directly from a graph function, with no
// variables to attach, for models expressed as plain graph code.
func NewModule(name string, inputs []InputSpec, outputs []string, build BuildFn) *Module {
	return &Module{name: name, inputs: inputs, outputs: outputs, build: build}
}

// WithTransform derives a module whose outputs are rewritten by fn at
// graph-build time, renamed to the given output names. The embedding demos
// use this to append pooling and normalization onto an ONNX encoder.
func (m *Module) WithTransform(outputs []string, fn TransformFn) *Module {
	base := m.build
	return &Module{
		name:    m.name,
		inputs:  slices.Clone(m.inputs),
		outputs: slices.Clone(outputs),
		build: func(ctx *context.Context, g *Graph, inputs map[string]*Node) []*Node {
			return fn(g, inputs, base(ctx, g, inputs))
		},
		attach: m.attach,
	}
}

// Name returns the name given at wrap time.
func (m *Module) Name() string { return m.name }

// Inputs returns the declared inputs in positional order.
func (m *Module) Inputs() []InputSpec { return slices.Clone(m.inputs) }

// Outputs returns the declared output names.
func (m *Module) Outputs() []string { return slices.Clone(m.outputs) }
