// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package textgen generates text with the hub's FLAN-T5 encoder/decoder ONNX
// pair: one combined run of the encoder, then greedy decoding without
// KV-cache, one decoder Execute per generated token.
//
// The decoder input is kept at a fixed [batch, MaxLength] shape, padded past
// the tokens generated so far. T5's causal masking ignores the padding, and
// the fixed shape means the decoder graph compiles exactly once for the whole
// generation loop.
package textgen

import (
	"math"
	"slices"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/onnx-gomlx/onnx"
	"github.com/gomlx/zoo/checkpoint"
	"github.com/gomlx/zoo/inference"
	"github.com/gomlx/zoo/scores"
	"github.com/gomlx/zoo/textenc"
	"github.com/pkg/errors"
)

// Variants lists the checkpoints this demo knows how to run; the first entry
// is the default.
var Variants = []string{
	"Xenova/flan-t5-small",
	"Xenova/flan-t5-base",
}

// Graph files inside the checkpoint repository.
const (
	EncoderFile = "onnx/encoder_model.onnx"
	DecoderFile = "onnx/decoder_model.onnx"
)

// DefaultPrompt is the demo input.
const DefaultPrompt = "A step by step recipe to make bolognese pasta:"

// EncodeMaxLen bounds the tokenized prompt length.
const EncodeMaxLen = 32

// GenOptions are the generation constraints.
type GenOptions struct {
	// MaxLength bounds the decoder sequence, start token included.
	MaxLength int

	// NoRepeatNGram bans completing any n-gram of this size that already
	// occurred in the sample's decoded sequence. Zero disables blocking.
	NoRepeatNGram int
}

// Options configures one generation run.
type Options struct {
	// Variant is the hub repository of the checkpoint to run.
	Variant string

	// Prompts to generate from; empty means DefaultPrompt replicated
	// BatchSize times.
	Prompts []string

	// BatchSize replicates DefaultPrompt when Prompts is empty.
	BatchSize int

	// Gen are the generation constraints.
	Gen GenOptions

	// Config is handed to the inference device and sessions.
	Config inference.Config
}

// DefaultOptions returns the demo defaults: flan-t5-small, one copy of the
// sample prompt, up to 20 tokens with bigram blocking, bfloat16 compute.
func DefaultOptions() Options {
	return Options{
		Variant:   Variants[0],
		BatchSize: 1,
		Gen:       GenOptions{MaxLength: 20, NoRepeatNGram: 2},
		Config: inference.Config{
			Backend: inference.DefaultBackendConfig(),
			Format:  inference.BFloat16,
		},
	}
}

// Generation is the decoded output for one prompt.
type Generation struct {
	Prompt string
	Text   string

	// Steps is the number of generated tokens, end-of-sequence and the start
	// token excluded.
	Steps int
}

// Run generates text for the prompts: both graphs of the checkpoint are
// downloaded and placed as separate modules on one device, the encoder runs
// once through the session queues, and the decoder is compiled once and then
// executed per generation step on the growing output.
func Run(opts Options) ([]Generation, error) {
	prompts := opts.Prompts
	if len(prompts) == 0 {
		if opts.BatchSize <= 0 {
			return nil, errors.Errorf("batch size must be positive, got %d", opts.BatchSize)
		}
		prompts = slices.Repeat([]string{DefaultPrompt}, opts.BatchSize)
	}
	if opts.Gen.MaxLength < 2 {
		return nil, errors.Errorf("maximum length must allow at least one generated token, got %d", opts.Gen.MaxLength)
	}

	ckpt, err := checkpoint.Download(checkpoint.New(opts.Variant).WithONNXFile(EncoderFile))
	if err != nil {
		return nil, err
	}
	defer ckpt.Close()
	encModel, err := ckpt.Model()
	if err != nil {
		return nil, err
	}
	decPath, err := ckpt.DownloadFile(DecoderFile)
	if err != nil {
		return nil, err
	}
	decModel, err := onnx.ReadFile(decPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse ONNX graph %q of %q", DecoderFile, opts.Variant)
	}
	defer decModel.Close()

	enc, err := textenc.NewEncoder(ckpt.Repo(), EncodeMaxLen)
	if err != nil {
		return nil, err
	}

	device, err := inference.NewDevice(opts.Config)
	if err != nil {
		return nil, err
	}
	defer device.Close()
	encSess, err := device.Place(inference.WrapModule(ckpt.Name()+"/encoder", encModel))
	if err != nil {
		return nil, err
	}
	defer encSess.Close()
	decSess, err := device.Place(inference.WrapModule(ckpt.Name()+"/decoder", decModel))
	if err != nil {
		return nil, err
	}
	defer decSess.Close()

	// Encoder: one combined run over the tokenized prompts.
	encoded, err := enc.EncodeBatch(prompts)
	if err != nil {
		return nil, err
	}
	encNames := make([]string, 0, len(encSess.Inputs()))
	for _, spec := range encSess.Inputs() {
		encNames = append(encNames, spec.Name)
	}
	encInputs, err := encoded.ForInputs(encNames)
	if err != nil {
		return nil, err
	}
	if err := encSess.Push(encInputs...); err != nil {
		return nil, err
	}
	encOutputs, err := encSess.Run().Get()
	if err != nil {
		return nil, err
	}
	if len(encOutputs) == 0 {
		return nil, errors.Errorf("encoder of %q produced no outputs", opts.Variant)
	}
	hidden := encOutputs[0]

	cfg := ckpt.Config()
	startID := 0 // T5 starts decoding from the pad token
	if cfg.DecoderStartTokenID != nil {
		startID = *cfg.DecoderStartTokenID
	}
	eosID := 1
	if cfg.EOSTokenID != nil {
		eosID = *cfg.EOSTokenID
	}
	padID := enc.PadID()

	tokens, err := greedyDecode(decSess, hidden, encoded.AttentionMask, decodeConfig{
		batch:   len(prompts),
		startID: startID,
		eosID:   eosID,
		padID:   padID,
		gen:     opts.Gen,
	})
	if err != nil {
		return nil, err
	}

	results := make([]Generation, len(prompts))
	for i, prompt := range prompts {
		results[i] = Generation{
			Prompt: prompt,
			Text:   enc.Decode(tokens[i]),
			Steps:  len(tokens[i]),
		}
	}
	return results, nil
}

type decodeConfig struct {
	batch   int
	startID int
	eosID   int
	padID   int
	gen     GenOptions
}

// decoder is the subset of *inference.Session the generation loop drives.
type decoder interface {
	Inputs() []inference.InputSpec
	Compile(inputs ...*tensors.Tensor) error
	Execute(inputs ...*tensors.Tensor) ([]*tensors.Tensor, error)
}

// greedyDecode runs the decoder step by step. The decoder input buffer stays
// at [batch, MaxLength]: position 0 holds the start token, generated tokens
// fill in left to right and the rest is padding the causal mask never sees.
// Each step reads the logits at the last filled position, blocks repeated
// n-grams and takes the argmax.
func greedyDecode(sess decoder, hidden, encMask *tensors.Tensor, cfg decodeConfig) ([][]int, error) {
	length := cfg.gen.MaxLength
	buf := make([]int64, cfg.batch*length)
	for i := range buf {
		buf[i] = int64(cfg.padID)
	}
	for i := 0; i < cfg.batch; i++ {
		buf[i*length] = int64(cfg.startID)
	}

	feed := map[string]*tensors.Tensor{
		"encoder_hidden_states":  hidden,
		"encoder_attention_mask": encMask,
	}
	specs := sess.Inputs()
	order := make([]string, len(specs))
	for i, spec := range specs {
		order[i] = spec.Name
	}

	tokens := make([][]int, cfg.batch)
	finished := make([]bool, cfg.batch)
	compiled := false
	for step := 0; step < length-1; step++ {
		feed["input_ids"] = tensors.FromFlatDataAndDimensions(slices.Clone(buf), cfg.batch, length)
		inputs := make([]*tensors.Tensor, len(order))
		for i, name := range order {
			t, ok := feed[name]
			if !ok {
				return nil, errors.Errorf("unsupported decoder input %q", name)
			}
			inputs[i] = t
		}
		if !compiled {
			// The buffer shape never changes, so this is the only compile.
			if err := sess.Compile(inputs...); err != nil {
				return nil, err
			}
			compiled = true
		}
		outputs, err := sess.Execute(inputs...)
		if err != nil {
			return nil, err
		}
		if len(outputs) == 0 {
			return nil, errors.Errorf("decoder produced no outputs")
		}

		logits := outputs[0]
		dims := logits.Shape().Dimensions
		if len(dims) != 3 || dims[0] != cfg.batch || dims[1] != length {
			return nil, errors.Errorf("decoder produced logits of shape %s, want [%d, %d, vocab]",
				logits.Shape(), cfg.batch, length)
		}
		vocab := dims[2]
		flat := tensors.MustCopyFlatData[float32](logits)

		done := true
		for i := 0; i < cfg.batch; i++ {
			if finished[i] {
				continue
			}
			row := flat[(i*length+step)*vocab : (i*length+step+1)*vocab]
			history := make([]int, 0, step+1)
			for j := 0; j <= step; j++ {
				history = append(history, int(buf[i*length+j]))
			}
			BlockRepeats(history, cfg.gen.NoRepeatNGram, row)
			next := scores.ArgMax(row)
			if next == cfg.eosID {
				finished[i] = true
				continue
			}
			tokens[i] = append(tokens[i], next)
			buf[i*length+step+1] = int64(next)
			done = false
		}
		if done {
			break
		}
	}
	return tokens, nil
}

// BlockRepeats masks to -inf every token that would complete an n-gram
// already present in ids, in place. With n = 2 a token is banned after the
// same bigram has occurred before; n = 0 (or a history shorter than n-1)
// leaves the logits untouched.
func BlockRepeats(ids []int, n int, logits []float32) {
	if n <= 0 || len(ids) < n-1 {
		return
	}
	negInf := float32(math.Inf(-1))
	prefix := ids[len(ids)-(n-1):]
	for start := 0; start+n <= len(ids); start++ {
		if !slices.Equal(ids[start:start+n-1], prefix) {
			continue
		}
		banned := ids[start+n-1]
		if banned >= 0 && banned < len(logits) {
			logits[banned] = negInf
		}
	}
}
