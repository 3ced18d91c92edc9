// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package textenc wraps the hub tokenizers with the batch encoding the NLP
// demos need: special tokens, truncation to a maximum length, right padding
// to the batch maximum and attention masks, delivered as [batch, seq] int64
// tensors ready to feed an ONNX model.
package textenc

import (
	"github.com/gomlx/go-huggingface/hub"
	"github.com/gomlx/go-huggingface/tokenizers"
	"github.com/gomlx/go-huggingface/tokenizers/api"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Encoder tokenizes batches of text for one checkpoint.
type Encoder struct {
	tok      tokenizers.Tokenizer
	maxLen   int
	padToMax bool

	padID        int
	clsID, eosID int
	hasCLS       bool
	hasEOS       bool
}

// Encoded is one tokenized batch. InputIDs, AttentionMask and TokenTypeIDs
// are [batch, seq] int64 tensors; TokenTypeIDs is all zeros (only some model
// families consume it). Lengths records the unpadded length of each row.
type Encoded struct {
	InputIDs      *tensors.Tensor
	AttentionMask *tensors.Tensor
	TokenTypeIDs  *tensors.Tensor
	Lengths       []int
}

// NewEncoder downloads the checkpoint's tokenizer files through the hub repo
// handle and resolves its special tokens. maxLen bounds every encoded
// sequence.
func NewEncoder(repo *hub.Repo, maxLen int) (*Encoder, error) {
	if maxLen <= 0 {
		return nil, errors.Errorf("textenc: maximum sequence length must be positive, got %d", maxLen)
	}
	tok, err := tokenizers.New(repo)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tokenizer")
	}
	e := &Encoder{tok: tok, maxLen: maxLen}
	if id, err := tok.SpecialTokenID(api.TokPad); err == nil {
		e.padID = id
	}
	if id, err := tok.SpecialTokenID(api.TokClassification); err == nil {
		e.clsID, e.hasCLS = id, true
	}
	if id, err := tok.SpecialTokenID(api.TokEndOfSentence); err == nil {
		e.eosID, e.hasEOS = id, true
	}
	return e, nil
}

// applySpecials wraps one tokenized text with the model's special tokens and
// truncates to maxLen. BERT-family tokenizers get [CLS] text [SEP]; T5-family
// ones get text </s>.
func applySpecials(tokens []int, clsID int, hasCLS bool, eosID int, hasEOS bool, maxLen int) []int {
	ids := make([]int, 0, len(tokens)+2)
	if hasCLS {
		ids = append(ids, clsID)
	}
	ids = append(ids, tokens...)
	if hasEOS {
		ids = append(ids, eosID)
	}
	if len(ids) > maxLen {
		ids = ids[:maxLen]
	}
	return ids
}

// WithPadToMax makes EncodeBatch pad every row to the encoder's maximum
// length instead of the batch maximum, so all batches share one shape.
// Benchmark loops rely on this to keep a single compiled executable across
// batches.
func (e *Encoder) WithPadToMax() *Encoder {
	e.padToMax = true
	return e
}

// packBatch right-pads rows to width and assembles the id, mask and
// token-type tensors. width <= 0 pads to the longest row.
func packBatch(rows [][]int, padID, width int) *Encoded {
	maxLen := width
	if maxLen <= 0 {
		for _, row := range rows {
			maxLen = max(maxLen, len(row))
		}
	}
	batch := len(rows)
	flatIDs := make([]int64, batch*maxLen)
	flatMask := make([]int64, batch*maxLen)
	flatTypes := make([]int64, batch*maxLen)
	lengths := make([]int, batch)
	for i, row := range rows {
		lengths[i] = len(row)
		offset := i * maxLen
		for j := 0; j < maxLen; j++ {
			if j < len(row) {
				flatIDs[offset+j] = int64(row[j])
				flatMask[offset+j] = 1
			} else {
				flatIDs[offset+j] = int64(padID)
			}
		}
	}
	return &Encoded{
		InputIDs:      tensors.FromFlatDataAndDimensions(flatIDs, batch, maxLen),
		AttentionMask: tensors.FromFlatDataAndDimensions(flatMask, batch, maxLen),
		TokenTypeIDs:  tensors.FromFlatDataAndDimensions(flatTypes, batch, maxLen),
		Lengths:       lengths,
	}
}

// ForInputs returns the batch tensors ordered by the given model input
// names. ONNX exports disagree on input order (some put token_type_ids
// before attention_mask), so callers feeding a session positionally should
// order by the module's declared inputs.
func (e *Encoded) ForInputs(names []string) ([]*tensors.Tensor, error) {
	out := make([]*tensors.Tensor, 0, len(names))
	for _, name := range names {
		switch name {
		case "input_ids":
			out = append(out, e.InputIDs)
		case "attention_mask":
			out = append(out, e.AttentionMask)
		case "token_type_ids":
			out = append(out, e.TokenTypeIDs)
		default:
			return nil, errors.Errorf("textenc: no tensor for model input %q", name)
		}
	}
	return out, nil
}

// EncodeBatch tokenizes texts and pads them to the longest row in the batch,
// or to the maximum length when WithPadToMax was set.
func (e *Encoder) EncodeBatch(texts []string) (*Encoded, error) {
	if len(texts) == 0 {
		return nil, errors.New("textenc: empty batch")
	}
	rows := make([][]int, len(texts))
	for i, text := range texts {
		rows[i] = applySpecials(e.tok.Encode(text), e.clsID, e.hasCLS, e.eosID, e.hasEOS, e.maxLen)
	}
	width := 0
	if e.padToMax {
		width = e.maxLen
	}
	return packBatch(rows, e.padID, width), nil
}

// Decode detokenizes ids, skipping padding tokens.
func (e *Encoder) Decode(ids []int) string {
	kept := make([]int, 0, len(ids))
	for _, id := range ids {
		if id == e.padID {
			continue
		}
		kept = append(kept, id)
	}
	return e.tok.Decode(kept)
}

// PadID returns the padding token id (0 when the tokenizer defines none).
func (e *Encoder) PadID() int { return e.padID }

// EOSID returns the end-of-sequence token id, if the tokenizer defines one.
func (e *Encoder) EOSID() (int, bool) { return e.eosID, e.hasEOS }
