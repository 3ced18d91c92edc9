// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package checkpoint names and fetches pretrained model checkpoints from
// HuggingFace Hub: the ONNX graph, the model configuration (config.json) and
// a handle for the tokenizer files. Downloads go through the hub client and
// its local cache, so repeated runs are free.
//
// A checkpoint is identified by a Ref: the hub repository name plus the path
// of the ONNX file inside it (transformers.js-style exports keep it under
// "onnx/").
package checkpoint

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/gomlx/go-huggingface/hub"
	"github.com/gomlx/onnx-gomlx/onnx"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Ref identifies a checkpoint on the hub.
type Ref struct {
	// Repo is the hub repository, e.g. "Xenova/resnet-50".
	Repo string

	// ONNXFile is the path of the ONNX graph inside the repository.
	ONNXFile string
}

// New returns a Ref for the given hub repository, with the ONNX file defaulted
// to "onnx/model.onnx".
func New(repo string) Ref {
	return Ref{Repo: repo, ONNXFile: "onnx/model.onnx"}
}

// WithONNXFile overrides the ONNX file path inside the repository.
func (r Ref) WithONNXFile(name string) Ref {
	r.ONNXFile = name
	return r
}

// Config is the subset of a checkpoint's config.json the demos use.
type Config struct {
	ModelType     string            `json:"model_type"`
	Architectures []string          `json:"architectures"`
	ID2Label      map[string]string `json:"id2label"`
	NumLabels     int               `json:"num_labels"`

	// Generation fields, present on encoder-decoder checkpoints.
	DecoderStartTokenID *int `json:"decoder_start_token_id"`
	EOSTokenID          *int `json:"eos_token_id"`
	PadTokenID          *int `json:"pad_token_id"`
}

// Checkpoint is a downloaded checkpoint: its files are in the hub client's
// local cache and its configuration is parsed.
type Checkpoint struct {
	ref    Ref
	repo   *hub.Repo
	config Config

	onnxPath string

	muModel sync.Mutex
	model   *onnx.Model
}

// Download fetches the checkpoint named by ref (ONNX file and config.json),
// reusing the hub client's cache. Authentication uses the HF_TOKEN environment
// variable when set. A checkpoint without a config.json is not an error: its
// Config is simply empty and labels fall back to generated names.
func Download(ref Ref) (*Checkpoint, error) {
	repo := hub.New(ref.Repo).WithAuth(os.Getenv("HF_TOKEN")).WithProgressBar(true)
	if err := repo.DownloadInfo(false); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch hub info for %q", ref.Repo)
	}
	onnxPath, err := repo.DownloadFile(ref.ONNXFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download %q from %q", ref.ONNXFile, ref.Repo)
	}
	c := &Checkpoint{ref: ref, repo: repo, onnxPath: onnxPath}

	configPath, err := repo.DownloadFile("config.json")
	if err != nil {
		klog.V(1).Infof("checkpoint %q has no config.json (%v)", ref.Repo, err)
		return c, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config.json of %q", ref.Repo)
	}
	c.config, err = parseConfig(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "checkpoint %q", ref.Repo)
	}
	return c, nil
}

func parseConfig(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse config.json")
	}
	return config, nil
}

// Name returns the hub repository name.
func (c *Checkpoint) Name() string { return c.ref.Repo }

// ONNXPath returns the local path of the downloaded ONNX file.
func (c *Checkpoint) ONNXPath() string { return c.onnxPath }

// Config returns the parsed model configuration.
func (c *Checkpoint) Config() Config { return c.config }

// Repo returns the underlying hub repository handle, for tokenizer loading
// and metadata queries.
func (c *Checkpoint) Repo() *hub.Repo { return c.repo }

// DownloadFile fetches one more file from the same repository (e.g. the
// decoder graph of an encoder-decoder checkpoint).
func (c *Checkpoint) DownloadFile(name string) (string, error) {
	path, err := c.repo.DownloadFile(name)
	if err != nil {
		return "", errors.Wrapf(err, "failed to download %q from %q", name, c.ref.Repo)
	}
	return path, nil
}

// Model parses the checkpoint's ONNX file. The parsed model is memoized; the
// caller must not Close it (the checkpoint owns it, see Close).
func (c *Checkpoint) Model() (*onnx.Model, error) {
	c.muModel.Lock()
	defer c.muModel.Unlock()
	if c.model != nil {
		return c.model, nil
	}
	model, err := onnx.ReadFile(c.onnxPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse ONNX graph %q of %q", c.ref.ONNXFile, c.ref.Repo)
	}
	c.model = model
	return c.model, nil
}

// Close releases the parsed ONNX model, if any.
func (c *Checkpoint) Close() {
	c.muModel.Lock()
	defer c.muModel.Unlock()
	if c.model != nil {
		c.model.Close()
		c.model = nil
	}
}

// Labels returns the checkpoint's id→label table.
func (c *Checkpoint) Labels() Labels {
	return LabelsFromMap(c.config.ID2Label)
}
