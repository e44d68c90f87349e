// Package checkpoint resolves local HuggingFace-style model directories:
// config.json, tokenizer files, and safetensors weights (single file or
// sharded via an index). It reads only headers, never tensor data, so
// opening a multi-gigabyte checkpoint is cheap.
package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"
)

var (
	// ErrNoWeights is returned when a directory holds neither
	// model.safetensors nor a safetensors shard index.
	ErrNoWeights = errors.New("checkpoint: no safetensors weights found")
	// ErrNoConfig is returned when config.json is missing.
	ErrNoConfig = errors.New("checkpoint: config.json not found")
)

// Config is the subset of config.json kiln cares about.
type Config struct {
	Architectures     []string `json:"architectures"`
	ModelType         string   `json:"model_type"`
	HiddenSize        int      `json:"hidden_size"`
	NumHiddenLayers   int      `json:"num_hidden_layers"`
	NumAttentionHeads int      `json:"num_attention_heads"`
	VocabSize         int      `json:"vocab_size"`
	TorchDtype        string   `json:"torch_dtype"`
}

// Arch returns the first declared architecture, falling back to model_type.
func (c Config) Arch() string {
	if len(c.Architectures) > 0 {
		return c.Architectures[0]
	}
	return c.ModelType
}

// Checkpoint is an opened model directory.
type Checkpoint struct {
	Dir     string
	Config  Config
	Tensors map[string]TensorInfo
	Shards  []string
}

type shardIndex struct {
	WeightMap map[string]string `json:"weight_map"`
}

// Open resolves a checkpoint directory. The weights come from
// model.safetensors.index.json when present, otherwise model.safetensors.
func Open(dir string) (*Checkpoint, error) {
	cfgRaw, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w in %s", ErrNoConfig, dir)
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(cfgRaw, &cfg); err != nil {
		return nil, fmt.Errorf("checkpoint: parse config.json: %w", err)
	}

	shards, err := resolveShards(dir)
	if err != nil {
		return nil, err
	}

	tensors := make(map[string]TensorInfo)
	for _, shard := range shards {
		shardTensors, err := readSafetensorsHeader(shard)
		if err != nil {
			return nil, err
		}
		for name, info := range shardTensors {
			tensors[name] = info
		}
	}

	return &Checkpoint{
		Dir:     dir,
		Config:  cfg,
		Tensors: tensors,
		Shards:  shards,
	}, nil
}

func resolveShards(dir string) ([]string, error) {
	indexPath := filepath.Join(dir, "model.safetensors.index.json")
	if raw, err := os.ReadFile(indexPath); err == nil {
		var idx shardIndex
		if err := json.Unmarshal(raw, &idx); err != nil {
			return nil, fmt.Errorf("checkpoint: parse shard index: %w", err)
		}
		seen := make(map[string]struct{}, len(idx.WeightMap))
		for _, file := range idx.WeightMap {
			seen[file] = struct{}{}
		}
		shards := make([]string, 0, len(seen))
		for file := range seen {
			shards = append(shards, filepath.Join(dir, file))
		}
		sort.Strings(shards)
		if len(shards) == 0 {
			return nil, fmt.Errorf("checkpoint: shard index has empty weight_map")
		}
		return shards, nil
	}

	single := filepath.Join(dir, "model.safetensors")
	if _, err := os.Stat(single); err != nil {
		return nil, fmt.Errorf("%w in %s", ErrNoWeights, dir)
	}
	return []string{single}, nil
}

// ParamCount sums the element counts of all tensors.
func (c *Checkpoint) ParamCount() int64 {
	var total int64
	for _, t := range c.Tensors {
		total += t.NumElements()
	}
	return total
}

// TensorNames returns the sorted tensor inventory.
func (c *Checkpoint) TensorNames() []string {
	names := make([]string, 0, len(c.Tensors))
	for name := range c.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
