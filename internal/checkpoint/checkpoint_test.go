package checkpoint

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testTensor struct {
	name  string
	dtype string
	shape []int
}

func dtypeSize(dtype string) int64 {
	switch dtype {
	case "F32":
		return 4
	case "F16", "BF16":
		return 2
	default:
		return 1
	}
}

func writeSafetensors(t *testing.T, path string, tensors []testTensor) {
	t.Helper()

	entries := make([]string, 0, len(tensors))
	var offset int64
	for _, tt := range tensors {
		n := int64(1)
		for _, d := range tt.shape {
			n *= int64(d)
		}
		size := n * dtypeSize(tt.dtype)
		shape := make([]string, len(tt.shape))
		for i, d := range tt.shape {
			shape[i] = fmt.Sprint(d)
		}
		entries = append(entries, fmt.Sprintf(
			`%q:{"dtype":%q,"shape":[%s],"data_offsets":[%d,%d]}`,
			tt.name, tt.dtype, strings.Join(shape, ","), offset, offset+size,
		))
		offset += size
	}
	header := "{" + strings.Join(entries, ",") + "}"

	buf := make([]byte, 8, 8+len(header)+int(offset))
	binary.LittleEndian.PutUint64(buf, uint64(len(header)))
	buf = append(buf, header...)
	buf = append(buf, make([]byte, offset)...)

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write safetensors: %v", err)
	}
}

func writeConfig(t *testing.T, dir string) {
	t.Helper()
	cfg := `{
		"architectures": ["LlamaForCausalLM"],
		"model_type": "llama",
		"hidden_size": 16,
		"num_hidden_layers": 2,
		"num_attention_heads": 4,
		"vocab_size": 32,
		"torch_dtype": "float16"
	}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func testTensors() []testTensor {
	return []testTensor{
		{"model.embed_tokens.weight", "F16", []int{32, 16}},
		{"model.layers.0.self_attn.q_proj.weight", "F16", []int{16, 16}},
		{"model.layers.0.self_attn.v_proj.weight", "F16", []int{16, 16}},
		{"model.layers.0.input_layernorm.weight", "F32", []int{16}},
	}
}

func newSingleFileCheckpoint(t *testing.T) *Checkpoint {
	t.Helper()
	dir := t.TempDir()
	writeConfig(t, dir)
	writeSafetensors(t, filepath.Join(dir, "model.safetensors"), testTensors())

	c, err := Open(dir)
	if err != nil {
		t.Fatalf("open checkpoint: %v", err)
	}
	return c
}

func TestOpenSingleFile(t *testing.T) {
	t.Parallel()

	c := newSingleFileCheckpoint(t)
	if c.Config.Arch() != "LlamaForCausalLM" {
		t.Fatalf("arch: got %q", c.Config.Arch())
	}
	if len(c.Tensors) != 4 {
		t.Fatalf("tensor count: got %d want 4", len(c.Tensors))
	}
	// 32*16 + 16*16 + 16*16 + 16
	if got := c.ParamCount(); got != 512+256+256+16 {
		t.Fatalf("param count: got %d", got)
	}
	names := c.TensorNames()
	if names[0] != "model.embed_tokens.weight" {
		t.Fatalf("names not sorted: %v", names)
	}
}

func TestOpenShardedIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir)
	all := testTensors()
	writeSafetensors(t, filepath.Join(dir, "model-00001-of-00002.safetensors"), all[:2])
	writeSafetensors(t, filepath.Join(dir, "model-00002-of-00002.safetensors"), all[2:])

	index := `{"weight_map":{
		"model.embed_tokens.weight":"model-00001-of-00002.safetensors",
		"model.layers.0.self_attn.q_proj.weight":"model-00001-of-00002.safetensors",
		"model.layers.0.self_attn.v_proj.weight":"model-00002-of-00002.safetensors",
		"model.layers.0.input_layernorm.weight":"model-00002-of-00002.safetensors"
	}}`
	if err := os.WriteFile(filepath.Join(dir, "model.safetensors.index.json"), []byte(index), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	c, err := Open(dir)
	if err != nil {
		t.Fatalf("open checkpoint: %v", err)
	}
	if len(c.Shards) != 2 {
		t.Fatalf("shard count: got %d want 2", len(c.Shards))
	}
	if len(c.Tensors) != 4 {
		t.Fatalf("tensor count: got %d want 4", len(c.Tensors))
	}
}

func TestOpenMissingConfig(t *testing.T) {
	t.Parallel()

	if _, err := Open(t.TempDir()); !errors.Is(err, ErrNoConfig) {
		t.Fatalf("expected ErrNoConfig, got %v", err)
	}
}

func TestOpenMissingWeights(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir)
	if _, err := Open(dir); !errors.Is(err, ErrNoWeights) {
		t.Fatalf("expected ErrNoWeights, got %v", err)
	}
}

func TestMatchTargetModules(t *testing.T) {
	t.Parallel()

	c := newSingleFileCheckpoint(t)
	matched, err := c.MatchTargetModules([]string{"q_proj", "v_proj"})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matched["q_proj"]) != 1 || matched["q_proj"][0] != "model.layers.0.self_attn.q_proj.weight" {
		t.Fatalf("unexpected q_proj match: %v", matched["q_proj"])
	}

	if _, err := c.MatchTargetModules([]string{"q_proj", "gate_proj"}); err == nil {
		t.Fatal("expected error for unmatched module")
	} else if !strings.Contains(err.Error(), "gate_proj") {
		t.Fatalf("error should name the missing module: %v", err)
	}
}

func TestMatchSkipsNonMatrixTensors(t *testing.T) {
	t.Parallel()

	c := newSingleFileCheckpoint(t)
	// input_layernorm is 1-D; a module name matching it must not count.
	if _, err := c.MatchTargetModules([]string{"input_layernorm"}); err == nil {
		t.Fatal("expected 1-D tensors to be excluded from matching")
	}
}

func TestLoRATrainableParams(t *testing.T) {
	t.Parallel()

	c := newSingleFileCheckpoint(t)
	got, err := c.LoRATrainableParams([]string{"q_proj", "v_proj"}, 16)
	if err != nil {
		t.Fatalf("trainable params: %v", err)
	}
	// Two 16x16 projections: 16*(16+16) each.
	want := int64(2 * 16 * 32)
	if got != want {
		t.Fatalf("trainable params: got %d want %d", got, want)
	}
}
