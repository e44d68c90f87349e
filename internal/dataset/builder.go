package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/samcharles93/kiln/internal/prompt"
	"github.com/samcharles93/kiln/internal/tokenizer"
)

// DefaultBatchSize is the number of prompts handed to the tokenizer at once.
const DefaultBatchSize = 64

// Builder runs the preparation pipeline: format each example into a prompt,
// drop the raw fields, batch-tokenize, drop the prompt. Output order matches
// input order; the first failing example aborts the whole build.
type Builder struct {
	Adapter   *tokenizer.Adapter
	BatchSize int
}

// Build streams examples from src and hands each tokenized example to emit,
// in input order. It returns the number of examples produced.
func (b *Builder) Build(src *Scanner, emit func(Tokenized) error) (int, error) {
	batchSize := b.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	total := 0
	prompts := make([]string, 0, batchSize)

	flush := func() error {
		if len(prompts) == 0 {
			return nil
		}
		batch, err := b.Adapter.EncodeBatch(prompts)
		if err != nil {
			return fmt.Errorf("dataset: batch starting at example %d: %w", total+1, err)
		}
		for _, ids := range batch {
			total++
			if err := emit(Tokenized{InputIDs: ids}); err != nil {
				return err
			}
		}
		prompts = prompts[:0]
		return nil
	}

	for {
		ex, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, err
		}
		p, err := prompt.Render(ex.Instruction, ex.Input)
		if err != nil {
			return total, fmt.Errorf("dataset: example %d: %w", total+len(prompts)+1, err)
		}
		prompts = append(prompts, p)
		if len(prompts) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// BuildFile runs the pipeline from a JSON-lines dataset to a JSON-lines file
// of tokenized examples.
func (b *Builder) BuildFile(inPath, outPath string) (int, error) {
	src, err := Open(inPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = src.Close() }()

	out, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)

	n, err := b.Build(src, func(tok Tokenized) error {
		return enc.Encode(&tok)
	})
	if err != nil {
		_ = out.Close()
		return n, err
	}
	if err := w.Flush(); err != nil {
		_ = out.Close()
		return n, err
	}
	return n, out.Close()
}
