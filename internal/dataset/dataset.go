// Package dataset reads instruction-tuning records from JSON-lines files and
// turns them into tokenized training examples.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// Example is one raw instruction record. Input is optional in the source
// file and decodes to the empty string when absent.
type Example struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
}

// Tokenized is one prepared training example. The raw fields and the
// intermediate prompt are dropped; only the id sequence survives.
type Tokenized struct {
	InputIDs []int `json:"input_ids"`
}

// maxLineBytes bounds a single JSONL record; prompts are text, not blobs.
const maxLineBytes = 16 * 1024 * 1024

// Scanner streams examples off a JSON-lines file without holding the whole
// dataset in memory. Close releases the file handle.
type Scanner struct {
	f    *os.File
	sc   *bufio.Scanner
	line int
}

// Open opens a JSON-lines dataset for streaming reads.
func Open(path string) (*Scanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Scanner{f: f, sc: sc}, nil
}

// Next returns the next example. It returns io.EOF after the last record.
// Blank lines are skipped.
func (s *Scanner) Next() (Example, error) {
	for s.sc.Scan() {
		s.line++
		raw := s.sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ex Example
		if err := json.Unmarshal(raw, &ex); err != nil {
			return Example{}, fmt.Errorf("dataset: line %d: %w", s.line, err)
		}
		return ex, nil
	}
	if err := s.sc.Err(); err != nil {
		return Example{}, fmt.Errorf("dataset: scan: %w", err)
	}
	return Example{}, io.EOF
}

// Close releases the underlying file.
func (s *Scanner) Close() error { return s.f.Close() }

// ReadAll loads every example from a JSON-lines file. Used by the split
// tool, which needs the full collection to shuffle.
func ReadAll(path string) ([]Example, error) {
	sc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sc.Close() }()

	var out []Example
	for {
		ex, err := sc.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
}

// WriteExamples writes examples to a JSON-lines file, one record per line,
// preserving order and field structure.
func WriteExamples(path string, examples []Example) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range examples {
		if err := enc.Encode(&examples[i]); err != nil {
			_ = f.Close()
			return fmt.Errorf("dataset: encode example %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
