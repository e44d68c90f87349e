package dataset

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// ErrInvalidValSize is returned when the requested validation size cannot be
// carved out of the dataset.
var ErrInvalidValSize = errors.New("dataset: validation size out of range")

// DefaultSeed matches the historical default of the split tool.
const DefaultSeed = 42

// SplitManifest records how a persisted split was produced.
type SplitManifest struct {
	Seed      int64     `json:"seed"`
	Train     int       `json:"train"`
	Validation int       `json:"validation"`
	CreatedAt time.Time `json:"created_at"`
}

// Split partitions examples into train and validation subsets using a seeded
// shuffle. The same seed and input order always produce the same partition.
// valSize is an absolute count; it must satisfy 0 <= valSize < len(examples).
func Split(examples []Example, valSize int, seed int64) (train, validation []Example, err error) {
	if valSize < 0 || valSize >= len(examples) {
		return nil, nil, fmt.Errorf("%w: val_size=%d, dataset=%d", ErrInvalidValSize, valSize, len(examples))
	}

	perm := rand.New(rand.NewSource(seed)).Perm(len(examples))

	validation = make([]Example, 0, valSize)
	train = make([]Example, 0, len(examples)-valSize)
	for i, idx := range perm {
		if i < valSize {
			validation = append(validation, examples[idx])
		} else {
			train = append(train, examples[idx])
		}
	}
	return train, validation, nil
}

// SaveSplit persists a split dataset as a directory holding train.jsonl,
// validation.jsonl and a split.json manifest. Field structure and per-subset
// order are preserved exactly.
func SaveSplit(dir string, train, validation []Example, seed int64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := WriteExamples(filepath.Join(dir, "train.jsonl"), train); err != nil {
		return err
	}
	if err := WriteExamples(filepath.Join(dir, "validation.jsonl"), validation); err != nil {
		return err
	}
	manifest := SplitManifest{
		Seed:      seed,
		Train:     len(train),
		Validation: len(validation),
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "split.json"), append(raw, '\n'), 0o644)
}
