// Package run records fine-tuning runs on disk. Each run is a directory
// holding a manifest.yaml; the store is the source of truth for the CLI and
// the status API.
package run

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no run with the given id exists.
var ErrNotFound = errors.New("run: not found")

const envRunsDir = "KILN_RUNS_DIR"

// Status is the lifecycle state of a run as kiln sees it.
type Status string

const (
	StatusPreparing Status = "preparing"
	StatusTraining  Status = "training"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// LoRAManifest records the adapter settings a run was submitted with.
type LoRAManifest struct {
	Rank          int      `yaml:"rank"`
	Alpha         int      `yaml:"alpha"`
	Dropout       float64  `yaml:"dropout"`
	TargetModules []string `yaml:"target_modules"`
	EightBit      bool     `yaml:"load_in_8bit"`
}

// Manifest is the persisted record of one fine-tuning run.
type Manifest struct {
	ID        string `yaml:"id"`
	BaseModel string `yaml:"base_model"`
	DataFile  string `yaml:"data_file"`
	TrainFile string `yaml:"train_file,omitempty"`
	OutputDir string `yaml:"output_dir"`
	Examples  int    `yaml:"examples,omitempty"`

	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	Optimizer    string  `yaml:"optimizer"`
	MaxSeqLen    int     `yaml:"max_seq_len"`
	FP16         bool    `yaml:"fp16"`
	Seed         int64   `yaml:"seed"`

	LoRA *LoRAManifest `yaml:"lora,omitempty"`

	Status       Status    `yaml:"status"`
	JobID        string    `yaml:"job_id,omitempty"`
	ArtifactPath string    `yaml:"artifact_path,omitempty"`
	Error        string    `yaml:"error,omitempty"`
	CreatedAt    time.Time `yaml:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at"`
}

// Store persists run manifests under a base directory.
type Store struct {
	dir string
}

// DefaultDir resolves the runs directory: $KILN_RUNS_DIR when set, otherwise
// ~/.local/share/kiln/runs.
func DefaultDir() string {
	if dir := os.Getenv(envRunsDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "kiln-runs")
	}
	return filepath.Join(home, ".local", "share", "kiln", "runs")
}

// NewStore opens (creating if needed) a run store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("run: create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's base directory.
func (s *Store) Dir() string { return s.dir }

// Create assigns an id and timestamps and persists the manifest.
func (s *Store) Create(m Manifest) (Manifest, error) {
	m.ID = uuid.NewString()
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.Status == "" {
		m.Status = StatusPreparing
	}
	if err := os.MkdirAll(s.runDir(m.ID), 0o755); err != nil {
		return Manifest{}, err
	}
	if err := s.write(m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Get loads a run manifest by id.
func (s *Store) Get(id string) (Manifest, error) {
	raw, err := os.ReadFile(s.manifestPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("run: parse manifest %s: %w", id, err)
	}
	return m, nil
}

// List returns all run manifests, newest first. Unreadable entries are
// skipped rather than failing the whole listing.
func (s *Store) List() ([]Manifest, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	out := make([]Manifest, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m, err := s.Get(e.Name())
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Update rewrites an existing manifest, bumping its update timestamp.
func (s *Store) Update(m Manifest) error {
	if m.ID == "" {
		return fmt.Errorf("run: update requires an id")
	}
	if _, err := os.Stat(s.manifestPath(m.ID)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, m.ID)
		}
		return err
	}
	m.UpdatedAt = time.Now().UTC()
	return s.write(m)
}

func (s *Store) runDir(id string) string {
	return filepath.Join(s.dir, id)
}

func (s *Store) manifestPath(id string) string {
	return filepath.Join(s.runDir(id), "manifest.yaml")
}

func (s *Store) write(m Manifest) error {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(s.manifestPath(m.ID), raw, 0o644)
}
