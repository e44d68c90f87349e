package trainer

import "time"

// JobStatus is the lifecycle state reported by the training service.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the job has stopped making progress.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Hyperparameters is the training-loop section of a job spec.
type Hyperparameters struct {
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	Optimizer    string  `json:"optimizer"`
	MaxSeqLen    int     `json:"max_seq_len"`
	FP16         bool    `json:"fp16"`
	Seed         int64   `json:"seed"`
}

// AdapterSpec is the low-rank adapter section of a job spec.
type AdapterSpec struct {
	Rank          int      `json:"rank"`
	Alpha         int      `json:"alpha"`
	Dropout       float64  `json:"dropout"`
	TargetModules []string `json:"target_modules"`
	EightBit      bool     `json:"load_in_8bit"`
}

// JobSpec is the request body for creating a fine-tuning job. File paths are
// resolved against storage shared with the training service.
type JobSpec struct {
	BaseModel       string          `json:"base_model"`
	TrainFile       string          `json:"train_file"`
	OutputDir       string          `json:"output_dir"`
	EOSTokenID      int             `json:"eos_token_id"`
	PadTokenID      int             `json:"pad_token_id"`
	Hyperparameters Hyperparameters `json:"hyperparameters"`
	Adapter         *AdapterSpec    `json:"adapter,omitempty"`
}

// Job is the service's view of a submitted fine-tuning run.
type Job struct {
	ID            string     `json:"id"`
	Status        JobStatus  `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	ArtifactPath  string     `json:"artifact_path,omitempty"`
	TrainedTokens int64      `json:"trained_tokens,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Event is one progress line emitted by the training loop.
type Event struct {
	CreatedAt time.Time `json:"created_at"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// NewJobSpec assembles a job spec from validated configs.
func NewJobSpec(baseModel, trainFile string, eosID, padID int, cfg TrainConfig, adapter AdaptationConfig) JobSpec {
	spec := JobSpec{
		BaseModel:  baseModel,
		TrainFile:  trainFile,
		OutputDir:  cfg.OutputDir,
		EOSTokenID: eosID,
		PadTokenID: padID,
		Hyperparameters: Hyperparameters{
			Epochs:       cfg.Epochs,
			BatchSize:    cfg.BatchSize,
			LearningRate: cfg.LearningRate,
			Optimizer:    cfg.Optimizer,
			MaxSeqLen:    cfg.MaxSeqLen,
			FP16:         cfg.FP16,
			Seed:         cfg.Seed,
		},
	}
	if adapter.Enabled {
		spec.Adapter = &AdapterSpec{
			Rank:          adapter.Rank,
			Alpha:         adapter.Alpha,
			Dropout:       adapter.Dropout,
			TargetModules: adapter.TargetModules,
			EightBit:      adapter.EightBit,
		}
	}
	return spec
}
