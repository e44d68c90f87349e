// Package trainer submits fine-tuning jobs to an external training service
// and tracks them to completion. The optimizer step, gradient checkpointing,
// quantization and adapter injection all live on the service side; kiln only
// ships a fully prepared dataset and the job configuration.
package trainer

import (
	"errors"
	"fmt"
)

// Defaults mirror the values the training stack has always used.
const (
	DefaultOptimizer    = "adamw_torch"
	DefaultMaxSeqLen    = 2048
	DefaultEpochs       = 3
	DefaultBatchSize    = 8
	DefaultLearningRate = 2e-5

	DefaultLoRARank    = 16
	DefaultLoRAAlpha   = 16
	DefaultLoRADropout = 0.05
)

// DefaultTargetModules returns the attention projections adapted by default.
func DefaultTargetModules() []string {
	return []string{"q_proj", "k_proj", "v_proj", "o_proj"}
}

var errInvalidConfig = errors.New("trainer: invalid config")

// TrainConfig holds the training hyperparameters. Construct it fully and
// call Validate before use; there is no ambient global configuration.
type TrainConfig struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Optimizer    string
	MaxSeqLen    int
	FP16         bool
	Seed         int64
	OutputDir    string
}

func (c TrainConfig) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("%w: epochs must be positive, got %d", errInvalidConfig, c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", errInvalidConfig, c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("%w: learning rate must be positive, got %g", errInvalidConfig, c.LearningRate)
	}
	if c.Optimizer == "" {
		return fmt.Errorf("%w: optimizer is required", errInvalidConfig)
	}
	if c.MaxSeqLen <= 0 {
		return fmt.Errorf("%w: max sequence length must be positive, got %d", errInvalidConfig, c.MaxSeqLen)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output dir is required", errInvalidConfig)
	}
	return nil
}

// AdaptationConfig configures low-rank adapter injection on the service
// side. The zero value means full fine-tuning (adapter disabled).
type AdaptationConfig struct {
	Enabled       bool
	Rank          int
	Alpha         int
	Dropout       float64
	TargetModules []string
	EightBit      bool
}

func (a AdaptationConfig) Validate() error {
	if !a.Enabled {
		if a.EightBit {
			return fmt.Errorf("%w: 8-bit base loading requires the adapter", errInvalidConfig)
		}
		return nil
	}
	if a.Rank <= 0 {
		return fmt.Errorf("%w: lora rank must be positive, got %d", errInvalidConfig, a.Rank)
	}
	if a.Alpha <= 0 {
		return fmt.Errorf("%w: lora alpha must be positive, got %d", errInvalidConfig, a.Alpha)
	}
	if a.Dropout < 0 || a.Dropout >= 1 {
		return fmt.Errorf("%w: lora dropout must be in [0,1), got %g", errInvalidConfig, a.Dropout)
	}
	if len(a.TargetModules) == 0 {
		return fmt.Errorf("%w: lora target modules are required", errInvalidConfig)
	}
	return nil
}
