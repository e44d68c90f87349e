package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the kiln configuration file (~/.config/kiln/config.yaml).
// Numeric fields are pointers so "not set" is distinguishable from zero.
type Config struct {
	ModelsDir string `yaml:"models_dir"`
	RunsDir   string `yaml:"runs_dir"`

	// Training defaults
	TrainerURL   string   `yaml:"trainer_url"`
	OutputDir    string   `yaml:"output_dir"`
	MaxSeqLen    *int64   `yaml:"max_seq_len"`
	Epochs       *int64   `yaml:"epochs"`
	BatchSize    *int64   `yaml:"batch_size"`
	LearningRate *float64 `yaml:"learning_rate"`
	Seed         *int64   `yaml:"seed"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "kiln", "config.yaml")
}

// applyCommonConfig fills in flag variables shared across commands when the
// corresponding CLI flag was not explicitly set.
func applyCommonConfig(c *cli.Command, cfg Config) {
	if cfg.ModelsDir != "" && !c.IsSet("models-path") {
		modelsPath = cfg.ModelsDir
	}
	if cfg.RunsDir != "" && !c.IsSet("runs-dir") {
		runsDir = cfg.RunsDir
	}
	if cfg.TrainerURL != "" && !c.IsSet("trainer-url") {
		trainerURL = cfg.TrainerURL
	}
	if cfg.MaxSeqLen != nil && !c.IsSet("max-seq-len") && !c.IsSet("ctx") {
		maxSeqLen = *cfg.MaxSeqLen
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyTrainConfig applies config file defaults to train command variables.
func applyTrainConfig(c *cli.Command, cfg Config,
	outputDir *string, epochs *int64, batchSize *int64, learningRate *float64, seed *int64,
) {
	applyCommonConfig(c, cfg)
	if cfg.OutputDir != "" && !c.IsSet("output-dir") {
		*outputDir = cfg.OutputDir
	}
	if cfg.Epochs != nil && !c.IsSet("epochs") {
		*epochs = *cfg.Epochs
	}
	if cfg.BatchSize != nil && !c.IsSet("batch-size") {
		*batchSize = *cfg.BatchSize
	}
	if cfg.LearningRate != nil && !c.IsSet("learning-rate") && !c.IsSet("lr") {
		*learningRate = *cfg.LearningRate
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		*seed = *cfg.Seed
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	applyCommonConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
