package main

import (
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/kiln/internal/logger"
)

var (
	modelPath  string
	modelsPath string
	maxSeqLen  int64
	logLevel   string
	logFormat  string
	debug      bool
	trainerURL string
	runsDir    string
)

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "path to a checkpoint directory (config.json + safetensors + tokenizer.json)",
			Destination: &modelPath,
		},
		&cli.StringFlag{
			Name:        "models-path",
			Aliases:     []string{"path"},
			Usage:       "path to a directory containing checkpoint directories",
			Destination: &modelsPath,
		},
		&cli.Int64Flag{
			Name:        "max-seq-len",
			Aliases:     []string{"ctx"},
			Usage:       "max tokenized sequence length before the eos append",
			Value:       2048,
			Destination: &maxSeqLen,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func trainerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "trainer-url",
			Usage:       "base URL of the fine-tuning service",
			Value:       "http://127.0.0.1:8400",
			Destination: &trainerURL,
		},
		&cli.StringFlag{
			Name:        "runs-dir",
			Usage:       "directory holding run manifests",
			Destination: &runsDir,
		},
	}
}

func setupLogging() logger.Logger {
	level := logLevel
	if debug {
		level = "debug"
	}
	return logger.Setup(os.Stderr, level, logFormat)
}
