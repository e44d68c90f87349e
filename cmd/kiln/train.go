package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/kiln/internal/checkpoint"
	"github.com/samcharles93/kiln/internal/dataset"
	"github.com/samcharles93/kiln/internal/logger"
	"github.com/samcharles93/kiln/internal/run"
	"github.com/samcharles93/kiln/internal/tokenizer"
	"github.com/samcharles93/kiln/internal/trainer"
)

func trainCmd() *cli.Command {
	var (
		dataFile     string
		outputDir    string
		optim        string
		epochs       int64
		batchSize    int64
		learningRate float64
		fp16         bool
		seed         int64
		tokBatch     int64

		useLoRA     bool
		loraRank    int64
		loraAlpha   int64
		loraDropout float64
		loraTargets []string
		use8Bit     bool
	)

	flags := append(commonModelFlags(), loggingFlags()...)
	flags = append(flags, trainerFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "data",
			Aliases:     []string{"d"},
			Usage:       "instruction dataset (jsonl, one example per line)",
			Required:    true,
			Destination: &dataFile,
		},
		&cli.StringFlag{
			Name:        "output-dir",
			Aliases:     []string{"o"},
			Usage:       "directory the training service writes the artifact to",
			Value:       "output",
			Destination: &outputDir,
		},
		&cli.StringFlag{
			Name:        "optim",
			Usage:       "optimizer name passed to the training service",
			Value:       trainer.DefaultOptimizer,
			Destination: &optim,
		},
		&cli.Int64Flag{
			Name:        "epochs",
			Usage:       "number of training epochs",
			Value:       3,
			Destination: &epochs,
		},
		&cli.Int64Flag{
			Name:        "batch-size",
			Usage:       "per-device train batch size",
			Value:       8,
			Destination: &batchSize,
		},
		&cli.Float64Flag{
			Name:        "learning-rate",
			Aliases:     []string{"lr"},
			Usage:       "learning rate",
			Value:       2e-5,
			Destination: &learningRate,
		},
		&cli.BoolFlag{
			Name:        "fp16",
			Usage:       "request mixed-precision training",
			Destination: &fp16,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "training seed",
			Value:       42,
			Destination: &seed,
		},
		&cli.Int64Flag{
			Name:        "batch",
			Usage:       "tokenization batch size",
			Value:       dataset.DefaultBatchSize,
			Destination: &tokBatch,
		},
		&cli.BoolFlag{
			Name:        "lora",
			Usage:       "train a low-rank adapter instead of full weights",
			Destination: &useLoRA,
		},
		&cli.Int64Flag{
			Name:        "lora-r",
			Usage:       "adapter rank",
			Value:       int64(trainer.DefaultLoRARank),
			Destination: &loraRank,
		},
		&cli.Int64Flag{
			Name:        "lora-alpha",
			Usage:       "adapter alpha",
			Value:       int64(trainer.DefaultLoRAAlpha),
			Destination: &loraAlpha,
		},
		&cli.Float64Flag{
			Name:        "lora-dropout",
			Usage:       "adapter dropout",
			Value:       trainer.DefaultLoRADropout,
			Destination: &loraDropout,
		},
		&cli.StringSliceFlag{
			Name:        "lora-target-modules",
			Usage:       "projection modules the adapter attaches to",
			Destination: &loraTargets,
		},
		&cli.BoolFlag{
			Name:        "use-8bit",
			Usage:       "load the base model in 8-bit (requires --lora)",
			Destination: &use8Bit,
		},
	)

	return &cli.Command{
		Name:  "train",
		Usage: "Fine-tune a model on an instruction dataset",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyTrainConfig(cmd, LoadConfig(), &outputDir, &epochs, &batchSize, &learningRate, &seed)
			log := setupLogging()

			ckptDir, err := resolveCheckpointDir(modelPath, modelsPath, os.Stdin, os.Stderr)
			if err != nil {
				return err
			}

			ckpt, err := checkpoint.Open(ckptDir)
			if err != nil {
				return fmt.Errorf("open checkpoint: %w", err)
			}
			log.Info("loaded checkpoint",
				"dir", ckptDir,
				"arch", ckpt.Config.Arch(),
				"params", ckpt.ParamCount(),
				"tensors", len(ckpt.Tensors))

			tok, err := tokenizer.Load(ckptDir)
			if err != nil {
				return fmt.Errorf("load tokenizer: %w", err)
			}
			adapter, err := tokenizer.NewAdapter(tok, int(maxSeqLen))
			if err != nil {
				return err
			}
			if adapter.PadIsUNK() {
				log.Warn("tokenizer has no pad token, padding with unk to preserve vocab size",
					"pad_id", adapter.PadID())
			}

			cfg := trainer.TrainConfig{
				Epochs:       int(epochs),
				BatchSize:    int(batchSize),
				LearningRate: learningRate,
				Optimizer:    optim,
				MaxSeqLen:    int(maxSeqLen),
				FP16:         fp16,
				Seed:         seed,
				OutputDir:    outputDir,
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			adaptation := trainer.AdaptationConfig{Enabled: useLoRA, EightBit: use8Bit}
			if useLoRA {
				targets := loraTargets
				if len(targets) == 0 {
					targets = trainer.DefaultTargetModules()
				}
				adaptation.Rank = int(loraRank)
				adaptation.Alpha = int(loraAlpha)
				adaptation.Dropout = loraDropout
				adaptation.TargetModules = targets

				trainable, err := ckpt.LoRATrainableParams(targets, int(loraRank))
				if err != nil {
					return fmt.Errorf("validate target modules: %w", err)
				}
				log.Info("adapter attached",
					"rank", loraRank,
					"target_modules", strings.Join(targets, ","),
					"trainable_params", trainable)
			}
			if err := adaptation.Validate(); err != nil {
				return err
			}

			store, err := run.NewStore(resolveRunsDir())
			if err != nil {
				return err
			}
			manifest := run.Manifest{
				BaseModel:    ckptDir,
				DataFile:     dataFile,
				OutputDir:    outputDir,
				Epochs:       cfg.Epochs,
				BatchSize:    cfg.BatchSize,
				LearningRate: cfg.LearningRate,
				Optimizer:    cfg.Optimizer,
				MaxSeqLen:    cfg.MaxSeqLen,
				FP16:         cfg.FP16,
				Seed:         cfg.Seed,
			}
			if useLoRA {
				manifest.LoRA = &run.LoRAManifest{
					Rank:          adaptation.Rank,
					Alpha:         adaptation.Alpha,
					Dropout:       adaptation.Dropout,
					TargetModules: adaptation.TargetModules,
					EightBit:      adaptation.EightBit,
				}
			}
			manifest, err = store.Create(manifest)
			if err != nil {
				return fmt.Errorf("create run: %w", err)
			}
			log.Info("run created", "id", manifest.ID, "dir", filepath.Join(store.Dir(), manifest.ID))

			trainFile := filepath.Join(store.Dir(), manifest.ID, "train.tokens.jsonl")
			builder := dataset.Builder{Adapter: adapter, BatchSize: int(tokBatch)}
			n, err := builder.BuildFile(dataFile, trainFile)
			if err != nil {
				return failRun(store, manifest, log, fmt.Errorf("build dataset: %w", err))
			}
			manifest.TrainFile = trainFile
			manifest.Examples = n
			log.Info("dataset tokenized", "examples", n, "file", trainFile)

			client := trainer.NewClient(trainerURL)
			spec := trainer.NewJobSpec(ckptDir, trainFile, adapter.EOSID(), adapter.PadID(), cfg, adaptation)
			job, err := client.CreateJob(ctx, spec)
			if err != nil {
				return failRun(store, manifest, log, fmt.Errorf("submit job: %w", err))
			}
			manifest.JobID = job.ID
			manifest.Status = run.StatusTraining
			if err := store.Update(manifest); err != nil {
				return err
			}
			log.Info("job submitted", "job_id", job.ID, "trainer_url", trainerURL)

			job, err = client.Wait(ctx, job.ID, log)
			if err != nil {
				return failRun(store, manifest, log, err)
			}
			if job.Status != trainer.StatusSucceeded {
				return failRun(store, manifest, log,
					fmt.Errorf("job %s %s: %s", job.ID, job.Status, job.Error))
			}

			manifest.Status = run.StatusSucceeded
			manifest.ArtifactPath = job.ArtifactPath
			if err := store.Update(manifest); err != nil {
				return err
			}
			log.Info("training complete",
				"run", manifest.ID,
				"artifact", job.ArtifactPath,
				"trained_tokens", job.TrainedTokens)
			return nil
		},
	}
}

func resolveRunsDir() string {
	if strings.TrimSpace(runsDir) != "" {
		return runsDir
	}
	return run.DefaultDir()
}

// failRun marks the manifest failed before propagating the error, so the run
// store reflects what happened even when the process exits non-zero.
func failRun(store *run.Store, m run.Manifest, log logger.Logger, cause error) error {
	m.Status = run.StatusFailed
	m.Error = cause.Error()
	if err := store.Update(m); err != nil {
		log.Error("record run failure", "run", m.ID, "error", err)
	}
	return cause
}
