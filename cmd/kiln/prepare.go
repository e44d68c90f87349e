package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/kiln/internal/dataset"
	"github.com/samcharles93/kiln/internal/tokenizer"
)

// prepare runs the dataset pipeline without submitting a job, producing the
// exact tokenized file train would hand to the training service.
func prepareCmd() *cli.Command {
	var (
		dataFile string
		outFile  string
		tokBatch int64
	)

	flags := append(commonModelFlags(), loggingFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "data",
			Aliases:     []string{"d"},
			Usage:       "instruction dataset (jsonl, one example per line)",
			Required:    true,
			Destination: &dataFile,
		},
		&cli.StringFlag{
			Name:        "out",
			Usage:       "path for the tokenized jsonl",
			Value:       "train.tokens.jsonl",
			Destination: &outFile,
		},
		&cli.Int64Flag{
			Name:        "batch",
			Usage:       "tokenization batch size",
			Value:       dataset.DefaultBatchSize,
			Destination: &tokBatch,
		},
	)

	return &cli.Command{
		Name:  "prepare",
		Usage: "Render and tokenize an instruction dataset without training",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())
			log := setupLogging()

			ckptDir, err := resolveCheckpointDir(modelPath, modelsPath, os.Stdin, os.Stderr)
			if err != nil {
				return err
			}
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

			builder := dataset.Builder{Adapter: adapter, BatchSize: int(tokBatch)}
			n, err := builder.BuildFile(dataFile, outFile)
			if err != nil {
				return fmt.Errorf("build dataset: %w", err)
			}
			log.Info("dataset tokenized",
				"examples", n,
				"max_seq_len", maxSeqLen,
				"eos_id", adapter.EOSID(),
				"file", outFile)
			return nil
		},
	}
}
