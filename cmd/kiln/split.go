package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/kiln/internal/dataset"
)

func splitCmd() *cli.Command {
	var seed int64

	return &cli.Command{
		Name:      "split",
		Usage:     "Split an instruction dataset into train and validation sets",
		ArgsUsage: "dataset_file val_set_size output_dir",
		Flags: append(loggingFlags(),
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "shuffle seed",
				Value:       dataset.DefaultSeed,
				Destination: &seed,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := setupLogging()

			args := cmd.Args().Slice()
			if len(args) != 3 {
				return fmt.Errorf("split expects dataset_file val_set_size output_dir, got %d arguments", len(args))
			}
			dataFile, outDir := args[0], args[2]
			valSize, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("val_set_size must be an integer: %w", err)
			}

			examples, err := dataset.ReadAll(dataFile)
			if err != nil {
				return fmt.Errorf("read dataset: %w", err)
			}
			train, validation, err := dataset.Split(examples, valSize, seed)
			if err != nil {
				return err
			}
			if err := dataset.SaveSplit(outDir, train, validation, seed); err != nil {
				return fmt.Errorf("save split: %w", err)
			}
			log.Info("dataset split",
				"train", len(train),
				"validation", len(validation),
				"seed", seed,
				"dir", outDir)
			return nil
		},
	}
}
