package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/kiln/internal/checkpoint"
	"github.com/samcharles93/kiln/internal/tokenizer"
	"github.com/samcharles93/kiln/internal/trainer"
)

func inspectCmd() *cli.Command {
	var (
		showTensors bool
		loraRank    int64
	)

	flags := append(commonModelFlags(), loggingFlags()...)
	flags = append(flags,
		&cli.BoolFlag{
			Name:        "tensors",
			Usage:       "list every tensor with shape and dtype",
			Destination: &showTensors,
		},
		&cli.Int64Flag{
			Name:        "lora-r",
			Usage:       "rank used for the trainable-parameter estimate",
			Value:       int64(trainer.DefaultLoRARank),
			Destination: &loraRank,
		},
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Print a checkpoint summary",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())

			ckptDir, err := resolveCheckpointDir(modelPath, modelsPath, os.Stdin, os.Stderr)
			if err != nil {
				return err
			}
			ckpt, err := checkpoint.Open(ckptDir)
			if err != nil {
				return err
			}

			fmt.Printf("checkpoint:   %s\n", ckpt.Dir)
			fmt.Printf("architecture: %s\n", ckpt.Config.Arch())
			if ckpt.Config.ModelType != "" {
				fmt.Printf("model type:   %s\n", ckpt.Config.ModelType)
			}
			if ckpt.Config.HiddenSize > 0 {
				fmt.Printf("hidden size:  %d\n", ckpt.Config.HiddenSize)
			}
			if ckpt.Config.NumHiddenLayers > 0 {
				fmt.Printf("layers:       %d\n", ckpt.Config.NumHiddenLayers)
			}
			if ckpt.Config.NumAttentionHeads > 0 {
				fmt.Printf("heads:        %d\n", ckpt.Config.NumAttentionHeads)
			}
			if ckpt.Config.VocabSize > 0 {
				fmt.Printf("vocab size:   %d\n", ckpt.Config.VocabSize)
			}
			if ckpt.Config.TorchDtype != "" {
				fmt.Printf("dtype:        %s\n", ckpt.Config.TorchDtype)
			}
			fmt.Printf("shards:       %d\n", len(ckpt.Shards))
			fmt.Printf("tensors:      %d\n", len(ckpt.Tensors))
			fmt.Printf("parameters:   %d\n", ckpt.ParamCount())

			if trainable, err := ckpt.LoRATrainableParams(trainer.DefaultTargetModules(), int(loraRank)); err == nil {
				fmt.Printf("lora r=%d:    %d trainable\n", loraRank, trainable)
			}

			if tok, err := tokenizer.Load(ckptDir); err == nil {
				sp := tok.Specials()
				fmt.Printf("tokenizer:    vocab=%d bos=%d eos=%d pad=%d unk=%d\n",
					tok.VocabSize(), sp.BOS, sp.EOS, sp.PAD, sp.UNK)
			}

			if showTensors {
				for _, name := range ckpt.TensorNames() {
					info := ckpt.Tensors[name]
					fmt.Printf("%-60s %-8s %v\n", name, info.DType, info.Shape)
				}
			}
			return nil
		},
	}
}
