package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const envKilnModelsDir = "KILN_MODELS_DIR"

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

// resolveCheckpointDir picks the checkpoint directory for a command. An
// explicit --model wins; otherwise the models directory is scanned and a
// single hit is used directly, while several hits prompt on a TTY.
func resolveCheckpointDir(modelFlag string, modelsPath string, stdin io.Reader, stderr io.Writer) (string, error) {
	modelFlag = strings.TrimSpace(modelFlag)
	if modelFlag != "" {
		return filepath.Clean(modelFlag), nil
	}

	modelsDir := strings.TrimSpace(modelsPath)
	if modelsDir == "" {
		modelsDir = strings.TrimSpace(os.Getenv(envKilnModelsDir))
	}
	if modelsDir == "" {
		return "", fmt.Errorf("--model or --models-path is required unless %s is set", envKilnModelsDir)
	}

	checkpoints, err := discoverCheckpoints(modelsDir)
	if err != nil {
		return "", err
	}
	switch len(checkpoints) {
	case 0:
		return "", fmt.Errorf("no checkpoint directories found in %s", modelsDir)
	case 1:
		_, _ = fmt.Fprintf(stderr, "train: using checkpoint %s\n", checkpoints[0])
		return checkpoints[0], nil
	default:
		if !stdinIsTTY() {
			return "", fmt.Errorf(
				"multiple checkpoints found in %s but stdin is not interactive; set --model",
				modelsDir,
			)
		}
		return selectCheckpointInteractively(modelsDir, checkpoints, stdin, stderr)
	}
}

// discoverCheckpoints lists subdirectories of dir that look like model
// checkpoints, i.e. contain a config.json.
func discoverCheckpoints(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("models directory is empty")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("models path is not a directory: %s", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	checkpoints := make([]string, 0, len(ents))
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		candidate := filepath.Join(dir, e.Name())
		if _, err := os.Stat(filepath.Join(candidate, "config.json")); err != nil {
			continue
		}
		checkpoints = append(checkpoints, candidate)
	}
	sort.Strings(checkpoints)
	return checkpoints, nil
}

func selectCheckpointInteractively(modelsDir string, checkpoints []string, stdin io.Reader, stderr io.Writer) (string, error) {
	if len(checkpoints) == 0 {
		return "", fmt.Errorf("no checkpoints available in %s", modelsDir)
	}

	_, _ = fmt.Fprintf(stderr, "train: select a checkpoint from %s\n", modelsDir)
	for i, ckpt := range checkpoints {
		_, _ = fmt.Fprintf(stderr, "%d. %s\n", i+1, checkpointDisplayName(modelsDir, ckpt))
	}

	reader := bufio.NewReader(stdin)
	for {
		_, _ = fmt.Fprintf(stderr, "train: enter selection [1-%d]: ", len(checkpoints))
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if errors.Is(err, io.EOF) {
				return "", errors.New("no selection provided on stdin; set --model")
			}
			continue
		}

		idx, convErr := strconv.Atoi(line)
		if convErr != nil || idx < 1 || idx > len(checkpoints) {
			_, _ = fmt.Fprintf(stderr, "train: invalid selection %q\n", line)
			if errors.Is(err, io.EOF) {
				return "", errors.New("invalid selection provided on stdin; set --model")
			}
			continue
		}
		return checkpoints[idx-1], nil
	}
}

func checkpointDisplayName(modelsDir, ckptPath string) string {
	rel, err := filepath.Rel(modelsDir, ckptPath)
	if err != nil || rel == "." {
		return filepath.Base(ckptPath)
	}
	return rel
}

func isTTY() bool {
	st, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}
