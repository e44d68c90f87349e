// Package prompt renders instruction-tuning prompts in the Alpaca layout.
// Rendering is a pure function of the instruction and input text; the same
// pair always produces the same prompt.
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingInstruction is returned when an example carries no instruction text.
var ErrMissingInstruction = errors.New("prompt: example missing instruction")

const (
	// templateWithInput is used when the example carries auxiliary input text.
	templateWithInput = "Below is an instruction that describes a task, paired with an input that provides further context. " +
		"Write a response that appropriately completes the request.\n\n" +
		"### Instruction:\n%s\n\n### Input:\n%s\n\n### Response:"

	// templateNoInput is used when the example has no input. Both templates end
	// at the response marker; the model generates the continuation.
	templateNoInput = "Below is an instruction that describes a task. " +
		"Write a response that appropriately completes the request.\n\n" +
		"### Instruction:\n%s\n\n### Response:"
)

// Render formats a single example into its prompt string. The input-bearing
// template is selected iff input is non-empty; an absent input field
// normalizes to the empty string upstream, so both cases land here.
func Render(instruction, input string) (string, error) {
	if strings.TrimSpace(instruction) == "" {
		return "", ErrMissingInstruction
	}
	if input == "" {
		return fmt.Sprintf(templateNoInput, instruction), nil
	}
	return fmt.Sprintf(templateWithInput, instruction, input), nil
}
