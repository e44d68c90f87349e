package prompt

import (
	"errors"
	"strings"
	"testing"
)

func TestRenderNoInput(t *testing.T) {
	t.Parallel()

	got, err := Render("Summarize.", "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasSuffix(got, "### Instruction:\nSummarize.\n\n### Response:") {
		t.Fatalf("unexpected prompt tail: %q", got)
	}
	if strings.Contains(got, "### Input:") {
		t.Fatalf("no-input prompt must not contain input marker: %q", got)
	}
	if !strings.HasPrefix(got, "Below is an instruction that describes a task. ") {
		t.Fatalf("unexpected header: %q", got)
	}
}

func TestRenderWithInput(t *testing.T) {
	t.Parallel()

	got, err := Render("Translate to French.", "Good morning")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(got, "### Input:\nGood morning\n\n### Response:") {
		t.Fatalf("input text not embedded verbatim: %q", got)
	}
	if !strings.HasPrefix(got, "Below is an instruction that describes a task, paired with an input") {
		t.Fatalf("unexpected header: %q", got)
	}
	if !strings.HasSuffix(got, "### Response:") {
		t.Fatalf("prompt must end at the response marker: %q", got)
	}
}

func TestRenderDeterministic(t *testing.T) {
	t.Parallel()

	first, err := Render("Sort the list.", "3 1 2")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := Render("Sort the list.", "3 1 2")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if first != second {
		t.Fatalf("rendering is not deterministic:\n%q\n%q", first, second)
	}
}

func TestRenderMissingInstruction(t *testing.T) {
	t.Parallel()

	for _, instruction := range []string{"", "   ", "\n"} {
		if _, err := Render(instruction, "context"); !errors.Is(err, ErrMissingInstruction) {
			t.Fatalf("instruction %q: expected ErrMissingInstruction, got %v", instruction, err)
		}
	}
}

func TestRenderPreservesFormatVerbs(t *testing.T) {
	t.Parallel()

	got, err := Render("Explain %s and %d.", "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(got, "Explain %s and %d.") {
		t.Fatalf("instruction text mangled: %q", got)
	}
}
