package tokenizer

import (
	"errors"
	"testing"
)

// runeTok encodes one id per rune, for exercising the adapter policy
// without a real vocabulary.
type runeTok struct {
	sp  Specials
	err error
}

func (f runeTok) Encode(text string) ([]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	ids := make([]int, 0, len(text))
	for _, r := range text {
		ids = append(ids, int(r))
	}
	return ids, nil
}

func (f runeTok) Decode(ids []int) (string, error) {
	out := make([]rune, len(ids))
	for i, id := range ids {
		out[i] = rune(id)
	}
	return string(out), nil
}

func (f runeTok) Specials() Specials { return f.sp }

func TestAdapterAppendsEOS(t *testing.T) {
	t.Parallel()

	a, err := NewAdapter(runeTok{sp: Specials{BOS: -1, EOS: 999, PAD: 7, UNK: -1}}, 8)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	batch, err := a.EncodeBatch([]string{"ab", "c", ""})
	if err != nil {
		t.Fatalf("encode batch: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("batch size: got %d want 3", len(batch))
	}
	for i, ids := range batch {
		if len(ids) == 0 || ids[len(ids)-1] != 999 {
			t.Fatalf("sequence %d does not end in eos: %v", i, ids)
		}
	}
	if len(batch[0]) != 3 || len(batch[1]) != 2 || len(batch[2]) != 1 {
		t.Fatalf("unexpected lengths: %d %d %d", len(batch[0]), len(batch[1]), len(batch[2]))
	}
}

func TestAdapterTruncatesBeforeEOS(t *testing.T) {
	t.Parallel()

	a, err := NewAdapter(runeTok{sp: Specials{BOS: -1, EOS: 999, PAD: 7, UNK: -1}}, 4)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	tests := []struct {
		prompt  string
		wantLen int
	}{
		{"abc", 4},     // below the limit: len+1
		{"abcd", 5},    // exactly at the limit: eos still appended
		{"abcdefg", 5}, // truncated to 4, then eos
	}
	for _, tc := range tests {
		batch, err := a.EncodeBatch([]string{tc.prompt})
		if err != nil {
			t.Fatalf("encode %q: %v", tc.prompt, err)
		}
		ids := batch[0]
		if len(ids) != tc.wantLen {
			t.Fatalf("prompt %q: got len %d want %d (%v)", tc.prompt, len(ids), tc.wantLen, ids)
		}
		if ids[len(ids)-1] != 999 {
			t.Fatalf("prompt %q: last id is not eos: %v", tc.prompt, ids)
		}
	}
}

func TestAdapterOrderPreserved(t *testing.T) {
	t.Parallel()

	a, err := NewAdapter(runeTok{sp: Specials{BOS: -1, EOS: 999, PAD: 7, UNK: -1}}, 16)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	batch, err := a.EncodeBatch([]string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("encode batch: %v", err)
	}
	if batch[0][0] != 'a' || batch[1][0] != 'b' || batch[2][0] != 'c' {
		t.Fatalf("batch reordered: %v", batch)
	}
}

func TestAdapterPadFallsBackToUNK(t *testing.T) {
	t.Parallel()

	a, err := NewAdapter(runeTok{sp: Specials{BOS: -1, EOS: 2, PAD: -1, UNK: 3}}, 8)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if a.PadID() != 3 {
		t.Fatalf("pad id: got %d want unk id 3", a.PadID())
	}
	if !a.PadIsUNK() {
		t.Fatal("expected PadIsUNK to report the fallback")
	}
}

func TestAdapterKeepsDefinedPad(t *testing.T) {
	t.Parallel()

	a, err := NewAdapter(runeTok{sp: Specials{BOS: -1, EOS: 2, PAD: 5, UNK: 3}}, 8)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if a.PadID() != 5 || a.PadIsUNK() {
		t.Fatalf("expected defined pad id 5, got %d (fallback=%v)", a.PadID(), a.PadIsUNK())
	}
}

func TestAdapterRequiresEOS(t *testing.T) {
	t.Parallel()

	_, err := NewAdapter(runeTok{sp: Specials{BOS: -1, EOS: -1, PAD: 5, UNK: 3}}, 8)
	if !errors.Is(err, ErrNoEOS) {
		t.Fatalf("expected ErrNoEOS, got %v", err)
	}
}

func TestAdapterRequiresPadOrUNK(t *testing.T) {
	t.Parallel()

	_, err := NewAdapter(runeTok{sp: Specials{BOS: -1, EOS: 2, PAD: -1, UNK: -1}}, 8)
	if !errors.Is(err, ErrNoPad) {
		t.Fatalf("expected ErrNoPad, got %v", err)
	}
}

func TestAdapterPropagatesEncodeError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	a, err := NewAdapter(runeTok{sp: Specials{BOS: -1, EOS: 2, PAD: 5, UNK: 3}, err: boom}, 8)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if _, err := a.EncodeBatch([]string{"x"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped encode error, got %v", err)
	}
}
