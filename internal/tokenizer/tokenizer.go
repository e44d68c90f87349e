// Package tokenizer loads HuggingFace tokenizer.json vocabularies and exposes
// the batch encoding policy used when preparing fine-tuning datasets.
package tokenizer

// Tokenizer is the minimal interface the dataset pipeline depends on.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
	Specials() Specials
}

// Specials holds the reserved token ids of a vocabulary. An id of -1 means
// the tokenizer does not define that token.
type Specials struct {
	BOS int
	EOS int
	PAD int
	UNK int
}
