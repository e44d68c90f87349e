package tokenizer

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEOS is returned when the vocabulary defines no end-of-sequence id.
	ErrNoEOS = errors.New("tokenizer: vocabulary defines no eos token")
	// ErrNoPad is returned when neither a pad nor an unk id is available to
	// stand in as the padding id.
	ErrNoPad = errors.New("tokenizer: vocabulary defines neither pad nor unk token")
)

// Adapter applies the dataset encoding policy on top of a Tokenizer:
// truncate each sequence to the configured maximum length, then append
// exactly one eos id. The append is unconditional, so a sequence already at
// the maximum length comes out one id longer; the downstream collator
// depends on every sequence ending in eos.
type Adapter struct {
	tok      Tokenizer
	maxLen   int
	eosID    int
	padID    int
	padIsUNK bool
}

// NewAdapter validates the tokenizer's special ids and fixes the padding
// policy. A vocabulary without a pad token borrows the unk id as pad rather
// than minting a new entry, which would change the vocabulary size and let
// the added token be scored as a real class.
func NewAdapter(tok Tokenizer, maxLen int) (*Adapter, error) {
	if maxLen <= 0 {
		return nil, fmt.Errorf("tokenizer: max sequence length must be positive, got %d", maxLen)
	}
	sp := tok.Specials()
	if sp.EOS < 0 {
		return nil, ErrNoEOS
	}
	padID := sp.PAD
	padIsUNK := false
	if padID < 0 {
		if sp.UNK < 0 {
			return nil, ErrNoPad
		}
		padID = sp.UNK
		padIsUNK = true
	}
	return &Adapter{
		tok:      tok,
		maxLen:   maxLen,
		eosID:    sp.EOS,
		padID:    padID,
		padIsUNK: padIsUNK,
	}, nil
}

// EncodeBatch tokenizes a batch of prompts in order. Each result is
// truncated to the maximum length before the eos append.
func (a *Adapter) EncodeBatch(prompts []string) ([][]int, error) {
	out := make([][]int, 0, len(prompts))
	for i, p := range prompts {
		ids, err := a.tok.Encode(p)
		if err != nil {
			return nil, fmt.Errorf("tokenize prompt %d: %w", i, err)
		}
		if len(ids) > a.maxLen {
			ids = ids[:a.maxLen]
		}
		ids = append(ids, a.eosID)
		out = append(out, ids)
	}
	return out, nil
}

// EOSID is the id appended to every encoded sequence.
func (a *Adapter) EOSID() int { return a.eosID }

// PadID is the id the collator should pad with.
func (a *Adapter) PadID() int { return a.padID }

// PadIsUNK reports whether the pad id is the unk id standing in for a
// missing pad token.
func (a *Adapter) PadIsUNK() bool { return a.padIsUNK }

// MaxLen is the configured maximum sequence length before the eos append.
func (a *Adapter) MaxLen() int { return a.maxLen }
