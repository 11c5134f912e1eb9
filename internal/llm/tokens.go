// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import "github.com/tiktoken-go/tokenizer"

// TokenCounter estimates the token count of text.
type TokenCounter interface {
	Count(text string) int
}

// NewTokenCounter returns a BPE counter for model, falling back to the
// cl100k_base encoding for unknown models and to a length heuristic when
// no encoding is available.
func NewTokenCounter(model string) TokenCounter {
	codec, err := tokenizer.ForModel(tokenizer.Model(model))
	if err != nil {
		codec, err = tokenizer.Get(tokenizer.Cl100kBase)
	}
	if err != nil {
		return approxCounter{}
	}
	return codecCounter{codec: codec}
}

type codecCounter struct {
	codec tokenizer.Codec
}

func (c codecCounter) Count(text string) int {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return approxCounter{}.Count(text)
	}
	return len(ids)
}

// approxCounter assumes four bytes per token.
type approxCounter struct{}

func (approxCounter) Count(text string) int {
	return len(text) / 4
}
