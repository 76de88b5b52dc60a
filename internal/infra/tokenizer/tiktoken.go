// Package tokenizer estimates prompt sizes for usage accounting.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens with a tiktoken BPE encoding. Counts are estimates
// for models that use a different tokenizer.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// NewCounter loads the named encoding (for example "cl100k_base").
func NewCounter(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encoding, err)
	}
	return &Counter{enc: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (c *Counter) CountTokens(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
