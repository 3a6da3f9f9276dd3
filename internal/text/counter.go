package text

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter measures text in the unit the chunk budget is expressed in.
type Counter interface {
	Count(text string) int
}

// WordCounter counts whitespace-separated words.
type WordCounter struct{}

func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// TiktokenCounter counts BPE tokens.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter uses the cl100k_base encoding.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

func (tc *TiktokenCounter) Count(text string) int {
	if tc.encoding == nil {
		return len(strings.Fields(text))
	}
	return len(tc.encoding.Encode(text, nil, nil))
}
