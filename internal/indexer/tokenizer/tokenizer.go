package tokenizer

import (
	"fmt"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Token is a term together with its 0-based index in the token sequence and
// its byte span in the source text.
type Token struct {
	Term     string
	Position int
	Start    int
	End      int
}

// Tokenizer assigns positions to the terms a Segmenter produces.
type Tokenizer struct {
	seg  Segmenter
	name string
}

// New builds the Tokenizer described by cfg. An unknown segmenter or an
// analyzer bleve cannot resolve is an initialisation error; the engine must
// not start without a working tokenizer.
func New(cfg config.TokenizerConfig) (*Tokenizer, error) {
	switch cfg.Segmenter {
	case "", "bleve":
		analyzer := cfg.Analyzer
		if analyzer == "" {
			analyzer = "standard"
		}
		seg, err := NewBleveSegmenter(analyzer)
		if err != nil {
			return nil, fmt.Errorf("creating tokenizer: %w", err)
		}
		return &Tokenizer{seg: seg, name: "bleve/" + analyzer}, nil
	case "uax29":
		return &Tokenizer{seg: NewWordSegmenter(cfg.StopWords, cfg.Stem), name: "uax29"}, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrSegmenterUnavailable, http.StatusInternalServerError,
			"unknown segmenter %q", cfg.Segmenter)
	}
}

// NewWithSegmenter wraps an arbitrary Segmenter.
func NewWithSegmenter(name string, seg Segmenter) *Tokenizer {
	return &Tokenizer{seg: seg, name: name}
}

// Tokenize returns the terms of text in order of appearance. Empty input
// yields an empty slice.
func (t *Tokenizer) Tokenize(text string) []Token {
	segs := t.seg.Segment(text)
	tokens := make([]Token, 0, len(segs))
	for _, s := range segs {
		if s.Term == "" || s.Start < 0 || s.End > len(text) || s.Start > s.End {
			continue
		}
		tokens = append(tokens, Token{
			Term:     s.Term,
			Position: len(tokens),
			Start:    s.Start,
			End:      s.End,
		})
	}
	return tokens
}

// Terms returns only the term strings of Tokenize.
func (t *Tokenizer) Terms(text string) []string {
	tokens := t.Tokenize(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}

func (t *Tokenizer) Name() string {
	return t.name
}
