package tokenizer

import (
	"fmt"
	"net/http"

	"github.com/blevesearch/bleve/v2/analysis"
	_ "github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	_ "github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/registry"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// BleveSegmenter runs a named bleve analyzer and reports each emitted token
// with the byte span bleve recorded for it.
type BleveSegmenter struct {
	name     string
	analyzer analysis.Analyzer
}

// NewBleveSegmenter resolves analyzerName in bleve's registry. The
// analyzers registered by this package are standard, simple, en and cjk.
func NewBleveSegmenter(analyzerName string) (*BleveSegmenter, error) {
	cache := registry.NewCache()
	analyzer, err := cache.AnalyzerNamed(analyzerName)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrSegmenterUnavailable, http.StatusInternalServerError,
			"bleve analyzer %q: %v", analyzerName, err)
	}
	if analyzer == nil {
		return nil, fmt.Errorf("bleve analyzer %q: %w", analyzerName, apperrors.ErrSegmenterUnavailable)
	}
	return &BleveSegmenter{name: analyzerName, analyzer: analyzer}, nil
}

func (b *BleveSegmenter) Segment(text string) []Segment {
	if text == "" {
		return nil
	}
	stream := b.analyzer.Analyze([]byte(text))
	segs := make([]Segment, 0, len(stream))
	for _, tok := range stream {
		segs = append(segs, Segment{
			Term:  string(tok.Term),
			Start: tok.Start,
			End:   tok.End,
		})
	}
	return segs
}

// Name returns the analyzer name.
func (b *BleveSegmenter) Name() string {
	return b.name
}
