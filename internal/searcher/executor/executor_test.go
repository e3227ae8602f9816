package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
)

func fieldsTokenizer() *tokenizer.Tokenizer {
	return tokenizer.NewWithSegmenter("fields", tokenizer.SegmenterFunc(func(text string) []tokenizer.Segment {
		var segs []tokenizer.Segment
		offset := 0
		for _, f := range strings.Fields(text) {
			start := offset + strings.Index(text[offset:], f)
			segs = append(segs, tokenizer.Segment{Term: f, Start: start, End: start + len(f)})
			offset = start + len(f)
		}
		return segs
	}))
}

func search(corpus map[string]string, query string) Matches {
	tok := fieldsTokenizer()
	return Search(index.Build(corpus, tok), parser.Parse(tok, query))
}

func TestSearchSingleTerm(t *testing.T) {
	matches := search(map[string]string{"a.txt": "cat dog cat"}, "cat")
	require.Len(t, matches, 1)
	m := matches["a.txt"]
	require.NotNil(t, m)
	assert.Equal(t, 2, m.TotalFrequency)
	assert.Equal(t, []int{0, 2}, m.MatchedPositions())
	assert.Equal(t, Hit{Term: "cat", Position: 2, Start: 8, End: 11}, m.Hits[1])
}

func TestSearchAbsentTerm(t *testing.T) {
	matches := search(map[string]string{"a.txt": "cat dog cat"}, "fish")
	assert.Empty(t, matches)
}

func TestSearchEmptyQuery(t *testing.T) {
	matches := search(map[string]string{"a.txt": "cat"}, "   ")
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestSearchSumsAcrossTerms(t *testing.T) {
	corpus := map[string]string{
		"1": "cat dog dog bird",
		"2": "dog",
		"3": "fish",
	}
	matches := search(corpus, "cat dog unknown")
	require.Len(t, matches, 2)
	assert.Equal(t, 3, matches["1"].TotalFrequency)
	assert.Equal(t, []int{0, 1, 2}, matches["1"].MatchedPositions())
	assert.Equal(t, "cat", matches["1"].Hits[0].Term)
	assert.Equal(t, "dog", matches["1"].Hits[1].Term)
	assert.Equal(t, 1, matches["2"].TotalFrequency)
}

func TestSearchRepeatedQueryTermCountsTwice(t *testing.T) {
	matches := search(map[string]string{"a": "cat dog cat"}, "cat cat")
	assert.Equal(t, 4, matches["a"].TotalFrequency)
	assert.Equal(t, []int{0, 2, 0, 2}, matches["a"].MatchedPositions())
}

func TestExecutorTermStats(t *testing.T) {
	tok := fieldsTokenizer()
	idx := index.Build(map[string]string{"1": "a b", "2": "a", "3": "c"}, tok)
	res := New().Execute(context.Background(), idx, parser.Parse(tok, "a c z"))
	assert.Equal(t, map[string]int{"a": 2, "c": 1}, res.TermStats)
	assert.Len(t, res.Matches, 3)
}
