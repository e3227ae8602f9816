package tokenizer

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/kljensen/snowball/english"
	"golang.org/x/text/unicode/norm"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// WordSegmenter splits on Unicode UAX#29 word boundaries, NFKC-normalises
// and lower-cases each word, and optionally drops English stop-words and
// applies the Snowball English stemmer. Spans always refer to the original,
// unnormalised text.
type WordSegmenter struct {
	stopWords bool
	stem      bool
}

func NewWordSegmenter(dropStopWords, stem bool) *WordSegmenter {
	return &WordSegmenter{stopWords: dropStopWords, stem: stem}
}

func (w *WordSegmenter) Segment(text string) []Segment {
	if text == "" {
		return nil
	}
	segs := make([]Segment, 0, len(text)/6)
	iter := words.FromString(text)
	offset := 0
	for iter.Next() {
		word := iter.Value()
		start := offset
		offset += len(word)
		if !isWordLike(word) {
			continue
		}
		term := strings.ToLower(norm.NFKC.String(word))
		if w.stopWords {
			if _, isStop := stopWords[term]; isStop {
				continue
			}
		}
		if w.stem {
			term = english.Stem(term, false)
		}
		if term == "" {
			continue
		}
		segs = append(segs, Segment{Term: term, Start: start, End: offset})
	}
	return segs
}

// isWordLike reports whether a UAX#29 segment carries a letter or digit;
// whitespace and punctuation segments are not terms.
func isWordLike(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
