// Package snippet cuts short excerpts of document text around matched
// occurrences. All offsets it reports are in characters (runes), never in
// bytes or tokens.
package snippet

import (
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
)

const DefaultWindow = 20

type Snippet struct {
	Term     string `json:"term,omitempty"`
	Position int    `json:"position"`
	Text     string `json:"text"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// Extract returns one snippet per character offset in positions: the text
// from p-window to p+matchLength+window, clamped to the document.
func Extract(text string, positions []int, matchLength int, window int) []Snippet {
	runes := []rune(text)
	if window < 0 {
		window = 0
	}
	if matchLength < 0 {
		matchLength = 0
	}
	out := make([]Snippet, 0, len(positions))
	for _, p := range positions {
		start, end := bounds(len(runes), p, p+matchLength, window)
		out = append(out, Snippet{
			Position: p,
			Text:     string(runes[start:end]),
			Start:    start,
			End:      end,
		})
	}
	return out
}

// ExtractHits is Extract driven by the byte spans the tokenizer recorded for
// each hit, so multi-byte text and multi-character tokens are cut
// correctly.
func ExtractHits(text string, hits []executor.Hit, window int) []Snippet {
	runes := []rune(text)
	if window < 0 {
		window = 0
	}
	out := make([]Snippet, 0, len(hits))
	for _, h := range hits {
		matchStart := runeOffset(text, h.Start)
		matchEnd := runeOffset(text, h.End)
		start, end := bounds(len(runes), matchStart, matchEnd, window)
		out = append(out, Snippet{
			Term:     h.Term,
			Position: h.Position,
			Text:     string(runes[start:end]),
			Start:    start,
			End:      end,
		})
	}
	return out
}

func bounds(n, matchStart, matchEnd, window int) (int, int) {
	start := max(0, matchStart-window)
	end := min(n, matchEnd+window)
	start = min(start, n)
	end = max(end, start)
	return start, end
}

// runeOffset converts a byte offset into a rune offset, clamping to the
// text.
func runeOffset(text string, b int) int {
	if b <= 0 {
		return 0
	}
	if b > len(text) {
		b = len(text)
	}
	return utf8.RuneCountInString(text[:b])
}
