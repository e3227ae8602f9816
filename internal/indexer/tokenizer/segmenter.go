// Package tokenizer turns raw text into an ordered sequence of terms with
// their byte spans. Word breaking is delegated to a Segmenter so that the
// backend (bleve analyzers, UAX#29 word boundaries) can be swapped by
// configuration.
package tokenizer

// Segment is one term produced by a Segmenter. Start and End are byte
// offsets into the segmented text, End exclusive.
type Segment struct {
	Term  string
	Start int
	End   int
}

// Segmenter splits text into terms. Implementations must be deterministic
// and safe for concurrent use.
type Segmenter interface {
	Segment(text string) []Segment
}

// SegmenterFunc adapts a plain function to the Segmenter interface.
type SegmenterFunc func(text string) []Segment

func (f SegmenterFunc) Segment(text string) []Segment {
	return f(text)
}
