package index

// Span is the byte range of one occurrence in the document text, End
// exclusive.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Posting records where one term occurs in one document. Positions are
// 0-based token offsets in ascending order and Spans[i] is the byte range
// of the token at Positions[i]. Frequency always equals len(Positions).
type Posting struct {
	DocID     string `json:"doc_id"`
	Frequency int    `json:"frequency"`
	Positions []int  `json:"positions"`
	Spans     []Span `json:"spans"`
}

func (p *Posting) add(position int, span Span) {
	p.Positions = append(p.Positions, position)
	p.Spans = append(p.Spans, span)
	p.Frequency = len(p.Positions)
}

type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}
