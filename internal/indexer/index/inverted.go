package index

import (
	"sort"
	"strings"
)

// InvertedIndex maps term -> document id -> posting. It is built once by
// Build and never mutated afterwards, so it may be shared by concurrent
// readers without locking.
type InvertedIndex struct {
	index      map[string]map[string]*Posting
	terms      []string
	docCount   int
	tokenCount int
	docLengths map[string]int
	size       int64
}

// Lookup returns copies of the postings for term ordered by document id, or
// nil if the term is unknown.
func (x *InvertedIndex) Lookup(term string) PostingList {
	docs, exists := x.index[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, clonePosting(posting))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Posting returns the posting of term in docID.
func (x *InvertedIndex) Posting(term, docID string) (Posting, bool) {
	p, ok := x.index[term][docID]
	if !ok {
		return Posting{}, false
	}
	return clonePosting(p), true
}

// DocFrequency is the number of documents containing term.
func (x *InvertedIndex) DocFrequency(term string) int {
	return len(x.index[term])
}

// Terms returns the vocabulary in ascending order. The slice is shared; do
// not modify it.
func (x *InvertedIndex) Terms() []string {
	return x.terms
}

// TermsWithPrefix returns up to limit vocabulary entries starting with
// prefix, ascending. limit <= 0 means no limit.
func (x *InvertedIndex) TermsWithPrefix(prefix string, limit int) []string {
	start := sort.SearchStrings(x.terms, prefix)
	out := make([]string, 0)
	for i := start; i < len(x.terms); i++ {
		if !strings.HasPrefix(x.terms[i], prefix) {
			break
		}
		out = append(out, x.terms[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Snapshot lists every term with its postings, both levels sorted.
func (x *InvertedIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(x.terms))
	for _, term := range x.terms {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: x.Lookup(term),
		})
	}
	return entries
}

// DocLength is the number of tokens indexed for docID.
func (x *InvertedIndex) DocLength(docID string) int {
	return x.docLengths[docID]
}

func (x *InvertedIndex) DocCount() int {
	return x.docCount
}

func (x *InvertedIndex) TermCount() int {
	return len(x.terms)
}

func (x *InvertedIndex) TokenCount() int {
	return x.tokenCount
}

// Size is a rough estimate of the index's memory footprint in bytes.
func (x *InvertedIndex) Size() int64 {
	return x.size
}

func clonePosting(p *Posting) Posting {
	out := Posting{
		DocID:     p.DocID,
		Frequency: p.Frequency,
		Positions: make([]int, len(p.Positions)),
		Spans:     make([]Span, len(p.Spans)),
	}
	copy(out.Positions, p.Positions)
	copy(out.Spans, p.Spans)
	return out
}
