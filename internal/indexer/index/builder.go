// Package index holds the inverted index: for every term, the documents it
// occurs in with the token offsets and byte spans of each occurrence.
package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

// Build tokenizes every document of corpus and returns the finished index.
// Documents are visited in ascending id order; a document that yields no
// tokens simply contributes nothing.
func Build(corpus map[string]string, tok *tokenizer.Tokenizer) *InvertedIndex {
	x := &InvertedIndex{
		index:      make(map[string]map[string]*Posting),
		docLengths: make(map[string]int, len(corpus)),
	}

	docIDs := make([]string, 0, len(corpus))
	for docID := range corpus {
		docIDs = append(docIDs, docID)
	}
	sort.Strings(docIDs)

	for _, docID := range docIDs {
		x.addDocument(docID, tok.Tokenize(corpus[docID]))
	}

	x.terms = make([]string, 0, len(x.index))
	for term := range x.index {
		x.terms = append(x.terms, term)
	}
	sort.Strings(x.terms)
	return x
}

func (x *InvertedIndex) addDocument(docID string, tokens []tokenizer.Token) {
	x.docCount++
	x.docLengths[docID] = len(tokens)
	x.tokenCount += len(tokens)
	for _, tok := range tokens {
		docs, exists := x.index[tok.Term]
		if !exists {
			docs = make(map[string]*Posting)
			x.index[tok.Term] = docs
			x.size += int64(len(tok.Term) + 48)
		}
		p, exists := docs[docID]
		if !exists {
			p = &Posting{
				DocID:     docID,
				Positions: make([]int, 0, 4),
				Spans:     make([]Span, 0, 4),
			}
			docs[docID] = p
			x.size += int64(len(docID) + 64)
		}
		p.add(tok.Position, Span{Start: tok.Start, End: tok.End})
		x.size += 24
	}
}
