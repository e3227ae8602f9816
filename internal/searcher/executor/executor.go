// Package executor evaluates a parsed query against an inverted index and
// aggregates the matching postings per document.
package executor

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
)

// Hit is one matched occurrence: which query term matched, at which token
// offset, and the byte span of that token in the document.
type Hit struct {
	Term     string `json:"term"`
	Position int    `json:"position"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// Match aggregates every posting a query contributed to one document.
type Match struct {
	DocID          string `json:"doc_id"`
	TotalFrequency int    `json:"total_frequency"`
	Hits           []Hit  `json:"hits"`
}

// MatchedPositions returns the token offsets of all hits in the order they
// were accumulated.
func (m *Match) MatchedPositions() []int {
	out := make([]int, len(m.Hits))
	for i, h := range m.Hits {
		out[i] = h.Position
	}
	return out
}

type Matches map[string]*Match

// Search looks up every query term occurrence. For each document a posting
// adds its frequency to TotalFrequency and appends its positions. Terms
// missing from the index contribute nothing and an empty plan yields an
// empty map.
func Search(idx *index.InvertedIndex, plan *parser.QueryPlan) Matches {
	matches := make(Matches)
	for _, qt := range plan.Terms {
		for _, p := range idx.Lookup(qt.Term) {
			m, ok := matches[p.DocID]
			if !ok {
				m = &Match{DocID: p.DocID, Hits: make([]Hit, 0, len(p.Positions))}
				matches[p.DocID] = m
			}
			m.TotalFrequency += p.Frequency
			for i, pos := range p.Positions {
				m.Hits = append(m.Hits, Hit{
					Term:     qt.Term,
					Position: pos,
					Start:    p.Spans[i].Start,
					End:      p.Spans[i].End,
				})
			}
		}
	}
	return matches
}

// Result is the outcome of Execute.
type Result struct {
	Matches Matches
	// TermStats holds the document frequency of every distinct query term
	// found in the index.
	TermStats map[string]int
}

type Executor struct {
	logger *slog.Logger
}

func New() *Executor {
	return &Executor{
		logger: slog.Default().With("component", "query-executor"),
	}
}

func (e *Executor) Execute(ctx context.Context, idx *index.InvertedIndex, plan *parser.QueryPlan) *Result {
	termStats := make(map[string]int)
	for _, qt := range plan.Terms {
		if df := idx.DocFrequency(qt.Term); df > 0 {
			termStats[qt.Term] = df
		}
	}
	matches := Search(idx, plan)
	e.logger.DebugContext(ctx, "query executed",
		"query", plan.RawQuery,
		"terms", plan.TermStrings(),
		"matched_terms", len(termStats),
		"candidates", len(matches),
	)
	return &Result{Matches: matches, TermStats: termStats}
}
