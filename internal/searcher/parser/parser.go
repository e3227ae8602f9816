// Package parser turns a raw query string into the ordered list of query
// terms the executor looks up.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

type QueryPlan struct {
	RawQuery string
	// Terms keeps every occurrence; a term repeated in the query contributes
	// its postings once per occurrence.
	Terms []tokenizer.Token
}

func Parse(tok *tokenizer.Tokenizer, query string) *QueryPlan {
	plan := &QueryPlan{
		RawQuery: query,
		Terms:    make([]tokenizer.Token, 0),
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	plan.Terms = tok.Tokenize(query)
	return plan
}

// TermStrings returns the query terms in order.
func (p *QueryPlan) TermStrings() []string {
	out := make([]string, len(p.Terms))
	for i, t := range p.Terms {
		out[i] = t.Term
	}
	return out
}

func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}
