// Package ranker orders aggregated query matches by total term frequency.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
)

type RankedResult struct {
	DocID            string         `json:"doc_id"`
	TotalFrequency   int            `json:"total_frequency"`
	MatchedPositions []int          `json:"matched_positions"`
	Hits             []executor.Hit `json:"-"`
}

// Rank sorts matches by TotalFrequency descending. Documents are first laid
// out by ascending id and then stable-sorted, so equal frequencies keep
// ascending id order on every run. limit <= 0 returns everything.
func Rank(matches executor.Matches, limit int) []RankedResult {
	docIDs := make([]string, 0, len(matches))
	for docID := range matches {
		docIDs = append(docIDs, docID)
	}
	sort.Strings(docIDs)

	result := make([]RankedResult, 0, len(docIDs))
	for _, docID := range docIDs {
		m := matches[docID]
		result = append(result, RankedResult{
			DocID:            docID,
			TotalFrequency:   m.TotalFrequency,
			MatchedPositions: m.MatchedPositions(),
			Hits:             m.Hits,
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TotalFrequency > result[j].TotalFrequency
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
