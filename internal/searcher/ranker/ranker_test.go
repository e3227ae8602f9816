package ranker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
)

func match(docID string, freq int, positions ...int) *executor.Match {
	m := &executor.Match{DocID: docID, TotalFrequency: freq}
	for _, p := range positions {
		m.Hits = append(m.Hits, executor.Hit{Term: "t", Position: p})
	}
	return m
}

func TestRankSingle(t *testing.T) {
	ranked := Rank(executor.Matches{"a.txt": match("a.txt", 2, 0, 2)}, 0)
	require.Len(t, ranked, 1)
	assert.Equal(t, "a.txt", ranked[0].DocID)
	assert.Equal(t, 2, ranked[0].TotalFrequency)
	assert.Equal(t, []int{0, 2}, ranked[0].MatchedPositions)
}

func TestRankEmpty(t *testing.T) {
	ranked := Rank(executor.Matches{}, 10)
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestRankOrderAndTieBreak(t *testing.T) {
	matches := executor.Matches{
		"d": match("d", 1),
		"b": match("b", 3),
		"c": match("c", 5),
		"a": match("a", 3),
		"e": match("e", 3),
	}
	for run := 0; run < 20; run++ {
		ranked := Rank(matches, 0)
		ids := make([]string, len(ranked))
		for i, r := range ranked {
			ids[i] = r.DocID
		}
		assert.Equal(t, []string{"c", "a", "b", "e", "d"}, ids)
	}
}

func TestRankNonIncreasing(t *testing.T) {
	matches := executor.Matches{}
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("doc-%02d", i)
		matches[id] = match(id, (i*7)%11)
	}
	ranked := Rank(matches, 0)
	require.Len(t, ranked, 50)
	for i := 1; i < len(ranked); i++ {
		prev, cur := ranked[i-1], ranked[i]
		assert.GreaterOrEqual(t, prev.TotalFrequency, cur.TotalFrequency)
		if prev.TotalFrequency == cur.TotalFrequency {
			assert.Less(t, prev.DocID, cur.DocID)
		}
	}
}

func TestRankLimit(t *testing.T) {
	matches := executor.Matches{"a": match("a", 1), "b": match("b", 2), "c": match("c", 3)}
	ranked := Rank(matches, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, "c", ranked[0].DocID)
	assert.Equal(t, "b", ranked[1].DocID)
}
