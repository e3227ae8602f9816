// Package analytics tracks how the search service is used. A Collector
// feeds events to an in-process Aggregator and, when Kafka is configured,
// publishes them so other aggregators can consume the same stream.
package analytics

import "time"

type EventType string

const (
	EventSearch       EventType = "search"
	EventIndexRebuild EventType = "index_rebuild"
)

// Envelope is the wire form of every analytics event. Exactly one of
// Search or Index is set, matching Type.
type Envelope struct {
	Type   EventType    `json:"type"`
	Search *SearchEvent `json:"search,omitempty"`
	Index  *IndexEvent  `json:"index,omitempty"`
}

type SearchEvent struct {
	Query      string    `json:"query"`
	Terms      []string  `json:"terms"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	LatencyMs  float64   `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

type IndexEvent struct {
	Generation uint64    `json:"generation"`
	Documents  int       `json:"documents"`
	Terms      int       `json:"terms"`
	DurationMs float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e Envelope) key() string {
	if e.Search != nil {
		return e.Search.Query
	}
	return string(e.Type)
}
