package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Key       string    `json:"key"`
	Exact     bool      `json:"exact"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Tracker receives search events. Implementations must not block.
type Tracker interface {
	Track(event SearchEvent)
}

type multiTracker []Tracker

func (m multiTracker) Track(event SearchEvent) {
	for _, t := range m {
		t.Track(event)
	}
}

// Multi fans events out to every non-nil tracker.
func Multi(trackers ...Tracker) Tracker {
	var m multiTracker
	for _, t := range trackers {
		if t != nil {
			m = append(m, t)
		}
	}
	return m
}
