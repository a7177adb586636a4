// Package executor runs a single interactive query against the index.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/jsonwriter"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/metrics"
)

type Request struct {
	Query string
	Exact bool
	// Limit caps the returned results; zero or less returns all of them.
	Limit int
}

type Hit struct {
	Where string           `json:"where"`
	Count int              `json:"count"`
	Score jsonwriter.Score `json:"score"`
}

type SearchResult struct {
	Query     string `json:"query"`
	Key       string `json:"key"`
	Exact     bool   `json:"exact"`
	TotalHits int    `json:"total_hits"`
	Results   []Hit  `json:"results"`
}

type Executor struct {
	index   index.View
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(idx index.View, m *metrics.Metrics) *Executor {
	return &Executor{
		index:   idx,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Key returns the normalized form of query used for memoization and caching.
func Key(query string) string {
	key, _ := tokenizer.QueryKey(query)
	return key
}

func (e *Executor) Execute(ctx context.Context, req Request) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("executing %q: %w", req.Query, err)
	}
	key, stems := tokenizer.QueryKey(req.Query)
	result := &SearchResult{
		Query:   req.Query,
		Key:     key,
		Exact:   req.Exact,
		Results: []Hit{},
	}
	if key == "" {
		return result, nil
	}

	start := time.Now()
	found := e.index.Search(stems, req.Exact)
	e.metrics.ObserveSearch(req.Exact, start, len(found))

	result.TotalHits = len(found)
	if req.Limit > 0 && len(found) > req.Limit {
		found = found[:req.Limit]
	}
	for _, r := range found {
		result.Results = append(result.Results, Hit{Where: r.Where, Count: r.Count, Score: jsonwriter.Score(r.Score)})
	}
	e.logger.Debug("query executed",
		"query", req.Query,
		"key", key,
		"exact", req.Exact,
		"hits", result.TotalHits,
		"duration", time.Since(start),
	)
	return result, nil
}
