package query

import (
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/jsonwriter"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/workqueue"
	"golang.org/x/sync/singleflight"
)

// ParallelParser runs one work-queue task per line. The result map lock is
// never held during a search; concurrent tasks for the same key share one
// search through singleflight.
type ParallelParser struct {
	index   index.View
	queue   *workqueue.Queue
	group   singleflight.Group
	mu      sync.Mutex
	results map[string][]index.Result
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewParallelParser(idx index.View, queue *workqueue.Queue, m *metrics.Metrics) *ParallelParser {
	return &ParallelParser{
		index:   idx,
		queue:   queue,
		results: make(map[string][]index.Result),
		metrics: m,
		logger:  slog.Default().With("component", "parallel-query-parser"),
	}
}

// ParseFile schedules every line and waits for all of them.
func (p *ParallelParser) ParseFile(path string, exact bool) error {
	err := eachLine(path, func(line string) { p.ParseLine(line, exact) })
	p.queue.Finish()
	return err
}

// ParseLine schedules line without waiting for it.
func (p *ParallelParser) ParseLine(line string, exact bool) {
	p.queue.Execute(func() { p.search(line, exact) })
}

func (p *ParallelParser) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.results[key]
	return ok
}

func (p *ParallelParser) search(line string, exact bool) {
	key, stems := tokenizer.QueryKey(line)
	if key == "" || p.has(key) {
		return
	}
	p.group.Do(key, func() (any, error) {
		if p.has(key) {
			return nil, nil
		}
		start := time.Now()
		results := p.index.Search(stems, exact)
		p.metrics.ObserveSearch(exact, start, len(results))

		p.mu.Lock()
		p.results[key] = results
		p.mu.Unlock()
		return nil, nil
	})
}

func (p *ParallelParser) Results() map[string][]index.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return maps.Clone(p.results)
}

// WriteJSON holds the result map lock while writing.
func (p *ParallelParser) WriteJSON(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return jsonwriter.WriteResultsFile(path, p.results)
}
