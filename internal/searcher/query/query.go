// Package query evaluates query files against the index. Each line becomes
// one query keyed by its sorted unique stems; a key is searched only once.
package query

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/jsonwriter"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/metrics"
)

// Parser collects search results for query lines.
type Parser interface {
	ParseFile(path string, exact bool) error
	ParseLine(line string, exact bool)
	Results() map[string][]index.Result
	WriteJSON(path string) error
}

var (
	_ Parser = (*FileParser)(nil)
	_ Parser = (*ParallelParser)(nil)
)

// eachLine calls fn for every line of path.
func eachLine(path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening query file %s: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			fn(line)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading query file %s: %w", path, err)
		}
	}
}

// FileParser runs queries on the calling goroutine.
type FileParser struct {
	index   index.View
	results map[string][]index.Result
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewFileParser(idx index.View, m *metrics.Metrics) *FileParser {
	return &FileParser{
		index:   idx,
		results: make(map[string][]index.Result),
		metrics: m,
		logger:  slog.Default().With("component", "query-parser"),
	}
}

func (p *FileParser) ParseFile(path string, exact bool) error {
	return eachLine(path, func(line string) { p.ParseLine(line, exact) })
}

func (p *FileParser) ParseLine(line string, exact bool) {
	key, stems := tokenizer.QueryKey(line)
	if key == "" {
		return
	}
	if _, ok := p.results[key]; ok {
		return
	}
	start := time.Now()
	results := p.index.Search(stems, exact)
	p.metrics.ObserveSearch(exact, start, len(results))
	p.results[key] = results
}

func (p *FileParser) Results() map[string][]index.Result {
	return maps.Clone(p.results)
}

func (p *FileParser) WriteJSON(path string) error {
	return jsonwriter.WriteResultsFile(path, p.results)
}
