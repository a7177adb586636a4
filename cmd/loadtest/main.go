// Command loadtest drives concurrent requests against the JSON search API of
// a running searchengine -server and reports throughput and latency.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"maps"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/searcher/executor"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Exact       bool
	Limit       int
	Queries     []string
}

type Stats struct {
	total       atomic.Int64
	success     atomic.Int64
	failed      atomic.Int64
	zeroHits    atomic.Int64
	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

// Record counts one request. status is 0 when the request never got a
// response.
func (s *Stats) Record(latency time.Duration, status int, hits int, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if status == http.StatusOK {
		s.success.Add(1)
		if hits == 0 {
			s.zeroHits.Add(1)
		}
	} else {
		s.failed.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, latency)
	s.statusCodes[status]++
	s.mu.Unlock()
}

var defaultQueries = []string{
	"hello",
	"hello world",
	"inverted index",
	"search engine",
	"web crawler",
	"stemming words",
	"partial match",
	"query parsing",
	"thread pool",
	"json output",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search server")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	queryFile := flag.String("queries", "", "file with one query per line (default: built-in set)")
	exact := flag.Bool("exact", false, "use exact search")
	limit := flag.Int("limit", 10, "results per request")
	flag.Parse()

	queries := defaultQueries
	if *queryFile != "" {
		loaded, err := loadQueries(*queryFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading queries: %v\n", err)
			os.Exit(1)
		}
		queries = loaded
	}
	if len(queries) == 0 {
		fmt.Fprintln(os.Stderr, "no queries to run")
		os.Exit(1)
	}

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: max(*concurrency, 1),
		Duration:    *duration,
		Exact:       *exact,
		Limit:       *limit,
		Queries:     queries,
	}

	fmt.Println("=== Search Engine Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Mode:        %s\n", mode(cfg.Exact))
	fmt.Printf("Queries:     %d\n", len(cfg.Queries))
	fmt.Println()

	stats := run(cfg)
	if !report(stats, cfg.Duration) {
		os.Exit(1)
	}
}

func mode(exact bool) string {
	if exact {
		return "exact"
	}
	return "partial"
}

// loadQueries reads non-blank lines from path.
func loadQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			queries = append(queries, line)
		}
	}
	return queries, scanner.Err()
}

func searchURL(cfg Config, query string) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("limit", fmt.Sprint(cfg.Limit))
	if cfg.Exact {
		v.Set("exact", "true")
	}
	return cfg.BaseURL + "/api/v1/search?" + v.Encode()
}

func run(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(next int) {
			defer wg.Done()
			for ctx.Err() == nil {
				target := searchURL(cfg, cfg.Queries[next%len(cfg.Queries)])
				next++
				start := time.Now()
				status, hits, err := search(ctx, client, target)
				if ctx.Err() != nil {
					return
				}
				stats.Record(time.Since(start), status, hits, err)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	fmt.Print("Running")
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done")
	fmt.Println()
	return stats
}

func search(ctx context.Context, client *http.Client, target string) (status, hits int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, 0, nil
	}
	var result executor.SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return resp.StatusCode, 0, fmt.Errorf("decoding response: %w", err)
	}
	return resp.StatusCode, result.TotalHits, nil
}

// report prints the summary and reports whether any request completed.
func report(stats *Stats, duration time.Duration) bool {
	total := stats.total.Load()
	failed := stats.failed.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", stats.success.Load())
	fmt.Printf("Zero-hit:        %d\n", stats.zeroHits.Load())
	fmt.Printf("Errors:          %d\n", failed)
	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.mu.Lock()
	latencies := slices.Clone(stats.latencies)
	codes := maps.Clone(stats.statusCodes)
	stats.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Printf("P%-5.0f %s\n", p, percentile(latencies, p))
		}
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	for _, code := range slices.Sorted(maps.Keys(codes)) {
		fmt.Printf("  %d: %d\n", code, codes[code])
	}

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: no requests completed. Is the server running with -server?")
		return false
	}
	return true
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
