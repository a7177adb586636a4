package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/metrics"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// corpus lays out the two-file corpus and a query file with duplicate lines.
func corpus(t *testing.T) (root, queries string) {
	t.Helper()
	dir := t.TempDir()
	root = filepath.Join(dir, "input")
	writeFile(t, filepath.Join(root, "a.txt"), "hello world")
	writeFile(t, filepath.Join(root, "b.txt"), "hello hello")
	writeFile(t, filepath.Join(root, "skip.md"), "hello markdown")
	queries = filepath.Join(dir, "queries.txt")
	writeFile(t, queries, "hello\nworld hello\n  HELLO   world\n\n")
	return root, queries
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var stdout bytes.Buffer
	if code := Run(context.Background(), args, &stdout); code != 0 {
		t.Fatalf("Run(%v) = %d, want 0", args, code)
	}
	if !strings.HasPrefix(stdout.String(), "Elapsed: ") || !strings.HasSuffix(stdout.String(), " seconds\n") {
		t.Errorf("stdout = %q, want elapsed line", stdout.String())
	}
	return stdout.String()
}

type resultJSON struct {
	Where string  `json:"where"`
	Count int     `json:"count"`
	Score float64 `json:"score"`
}

func TestRunSequential(t *testing.T) {
	root, queries := corpus(t)
	out := t.TempDir()
	indexPath := filepath.Join(out, "index.json")
	countsPath := filepath.Join(out, "counts.json")
	resultsPath := filepath.Join(out, "results.json")

	run(t,
		"-results", resultsPath,
		"-queries", queries,
		"-exact",
		"-counts", countsPath,
		"-index", indexPath,
		"-path", root,
	)

	a, b := filepath.Join(root, "a.txt"), filepath.Join(root, "b.txt")

	var idx map[string]map[string][]int
	if err := json.Unmarshal([]byte(readFile(t, indexPath)), &idx); err != nil {
		t.Fatal(err)
	}
	if got := idx["hello"][b]; len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("hello in b.txt = %v, want [1 2]", got)
	}
	if got := idx["world"][a]; len(got) != 1 || got[0] != 2 {
		t.Errorf("world in a.txt = %v, want [2]", got)
	}
	if _, ok := idx["markdown"]; ok {
		t.Error("non-text file was indexed")
	}

	var counts map[string]int
	if err := json.Unmarshal([]byte(readFile(t, countsPath)), &counts); err != nil {
		t.Fatal(err)
	}
	if counts[a] != 2 || counts[b] != 2 || len(counts) != 2 {
		t.Errorf("counts = %v", counts)
	}

	var results map[string][]resultJSON
	if err := json.Unmarshal([]byte(readFile(t, resultsPath)), &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results has %d keys, want 2: %v", len(results), results)
	}
	hello := results["hello"]
	if len(hello) != 2 || hello[0].Where != b || hello[0].Score != 1 || hello[1].Where != a || hello[1].Score != 0.5 {
		t.Errorf("hello results = %+v", hello)
	}
	both := results["hello world"]
	if len(both) != 2 || both[0].Where != a || both[1].Where != b {
		t.Errorf("hello world results = %+v", both)
	}
}

func TestRunThreadedMatchesSequential(t *testing.T) {
	root, queries := corpus(t)
	outputs := func(threads ...string) [3]string {
		out := t.TempDir()
		paths := [3]string{
			filepath.Join(out, "index.json"),
			filepath.Join(out, "counts.json"),
			filepath.Join(out, "results.json"),
		}
		args := append([]string{
			"-path", root,
			"-index", paths[0],
			"-counts", paths[1],
			"-queries", queries,
			"-results", paths[2],
		}, threads...)
		run(t, args...)
		var got [3]string
		for i, p := range paths {
			got[i] = readFile(t, p)
		}
		return got
	}

	want := outputs()
	for _, threads := range [][]string{{"-threads"}, {"-threads", "3"}, {"-threads", "0"}} {
		if got := outputs(threads...); got != want {
			t.Errorf("%v output differs from sequential:\n%v\nwant\n%v", threads, got, want)
		}
	}
}

func TestRunStageFailuresContinue(t *testing.T) {
	out := t.TempDir()
	indexPath := filepath.Join(out, "index.json")
	resultsPath := filepath.Join(out, "results.json")

	run(t,
		"-path", filepath.Join(out, "missing"),
		"-queries", filepath.Join(out, "missing.txt"),
		"-index", indexPath,
		"-counts", filepath.Join(out, "no-such-dir", "counts.json"),
		"-results", resultsPath,
	)

	if got := readFile(t, indexPath); got != "{}\n" {
		t.Errorf("index = %q, want empty object", got)
	}
	if got := readFile(t, resultsPath); got != "{}\n" {
		t.Errorf("results = %q, want empty object", got)
	}
}

func TestRunBareOutputFlagsUseDefaults(t *testing.T) {
	root, _ := corpus(t)
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	run(t, "-path", root, "-index", "-counts", "-results")

	for _, name := range []string{DefaultIndexPath, DefaultCountsPath, DefaultResultsPath} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestRunBadConfig(t *testing.T) {
	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}, &stdout)
	if code == 0 {
		t.Error("Run with a missing config file returned 0")
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want nothing", stdout.String())
	}
}

func TestRunCrawl(t *testing.T) {
	mux := http.NewServeMux()
	var base string
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><body>seed page <a href="%s/one">one</a> <a href="/two">two</a></body></html>`, base)
	})
	mux.HandleFunc("/one", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><body>first page</body></html>`)
	})
	mux.HandleFunc("/two", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><body>second page</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	base = srv.URL

	countsPath := filepath.Join(t.TempDir(), "counts.json")
	run(t, "-url", srv.URL+"/", "-max", "2", "-counts", countsPath)

	var counts map[string]int
	if err := json.Unmarshal([]byte(readFile(t, countsPath)), &counts); err != nil {
		t.Fatal(err)
	}
	if len(counts) != 2 {
		t.Fatalf("crawled %d pages, want 2: %v", len(counts), counts)
	}
	if counts[srv.URL+"/"] != 4 {
		t.Errorf("seed count = %d, want 4 (%v)", counts[srv.URL+"/"], counts)
	}
}

func TestRunServerStopsOnCancel(t *testing.T) {
	root, _ := corpus(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan int, 1)
	go func() {
		done <- Run(ctx, []string{"-path", root, "-server", "0"}, io.Discard)
	}()
	select {
	case code := <-done:
		if code != 0 {
			t.Errorf("Run = %d, want 0", code)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestServerRoutes(t *testing.T) {
	idx := index.New()
	idx.AddAll([]string{"hello", "world"}, "a.txt", 1)
	idx.AddAll([]string{"hello", "hello"}, "b.txt", 1)

	m := metrics.New(prometheus.NewRegistry())
	s := newServer(context.Background(), config.Default(), idx, m)
	defer s.close()
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	get := func(path string) (*http.Response, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp, string(body)
	}

	resp, body := get("/api/v1/search?q=hel")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d: %s", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatal(err)
	}
	if result.Key != "hel" || result.TotalHits != 2 || result.Results[0].Where != "b.txt" {
		t.Errorf("search result = %+v", result)
	}

	if resp, _ := get("/api/v1/search"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty query status = %d, want 400", resp.StatusCode)
	}
	if _, body := get("/api/v1/history"); !strings.Contains(body, `"hel"`) {
		t.Errorf("history = %s, want the previous query", body)
	}
	if _, body := get("/api/v1/analytics"); !strings.Contains(body, "hel") {
		t.Errorf("analytics = %s, want the previous query", body)
	}
	if resp, body := get("/health/ready"); resp.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d: %s", resp.StatusCode, body)
	}
	if resp, _ := get("/health/live"); resp.StatusCode != http.StatusOK {
		t.Errorf("live status = %d", resp.StatusCode)
	}
	if _, body := get("/metrics"); !strings.Contains(body, "search_queries_total") {
		t.Error("metrics missing search_queries_total")
	}
	if resp, body := get("/?q=world"); resp.StatusCode != http.StatusOK || !strings.Contains(body, "a.txt") {
		t.Errorf("page status = %d, body missing a.txt", resp.StatusCode)
	}
	if resp, _ := get("/nope"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", resp.StatusCode)
	}
}
