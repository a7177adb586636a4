//go:build integration

// Package integration contains tests that run the search front end against
// real PostgreSQL and Redis instances. Tests skip when a backend is not
// reachable.
//
// Run with:
//
//	go test -v -tags=integration ./test/integration/...
package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/history"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-engine/pkg/redis"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(context.Background(), testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// skipIfNoRedis skips the test when Redis is unavailable.
func skipIfNoRedis(t *testing.T) *pkgredis.Client {
	t.Helper()
	rc, err := pkgredis.NewClient(context.Background(), config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		DB:       envOrDefaultInt("TEST_REDIS_DB", 15),
		PoolSize: 4,
	})
	if err != nil {
		t.Skipf("skipping integration test: redis unavailable: %v", err)
	}
	t.Cleanup(func() { rc.Close() })
	return rc
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Enabled:         true,
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "searchengine_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "searchengine"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func testIndex() *index.ThreadSafe {
	local := index.New()
	local.AddAll([]string{"hello", "world"}, "a.txt", 1)
	local.AddAll([]string{"hello", "hello"}, "b.txt", 1)
	shared := index.NewThreadSafe()
	shared.Merge(local)
	return shared
}

func TestPostgresHistoryStore(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	store := history.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	// A second call must be a no-op.
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema again: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	base := time.Now().Add(-time.Minute)
	for i, q := range []string{"hello", "world", "hello world"} {
		e := history.Entry{Query: q, Key: q, Hits: i + 1, At: base.Add(time.Duration(i) * time.Second)}
		if err := store.Add(ctx, e); err != nil {
			t.Fatalf("Add(%q): %v", q, err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Query != "hello world" || recent[1].Query != "world" {
		t.Errorf("Recent(2) = %+v, want newest first", recent)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if recent, _ := store.Recent(ctx, 10); len(recent) != 0 {
		t.Errorf("Recent after Clear = %+v", recent)
	}
}

func TestRedisQueryCache(t *testing.T) {
	rc := skipIfNoRedis(t)
	ctx := context.Background()
	qc := cache.New(rc, time.Minute, nil)
	if err := qc.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	exec := executor.New(testIndex(), nil)
	calls := 0
	compute := func(req executor.Request) func() (*executor.SearchResult, error) {
		return func() (*executor.SearchResult, error) {
			calls++
			return exec.Execute(ctx, req)
		}
	}

	first := executor.Request{Query: "Hello", Limit: 10}
	got, hit, err := qc.GetOrCompute(ctx, first, compute(first))
	if err != nil || hit {
		t.Fatalf("first lookup: hit=%v err=%v", hit, err)
	}
	if got.TotalHits != 2 {
		t.Errorf("TotalHits = %d, want 2", got.TotalHits)
	}

	// Same normalized query, different spelling.
	second := executor.Request{Query: "  HELLO ", Limit: 10}
	got, hit, err = qc.GetOrCompute(ctx, second, compute(second))
	if err != nil || !hit {
		t.Fatalf("second lookup: hit=%v err=%v", hit, err)
	}
	if got.Query != second.Query {
		t.Errorf("cached response query = %q, want %q", got.Query, second.Query)
	}
	if calls != 1 {
		t.Errorf("computed %d times, want 1", calls)
	}
	if hits, misses := qc.Stats(); hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses, want 1 and 1", hits, misses)
	}
}

func TestSearchHandlerWithBackends(t *testing.T) {
	db := skipIfNoPostgres(t)
	rc := skipIfNoRedis(t)
	ctx := context.Background()

	store := history.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	store.Clear(ctx)
	qc := cache.New(rc, time.Minute, nil)
	qc.Invalidate(ctx)

	h := handler.New(executor.New(testIndex(), nil), qc, store, nil, handler.Options{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/history", h.History)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	for i := 0; i < 2; i++ {
		resp, err := http.Get(srv.URL + "/api/v1/search?q=world&exact=true")
		if err != nil {
			t.Fatal(err)
		}
		var result executor.SearchResult
		json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || result.TotalHits != 1 || result.Results[0].Where != "a.txt" {
			t.Fatalf("search %d: status %d, result %+v", i, resp.StatusCode, result)
		}
	}

	resp, err := http.Get(srv.URL + "/api/v1/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body struct {
		History []history.Entry `json:"history"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.History) != 2 {
		t.Errorf("history has %d entries, want 2", len(body.History))
	}
	if hits, _ := qc.Stats(); hits != 1 {
		t.Errorf("cache hits = %d, want 1", hits)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
