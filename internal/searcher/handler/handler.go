// Package handler serves the search front end: an HTML search page and a
// JSON API over the same index.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/history"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/middleware"
)

const title = "Search Engine"

type SearchExecutor interface {
	Execute(ctx context.Context, req executor.Request) (*executor.SearchResult, error)
}

type Options struct {
	DefaultLimit int
	MaxResults   int
	HistorySize  int
}

type Handler struct {
	executor SearchExecutor
	cache    *cache.QueryCache
	history  history.Store
	tracker  analytics.Tracker
	opts     Options
	logger   *slog.Logger
}

// New wires a handler. cache and tracker may be nil; a nil store keeps
// history in memory.
func New(exec SearchExecutor, queryCache *cache.QueryCache, store history.Store, tracker analytics.Tracker, opts Options) *Handler {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.MaxResults < opts.DefaultLimit {
		opts.MaxResults = opts.DefaultLimit
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 50
	}
	if store == nil {
		store = history.NewMemoryStore(opts.HistorySize)
	}
	return &Handler{
		executor: exec,
		cache:    queryCache,
		history:  store,
		tracker:  tracker,
		opts:     opts,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

func parseExact(r *http.Request) bool {
	v := r.URL.Query().Get("exact")
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err != nil || b
}

// Search serves GET /api/v1/search?q=&exact=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}

	limit := h.opts.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(parsed, h.opts.MaxResults)
	}
	req := executor.Request{Query: query, Exact: parseExact(r), Limit: limit}

	var result *executor.SearchResult
	var err error
	cacheHit := false
	if h.cache != nil && executor.Key(query) != "" {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, req, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, req)
		})
	} else {
		result, err = h.executor.Execute(ctx, req)
	}
	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	latency := time.Since(start)
	log.Info("search completed",
		"query", query,
		"key", result.Key,
		"exact", req.Exact,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.record(ctx, result)
	h.track(ctx, result, cacheHit, latency)
	h.writeJSON(w, http.StatusOK, result)
}

// History serves GET /api/v1/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.Recent(r.Context(), h.opts.HistorySize)
	if err != nil {
		h.logger.Error("reading history failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, 0, "history unavailable"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

// ClearHistory serves POST /history/clear and sends the browser home.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(r.Context()); err != nil {
		h.logger.Error("clearing history failed", "error", err)
		http.Error(w, "history unavailable", http.StatusServiceUnavailable)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type pageData struct {
	Title    string
	Query    string
	Key      string
	Exact    bool
	Searched bool
	Total    int
	Results  []executor.Hit
	History  []history.Entry
	Error    string
	Now      time.Time
}

// Page serves GET / with the search form, the results for ?q= and the
// recent history.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	data := pageData{
		Title: title,
		Query: r.URL.Query().Get("q"),
		Exact: parseExact(r),
		Now:   time.Now(),
	}
	if data.Query != "" {
		start := time.Now()
		result, err := h.executor.Execute(ctx, executor.Request{Query: data.Query, Exact: data.Exact, Limit: h.opts.MaxResults})
		if err != nil {
			logger.FromContext(ctx).Error("search execution failed", "query", data.Query, "error", err)
			data.Error = "search failed"
		} else {
			data.Searched = true
			data.Key = result.Key
			data.Total = result.TotalHits
			data.Results = result.Results
			h.record(ctx, result)
			h.track(ctx, result, false, time.Since(start))
		}
	}
	entries, err := h.history.Recent(ctx, h.opts.HistorySize)
	if err != nil {
		h.logger.Error("reading history failed", "error", err)
	}
	data.History = entries

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error("failed to render page", "error", err)
	}
}

// CacheStats serves GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": strconv.FormatFloat(hitRate, 'f', 1, 64) + "%",
	})
}

func (h *Handler) record(ctx context.Context, result *executor.SearchResult) {
	if result.Key == "" {
		return
	}
	err := h.history.Add(ctx, history.Entry{
		Query: result.Query,
		Key:   result.Key,
		Exact: result.Exact,
		Hits:  result.TotalHits,
		At:    time.Now(),
	})
	if err != nil {
		h.logger.Warn("recording history failed", "query", result.Query, "error", err)
	}
}

func (h *Handler) track(ctx context.Context, result *executor.SearchResult, cacheHit bool, latency time.Duration) {
	if h.tracker == nil || result.Key == "" {
		return
	}
	eventType := analytics.EventSearch
	if result.TotalHits == 0 {
		eventType = analytics.EventZeroResult
	}
	h.tracker.Track(analytics.SearchEvent{
		Type:      eventType,
		Query:     result.Query,
		Key:       result.Key,
		Exact:     result.Exact,
		TotalHits: result.TotalHits,
		Returned:  len(result.Results),
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	} else if status == http.StatusInternalServerError {
		message = "search failed"
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
