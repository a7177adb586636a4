// Package app runs the command-line schedule: build or crawl an index,
// write it out, answer a query file, and optionally serve the result over
// HTTP. Stages always run in the same order regardless of flag order.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/crawler/fetcher"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/jsonwriter"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/tracing"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/workqueue"
)

// Flags understood by Run.
const (
	FlagConfig  = "-config"
	FlagPath    = "-path"
	FlagIndex   = "-index"
	FlagCounts  = "-counts"
	FlagQueries = "-queries"
	FlagExact   = "-exact"
	FlagResults = "-results"
	FlagThreads = "-threads"
	FlagURL     = "-url"
	FlagMax     = "-max"
	FlagServer  = "-server"
)

// Default output paths for bare output flags.
const (
	DefaultIndexPath   = "index.json"
	DefaultCountsPath  = "counts.json"
	DefaultResultsPath = "results.json"
)

type driver struct {
	args    *cli.ArgumentMap
	cfg     *config.Config
	metrics *metrics.Metrics
	logger  *slog.Logger

	view    index.View
	builder indexer.Builder
	parser  query.Parser
	queue   *workqueue.Queue
}

// Run executes the schedule described by args and prints the elapsed time to
// stdout. Stage failures are logged and do not change the exit code; only a
// configuration that cannot be loaded does.
func Run(ctx context.Context, args []string, stdout io.Writer) int {
	start := time.Now()
	am := cli.Parse(args)

	cfg, err := config.Load(am.Get(FlagConfig, ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	registry := prometheus.NewRegistry()
	d := &driver{
		args:    am,
		cfg:     cfg,
		metrics: metrics.New(registry),
		logger:  logger.WithComponent("driver"),
	}
	d.logger.Debug("parsed arguments", "args", am.String())

	if cfg.Metrics.Enabled {
		ms, err := d.metrics.StartServer(cfg.Metrics.Port)
		if err != nil {
			d.logger.Error("metrics server not started", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := ms.Shutdown(shutdownCtx); err != nil {
					d.logger.Error("metrics server shutdown error", "error", err)
				}
			}()
		}
	}

	ctx, root := tracing.StartSpan(ctx, "run")
	d.stage(ctx, "init", d.init)
	d.stage(ctx, "path", d.build)
	d.stage(ctx, "index", d.writeIndex)
	d.stage(ctx, "counts", d.writeCounts)
	d.stage(ctx, "queries", d.queries)
	d.stage(ctx, "results", d.writeResults)
	d.stage(ctx, "server", d.serve)

	if d.queue != nil {
		d.queue.Shutdown()
		d.queue.Join()
	}
	root.End(nil)
	if cfg.Tracing.Enabled {
		root.Log(d.logger)
	}

	fmt.Fprintf(stdout, "Elapsed: %f seconds\n", time.Since(start).Seconds())
	return 0
}

// stage runs fn inside a child span and logs any error it returns.
func (d *driver) stage(ctx context.Context, name string, fn func(ctx context.Context) error) {
	ctx, span := tracing.StartChildSpan(ctx, name)
	err := fn(ctx)
	span.End(err)
	if err != nil {
		d.logger.Error("stage failed", "stage", name, "error", err)
	}
}

func (d *driver) threaded() bool {
	return d.args.HasFlag(FlagThreads) || d.args.HasFlag(FlagURL) || d.args.HasFlag(FlagServer)
}

// init creates the index, builder and parser, and crawls when a seed URL was
// given.
func (d *driver) init(ctx context.Context) error {
	if !d.threaded() {
		idx := index.New()
		d.view = idx
		d.builder = indexer.NewFileBuilder(idx, d.metrics)
		d.parser = query.NewFileParser(idx, d.metrics)
		return nil
	}

	threads := d.args.Int(FlagThreads, d.cfg.Workers.Threads)
	if threads < 1 {
		threads = workqueue.DefaultWorkers
	}
	span := tracing.SpanFromContext(ctx)
	span.SetAttr("threads", threads)

	idx := index.NewThreadSafe()
	d.queue = workqueue.New(threads, d.metrics)
	d.view = idx
	d.builder = indexer.NewParallelBuilder(idx, d.queue, d.metrics)
	d.parser = query.NewParallelParser(idx, d.queue, d.metrics)

	if !d.args.HasFlag(FlagURL) {
		return nil
	}
	seed := d.args.Get(FlagURL, "")
	if seed == "" {
		return apperrors.New(apperrors.ErrInvalidInput, 0, "no seed url provided")
	}
	limit := max(d.args.Int(FlagMax, 1), 1)
	span.SetAttr("max", limit)

	f := fetcher.New(d.cfg.Crawler, d.metrics)
	c := crawler.New(idx, d.queue, f, limit, d.metrics)
	if err := c.Crawl(ctx, seed); err != nil {
		return fmt.Errorf("crawling %s: %w", seed, err)
	}
	span.SetAttr("visited", len(c.Visited()))
	return nil
}

func (d *driver) build(_ context.Context) error {
	if !d.args.HasFlag(FlagPath) {
		return nil
	}
	path := d.args.Get(FlagPath, "")
	if path == "" {
		return apperrors.New(apperrors.ErrInvalidInput, 0, "no input path provided")
	}
	if err := d.builder.Build(path); err != nil {
		return fmt.Errorf("building index from %s: %w", path, err)
	}
	d.logger.Info("index built", "path", path, "words", d.view.Size())
	return nil
}

func (d *driver) writeIndex(_ context.Context) error {
	if !d.args.HasFlag(FlagIndex) {
		return nil
	}
	path := d.args.Get(FlagIndex, DefaultIndexPath)
	if err := jsonwriter.WriteIndexFile(path, d.view.Snapshot()); err != nil {
		return fmt.Errorf("writing index to %s: %w", path, err)
	}
	return nil
}

func (d *driver) writeCounts(_ context.Context) error {
	if !d.args.HasFlag(FlagCounts) {
		return nil
	}
	path := d.args.Get(FlagCounts, DefaultCountsPath)
	if err := jsonwriter.WriteCountsFile(path, d.view.Counts()); err != nil {
		return fmt.Errorf("writing counts to %s: %w", path, err)
	}
	return nil
}

func (d *driver) queries(_ context.Context) error {
	if !d.args.HasFlag(FlagQueries) {
		return nil
	}
	path := d.args.Get(FlagQueries, "")
	if path == "" {
		return apperrors.New(apperrors.ErrInvalidInput, 0, "no query path provided")
	}
	if err := d.parser.ParseFile(path, d.args.HasFlag(FlagExact)); err != nil {
		return fmt.Errorf("parsing queries from %s: %w", path, err)
	}
	return nil
}

func (d *driver) writeResults(_ context.Context) error {
	if !d.args.HasFlag(FlagResults) {
		return nil
	}
	path := d.args.Get(FlagResults, DefaultResultsPath)
	if err := d.parser.WriteJSON(path); err != nil {
		return fmt.Errorf("writing results to %s: %w", path, err)
	}
	return nil
}

// serve blocks until ctx is cancelled.
func (d *driver) serve(ctx context.Context) error {
	if !d.args.HasFlag(FlagServer) {
		return nil
	}
	cfg := *d.cfg
	cfg.Server.Port = d.args.Int(FlagServer, d.cfg.Server.Port)
	tracing.SpanFromContext(ctx).SetAttr("port", cfg.Server.Port)

	s := newServer(ctx, &cfg, d.view, d.metrics)
	defer s.close()
	return s.run(ctx)
}
