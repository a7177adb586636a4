package indexer

import (
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/workqueue"
)

// ParallelBuilder schedules one task per file. Each task fills a private
// local index and merges it into the shared index once, so only the merge
// contends on the write lock.
type ParallelBuilder struct {
	index   *index.ThreadSafe
	queue   *workqueue.Queue
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewParallelBuilder(idx *index.ThreadSafe, queue *workqueue.Queue, m *metrics.Metrics) *ParallelBuilder {
	return &ParallelBuilder{
		index:   idx,
		queue:   queue,
		metrics: m,
		logger:  slog.Default().With("component", "parallel-indexer"),
	}
}

// Build returns once every scheduled file task has completed.
func (b *ParallelBuilder) Build(root string) error {
	err := walkTextFiles(root, b.logger, func(path string) {
		b.queue.Execute(func() { b.indexFile(path) })
	})
	b.queue.Finish()
	if err != nil {
		return fmt.Errorf("building index from %s: %w", root, err)
	}
	b.logger.Info("index built", "root", root, "words", b.index.Size())
	return nil
}

func (b *ParallelBuilder) indexFile(path string) {
	local := index.New()
	n, err := IndexFile(path, local)
	if err != nil {
		b.logger.Warn("skipping file", "path", path, "error", err)
		return
	}
	b.index.Merge(local)
	b.metrics.Merged()
	b.metrics.DocIndexed("file")
	b.logger.Debug("file indexed", "path", path, "tokens", n)
}
