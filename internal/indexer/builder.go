// Package indexer builds the inverted index from a directory tree of text
// files, either on the calling goroutine or fanned out over a work queue.
package indexer

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/metrics"
)

// Builder indexes every text file below a root path.
type Builder interface {
	Build(root string) error
}

// IsTextFile reports whether name carries a .txt or .text extension,
// ignoring case.
func IsTextFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".text")
}

// IndexFile streams path into idx, numbering stems from 1 across the whole
// file. The file path is used as the location.
func IndexFile(path string, idx index.Index) (int, error) {
	return tokenizer.StemFile(path, func(stem string, position int) {
		idx.Add(stem, path, position)
	})
}

// walkTextFiles calls fn for every text file below root. Unreadable
// sub-directories are logged and skipped; only an unusable root is an error.
func walkTextFiles(root string, logger *slog.Logger, fn func(path string)) error {
	info, err := os.Stat(root)
	if err != nil {
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "unable to read path %s: %v", root, err)
	}
	if !info.IsDir() {
		if info.Mode().IsRegular() && IsTextFile(info.Name()) {
			fn(root)
		}
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && IsTextFile(d.Name()) {
			fn(path)
		}
		return nil
	})
}

// FileBuilder indexes files one after another straight into its index.
type FileBuilder struct {
	index   index.Index
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewFileBuilder(idx index.Index, m *metrics.Metrics) *FileBuilder {
	return &FileBuilder{
		index:   idx,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
}

func (b *FileBuilder) Build(root string) error {
	err := walkTextFiles(root, b.logger, func(path string) {
		n, err := IndexFile(path, b.index)
		if err != nil {
			b.logger.Warn("skipping file", "path", path, "error", err)
			return
		}
		b.metrics.DocIndexed("file")
		b.logger.Debug("file indexed", "path", path, "tokens", n)
	})
	if err != nil {
		return fmt.Errorf("building index from %s: %w", root, err)
	}
	return nil
}
