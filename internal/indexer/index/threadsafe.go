package index

import "sync"

// ThreadSafe guards an InvertedIndex with a single reader/writer lock.
// Add and Merge take the write lock; everything else takes the read lock.
// No method acquires the lock twice.
type ThreadSafe struct {
	mu    sync.RWMutex
	index *InvertedIndex
}

func NewThreadSafe() *ThreadSafe {
	return &ThreadSafe{index: New()}
}

func (t *ThreadSafe) Add(word, location string, position int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index.Add(word, location, position)
}

// Merge folds a fully built local index into the shared one. local must not
// be written to concurrently.
func (t *ThreadSafe) Merge(local *InvertedIndex) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index.Merge(local)
}

func (t *ThreadSafe) Contains(word string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.Contains(word)
}

func (t *ThreadSafe) ContainsLocation(word, location string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.ContainsLocation(word, location)
}

func (t *ThreadSafe) ContainsPosition(word, location string, position int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.ContainsPosition(word, location, position)
}

func (t *ThreadSafe) Words() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.Words()
}

func (t *ThreadSafe) Locations(word string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.Locations(word)
}

func (t *ThreadSafe) Positions(word, location string) []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.Positions(word, location)
}

func (t *ThreadSafe) NumLocations(word string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.NumLocations(word)
}

func (t *ThreadSafe) NumPositions(word, location string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.NumPositions(word, location)
}

func (t *ThreadSafe) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.Size()
}

func (t *ThreadSafe) Count(location string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.Count(location)
}

func (t *ThreadSafe) Counts() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.Counts()
}

func (t *ThreadSafe) Snapshot() Postings {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.Snapshot()
}

func (t *ThreadSafe) Search(queries []string, exact bool) []Result {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.Search(queries, exact)
}

func (t *ThreadSafe) ExactSearch(queries []string) []Result {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.ExactSearch(queries)
}

func (t *ThreadSafe) PartialSearch(queries []string) []Result {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index.PartialSearch(queries)
}
