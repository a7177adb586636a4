// Package index implements a positional inverted index: an ordered mapping
// from word to location to the sorted set of 1-based positions at which the
// word occurs, plus a register holding each location's token count.
package index

import (
	"maps"
	"slices"
	"strings"

	"github.com/google/btree"
)

const btreeDegree = 32

// entry holds every location a word was seen at. Position slices are kept
// sorted and free of duplicates.
type entry struct {
	word      string
	locations map[string][]int
}

func lessEntry(a, b *entry) bool {
	return a.word < b.word
}

// Postings is a detached copy of the index contents.
type Postings map[string]map[string][]int

// InvertedIndex is not safe for concurrent use; wrap it in a ThreadSafe when
// it is shared between goroutines.
type InvertedIndex struct {
	words  *btree.BTreeG[*entry]
	counts map[string]int
}

func New() *InvertedIndex {
	return &InvertedIndex{
		words:  btree.NewG(btreeDegree, lessEntry),
		counts: make(map[string]int),
	}
}

func (idx *InvertedIndex) lookup(word string) (*entry, bool) {
	return idx.words.Get(&entry{word: word})
}

// Add records that word occurs at position within location and raises the
// location's count to at least position. Positions below 1 are ignored.
func (idx *InvertedIndex) Add(word, location string, position int) {
	if position < 1 {
		return
	}
	e, ok := idx.lookup(word)
	if !ok {
		e = &entry{word: word, locations: make(map[string][]int)}
		idx.words.ReplaceOrInsert(e)
	}
	e.locations[location] = insertPosition(e.locations[location], position)
	if idx.counts[location] < position {
		idx.counts[location] = position
	}
}

// AddAll adds words in order at consecutive positions starting at start.
func (idx *InvertedIndex) AddAll(words []string, location string, start int) {
	for i, w := range words {
		idx.Add(w, location, start+i)
	}
}

func (idx *InvertedIndex) Contains(word string) bool {
	_, ok := idx.lookup(word)
	return ok
}

func (idx *InvertedIndex) ContainsLocation(word, location string) bool {
	e, ok := idx.lookup(word)
	if !ok {
		return false
	}
	_, ok = e.locations[location]
	return ok
}

func (idx *InvertedIndex) ContainsPosition(word, location string, position int) bool {
	e, ok := idx.lookup(word)
	if !ok {
		return false
	}
	_, found := slices.BinarySearch(e.locations[location], position)
	return found
}

// Words returns every indexed word in ascending order.
func (idx *InvertedIndex) Words() []string {
	words := make([]string, 0, idx.words.Len())
	idx.words.Ascend(func(e *entry) bool {
		words = append(words, e.word)
		return true
	})
	return words
}

// Locations returns the sorted locations of word, or an empty slice.
func (idx *InvertedIndex) Locations(word string) []string {
	e, ok := idx.lookup(word)
	if !ok {
		return []string{}
	}
	return slices.Sorted(maps.Keys(e.locations))
}

// Positions returns a copy of the positions of word within location.
func (idx *InvertedIndex) Positions(word, location string) []int {
	e, ok := idx.lookup(word)
	if !ok {
		return []int{}
	}
	return slices.Clone(e.locations[location])
}

func (idx *InvertedIndex) NumLocations(word string) int {
	e, ok := idx.lookup(word)
	if !ok {
		return 0
	}
	return len(e.locations)
}

func (idx *InvertedIndex) NumPositions(word, location string) int {
	e, ok := idx.lookup(word)
	if !ok {
		return 0
	}
	return len(e.locations[location])
}

// Size returns the number of distinct words.
func (idx *InvertedIndex) Size() int {
	return idx.words.Len()
}

// Count returns the token count of location, zero when unknown.
func (idx *InvertedIndex) Count(location string) int {
	return idx.counts[location]
}

// Counts returns a copy of the count register.
func (idx *InvertedIndex) Counts() map[string]int {
	return maps.Clone(idx.counts)
}

// Snapshot deep-copies the word map.
func (idx *InvertedIndex) Snapshot() Postings {
	out := make(Postings, idx.words.Len())
	idx.words.Ascend(func(e *entry) bool {
		locs := make(map[string][]int, len(e.locations))
		for loc, ps := range e.locations {
			locs[loc] = slices.Clone(ps)
		}
		out[e.word] = locs
		return true
	})
	return out
}

// Merge unions other into idx. Positions are copied, never shared, so other
// may be reused or discarded afterwards. Merging an index into itself is a
// no-op.
func (idx *InvertedIndex) Merge(other *InvertedIndex) {
	if other == nil || other == idx {
		return
	}
	other.words.Ascend(func(src *entry) bool {
		dst, ok := idx.lookup(src.word)
		if !ok {
			dst = &entry{word: src.word, locations: make(map[string][]int, len(src.locations))}
			idx.words.ReplaceOrInsert(dst)
		}
		for loc, ps := range src.locations {
			dst.locations[loc] = unionPositions(dst.locations[loc], ps)
		}
		return true
	})
	for loc, c := range other.counts {
		if idx.counts[loc] < c {
			idx.counts[loc] = c
		}
	}
}

// Search runs an exact or partial search for the given query stems.
func (idx *InvertedIndex) Search(queries []string, exact bool) []Result {
	if exact {
		return idx.ExactSearch(queries)
	}
	return idx.PartialSearch(queries)
}

// ExactSearch scores every location holding at least one of the query words.
func (idx *InvertedIndex) ExactSearch(queries []string) []Result {
	s := newScorer(idx)
	for _, q := range queries {
		if e, ok := idx.lookup(q); ok {
			s.add(e)
		}
	}
	return s.results()
}

// PartialSearch scores every location holding a word that starts with one of
// the query stems.
func (idx *InvertedIndex) PartialSearch(queries []string) []Result {
	s := newScorer(idx)
	for _, q := range queries {
		idx.words.AscendGreaterOrEqual(&entry{word: q}, func(e *entry) bool {
			if !strings.HasPrefix(e.word, q) {
				return false
			}
			s.add(e)
			return true
		})
	}
	return s.results()
}

// scorer accumulates one Result per location. A word is only counted once
// even when several query stems match it.
type scorer struct {
	idx     *InvertedIndex
	seen    map[string]struct{}
	byWhere map[string]*Result
	order   []*Result
}

func newScorer(idx *InvertedIndex) *scorer {
	return &scorer{
		idx:     idx,
		seen:    make(map[string]struct{}),
		byWhere: make(map[string]*Result),
	}
}

func (s *scorer) add(e *entry) {
	if _, dup := s.seen[e.word]; dup {
		return
	}
	s.seen[e.word] = struct{}{}
	for loc, ps := range e.locations {
		r, ok := s.byWhere[loc]
		if !ok {
			r = &Result{Where: loc}
			s.byWhere[loc] = r
			s.order = append(s.order, r)
		}
		r.Count += len(ps)
	}
}

func (s *scorer) results() []Result {
	out := make([]Result, 0, len(s.order))
	for _, r := range s.order {
		r.Score = float64(r.Count) / float64(s.idx.counts[r.Where])
		out = append(out, *r)
	}
	SortResults(out)
	return out
}

func insertPosition(ps []int, p int) []int {
	n := len(ps)
	if n == 0 || ps[n-1] < p {
		return append(ps, p)
	}
	i, found := slices.BinarySearch(ps, p)
	if found {
		return ps
	}
	return slices.Insert(ps, i, p)
}

func unionPositions(dst, src []int) []int {
	if len(dst) == 0 {
		return slices.Clone(src)
	}
	if len(src) == 0 {
		return dst
	}
	if dst[len(dst)-1] < src[0] {
		return append(dst, src...)
	}
	out := make([]int, 0, len(dst)+len(src))
	i, j := 0, 0
	for i < len(dst) && j < len(src) {
		switch {
		case dst[i] < src[j]:
			out = append(out, dst[i])
			i++
		case dst[i] > src[j]:
			out = append(out, src[j])
			j++
		default:
			out = append(out, dst[i])
			i++
			j++
		}
	}
	out = append(out, dst[i:]...)
	return append(out, src[j:]...)
}
