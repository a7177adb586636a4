package index

import (
	"reflect"
	"sync"
	"testing"
)

// buildS1 indexes a.txt = "hello world" and b.txt = "hello hello".
func buildS1() *InvertedIndex {
	idx := New()
	idx.AddAll([]string{"hello", "world"}, "a.txt", 1)
	idx.AddAll([]string{"hello", "hello"}, "b.txt", 1)
	return idx
}

func TestAddBuildsPositionsAndCounts(t *testing.T) {
	idx := buildS1()

	if got := idx.Positions("hello", "b.txt"); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("hello@b.txt = %v", got)
	}
	if got := idx.Positions("world", "a.txt"); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("world@a.txt = %v", got)
	}
	if got := idx.Counts(); !reflect.DeepEqual(got, map[string]int{"a.txt": 2, "b.txt": 2}) {
		t.Fatalf("counts = %v", got)
	}
	if idx.Size() != 2 {
		t.Fatalf("size = %d, want 2", idx.Size())
	}
	if idx.NumLocations("hello") != 2 || idx.NumPositions("hello", "b.txt") != 2 {
		t.Fatal("unexpected cardinalities")
	}
}

func TestAddIsIdempotentAndOrdered(t *testing.T) {
	idx := New()
	for _, p := range []int{5, 1, 3, 5, 1} {
		idx.Add("w", "loc", p)
	}
	if got := idx.Positions("w", "loc"); !reflect.DeepEqual(got, []int{1, 3, 5}) {
		t.Fatalf("positions = %v", got)
	}
	if idx.Count("loc") != 5 {
		t.Fatalf("count = %d", idx.Count("loc"))
	}
	idx.Add("w", "loc", 0)
	idx.Add("w", "loc", -2)
	if idx.NumPositions("w", "loc") != 3 {
		t.Fatal("non-positive positions must be ignored")
	}
}

func TestContainsAndMissingKeys(t *testing.T) {
	idx := buildS1()
	if !idx.Contains("hello") || !idx.ContainsLocation("hello", "a.txt") || !idx.ContainsPosition("hello", "b.txt", 2) {
		t.Fatal("expected present keys")
	}
	if idx.Contains("nope") || idx.ContainsLocation("world", "b.txt") || idx.ContainsPosition("world", "a.txt", 1) {
		t.Fatal("expected absent keys")
	}
	if got := idx.Locations("nope"); len(got) != 0 {
		t.Fatalf("Locations(nope) = %v", got)
	}
	if got := idx.Positions("nope", "a.txt"); len(got) != 0 {
		t.Fatalf("Positions(nope) = %v", got)
	}
	if idx.NumLocations("nope") != 0 || idx.NumPositions("hello", "zzz") != 0 {
		t.Fatal("expected zero cardinalities")
	}
}

func TestReadViewsAreCopies(t *testing.T) {
	idx := buildS1()
	ps := idx.Positions("hello", "b.txt")
	ps[0] = 99
	if idx.Positions("hello", "b.txt")[0] != 1 {
		t.Fatal("Positions leaked internal storage")
	}
	counts := idx.Counts()
	counts["a.txt"] = 100
	if idx.Count("a.txt") != 2 {
		t.Fatal("Counts leaked internal storage")
	}
}

func TestExactSearchS1(t *testing.T) {
	got := buildS1().ExactSearch([]string{"hello"})
	want := []Result{
		{Where: "b.txt", Count: 2, Score: 1.0},
		{Where: "a.txt", Count: 1, Score: 0.5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExactSearch = %v, want %v", got, want)
	}
}

func TestPartialSearchPrefix(t *testing.T) {
	idx := buildS1()
	got := idx.PartialSearch([]string{"hel"})
	want := []Result{
		{Where: "b.txt", Count: 2, Score: 1.0},
		{Where: "a.txt", Count: 1, Score: 0.5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PartialSearch = %v, want %v", got, want)
	}
	if res := idx.ExactSearch([]string{"hel"}); len(res) != 0 {
		t.Fatalf("a proper prefix must not match exactly, got %v", res)
	}
}

func TestExactSearchTieBreaksOnLocation(t *testing.T) {
	got := buildS1().ExactSearch([]string{"hello", "world"})
	want := []Result{
		{Where: "a.txt", Count: 2, Score: 1.0},
		{Where: "b.txt", Count: 2, Score: 1.0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExactSearch = %v, want %v", got, want)
	}
}

func TestPartialSearchCountsSharedWordOnce(t *testing.T) {
	idx := New()
	idx.AddAll([]string{"hello", "help", "other"}, "doc", 1)
	got := idx.PartialSearch([]string{"he", "hel", "hello"})
	if len(got) != 1 || got[0].Count != 2 {
		t.Fatalf("PartialSearch = %v, want one result with count 2", got)
	}
}

func TestSearchInvariants(t *testing.T) {
	idx := New()
	idx.AddAll([]string{"apple", "apply", "banana", "apple", "band"}, "one", 1)
	idx.AddAll([]string{"band", "bandana", "cherry"}, "Two", 1)
	idx.AddAll([]string{"cherry", "apple"}, "three", 1)

	for _, q := range [][]string{{"app"}, {"ban"}, {"cherri", "appl"}, {"apple", "band"}, {"zzz"}} {
		exact := idx.ExactSearch(q)
		partial := idx.PartialSearch(q)
		partialSet := make(map[string]bool)
		for _, r := range partial {
			partialSet[r.Where] = true
		}
		for _, r := range append(exact, partial...) {
			if r.Count < 1 || r.Score <= 0 || r.Score > 1 {
				t.Fatalf("query %v: result out of range: %v", q, r)
			}
		}
		for _, r := range exact {
			if !partialSet[r.Where] {
				t.Fatalf("query %v: exact location %s missing from partial results", q, r.Where)
			}
		}
		for i := 1; i < len(partial); i++ {
			if partial[i].Less(partial[i-1]) {
				t.Fatalf("query %v: results not sorted: %v", q, partial)
			}
		}
	}
}

func TestResultOrderingIgnoresCase(t *testing.T) {
	results := []Result{
		{Where: "b", Count: 1, Score: 0.5},
		{Where: "A", Count: 1, Score: 0.5},
		{Where: "c", Count: 2, Score: 0.5},
		{Where: "z", Count: 1, Score: 0.9},
	}
	SortResults(results)
	var order []string
	for _, r := range results {
		order = append(order, r.Where)
	}
	if want := []string{"z", "c", "A", "b"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestMergeUnionsAndRaisesCounts(t *testing.T) {
	shared := New()
	shared.AddAll([]string{"x", "y"}, "doc", 1)

	local := New()
	local.Add("x", "doc", 3)
	local.Add("z", "other", 1)
	shared.Merge(local)

	if got := shared.Positions("x", "doc"); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Fatalf("x@doc = %v", got)
	}
	if shared.Count("doc") != 3 || shared.Count("other") != 1 {
		t.Fatalf("counts = %v", shared.Counts())
	}

	local.Add("z", "other", 7)
	if shared.NumPositions("z", "other") != 1 {
		t.Fatal("merge must not alias the local index")
	}
}

func TestMergeEmptyAndSelf(t *testing.T) {
	idx := buildS1()
	before := idx.Snapshot()
	idx.Merge(New())
	idx.Merge(idx)
	idx.Merge(nil)
	if !reflect.DeepEqual(before, idx.Snapshot()) {
		t.Fatal("merging empty or self changed the index")
	}
	if !reflect.DeepEqual(idx.Counts(), map[string]int{"a.txt": 2, "b.txt": 2}) {
		t.Fatalf("counts = %v", idx.Counts())
	}
}

func TestMergeOrderDoesNotMatter(t *testing.T) {
	locals := make([]*InvertedIndex, 3)
	for i, words := range [][]string{{"a", "b", "a"}, {"b", "c"}, {"c", "a", "d"}} {
		locals[i] = New()
		locals[i].AddAll(words, string(rune('p'+i)), 1)
	}
	forward, backward := New(), New()
	for i := range locals {
		forward.Merge(locals[i])
		backward.Merge(locals[len(locals)-1-i])
	}
	if !reflect.DeepEqual(forward.Snapshot(), backward.Snapshot()) || !reflect.DeepEqual(forward.Counts(), backward.Counts()) {
		t.Fatal("merge order changed the result")
	}
}

func TestInvariantsAfterAdds(t *testing.T) {
	idx := New()
	idx.AddAll([]string{"the", "cat", "sat", "on", "the", "mat"}, "doc1", 1)
	idx.AddAll([]string{"cat", "cat"}, "doc2", 1)

	for _, w := range idx.Words() {
		for _, loc := range idx.Locations(w) {
			ps := idx.Positions(w, loc)
			for i, p := range ps {
				if p < 1 {
					t.Fatalf("non-positive position %d", p)
				}
				if i > 0 && ps[i-1] >= p {
					t.Fatalf("positions not strictly increasing: %v", ps)
				}
				if idx.Count(loc) < p {
					t.Fatalf("count[%s]=%d below position %d", loc, idx.Count(loc), p)
				}
			}
		}
	}
}

func TestThreadSafeConcurrentMerges(t *testing.T) {
	shared := NewThreadSafe()
	sequential := New()
	docs := map[string][]string{
		"d1": {"alpha", "beta", "alpha"},
		"d2": {"beta", "gamma"},
		"d3": {"delta", "alpha", "gamma", "gamma"},
		"d4": {"epsilon"},
	}

	var wg sync.WaitGroup
	for loc, words := range docs {
		sequential.AddAll(words, loc, 1)
		wg.Add(1)
		go func(loc string, words []string) {
			defer wg.Done()
			local := New()
			local.AddAll(words, loc, 1)
			shared.Merge(local)
		}(loc, words)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = shared.PartialSearch([]string{"a"})
		}()
	}
	wg.Wait()

	if !reflect.DeepEqual(shared.Snapshot(), sequential.Snapshot()) {
		t.Fatal("concurrent merge differs from sequential build")
	}
	if !reflect.DeepEqual(shared.Counts(), sequential.Counts()) {
		t.Fatal("concurrent counts differ from sequential build")
	}
}
