package query

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/workqueue"
)

// countingView records how often each query set is searched.
type countingView struct {
	index.View
	mu       sync.Mutex
	searches map[string]int
}

func (v *countingView) Search(queries []string, exact bool) []index.Result {
	v.mu.Lock()
	v.searches[strings.Join(queries, " ")]++
	v.mu.Unlock()
	return v.View.Search(queries, exact)
}

func newCountingView() *countingView {
	idx := index.NewThreadSafe()
	idx.Add("hello", "a.txt", 1)
	idx.Add("world", "a.txt", 2)
	idx.Add("hello", "b.txt", 1)
	idx.Add("hello", "b.txt", 2)
	return &countingView{View: idx, searches: make(map[string]int)}
}

func writeQueries(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queries.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newParser(name string, v index.View) (Parser, func()) {
	if name == "sequential" {
		return NewFileParser(v, nil), func() {}
	}
	q := workqueue.New(4, nil)
	return NewParallelParser(v, q, nil), q.Join
}

func TestDuplicateLinesShareOneKey(t *testing.T) {
	for _, name := range []string{"sequential", "parallel"} {
		t.Run(name, func(t *testing.T) {
			v := newCountingView()
			p, done := newParser(name, v)
			defer done()

			path := writeQueries(t,
				"hello world",
				"  world   hello ",
				"WORLD, hello!",
				"",
				"123 ...",
				"hello",
				"hello",
			)
			if err := p.ParseFile(path, true); err != nil {
				t.Fatal(err)
			}

			results := p.Results()
			keys := make([]string, 0, len(results))
			for k := range results {
				keys = append(keys, k)
			}
			if len(keys) != 2 {
				t.Fatalf("keys = %v, want [hello, hello world]", keys)
			}
			for k, n := range v.searches {
				if n != 1 {
					t.Errorf("query %q searched %d times", k, n)
				}
			}
			want := []index.Result{
				{Where: "b.txt", Count: 2, Score: 1},
				{Where: "a.txt", Count: 1, Score: 0.5},
			}
			if !reflect.DeepEqual(results["hello"], want) {
				t.Fatalf("hello = %v", results["hello"])
			}
		})
	}
}

func TestParallelMemoizesUnderContention(t *testing.T) {
	v := newCountingView()
	q := workqueue.New(8, nil)
	defer q.Join()
	p := NewParallelParser(v, q, nil)

	for i := 0; i < 500; i++ {
		if i%2 == 0 {
			p.ParseLine("hello world", false)
		} else {
			p.ParseLine("world hello", false)
		}
	}
	q.Finish()

	if n := v.searches["hello world"]; n != 1 {
		t.Fatalf("searched %d times, want 1", n)
	}
}

func TestPartialMode(t *testing.T) {
	v := newCountingView()
	p := NewFileParser(v, nil)
	p.ParseLine("hel", false)
	p.ParseLine("wor", true)

	if got := p.Results()["hel"]; len(got) != 2 {
		t.Fatalf("partial hel = %v", got)
	}
	if got, ok := p.Results()["wor"]; !ok || len(got) != 0 {
		t.Fatalf("exact wor = %v, %v", got, ok)
	}
}

func TestWriteJSON(t *testing.T) {
	v := newCountingView()
	q := workqueue.New(2, nil)
	defer q.Join()
	p := NewParallelParser(v, q, nil)
	if err := p.ParseFile(writeQueries(t, "hello"), true); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "results.json")
	if err := p.WriteJSON(out); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n" +
		"\t\"hello\": [\n" +
		"\t\t{\n\t\t\t\"where\": \"b.txt\",\n\t\t\t\"count\": 2,\n\t\t\t\"score\": 1.00000000\n\t\t},\n" +
		"\t\t{\n\t\t\t\"where\": \"a.txt\",\n\t\t\t\"count\": 1,\n\t\t\t\"score\": 0.50000000\n\t\t}\n" +
		"\t]\n" +
		"}\n"
	if string(data) != want {
		t.Fatalf("results.json =\n%s", data)
	}
}

func TestParseFileMissing(t *testing.T) {
	p := NewFileParser(newCountingView(), nil)
	if err := p.ParseFile(filepath.Join(t.TempDir(), "missing.txt"), true); err == nil {
		t.Fatal("expected error")
	}
}
