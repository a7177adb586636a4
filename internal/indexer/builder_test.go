package indexer

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/workqueue"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestIsTextFile(t *testing.T) {
	tests := map[string]bool{
		"a.txt":    true,
		"B.TXT":    true,
		"c.Text":   true,
		"d.md":     false,
		"txt":      false,
		"e.txt.gz": false,
	}
	for name, want := range tests {
		if got := IsTextFile(name); got != want {
			t.Errorf("IsTextFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestFileBuilderS1(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.txt": "hello world",
		"b.txt": "hello\nhello",
	})
	a, b := filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")

	idx := index.New()
	if err := NewFileBuilder(idx, nil).Build(dir); err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := index.Postings{
		"hello": {a: {1}, b: {1, 2}},
		"world": {a: {2}},
	}
	if got := idx.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("snapshot = %v, want %v", got, want)
	}
	if got := idx.Counts(); !reflect.DeepEqual(got, map[string]int{a: 2, b: 2}) {
		t.Fatalf("counts = %v", got)
	}
}

func TestBuildSkipsNonTextAndSeparatorOnlyFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"notes.md":         "hello",
		"empty.txt":        "  123 !!! --- \n\n",
		"nested/deep.TEXT": "Café",
	})

	idx := index.New()
	if err := NewFileBuilder(idx, nil).Build(dir); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := idx.Words(); !reflect.DeepEqual(got, []string{"cafe"}) {
		t.Fatalf("words = %v", got)
	}
	if _, ok := idx.Counts()[filepath.Join(dir, "empty.txt")]; ok {
		t.Fatal("separator-only file touched the count register")
	}
}

func TestBuildSingleFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"one.txt": "running runs"})
	path := filepath.Join(dir, "one.txt")

	idx := index.New()
	if err := NewFileBuilder(idx, nil).Build(path); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := idx.Positions("run", path); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("run@%s = %v", path, got)
	}
}

func TestBuildMissingRoot(t *testing.T) {
	idx := index.New()
	if err := NewFileBuilder(idx, nil).Build(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestParallelBuilderMatchesSequential(t *testing.T) {
	files := map[string]string{}
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	for i := 0; i < 20; i++ {
		content := ""
		for j := 0; j <= i; j++ {
			content += words[(i+j)%len(words)] + " "
		}
		files[filepath.Join("dir", string(rune('a'+i))+".txt")] = content
	}
	dir := writeFiles(t, files)

	sequential := index.New()
	if err := NewFileBuilder(sequential, nil).Build(dir); err != nil {
		t.Fatal(err)
	}

	queue := workqueue.New(4, nil)
	defer queue.Join()
	shared := index.NewThreadSafe()
	if err := NewParallelBuilder(shared, queue, nil).Build(dir); err != nil {
		t.Fatal(err)
	}

	if queue.Pending() != 0 {
		t.Fatalf("pending = %d after build", queue.Pending())
	}
	if !reflect.DeepEqual(shared.Snapshot(), sequential.Snapshot()) {
		t.Fatal("parallel index differs from sequential build")
	}
	if !reflect.DeepEqual(shared.Counts(), sequential.Counts()) {
		t.Fatal("parallel counts differ from sequential build")
	}
}
