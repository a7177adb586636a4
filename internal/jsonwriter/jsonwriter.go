// Package jsonwriter writes the index, the count register and search
// results as tab-indented JSON with keys in ascending order.
package jsonwriter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/index"
)

// Score renders with exactly eight fractional digits.
type Score float64

func (s Score) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(s), 'f', 8, 64)), nil
}

type result struct {
	Where string `json:"where"`
	Count int    `json:"count"`
	Score Score  `json:"score"`
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteIndex writes word -> location -> positions.
func WriteIndex(w io.Writer, postings index.Postings) error {
	if postings == nil {
		postings = index.Postings{}
	}
	return encode(w, postings)
}

// WriteCounts writes location -> token count.
func WriteCounts(w io.Writer, counts map[string]int) error {
	if counts == nil {
		counts = map[string]int{}
	}
	return encode(w, counts)
}

// WriteResults writes query key -> ordered results.
func WriteResults(w io.Writer, results map[string][]index.Result) error {
	out := make(map[string][]result, len(results))
	for key, rs := range results {
		converted := make([]result, len(rs))
		for i, r := range rs {
			converted[i] = result{Where: r.Where, Count: r.Count, Score: Score(r.Score)}
		}
		out[key] = converted
	}
	return encode(w, out)
}

func toFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

func WriteIndexFile(path string, postings index.Postings) error {
	return toFile(path, func(w io.Writer) error { return WriteIndex(w, postings) })
}

func WriteCountsFile(path string, counts map[string]int) error {
	return toFile(path, func(w io.Writer) error { return WriteCounts(w, counts) })
}

func WriteResultsFile(path string, results map[string][]index.Result) error {
	return toFile(path, func(w io.Writer) error { return WriteResults(w, results) })
}

// ReadIndex parses the output of WriteIndex back into an index.
func ReadIndex(r io.Reader) (*index.InvertedIndex, error) {
	var postings index.Postings
	if err := json.NewDecoder(r).Decode(&postings); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}
	idx := index.New()
	for word, locations := range postings {
		for location, positions := range locations {
			for _, p := range positions {
				idx.Add(word, location, p)
			}
		}
	}
	return idx, nil
}
