// Package tokenizer provides text normalisation for the search engine.
// It decomposes input to NFD, strips diacritics, drops everything that is
// not an ASCII letter or whitespace, lower-cases, splits on whitespace and
// applies the English Snowball stemmer to each token.
package tokenizer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Clean decomposes text, removes combining marks and every rune that is
// neither an ASCII letter nor whitespace, and lower-cases the remainder.
func Clean(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	decomposed, _, err := transform.String(t, text)
	if err != nil {
		decomposed = text
	}
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case 'a' <= r && r <= 'z':
			b.WriteRune(r)
		case 'A' <= r && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// Split breaks cleaned text on runs of whitespace. Empty tokens are never
// returned.
func Split(text string) []string {
	return strings.Fields(text)
}

// Parse cleans and splits text into lower-case words.
func Parse(text string) []string {
	return Split(Clean(text))
}

// Stem returns the English Snowball stem of a single lower-case word.
func Stem(word string) string {
	return english.Stem(word, true)
}

// ListStems returns the stem of every word in line, in order, duplicates
// included.
func ListStems(line string) []string {
	words := Parse(line)
	stems := make([]string, 0, len(words))
	for _, w := range words {
		if s := Stem(w); s != "" {
			stems = append(stems, s)
		}
	}
	return stems
}

// UniqueStems returns the sorted set of stems found in line.
func UniqueStems(line string) []string {
	stems := ListStems(line)
	slices.Sort(stems)
	return slices.Compact(stems)
}

// QueryKey joins the unique stems of line with single spaces. An empty key
// means the line carried no searchable words.
func QueryKey(line string) (string, []string) {
	stems := UniqueStems(line)
	return strings.Join(stems, " "), stems
}

// StemReader calls fn for every stem read from r, line by line, numbering
// stems from 1 across the whole stream. It returns the number of stems seen.
func StemReader(r io.Reader, fn func(stem string, position int)) (int, error) {
	reader := bufio.NewReader(r)
	position := 0
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			for _, stem := range ListStems(line) {
				position++
				fn(stem, position)
			}
		}
		if err == io.EOF {
			return position, nil
		}
		if err != nil {
			return position, fmt.Errorf("reading input: %w", err)
		}
	}
}

// StemFile opens path as UTF-8 text and streams its stems to fn.
func StemFile(path string, fn func(stem string, position int)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	n, err := StemReader(f, fn)
	if err != nil {
		return n, fmt.Errorf("stemming %s: %w", path, err)
	}
	return n, nil
}
