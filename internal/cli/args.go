// Package cli parses "-flag [value]" command lines where any flag may be
// given with or without a value.
package cli

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ArgumentMap maps flags, dash included, to their value. A flag given
// without a value maps to "".
type ArgumentMap struct {
	args map[string]string
}

// IsFlag reports whether arg is a dash followed by something other than a
// digit or whitespace, so "-5" reads as a value.
func IsFlag(arg string) bool {
	if len(arg) < 2 || arg[0] != '-' {
		return false
	}
	r, _ := utf8.DecodeRuneInString(arg[1:])
	return !unicode.IsDigit(r) && !unicode.IsSpace(r)
}

// IsValue reports whether arg can be a flag's value.
func IsValue(arg string) bool {
	return !IsFlag(arg) && strings.TrimSpace(arg) != ""
}

// Parse reads args in order. Anything that is neither a flag nor a value
// following one is ignored; a repeated flag keeps its last value.
func Parse(args []string) *ArgumentMap {
	m := &ArgumentMap{args: make(map[string]string)}
	for i := 0; i < len(args); i++ {
		if !IsFlag(args[i]) {
			continue
		}
		flag := args[i]
		m.args[flag] = ""
		if i+1 < len(args) && IsValue(args[i+1]) {
			m.args[flag] = args[i+1]
			i++
		}
	}
	return m
}

func (m *ArgumentMap) NumFlags() int {
	return len(m.args)
}

func (m *ArgumentMap) HasFlag(flag string) bool {
	_, ok := m.args[flag]
	return ok
}

func (m *ArgumentMap) HasValue(flag string) bool {
	return m.args[flag] != ""
}

// Get returns flag's value, or def when the flag is absent or bare.
func (m *ArgumentMap) Get(flag, def string) string {
	if v := m.args[flag]; v != "" {
		return v
	}
	return def
}

// Int returns flag's value as an int, or def when it is absent, bare or
// not a number.
func (m *ArgumentMap) Int(flag string, def int) int {
	v, ok := m.args[flag]
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func (m *ArgumentMap) String() string {
	flags := slices.Sorted(maps.Keys(m.args))
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = f + "=" + m.args[f]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
