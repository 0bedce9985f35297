// Package boundary finds occurrences of a multipart boundary in byte buffers.
package boundary

import "errors"

// NotFound is returned by Index when the boundary does not occur in the range.
const NotFound = -1

const alphabetSize = 256

// ErrEmptyBoundary is returned by New for a zero-length boundary.
var ErrEmptyBoundary = errors.New("empty boundary")

// Matcher is a Boyer-Moore matcher for one fixed byte sequence.
// The tables are computed once in New and never written afterwards, so a
// Matcher may be shared by concurrent parses.
type Matcher struct {
	pattern []byte
	// shift is the bad-character table, indexed by the mismatched byte.
	shift [alphabetSize]int
	// offset is the good-suffix table, indexed by the length of the matched suffix.
	offset []int
}

// New builds a matcher for pattern. The pattern is copied.
func New(pattern []byte) (*Matcher, error) {
	if len(pattern) == 0 {
		return nil, ErrEmptyBoundary
	}

	p := make([]byte, len(pattern))
	copy(p, pattern)

	m := &Matcher{
		pattern: p,
		offset:  makeOffsetTable(p),
	}
	makeShiftTable(&m.shift, p)

	return m, nil
}

// Len returns the length of the boundary in bytes.
func (m *Matcher) Len() int {
	return len(m.pattern)
}

// Bytes returns the boundary. The returned slice must not be modified.
func (m *Matcher) Bytes() []byte {
	return m.pattern
}

// Index returns the absolute offset of the first occurrence of the boundary
// within buf[start:end], or NotFound.
func (m *Matcher) Index(buf []byte, start, end int) int {
	n := len(m.pattern)
	if start < 0 {
		start = 0
	}
	if end > len(buf) {
		end = len(buf)
	}

	for i := start + n - 1; i < end; {
		j := n - 1
		for m.pattern[j] == buf[i] {
			if j == 0 {
				return i
			}
			i--
			j--
		}
		i += max(m.offset[n-1-j], m.shift[buf[i]])
	}

	return NotFound
}

func makeShiftTable(table *[alphabetSize]int, pattern []byte) {
	n := len(pattern)
	for i := range table {
		table[i] = n
	}
	for i := 0; i < n-1; i++ {
		table[pattern[i]] = n - 1 - i
	}
}

func makeOffsetTable(pattern []byte) []int {
	n := len(pattern)
	table := make([]int, n)

	lastPrefix := n
	for i := n - 1; i >= 0; i-- {
		if isPrefix(pattern, i+1) {
			lastPrefix = i + 1
		}
		table[n-1-i] = lastPrefix - i + n - 1
	}
	for i := 0; i < n-1; i++ {
		l := suffixLength(pattern, i)
		table[l] = n - 1 - i + l
	}

	return table
}

// isPrefix reports whether pattern[p:] is a prefix of pattern.
func isPrefix(pattern []byte, p int) bool {
	for i, j := p, 0; i < len(pattern); i, j = i+1, j+1 {
		if pattern[i] != pattern[j] {
			return false
		}
	}
	return true
}

// suffixLength returns the length of the longest substring ending at p that
// is also a suffix of pattern.
func suffixLength(pattern []byte, p int) int {
	l := 0
	for i, j := p, len(pattern)-1; i >= 0 && pattern[i] == pattern[j]; i, j = i-1, j-1 {
		l++
	}
	return l
}
