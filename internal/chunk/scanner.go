// Package chunk walks a byte window of a multipart body, locating
// boundaries, part headers and the payload between them.
package chunk

import (
	"errors"
	"fmt"

	"github.com/mazrean/formchunk/internal/boundary"
)

// Status is the outcome of Scanner.FindNext.
type Status int

const (
	// NotFound means no boundary starts in the rest of the window.
	NotFound Status = iota
	// Incomplete means a boundary was found but the window ends before its
	// header or delimiter suffix does.
	Incomplete
	// Found means a boundary and its complete header were read.
	Found
	// Terminal means the close delimiter of the active boundary was read.
	Terminal
)

func (s Status) String() string {
	switch s {
	case NotFound:
		return "not found"
	case Incomplete:
		return "incomplete"
	case Found:
		return "found"
	case Terminal:
		return "terminal"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ErrNestedMixed is returned when a sub-boundary is requested inside a sub scope.
var ErrNestedMixed = errors.New("nested multipart/mixed part")

// Scanner is the state of one parse over successive windows. It is not safe
// for concurrent use; the matchers it holds are.
type Scanner struct {
	buf       []byte
	cursor    int
	lineStart bool

	outer *boundary.Matcher
	sub   *boundary.Matcher

	maxHeaderSize int

	boundaryStart int
	boundaryEnd   int
	contentStart  int
	header        Header
}

// New returns a scanner for the outer boundary. A header block longer than
// maxHeaderSize bytes is reported as ErrHeaderTooLarge; zero disables the
// check.
func New(outer *boundary.Matcher, maxHeaderSize int) *Scanner {
	return &Scanner{
		outer:         outer,
		maxHeaderSize: maxHeaderSize,
		boundaryStart: -1,
		boundaryEnd:   -1,
		contentStart:  -1,
	}
}

// Reset installs a new window and moves the cursor to its start. lineStart
// reports whether buf[0] begins a line of the body. The active boundary is
// kept.
func (s *Scanner) Reset(buf []byte, lineStart bool) {
	s.buf = buf
	s.lineStart = lineStart
	s.cursor = 0
	s.boundaryStart = -1
	s.boundaryEnd = -1
	s.contentStart = -1
}

// FindNext looks for the next boundary of the active scope from the cursor.
// On Found the header has been read and the cursor is at the first payload
// byte. On Terminal the cursor is past the close delimiter.
//
// Inside a sub scope an outer boundary found first leaves the sub scope and
// is reported as the next boundary.
func (s *Scanner) FindNext() (Status, error) {
	m := s.active()

	s.boundaryEnd = -1
	s.boundaryStart = s.indexLineStart(m)
	if s.sub != nil {
		if o := s.indexLineStart(s.outer); o != boundary.NotFound && (s.boundaryStart == boundary.NotFound || o < s.boundaryStart) {
			s.boundaryStart = o
			s.sub = nil
			m = s.outer
		}
	}
	if s.boundaryStart == boundary.NotFound {
		return NotFound, nil
	}

	after := s.boundaryStart + m.Len()
	if after+2 > len(s.buf) {
		return Incomplete, nil
	}
	if s.buf[after] == '-' && s.buf[after+1] == '-' {
		s.cursor = after + 2
		return Terminal, nil
	}

	h, contentStart, err := ReadHeader(s.buf, after)
	if errors.Is(err, ErrIncomplete) {
		if s.maxHeaderSize > 0 && len(s.buf)-after > s.maxHeaderSize {
			return NotFound, ErrHeaderTooLarge
		}
		return Incomplete, nil
	}
	if err != nil {
		return NotFound, err
	}
	if s.maxHeaderSize > 0 && contentStart-after > s.maxHeaderSize {
		return NotFound, ErrHeaderTooLarge
	}

	s.header = h
	s.contentStart = contentStart
	s.cursor = contentStart

	return Found, nil
}

// FindBoundaryEnd looks for the boundary closing the payload that starts at
// the cursor. When found it returns the payload without the line terminator
// preceding the boundary and moves the cursor to the boundary.
//
// Inside a sub scope the outer boundary also ends the payload; when it comes
// first the sub scope is left.
func (s *Scanner) FindBoundaryEnd() ([]byte, bool) {
	idx := s.indexLineStart(s.active())
	if s.sub != nil {
		if o := s.indexLineStart(s.outer); o != boundary.NotFound && (idx == boundary.NotFound || o < idx) {
			idx = o
			s.sub = nil
		}
	}
	if idx == boundary.NotFound {
		s.boundaryEnd = -1
		return nil, false
	}

	end := idx
	if end > s.cursor && s.buf[end-1] == '\n' {
		end--
		if end > s.cursor && s.buf[end-1] == '\r' {
			end--
		}
	}

	content := s.buf[s.cursor:end]
	s.boundaryEnd = idx
	s.cursor = idx

	return content, true
}

// Drain returns the payload bytes that can no longer be part of a boundary
// or its preceding line terminator and moves the cursor past them.
func (s *Scanner) Drain() []byte {
	tail := s.Tail()
	content := s.buf[s.cursor:tail]
	s.cursor = tail

	return content
}

// Tail returns the offset from which bytes may still belong to a boundary
// split by the end of the window.
func (s *Scanner) Tail() int {
	hold := s.outer.Len() + 2
	if s.sub != nil {
		hold = max(hold, s.sub.Len()+2)
	}

	return max(s.cursor, len(s.buf)-hold)
}

// FindSubBoundary makes sub, without its leading dashes, the active boundary
// until EndOfSubSequence.
func (s *Scanner) FindSubBoundary(sub []byte) error {
	if s.sub != nil {
		return ErrNestedMixed
	}

	m, err := boundary.New(append([]byte("--"), sub...))
	if err != nil {
		return fmt.Errorf("failed to create sub-boundary matcher: %w", err)
	}
	s.sub = m

	return nil
}

// EndOfSubSequence restores the outer boundary. It reports whether a sub
// scope was active.
func (s *Scanner) EndOfSubSequence() bool {
	if s.sub == nil {
		return false
	}
	s.sub = nil

	return true
}

// InSub reports whether the sub-boundary is active.
func (s *Scanner) InSub() bool {
	return s.sub != nil
}

// Header returns the header read by the last successful FindNext.
func (s *Scanner) Header() Header {
	return s.header
}

// Buffer returns the current window.
func (s *Scanner) Buffer() []byte {
	return s.buf
}

// Cursor returns the scan position in the current window.
func (s *Scanner) Cursor() int {
	return s.cursor
}

// BoundaryStart returns the offset of the last boundary found by FindNext, or -1.
func (s *Scanner) BoundaryStart() int {
	return s.boundaryStart
}

// BoundaryEnd returns the offset of the boundary closing the payload, or -1.
func (s *Scanner) BoundaryEnd() int {
	return s.boundaryEnd
}

// ContentStart returns the offset of the first payload byte, or -1.
func (s *Scanner) ContentStart() int {
	return s.contentStart
}

func (s *Scanner) active() *boundary.Matcher {
	if s.sub != nil {
		return s.sub
	}
	return s.outer
}

// indexLineStart finds m at the start of a line at or after the cursor.
func (s *Scanner) indexLineStart(m *boundary.Matcher) int {
	for from := s.cursor; ; {
		idx := m.Index(s.buf, from, len(s.buf))
		if idx == boundary.NotFound ||
			(idx == 0 && s.lineStart) ||
			(idx > 0 && s.buf[idx-1] == '\n') {
			return idx
		}
		from = idx + 1
	}
}
