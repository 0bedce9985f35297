package chunk

import (
	"bytes"
	"errors"
	"net/textproto"
)

var (
	// ErrIncomplete is returned when the buffer ends before the header does.
	ErrIncomplete = errors.New("incomplete header")
	// ErrMalformedHeader is returned when the bytes after a boundary are not a part header.
	ErrMalformedHeader = errors.New("malformed part header")
	// ErrHeaderTooLarge is returned when a header stays incomplete beyond the configured size.
	ErrHeaderTooLarge = errors.New("part header too large")
)

const dispositionKey = "Content-Disposition"

// minDispositionWidth is the shortest line that can carry a disposition.
var minDispositionWidth = len(dispositionKey + ":")

// Header is the raw header block of one part.
type Header struct {
	Fields textproto.MIMEHeader
	// Size is the number of bytes from the end of the boundary to the first payload byte.
	Size int
}

// ReadHeader reads the header block that follows a boundary. off is the
// offset right after the boundary bytes. The rest of the boundary line is
// skipped, then header lines are read until the blank line. Lines end with
// LF and an optional preceding CR.
//
// It returns the offset of the first payload byte. ErrIncomplete means buf
// ends inside the header and more bytes are needed.
func ReadHeader(buf []byte, off int) (Header, int, error) {
	ls, ok := nextLine(buf, off)
	if !ok {
		return Header{}, 0, ErrIncomplete
	}
	if len(bytes.TrimSpace(buf[off:ls])) != 0 {
		return Header{}, 0, ErrMalformedHeader
	}

	fields := make(textproto.MIMEHeader)
	for {
		next, ok := nextLine(buf, ls)
		if !ok {
			return Header{}, 0, ErrIncomplete
		}

		line := trimEOL(buf[ls:next])
		if len(line) == 0 {
			if len(fields[dispositionKey]) == 0 {
				return Header{}, 0, ErrMalformedHeader
			}

			return Header{
				Fields: fields,
				Size:   next - off,
			}, next, nil
		}

		key, value, ok := bytes.Cut(line, []byte(":"))
		if !ok {
			return Header{}, 0, ErrMalformedHeader
		}

		k := textproto.CanonicalMIMEHeaderKey(string(bytes.TrimSpace(key)))
		if k == "" {
			return Header{}, 0, ErrMalformedHeader
		}
		if k == dispositionKey && len(line) < minDispositionWidth {
			return Header{}, 0, ErrMalformedHeader
		}
		fields.Add(k, string(bytes.TrimSpace(value)))

		ls = next
	}
}

// nextLine returns the offset just past the next LF at or after off.
func nextLine(buf []byte, off int) (int, bool) {
	if off > len(buf) {
		return 0, false
	}
	i := bytes.IndexByte(buf[off:], '\n')
	if i < 0 {
		return 0, false
	}

	return off + i + 1, true
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}
