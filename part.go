package formchunk

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/transform"

	"github.com/mazrean/formchunk/internal/myio"
)

// Kind is the storage of a part.
type Kind int

const (
	// KindMemory parts keep their content in memory.
	KindMemory Kind = iota
	// KindDiskBinary parts write their content unchanged to a file.
	KindDiskBinary
	// KindDiskText parts write their content to a file in the target charset.
	KindDiskText
)

func (k Kind) String() string {
	switch k {
	case KindMemory:
		return "memory"
	case KindDiskBinary:
		return "disk-binary"
	case KindDiskText:
		return "disk-text"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Part is one field or file of a form.
type Part struct {
	header    Header
	kind      Kind
	size      int64
	threshold DataSize
	closed    bool
	text      transcoding

	// KindMemory
	content []byte

	// KindDiskBinary and KindDiskText
	path  string
	moved bool
	file  *os.File
	bw    *bufio.Writer
	w     io.Writer
	tw    *transform.Writer
}

func newMemoryPart(h Header, threshold DataSize, text transcoding) *Part {
	return &Part{
		header:    h,
		kind:      KindMemory,
		threshold: threshold,
		text:      text,
	}
}

func newDiskPart(h Header, kind Kind, path string, flag int, threshold DataSize, text transcoding) (*Part, error) {
	p := &Part{
		header:    h,
		kind:      kind,
		threshold: threshold,
		text:      text,
		path:      path,
	}

	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, &PartError{Part: p, Op: "create", Err: err}
	}
	p.file = f
	p.bw = bufio.NewWriter(f)
	p.w = p.bw

	if kind == KindDiskText && !text.identity() {
		p.tw = transform.NewWriter(p.bw, text.transformer())
		p.w = p.tw
	}

	return p, nil
}

// appendPart adds b to the content of p. stable reports whether b stays
// valid and unmodified for the lifetime of p, in which case a memory part
// may keep a reference instead of a copy.
func appendPart(p *Part, b []byte, stable bool) error {
	if p.closed {
		return &PartError{Part: p, Op: "append", Err: os.ErrClosed}
	}

	size := p.size + int64(len(b))
	if p.threshold > 0 && size > int64(p.threshold) {
		return &ThresholdError{Part: p, Limit: p.threshold, Size: size}
	}

	switch p.kind {
	case KindMemory:
		if stable && p.content == nil {
			p.content = b[:len(b):len(b)]
		} else {
			p.content = append(p.content, b...)
		}
	case KindDiskBinary, KindDiskText:
		if _, err := p.w.Write(b); err != nil {
			return &PartError{Part: p, Op: "write", Err: err}
		}
	}
	p.size = size

	return nil
}

// closePart flushes and closes the sink of p. The part is immutable afterwards.
func closePart(p *Part) error {
	if p.closed {
		return nil
	}
	p.closed = true

	if p.kind == KindMemory {
		return nil
	}

	var errs []error
	if p.tw != nil {
		errs = append(errs, p.tw.Close())
	}
	errs = append(errs, p.bw.Flush(), p.file.Close())
	p.file = nil

	if err := errors.Join(errs...); err != nil {
		return &PartError{Part: p, Op: "close", Err: err}
	}

	return nil
}

// Header returns the header of the part.
func (p *Part) Header() Header {
	return p.header
}

// Name returns the form field name of the part.
func (p *Part) Name() string {
	return p.header.Name()
}

// FileName returns the uploaded file name without directories.
func (p *Part) FileName() string {
	return p.header.FileName()
}

// ContentType returns the value of the "Content-Type" header field.
func (p *Part) ContentType() string {
	return p.header.ContentType()
}

// IsFile reports whether the part is an uploaded file.
func (p *Part) IsFile() bool {
	return p.header.IsFile()
}

// Kind returns the storage of the part.
func (p *Part) Kind() Kind {
	return p.kind
}

// Size returns the number of content bytes received.
func (p *Part) Size() int64 {
	return p.size
}

// Path returns the file holding the content of a disk part, or "".
func (p *Part) Path() string {
	return p.path
}

// Bytes returns the content of a memory part.
func (p *Part) Bytes() ([]byte, error) {
	if p.kind != KindMemory {
		return nil, ErrNotInMemory
	}

	return p.content, nil
}

// Text returns the content decoded from its charset.
func (p *Part) Text() (string, error) {
	if p.kind == KindMemory {
		return decode(p.text.src, p.content)
	}

	b, err := os.ReadFile(p.path)
	if err != nil {
		return "", &PartError{Part: p, Op: "read", Err: err}
	}
	if p.kind == KindDiskText {
		return decode(p.text.dst, b)
	}

	return decode(p.text.src, b)
}

// Open returns a reader over the content. The part must be closed.
func (p *Part) Open() (io.ReadSeekCloser, error) {
	if p.kind == KindMemory {
		return myio.NopSeekCloser(bytes.NewReader(p.content)), nil
	}
	if !p.closed {
		return nil, &PartError{Part: p, Op: "open", Err: errors.New("part is still being written")}
	}

	f, err := os.Open(p.path)
	if err != nil {
		return nil, &PartError{Part: p, Op: "open", Err: err}
	}

	return f, nil
}

// ToFile stores the content at path. A memory part is written with a single
// write, converted to the target charset when it is text. A disk part is
// moved to path and is no longer removed by Remove.
func (p *Part) ToFile(path string) error {
	if p.kind != KindMemory {
		if !p.closed {
			return &PartError{Part: p, Op: "move", Err: errors.New("part is still being written")}
		}
		if err := os.Rename(p.path, path); err != nil {
			return &PartError{Part: p, Op: "move", Err: err}
		}
		p.path = path
		p.moved = true

		return nil
	}

	content := p.content
	if p.isText() {
		var err error
		content, err = p.text.convert(content)
		if err != nil {
			return &PartError{Part: p, Op: "convert", Err: err}
		}
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return &PartError{Part: p, Op: "write", Err: err}
	}

	return nil
}

// Remove deletes the file of a disk part.
func (p *Part) Remove() error {
	if p.kind == KindMemory || p.moved {
		return nil
	}
	if p.file != nil {
		_ = p.file.Close()
		p.file = nil
		p.closed = true
	}

	err := os.Remove(p.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &PartError{Part: p, Op: "remove", Err: err}
	}

	return nil
}

func (p *Part) isText() bool {
	return strings.HasPrefix(p.header.MediaType(), "text/")
}
