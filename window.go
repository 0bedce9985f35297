package formchunk

import (
	"io"
	"slices"

	"github.com/valyala/bytebufferpool"
)

// window is the scan buffer of the incremental driver: bytes carried over
// from the previous read followed by the bytes of the current one.
type window struct {
	bb *bytebufferpool.ByteBuffer
}

func newWindow() *window {
	return &window{bb: bytebufferpool.Get()}
}

func (w *window) Bytes() []byte {
	return w.bb.B
}

// discard drops the first n bytes and moves the rest to the front.
func (w *window) discard(n int) {
	w.bb.B = append(w.bb.B[:0], w.bb.B[n:]...)
}

// fill appends one read of at most size bytes from r.
func (w *window) fill(r io.Reader, size int) (int, error) {
	l := len(w.bb.B)
	b := slices.Grow(w.bb.B, size)[:l+size]

	n, err := r.Read(b[l:])
	w.bb.B = b[:l+n]

	return n, err
}

func (w *window) release() {
	bytebufferpool.Put(w.bb)
	w.bb = nil
}

// countingReader counts the bytes read from the body, enforces the request
// threshold and reports progress.
type countingReader struct {
	r        io.Reader
	read     int64
	total    int64
	limit    DataSize
	progress ProgressFunc
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)

	if c.limit > 0 && c.read > int64(c.limit) {
		return n, &ThresholdError{Limit: c.limit, Size: c.read}
	}
	if c.progress != nil && n > 0 {
		c.progress(c.read, c.total)
	}

	return n, err
}
