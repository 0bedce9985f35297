package myio

import (
	"io"
	"slices"
)

type splitReader struct {
	data   []byte
	off    int
	splits []int
}

// SplitReader returns a reader over data whose reads never cross the given
// offsets, so every offset starts a new read.
func SplitReader(data []byte, offsets ...int) io.Reader {
	splits := slices.Clone(offsets)
	slices.Sort(splits)

	return &splitReader{
		data:   data,
		splits: splits,
	}
}

func (r *splitReader) Read(p []byte) (int, error) {
	if r.off >= len(r.data) {
		return 0, io.EOF
	}

	end := len(r.data)
	for _, s := range r.splits {
		if s > r.off {
			end = min(end, s)
			break
		}
	}

	n := copy(p, r.data[r.off:end])
	r.off += n

	return n, nil
}
