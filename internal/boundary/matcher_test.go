package boundary_test

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mazrean/formchunk/internal/boundary"
)

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := boundary.New(nil)
	assert.ErrorIs(t, err, boundary.ErrEmptyBoundary)

	_, err = boundary.New([]byte{})
	assert.ErrorIs(t, err, boundary.ErrEmptyBoundary)

	src := []byte("--abc")
	m, err := boundary.New(src)
	require.NoError(t, err)
	src[2] = 'x'
	assert.Equal(t, []byte("--abc"), m.Bytes())
	assert.Equal(t, 5, m.Len())
}

func TestMatcher_Index(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		pattern string
		buf     string
		start   int
		end     int
		want    int
	}{
		"at start": {
			pattern: "--boundary",
			buf:     "--boundary\r\nabc",
			end:     -1,
			want:    0,
		},
		"in middle": {
			pattern: "--boundary",
			buf:     "abc\r\n--boundary\r\n",
			end:     -1,
			want:    5,
		},
		"at end": {
			pattern: "--b",
			buf:     "xxxx--b",
			end:     -1,
			want:    4,
		},
		"not found": {
			pattern: "--boundary",
			buf:     "--boundar--boundar",
			end:     -1,
			want:    boundary.NotFound,
		},
		"after start": {
			pattern: "--b",
			buf:     "--b--b",
			start:   1,
			end:     -1,
			want:    3,
		},
		"beyond end": {
			pattern: "--b",
			buf:     "xx--b",
			end:     4,
			want:    boundary.NotFound,
		},
		"shorter than pattern": {
			pattern: "--boundary",
			buf:     "--b",
			end:     -1,
			want:    boundary.NotFound,
		},
		"repeated prefix": {
			pattern: "----B",
			buf:     "-------B",
			end:     -1,
			want:    3,
		},
		"high bytes": {
			pattern: "\xff\xfe\x80",
			buf:     "\x00\xff\xff\xfe\x80\x01",
			end:     -1,
			want:    2,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m, err := boundary.New([]byte(tt.pattern))
			require.NoError(t, err)

			end := tt.end
			if end < 0 {
				end = len(tt.buf)
			}
			assert.Equal(t, tt.want, m.Index([]byte(tt.buf), tt.start, end))
		})
	}
}

func TestMatcher_IndexAgreesWithBytesIndex(t *testing.T) {
	t.Parallel()

	rnd := rand.New(rand.NewPCG(1, 2))
	alphabet := []byte("-ab\r\n\xff")

	randBytes := func(n int) []byte {
		b := make([]byte, n)
		for i := range b {
			b[i] = alphabet[rnd.IntN(len(alphabet))]
		}
		return b
	}

	for range 2000 {
		pattern := randBytes(1 + rnd.IntN(6))
		buf := randBytes(rnd.IntN(64))
		start := 0
		if len(buf) > 0 {
			start = rnd.IntN(len(buf))
		}

		m, err := boundary.New(pattern)
		require.NoError(t, err)

		want := bytes.Index(buf[start:], pattern)
		if want != -1 {
			want += start
		}
		assert.Equal(t, want, m.Index(buf, start, len(buf)), "pattern %q buf %q start %d", pattern, buf, start)
	}
}

func BenchmarkMatcher_Index(b *testing.B) {
	m, err := boundary.New([]byte("------WebKitFormBoundary7MA4YWxkTrZu0gW"))
	if err != nil {
		b.Fatal(err)
	}
	buf := bytes.Repeat([]byte("abcdefghijklmnopqrstuvwxyz-\r\n"), 1<<15)

	b.SetBytes(int64(len(buf)))
	for b.Loop() {
		m.Index(buf, 0, len(buf))
	}
}
