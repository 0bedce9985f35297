package chunk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mazrean/formchunk/internal/chunk"
)

func TestSplitParams(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		value  string
		token  string
		params map[string]string
	}{
		"field": {
			value:  `form-data; name="field1"`,
			token:  "form-data",
			params: map[string]string{"name": "field1"},
		},
		"file": {
			value:  `form-data; name="stream"; filename="file.txt"`,
			token:  "form-data",
			params: map[string]string{"name": "stream", "filename": "file.txt"},
		},
		"windows path": {
			value:  `form-data; name="f"; filename="C:\dir\a.txt"`,
			token:  "form-data",
			params: map[string]string{"name": "f", "filename": `C:\dir\a.txt`},
		},
		"separator in quotes": {
			value:  `form-data; name="f"; filename="a;b.txt"`,
			token:  "form-data",
			params: map[string]string{"name": "f", "filename": "a;b.txt"},
		},
		"unquoted and mixed case key": {
			value:  `multipart/mixed; Boundary=BbC04y`,
			token:  "multipart/mixed",
			params: map[string]string{"boundary": "BbC04y"},
		},
		"escaped quote": {
			value:  `form-data; name="a\"b"`,
			token:  "form-data",
			params: map[string]string{"name": `a"b`},
		},
		"empty": {
			value:  "",
			token:  "",
			params: map[string]string{},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			token, params := chunk.SplitParams(tt.value)
			assert.Equal(t, tt.token, token)
			assert.Equal(t, tt.params, params)
		})
	}
}
