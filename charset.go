package formchunk

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

type charset struct {
	name string
	enc  encoding.Encoding
}

func lookupCharset(name string) (charset, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return charset{}, fmt.Errorf("%w: %q", ErrUnsupportedCharset, name)
	}

	canonical, err := ianaindex.IANA.Name(enc)
	if err != nil {
		canonical = strings.ToUpper(name)
	}

	return charset{
		name: canonical,
		enc:  enc,
	}, nil
}

// transcoding converts text from the charset of the body to the charset of
// stored files.
type transcoding struct {
	src charset
	dst charset
}

func (t transcoding) identity() bool {
	return t.src.name == t.dst.name
}

func (t transcoding) transformer() transform.Transformer {
	return transform.Chain(t.src.enc.NewDecoder(), encoding.ReplaceUnsupported(t.dst.enc.NewEncoder()))
}

// convert returns b in the target charset.
func (t transcoding) convert(b []byte) ([]byte, error) {
	if t.identity() {
		return b, nil
	}

	out, _, err := transform.Bytes(t.transformer(), b)
	if err != nil {
		return nil, fmt.Errorf("failed to transcode from %s to %s: %w", t.src.name, t.dst.name, err)
	}

	return out, nil
}

// decode returns b, in charset c, as a UTF-8 string.
func decode(c charset, b []byte) (string, error) {
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", c.name, err)
	}

	return string(out), nil
}
