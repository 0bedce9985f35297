package httpform

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/mazrean/formchunk"
)

type Parser struct {
	*formchunk.Parser
	reader io.Reader
}

// NewParser returns a parser for the multipart/form-data body of req. The
// declared length and charset of the request are applied before options.
func NewParser(req *http.Request, options ...formchunk.ParserOption) (*Parser, error) {
	contentType := req.Header.Get("Content-Type")
	d, params, err := mime.ParseMediaType(contentType)
	if err != nil || d != "multipart/form-data" {
		return nil, fmt.Errorf("%w: %w", formchunk.ErrMalformedEnvelope, http.ErrNotMultipart)
	}

	boundary, ok := params["boundary"]
	if !ok || boundary == "" {
		return nil, fmt.Errorf("%w: %w", formchunk.ErrMalformedEnvelope, http.ErrMissingBoundary)
	}

	opts := []formchunk.ParserOption{formchunk.WithContentLength(req.ContentLength)}
	if charset, ok := params["charset"]; ok {
		opts = append(opts, formchunk.WithCharset(charset))
	}

	return &Parser{
		Parser: formchunk.NewParser(boundary, append(opts, options...)...),
		reader: req.Body,
	}, nil
}

func (p *Parser) Parse() (*formchunk.Form, error) {
	return p.Parser.Parse(p.reader)
}
