package echoform

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mazrean/formchunk"
)

type Parser struct {
	*formchunk.Parser
	reader io.Reader
}

// NewParser returns a parser for the multipart/form-data body of the request
// of c. The declared length and charset of the request are applied before
// options.
func NewParser(c echo.Context, options ...formchunk.ParserOption) (*Parser, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	d, params, err := mime.ParseMediaType(contentType)
	if err != nil || d != "multipart/form-data" {
		return nil, fmt.Errorf("%w: %w", formchunk.ErrMalformedEnvelope, http.ErrNotMultipart)
	}

	boundary, ok := params["boundary"]
	if !ok || boundary == "" {
		return nil, fmt.Errorf("%w: %w", formchunk.ErrMalformedEnvelope, http.ErrMissingBoundary)
	}

	opts := []formchunk.ParserOption{formchunk.WithContentLength(c.Request().ContentLength)}
	if charset, ok := params["charset"]; ok {
		opts = append(opts, formchunk.WithCharset(charset))
	}

	return &Parser{
		Parser: formchunk.NewParser(boundary, append(opts, options...)...),
		reader: c.Request().Body,
	}, nil
}

func (p *Parser) Parse() (*formchunk.Form, error) {
	return p.Parser.Parse(p.reader)
}
