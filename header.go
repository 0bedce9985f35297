package formchunk

import (
	"mime"
	"net/textproto"
	"strings"

	"github.com/mazrean/formchunk/internal/chunk"
)

const mixedMediaType = "multipart/mixed"

type Header struct {
	dispositionParams map[string]string
	header            textproto.MIMEHeader
}

func newHeader(h textproto.MIMEHeader) Header {
	_, params := chunk.SplitParams(h.Get("Content-Disposition"))

	return Header{
		dispositionParams: params,
		header:            h,
	}
}

// withName returns a copy of h whose "name" parameter is name.
func (h Header) withName(name string) Header {
	params := make(map[string]string, len(h.dispositionParams)+1)
	for k, v := range h.dispositionParams {
		params[k] = v
	}
	params["name"] = name

	return Header{
		dispositionParams: params,
		header:            h.header,
	}
}

// Get returns the first value associated with the given key.
// If there are no values associated with the key, Get returns "".
func (h Header) Get(key string) string {
	return h.header.Get(key)
}

// ContentType returns the value of the "Content-Type" header field.
// If there are no values associated with the key, ContentType returns "".
func (h Header) ContentType() string {
	return h.header.Get("Content-Type")
}

// MediaType returns the lower-cased media type of the "Content-Type" header
// field without parameters.
func (h Header) MediaType() string {
	mt, _ := h.contentTypeParams()
	return mt
}

// Name returns the value of the "name" parameter in the "Content-Disposition" header field.
// If there are no values associated with the key, Name returns "".
func (h Header) Name() string {
	return h.dispositionParams["name"]
}

// FileName returns the value of the "filename" parameter in the "Content-Disposition" header field
// without any directory components sent by the client.
// If there are no values associated with the key, FileName returns "".
func (h Header) FileName() string {
	fn := h.dispositionParams["filename"]
	if i := strings.LastIndexAny(fn, `/\`); i >= 0 {
		fn = fn[i+1:]
	}

	return fn
}

// IsFile reports whether the "Content-Disposition" header field has a "filename" parameter.
func (h Header) IsFile() bool {
	_, ok := h.dispositionParams["filename"]
	return ok
}

// HasMixedContent reports whether the part is a multipart/mixed part holding sub-parts.
func (h Header) HasMixedContent() bool {
	return h.MediaType() == mixedMediaType
}

// SubBoundary returns the "boundary" parameter of the "Content-Type" header field.
func (h Header) SubBoundary() string {
	_, params := h.contentTypeParams()
	return params["boundary"]
}

// Charset returns the "charset" parameter of the "Content-Type" header field.
func (h Header) Charset() string {
	_, params := h.contentTypeParams()
	return params["charset"]
}

func (h Header) contentTypeParams() (string, map[string]string) {
	ct := h.ContentType()
	if ct == "" {
		return "", nil
	}

	mt, params, err := mime.ParseMediaType(ct)
	if err != nil {
		mt, params = chunk.SplitParams(ct)
	}

	return strings.ToLower(strings.TrimSpace(mt)), params
}
