package formchunk

import (
	"github.com/rs/zerolog"
)

// Parser parses one multipart/form-data body delimited by boundary.
// Configuration is fixed by NewParser and Register; every call to Parse
// keeps its own state, so a Parser may be reused.
type Parser struct {
	boundary string
	hookMap  map[string]partHook
	parserConfig
}

func NewParser(boundary string, options ...ParserOption) *Parser {
	c := parserConfig{
		maxParts:      defaultMaxParts,
		maxHeaders:    defaultMaxHeaders,
		maxMemSize:    defaultMaxMemSize,
		maxHeaderSize: defaultMaxHeaderSize,
		readSize:      defaultReadSize,
		contentLength: -1,
		charset:       defaultCharset,
		logger:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(&c)
	}

	return &Parser{
		boundary:     boundary,
		hookMap:      make(map[string]partHook),
		parserConfig: c,
	}
}

type parserConfig struct {
	maxParts      uint
	maxHeaders    uint
	maxMemSize    DataSize
	maxHeaderSize DataSize
	maxPartSize   DataSize
	maxReqSize    DataSize
	contentLength int64
	readSize      DataSize

	repository      string
	randomFileNames bool
	allowedTypes    map[string]struct{}
	allowedExts     map[string]struct{}

	charset       string
	targetCharset string

	logger   zerolog.Logger
	progress ProgressFunc
}

type ParserOption func(*parserConfig)

type DataSize int64

const (
	_ DataSize = 1 << (iota * 10)
	KB
	MB
	GB
)

const (
	defaultMaxParts      = 10000
	defaultMaxHeaders    = 10000
	defaultMaxMemSize    = 32 * MB
	defaultMaxHeaderSize = 16 * KB
	defaultReadSize      = 8 * KB
	defaultCharset       = "UTF-8"
)

// ProgressFunc receives the number of body bytes read so far and the declared
// content length, or -1 when unknown.
type ProgressFunc func(read, total int64)

// WithMaxParts sets the maximum number of parts to be parsed.
// default: 10000
func WithMaxParts(maxParts uint) ParserOption {
	return func(c *parserConfig) {
		c.maxParts = maxParts
	}
}

// WithMaxHeaders sets the maximum number of header lines to be parsed.
// default: 10000
func WithMaxHeaders(maxHeaders uint) ParserOption {
	return func(c *parserConfig) {
		c.maxHeaders = maxHeaders
	}
}

// WithMaxHeaderSize sets the maximum size of the header block of a part.
// default: 16KB
func WithMaxHeaderSize(maxHeaderSize DataSize) ParserOption {
	return func(c *parserConfig) {
		c.maxHeaderSize = maxHeaderSize
	}
}

// WithMaxMemSize sets the maximum memory size held by in-memory parts.
// default: 32MB
func WithMaxMemSize(maxMemSize DataSize) ParserOption {
	return func(c *parserConfig) {
		c.maxMemSize = maxMemSize
	}
}

// WithMaxPartSize sets the maximum size of a single part. Zero means no limit.
// default: 0
func WithMaxPartSize(maxPartSize DataSize) ParserOption {
	return func(c *parserConfig) {
		c.maxPartSize = maxPartSize
	}
}

// WithMaxRequestSize sets the maximum size of the whole body. Zero means no limit.
// default: 0
func WithMaxRequestSize(maxReqSize DataSize) ParserOption {
	return func(c *parserConfig) {
		c.maxReqSize = maxReqSize
	}
}

// WithContentLength sets the declared length of the body, usually the
// Content-Length header. A negative value means unknown.
// default: -1
func WithContentLength(n int64) ParserOption {
	return func(c *parserConfig) {
		c.contentLength = n
	}
}

// WithReadSize sets the size of each read of the incremental driver.
// default: 8KB
func WithReadSize(readSize DataSize) ParserOption {
	return func(c *parserConfig) {
		c.readSize = readSize
	}
}

// WithRepository stores file parts as files in dir instead of memory.
func WithRepository(dir string) ParserOption {
	return func(c *parserConfig) {
		c.repository = dir
	}
}

// WithRandomFileNames names stored files with a generated, collision
// resistant name ending in the uploaded file name.
func WithRandomFileNames() ParserOption {
	return func(c *parserConfig) {
		c.randomFileNames = true
	}
}

// WithAllowedTypes accepts only parts whose Content-Type is one of types.
// Parts without a Content-Type are not affected. Matching ignores case and
// media type parameters.
func WithAllowedTypes(types ...string) ParserOption {
	return func(c *parserConfig) {
		c.allowedTypes = makeSet(c.allowedTypes, types, normalizeType)
	}
}

// WithAllowedExtensions accepts only file parts whose file name ends with
// one of exts, with or without the leading dot. Matching ignores case.
func WithAllowedExtensions(exts ...string) ParserOption {
	return func(c *parserConfig) {
		c.allowedExts = makeSet(c.allowedExts, exts, normalizeExt)
	}
}

// WithCharset sets the charset of the body, used to decode text.
// default: UTF-8
func WithCharset(charset string) ParserOption {
	return func(c *parserConfig) {
		c.charset = charset
	}
}

// WithTargetCharset sets the charset text files are written in.
// default: the body charset
func WithTargetCharset(charset string) ParserOption {
	return func(c *parserConfig) {
		c.targetCharset = charset
	}
}

// WithLogger sets the logger for parse events.
// default: no logging
func WithLogger(logger zerolog.Logger) ParserOption {
	return func(c *parserConfig) {
		c.logger = logger
	}
}

// WithProgress sets a function called after every read from the body.
func WithProgress(fn ProgressFunc) ParserOption {
	return func(c *parserConfig) {
		c.progress = fn
	}
}

func makeSet(set map[string]struct{}, values []string, normalize func(string) string) map[string]struct{} {
	if set == nil {
		set = make(map[string]struct{}, len(values))
	}
	for _, v := range values {
		if v = normalize(v); v != "" {
			set[v] = struct{}{}
		}
	}

	return set
}
