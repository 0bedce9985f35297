package formchunk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const fallbackFileName = "upload"

// partFactory decides whether a part is accepted and which storage it gets.
// It holds configuration only and is safe for concurrent use.
type partFactory struct {
	repository   string
	randomNames  bool
	allowedTypes map[string]struct{}
	allowedExts  map[string]struct{}
	maxPartSize  DataSize
	text         transcoding
	now          func() time.Time
}

// acceptable applies the allow-lists. A configured type list decides for
// every part that has a Content-Type; otherwise a configured extension list
// decides for file parts. Everything else is accepted.
func (f *partFactory) acceptable(h Header) bool {
	if len(f.allowedTypes) == 0 && len(f.allowedExts) == 0 {
		return true
	}

	if mt := h.MediaType(); len(f.allowedTypes) != 0 && mt != "" {
		_, ok := f.allowedTypes[mt]
		return ok
	}

	if h.IsFile() && len(f.allowedExts) != 0 {
		name := strings.ToLower(h.FileName())
		for ext := range f.allowedExts {
			if strings.HasSuffix(name, ext) {
				return true
			}
		}
		return false
	}

	return true
}

// createPart returns the storage for an accepted part. Fields, and files
// when no repository is configured, are kept in memory; other files are
// written to the repository as text or binary depending on their type.
// A file name already present in the repository is replaced by a generated
// one.
func (f *partFactory) createPart(h Header) (*Part, error) {
	text := f.text
	if cs := h.Charset(); cs != "" {
		if c, err := lookupCharset(cs); err == nil {
			text.src = c
		}
	}

	if !h.IsFile() || f.repository == "" {
		return newMemoryPart(h, f.maxPartSize, text), nil
	}

	kind := KindDiskBinary
	if strings.HasPrefix(h.MediaType(), "text/") {
		kind = KindDiskText
	}

	// Cleanup removes every created file, so existing files are never opened.
	const flag = os.O_WRONLY | os.O_CREATE | os.O_EXCL

	p, err := newDiskPart(h, kind, filepath.Join(f.repository, f.fileName(h, f.randomNames)), flag, f.maxPartSize, text)
	if err != nil && !f.randomNames && errors.Is(err, os.ErrExist) {
		// The plain name is taken.
		p, err = newDiskPart(h, kind, filepath.Join(f.repository, f.fileName(h, true)), flag, f.maxPartSize, text)
	}

	return p, err
}

func (f *partFactory) fileName(h Header, random bool) string {
	name := h.FileName()
	if name == "" || name == "." || name == ".." {
		name = fallbackFileName
	}
	if !random {
		return name
	}

	now := f.now()
	return fmt.Sprintf("%s_%s_%09d_%s", now.Format("20060102150405"), uuid.NewString(), now.Nanosecond(), name)
}

func normalizeType(t string) string {
	t, _, _ = strings.Cut(t, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return ext
}
