package formchunk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/mazrean/formchunk/internal/boundary"
	"github.com/mazrean/formchunk/internal/chunk"
	conditionjudge "github.com/mazrean/formchunk/internal/condition_judge"
)

// maxPrealloc bounds the buffer allocated up front for a declared content length.
const maxPrealloc = 32 * MB

type partJudger = conditionjudge.IConditionJudger[string, *Part, *Part]

// Parse parses the multipart form from r. Without a repository the whole
// body is buffered before scanning; with one it is scanned in increments.
func (p *Parser) Parse(r io.Reader) (*Form, error) {
	if p.repository == "" {
		return p.ParseBuffered(r)
	}

	return p.ParseIncremental(r)
}

// ParseBuffered reads the whole body into memory and parses it.
func (p *Parser) ParseBuffered(r io.Reader) (*Form, error) {
	form := &Form{}
	return p.parse(r, form, newPartJudger(p.hookMap, form), driveBuffered)
}

// ParseIncremental parses the body while reading it in increments of the
// configured read size.
func (p *Parser) ParseIncremental(r io.Reader) (*Form, error) {
	form := &Form{}
	return p.parse(r, form, newPartJudger(p.hookMap, form), driveIncremental)
}

type driver func(s *session, r io.Reader) error

func (p *Parser) parse(r io.Reader, form *Form, judge partJudger, drive driver) (_ *Form, err error) {
	s, err := p.newSession(form, judge)
	if err != nil {
		return nil, err
	}

	cr := &countingReader{
		r:        r,
		total:    p.contentLength,
		limit:    p.maxReqSize,
		progress: p.progress,
	}

	defer func() {
		if err == nil {
			return
		}
		s.log.Warn().Err(err).Int64("read", cr.read).Msg("parse failed")
		if cleanupErr := s.cleanup(); cleanupErr != nil {
			err = errors.Join(err, cleanupErr)
		}
	}()

	if err = drive(s, cr); err != nil {
		return nil, err
	}
	s.form.ReadBytes = cr.read

	return s.form, nil
}

type scanState int

const (
	stateScanning scanState = iota
	stateContent
)

// session is the mutable state of one parse.
type session struct {
	scanner *chunk.Scanner
	factory *partFactory
	judge   partJudger
	log     zerolog.Logger

	contentLength int64
	readSize      int
	// stable is set when the scanned bytes outlive the parse.
	stable bool

	state     scanState
	part      *Part
	container string
	done      bool

	partsLeft   uint
	headersLeft uint
	memLeft     DataSize

	created []*Part
	form    *Form
}

func (p *Parser) newSession(form *Form, judge partJudger) (*session, error) {
	if p.boundary == "" {
		return nil, ErrInvalidBoundary
	}
	m, err := boundary.New([]byte("--" + p.boundary))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBoundary, err)
	}

	if p.maxReqSize > 0 && p.contentLength > int64(p.maxReqSize) {
		return nil, &ThresholdError{Limit: p.maxReqSize, Size: p.contentLength}
	}

	src, err := lookupCharset(p.charset)
	if err != nil {
		return nil, err
	}
	dst := src
	if p.targetCharset != "" {
		dst, err = lookupCharset(p.targetCharset)
		if err != nil {
			return nil, err
		}
	}

	return &session{
		scanner: chunk.New(m, int(p.maxHeaderSize)),
		factory: &partFactory{
			repository:   p.repository,
			randomNames:  p.randomFileNames,
			allowedTypes: p.allowedTypes,
			allowedExts:  p.allowedExts,
			maxPartSize:  p.maxPartSize,
			text:         transcoding{src: src, dst: dst},
			now:          time.Now,
		},
		judge:         judge,
		log:           p.logger.With().Str("boundary", p.boundary).Logger(),
		contentLength: p.contentLength,
		readSize:      max(int(p.readSize), 1),
		partsLeft:     p.maxParts,
		headersLeft:   p.maxHeaders,
		memLeft:       p.maxMemSize,
		form:          form,
	}, nil
}

func driveBuffered(s *session, r io.Reader) error {
	var buf bytes.Buffer
	if s.contentLength >= 0 {
		buf.Grow(int(min(s.contentLength, int64(maxPrealloc))))
		r = io.LimitReader(r, s.contentLength)
	}
	if _, err := buf.ReadFrom(r); err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	s.stable = true
	s.scanner.Reset(buf.Bytes(), true)
	if _, err := s.consume(); err != nil {
		return err
	}

	return s.finish()
}

func driveIncremental(s *session, r io.Reader) error {
	w := newWindow()
	defer w.release()

	lineStart := true
	for {
		n, readErr := w.fill(r, s.readSize)
		if n > 0 {
			s.scanner.Reset(w.Bytes(), lineStart)
			keep, err := s.consume()
			if err != nil {
				return err
			}
			if readErr != nil && !errors.Is(readErr, io.EOF) {
				return fmt.Errorf("failed to read body: %w", readErr)
			}
			if s.done {
				return nil
			}

			if keep > 0 {
				lineStart = w.Bytes()[keep-1] == '\n'
			}
			w.discard(keep)
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return s.finish()
			}
			return fmt.Errorf("failed to read body: %w", readErr)
		}
	}
}

// consume scans the current window and returns the offset of the first byte
// that must be carried over to the next window.
func (s *session) consume() (int, error) {
	sc := s.scanner
	for !s.done {
		if s.state == stateContent {
			inSub := sc.InSub()
			content, found := sc.FindBoundaryEnd()
			if !found {
				if err := s.write(sc.Drain()); err != nil {
					return 0, err
				}
				return sc.Cursor(), nil
			}

			if err := s.write(content); err != nil {
				return 0, err
			}
			if err := s.finishPart(); err != nil {
				return 0, err
			}
			if inSub && !sc.InSub() {
				s.leaveSub()
			}
			s.state = stateScanning
			continue
		}

		inSub := sc.InSub()
		st, err := sc.FindNext()
		if inSub && !sc.InSub() {
			s.leaveSub()
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrMalformedPart, err)
		}

		switch st {
		case chunk.NotFound:
			return sc.Tail(), nil
		case chunk.Incomplete:
			return sc.BoundaryStart(), nil
		case chunk.Terminal:
			if sc.EndOfSubSequence() {
				s.leaveSub()
				continue
			}
			s.done = true
		case chunk.Found:
			if err := s.startPart(sc.Header()); err != nil {
				return 0, err
			}
		}
	}

	return len(sc.Buffer()), nil
}

func (s *session) startPart(raw chunk.Header) error {
	for _, values := range raw.Fields {
		if s.headersLeft < uint(len(values)) {
			return ErrTooManyHeaders
		}
		s.headersLeft -= uint(len(values))
	}

	h := newHeader(raw.Fields)
	if s.scanner.InSub() && h.Name() == "" {
		h = h.withName(s.container)
	}

	if h.HasMixedContent() {
		sub := h.SubBoundary()
		if sub == "" {
			return fmt.Errorf("%w: multipart/mixed part %q without boundary", ErrMalformedPart, h.Name())
		}
		if err := s.scanner.FindSubBoundary([]byte(sub)); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedPart, err)
		}
		s.container = h.Name()
		s.log.Debug().Str("name", h.Name()).Str("sub_boundary", sub).Msg("entered mixed part")

		return nil
	}

	if s.partsLeft == 0 {
		return ErrTooManyParts
	}
	s.partsLeft--

	s.state = stateContent
	if !s.factory.acceptable(h) {
		s.form.Rejected = append(s.form.Rejected, h)
		s.log.Info().
			Str("name", h.Name()).
			Str("filename", h.FileName()).
			Str("content_type", h.ContentType()).
			Msg("part rejected")

		return nil
	}

	p, err := s.factory.createPart(h)
	if err != nil {
		return err
	}
	s.created = append(s.created, p)
	s.part = p
	s.log.Debug().Str("name", p.Name()).Stringer("kind", p.Kind()).Str("path", p.Path()).Msg("part created")

	return nil
}

func (s *session) write(b []byte) error {
	if s.part == nil {
		return nil
	}

	if err := appendPart(s.part, b, s.stable); err != nil {
		var thErr *ThresholdError
		if errors.As(err, &thErr) {
			s.log.Warn().Str("name", s.part.Name()).Int64("size", thErr.Size).Msg("part threshold exceeded")
		}
		return err
	}

	if s.part.Kind() == KindMemory {
		if DataSize(len(b)) > s.memLeft {
			return ErrTooLargeForm
		}
		s.memLeft -= DataSize(len(b))
	}

	return nil
}

func (s *session) finishPart() error {
	p := s.part
	if p == nil {
		return nil
	}
	s.part = nil

	if err := closePart(p); err != nil {
		return err
	}
	s.form.Parts = append(s.form.Parts, p)
	s.log.Debug().Str("name", p.Name()).Int64("size", p.Size()).Msg("part closed")

	name := p.Name()
	if s.judge.IsHookExist(name) {
		if _, err := s.judge.HookEvent(name, p); err != nil {
			return fmt.Errorf("failed to run or set hook: %w", err)
		}
	}

	if err := s.judge.KeyEvent(name); err != nil {
		return fmt.Errorf("failed to run satisfied hook: %w", err)
	}

	return nil
}

func (s *session) leaveSub() {
	s.log.Debug().Str("name", s.container).Msg("left mixed part")
	s.container = ""
}

// finish checks the state at the end of the body.
func (s *session) finish() error {
	if !s.done {
		return ErrTruncated
	}

	return nil
}

// cleanup removes every file created by a failed parse.
func (s *session) cleanup() error {
	var errs []error
	for _, p := range s.created {
		if err := p.Remove(); err != nil {
			s.log.Warn().Err(err).Str("path", p.Path()).Msg("failed to remove part file")
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func newPartJudger(hooks map[string]partHook, form *Form) partJudger {
	judgeHooks := make(map[string]conditionjudge.Hook[string, *Part, *Part], len(hooks))
	for name, hook := range hooks {
		judgeHooks[name] = judgeHook{
			partHook: hook,
			form:     form,
		}
	}

	return conditionjudge.NewConditionJudger(judgeHooks, func(p *Part) (*Part, error) {
		return p, nil
	})
}
