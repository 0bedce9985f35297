package formchunk

import "errors"

// Form is the result of one parse.
type Form struct {
	// Parts are the accepted parts in stream order. Parts nested in a
	// multipart/mixed part are listed in place of it.
	Parts []*Part
	// Rejected are the headers of parts refused by the allow-lists.
	Rejected []Header
	// ReadBytes is the number of body bytes read.
	ReadBytes int64
}

// Value first value of the key.
func (f *Form) Value(key string) (string, Header, bool) {
	content, header, ok := f.ValueRaw(key)
	if !ok {
		return "", Header{}, false
	}

	return string(content), header, true
}

// ValueRaw first value of the key.
func (f *Form) ValueRaw(key string) ([]byte, Header, bool) {
	for _, p := range f.Parts {
		if p.Name() != key || p.IsFile() || p.Kind() != KindMemory {
			continue
		}

		return p.content, p.header, true
	}

	return nil, Header{}, false
}

// File first file of the key.
func (f *Form) File(key string) (*Part, bool) {
	for _, p := range f.Parts {
		if p.Name() == key && p.IsFile() {
			return p, true
		}
	}

	return nil, false
}

// Values all parts of the key.
func (f *Form) Values(key string) ([]*Part, bool) {
	var parts []*Part
	for _, p := range f.Parts {
		if p.Name() == key {
			parts = append(parts, p)
		}
	}

	return parts, len(parts) != 0
}

// ValueMap all parts by name.
func (f *Form) ValueMap() map[string][]*Part {
	m := make(map[string][]*Part, len(f.Parts))
	for _, p := range f.Parts {
		m[p.Name()] = append(m[p.Name()], p)
	}

	return m
}

// RemoveAll removes the files of all parts stored on disk.
func (f *Form) RemoveAll() error {
	var errs []error
	for _, p := range f.Parts {
		errs = append(errs, p.Remove())
	}

	return errors.Join(errs...)
}
