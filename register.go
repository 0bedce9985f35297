package formchunk

// PartHookFunc is called with a part once it has been read completely. form
// holds the parts read so far.
type PartHookFunc = func(part *Part, form *Form) error

// Register sets fn to be called for every part named name. With
// WithRequiredPart, fn is called only after the required parts have been
// read; parts arriving earlier are held back until then.
func (p *Parser) Register(name string, fn PartHookFunc, options ...RegisterOption) error {
	if _, ok := p.hookMap[name]; ok {
		return DuplicateHookNameError{Name: name}
	}

	c := &registerConfig{}
	for _, opt := range options {
		opt(c)
	}

	p.hookMap[name] = partHook{
		fn:           fn,
		requireParts: c.requireParts,
	}

	return nil
}

type registerConfig struct {
	requireParts []string
}

type RegisterOption func(*registerConfig)

func WithRequiredPart(name string) RegisterOption {
	return func(c *registerConfig) {
		c.requireParts = append(c.requireParts, name)
	}
}

type partHook struct {
	fn           PartHookFunc
	requireParts []string
}

// judgeHook binds a hook to the form of one parse.
type judgeHook struct {
	partHook
	form *Form
}

func (jh judgeHook) NormalPath(part *Part) error {
	return jh.fn(part, jh.form)
}

func (jh judgeHook) AbnormalPath(part *Part) error {
	return jh.fn(part, jh.form)
}

func (jh judgeHook) Requirements() []string {
	return jh.requireParts
}
