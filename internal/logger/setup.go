package logger

import "errors"

// Options selects the backends New assembles.
type Options struct {
	Level string
	// Console enables stderr output. The MCP server disables it because
	// its stdout/stderr belong to the client.
	Console bool
	Color   bool
	// File, when set, appends JSON lines to this path.
	File string
}

// New builds a logger from opts. With no backend enabled it returns Nop.
func New(opts Options) (Logger, error) {
	level := ParseLevel(opts.Level)

	var out tee
	if opts.Console {
		out = append(out, NewConsole(level, opts.Color))
	}
	if opts.File != "" {
		structured, err := NewStructured(opts.File, level)
		if err != nil {
			return nil, err
		}
		out = append(out, structured)
	}

	switch len(out) {
	case 0:
		return Nop(), nil
	case 1:
		return out[0], nil
	default:
		return out, nil
	}
}

// tee sends every entry to each backend.
type tee []Logger

func (t tee) Debug(msg string, fields ...Field) {
	for _, l := range t {
		l.Debug(msg, fields...)
	}
}

func (t tee) Info(msg string, fields ...Field) {
	for _, l := range t {
		l.Info(msg, fields...)
	}
}

func (t tee) Warn(msg string, fields ...Field) {
	for _, l := range t {
		l.Warn(msg, fields...)
	}
}

func (t tee) Error(msg string, fields ...Field) {
	for _, l := range t {
		l.Error(msg, fields...)
	}
}

func (t tee) WithFields(fields ...Field) Logger {
	out := make(tee, len(t))
	for i, l := range t {
		out[i] = l.WithFields(fields...)
	}
	return out
}

func (t tee) Close() error {
	var errs []error
	for _, l := range t {
		errs = append(errs, l.Close())
	}
	return errors.Join(errs...)
}
