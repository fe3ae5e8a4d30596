package logger

import (
	"io"
	"regexp"
)

const redacted = "[REDACTED]"

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Redactor masks cookie values and credentials in log output
type Redactor struct {
	rules []rule
}

// NewRedactor creates a new redactor with default patterns
func NewRedactor() *Redactor {
	return &Redactor{
		rules: []rule{
			// JSON cookie records, raw and as escaped strings inside log fields
			{regexp.MustCompile(`("value"\s*:\s*)"(?:[^"\\]|\\.)*"`), `$1"` + redacted + `"`},
			{regexp.MustCompile(`(\\"value\\"\s*:\s*)\\"(?:[^\\]|\\[^"])*\\"`), `$1\"` + redacted + `\"`},

			// Cookie headers
			{regexp.MustCompile(`(?i)((?:set-)?cookie:\s*)[^\r\n"]+`), "${1}" + redacted},

			// Raven web auth session cookie
			{regexp.MustCompile(`(Ucam-WebAuth-Session(?:-S)?=)[^;\s"]+`), "${1}" + redacted},

			// Bearer tokens
			{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._~+/-]+=*`), "Bearer " + redacted},

			// Passwords and generic secrets
			{regexp.MustCompile(`(?i)((?:password|pwd|secret)["\s:=]+)[^\s",}]+`), "${1}" + redacted},
		},
	}
}

// AddPattern adds a custom redaction pattern; matches are replaced entirely
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.rules = append(r.rules, rule{pattern: re, replacement: redacted})
	return nil
}

// Redact redacts sensitive information from a string
func (r *Redactor) Redact(s string) string {
	result := s
	for _, rl := range r.rules {
		result = rl.pattern.ReplaceAllString(result, rl.replacement)
	}
	return result
}

// Wrap wraps an io.Writer to redact sensitive information
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{
		writer:   w,
		redactor: r,
	}
}

// redactingWriter is an io.Writer that redacts sensitive information
type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success since redaction changes the byte count
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := w.writer.Write([]byte(w.redactor.Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
