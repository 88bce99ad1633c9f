package schema

import "fmt"

// ConfigurationError indicates an invariant violation in the content types
// configuration. It is fatal at load time: the application should refuse to
// serve requests against an invalid schema rather than run with a partially
// defaulted one.
type ConfigurationError struct {
	// ContentType and Field name the offending configuration key, when known.
	ContentType string
	Field       string
	Msg         string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.ContentType != "" && e.Field != "":
		return fmt.Sprintf("content type %q, field %q: %s", e.ContentType, e.Field, e.Msg)
	case e.ContentType != "":
		return fmt.Sprintf("content type %q: %s", e.ContentType, e.Msg)
	case e.Field != "":
		return fmt.Sprintf("field %q: %s", e.Field, e.Msg)
	}
	return e.Msg
}

func configErrf(contentType, field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		ContentType: contentType,
		Field:       field,
		Msg:         fmt.Sprintf(format, args...),
	}
}

// Warning reports a non-fatal normalization decision, such as a repeater
// field that was dropped or a nested field that was stripped. Parsing
// succeeds; the loader is expected to log these.
type Warning struct {
	ContentType string
	Field       string
	Reason      string
}

func (w Warning) String() string {
	if w.Field != "" {
		return fmt.Sprintf("content type %q, field %q: %s", w.ContentType, w.Field, w.Reason)
	}
	return fmt.Sprintf("content type %q: %s", w.ContentType, w.Reason)
}
