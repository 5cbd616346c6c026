package config

import "fmt"

// ParseError is returned when a settings document is malformed or cannot be
// read. The user is expected to fix the document at Path.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid settings document %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
