package nbformat

import (
	"errors"
	"fmt"
)

// ErrMalformedInput marks input that is not valid JSON at all, as opposed to
// valid JSON that does not match the notebook schema.
var ErrMalformedInput = errors.New("nbformat: malformed input")

// SchemaError reports valid JSON that violates the notebook schema. Path
// locates the offending field, e.g. "cells[2].outputs[0].output_type".
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("nbformat: %s: %s", e.Path, e.Reason)
}

// UnsupportedVersionError reports a major format version this codec does not
// implement.
type UnsupportedVersionError struct {
	Found int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("nbformat: unsupported notebook format version %d", e.Found)
}
