package records

import (
	"fmt"
	"strings"

	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// MalformedRecordError reports a document or record that is missing a
// required field or carries a value of the wrong type.
// It matches sparkload.ErrMalformedRecord under errors.Is.
type MalformedRecordError struct {
	// Line is the 1-based line of the record within its file, 0 when unknown.
	Line   int
	Field  string
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	var b strings.Builder
	b.WriteString("malformed record")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

func (e *MalformedRecordError) Is(target error) bool {
	return target == sparkload.ErrMalformedRecord
}

func missingField(line int, field string) *MalformedRecordError {
	return &MalformedRecordError{Line: line, Field: field, Reason: "required field is missing"}
}
