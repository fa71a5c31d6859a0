package patient

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCommit       = errors.New("nothing to commit")
	ErrParse             = errors.New("import payload is not a list of patient records")
	ErrImportSuperseded  = errors.New("import superseded by a newer import")
	ErrUnknownDepartment = errors.New("unknown department")
	ErrUnknownSortKey    = errors.New("unknown sort key")
	ErrUnknownField      = errors.New("unknown draft field")
	ErrReadOnlyField     = errors.New("field is derived and cannot be set")
	ErrSessionNotFound   = errors.New("session not found")
	ErrTooManySessions   = errors.New("session limit reached")
	ErrRecordNotFound    = errors.New("patient not found")
)

// ParseError reports a bulk payload that could not be parsed. It matches
// ErrParse with errors.Is.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return ErrParse.Error()
	}
	return fmt.Sprintf("%s: %v", ErrParse.Error(), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// FieldIssue names a draft field and why it fails the completeness check.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is returned when a complete draft is required and the
// draft is not complete.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Field+": "+is.Reason)
	}
	return "draft incomplete: " + strings.Join(parts, ", ")
}
