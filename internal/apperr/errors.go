// Package apperr defines the error kinds shared by the ledger, the
// reconciliation engine and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a counterparty, obligation or engagement is
	// absent or belongs to another tenant. The two cases are never distinguished.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a guarded update loses against a concurrent writer.
	ErrConflict = errors.New("conflicting update")

	// ErrValidation can be used with errors.Is to detect any *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// NotFoundError names the missing resource. errors.Is(err, ErrNotFound) matches it.
type NotFoundError struct {
	What string
}

// NotFound returns a *NotFoundError for what (e.g. "Supplier").
func NotFound(what string) error {
	return &NotFoundError{What: what}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s", e.What, ErrNotFound)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError carries per-field messages so a caller can self-correct.
type ValidationError struct {
	// Op is the operation that rejected the input (e.g. "RecordPayment").
	Op string

	// Message is the human readable summary.
	Message string

	// Fields maps a request field name to its messages.
	Fields map[string][]string
}

// Validation returns an empty ValidationError for op.
func Validation(op string) *ValidationError {
	return &ValidationError{Op: op, Message: "Validation failed", Fields: map[string][]string{}}
}

// Add records msg against field and returns e for chaining.
func (e *ValidationError) Add(field, msg string) *ValidationError {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
	return e
}

// WithMessage replaces the summary message.
func (e *ValidationError) WithMessage(msg string) *ValidationError {
	e.Message = msg
	return e
}

// HasErrors reports whether any field message was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns e when it holds field errors and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if len(e.Fields) == 0 {
		return b.String()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString(" (")
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Fields[k], ", "))
	}
	b.WriteString(")")
	return b.String()
}

// Is lets errors.Is(err, ErrValidation) match any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundMessage returns the client-facing message for a not-found error,
// such as "Supplier not found".
func NotFoundMessage(err error) string {
	var nf *NotFoundError
	if errors.As(err, &nf) && nf.What != "" {
		return nf.What + " not found"
	}
	return "Resource not found"
}

// AsValidation unwraps err into a *ValidationError when it carries one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
