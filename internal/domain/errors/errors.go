package errors

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalid = errors.New("invalid")

// Image fetcher failure kinds. Callers match with errors.Is and decide
// whether a failed download is fatal.
var (
	ErrUnsafeURL       = errors.New("unsafe url")
	ErrInvalidFilename = errors.New("invalid filename")
)

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e FieldError) Is(target error) bool {
	return target == ErrInvalid
}

type ValidationError struct {
	Items []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Items) == 0 {
		return "validation failed"
	}

	var b strings.Builder
	b.WriteString("validation failed:\n")
	for _, item := range e.Items {
		b.WriteString(" - ")
		b.WriteString(item.Error())
		b.WriteString("\n")
	}
	return b.String()
}

func (e *ValidationError) Add(field, msg string) {
	e.Items = append(e.Items, FieldError{
		Field:   field,
		Message: msg,
	})
}

func (e ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func (e ValidationError) HasAny() bool {
	return len(e.Items) > 0
}
