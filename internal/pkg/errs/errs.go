package errs

import (
	"fmt"
	"strings"

	cr "github.com/cockroachdb/errors"
)

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return cr.Wrapf(err, format, args...)
}

func New(msg string) error {
	return cr.New(msg)
}

// Mark attaches markErr as an identity so errors.Is(result, markErr) holds while err keeps its message.
// Both the standard library and cockroachdb/errors recognise the mark.
func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	return &markedError{error: cr.Mark(err, markErr), mark: markErr}
}

type markedError struct {
	error
	mark error
}

func (e *markedError) Unwrap() error { return e.error }

func (e *markedError) Is(target error) bool { return target == e.mark }

func (e *markedError) Format(s fmt.State, verb rune) {
	if f, ok := e.error.(fmt.Formatter); ok {
		f.Format(s, verb)
		return
	}
	fmt.Fprint(s, e.error.Error())
}

func ExtractStackLines(err error, maxLines int) []string {
	if err == nil {
		return nil
	}
	s := fmt.Sprintf("%+v", err)
	lines := strings.Split(s, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}
