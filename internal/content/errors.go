package content

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedContent matches every *MalformedContentError via errors.Is.
var ErrMalformedContent = errors.New("malformed content")

// FilesystemError reports a directory or file that could not be read.
// It unwraps to the underlying fs error, so errors.Is(err, fs.ErrNotExist)
// holds for a missing content directory.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("content: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// MalformedContentError reports a content file whose header block is missing
// or unparseable, or whose header fails the schema of its category.
// Line is 1-based and zero when the problem is not tied to one line.
type MalformedContentError struct {
	Path   string
	Line   int
	Field  string
	Reason string
}

func (e *MalformedContentError) Error() string {
	var b strings.Builder
	b.WriteString("content: malformed")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
	} else if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %q", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

func (e *MalformedContentError) Is(target error) bool { return target == ErrMalformedContent }
