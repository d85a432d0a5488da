package content

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/timrodz/blog/internal/xerrors"
)

const headerDelim = "---"

// headerFormat is a "---" fenced block decoded line by line into a Header
// rather than as YAML.
var headerFormat = frontmatter.NewFormat(headerDelim, headerDelim, unmarshalHeader)

// ParseFrontmatter splits raw into its header block and body.
//
// The header block runs from the first line that is exactly "---" to the
// next such line. The body is everything outside that block, trimmed.
// Each header line is "key: value"; a line ending in ":" is a key with an
// empty value, and any other line without ": " is rejected. A value wrapped
// in one matching pair of quotes loses them. A repeated key takes the later
// value.
func ParseFrontmatter(raw string) (Header, string, error) {
	off, open, ok := openingDelim(raw)
	if !ok {
		return Header{}, "", &MalformedContentError{Reason: "missing header block: no --- delimiter line"}
	}

	var h Header
	rest, err := frontmatter.MustParse(strings.NewReader(raw[off:]), &h, headerFormat)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return Header{}, "", &MalformedContentError{
				Line:   open,
				Reason: "header block is not closed with a --- line",
			}
		}
		var me *MalformedContentError
		if errors.As(err, &me) {
			me.Line += open
			return Header{}, "", me
		}
		return Header{}, "", xerrors.Wrap(err, "read header block")
	}
	return h, strings.TrimSpace(raw[:off] + string(rest)), nil
}

// openingDelim finds the first line that is only "---" and returns its
// byte offset and 1-based line number.
func openingDelim(raw string) (offset, line int, ok bool) {
	for n := 1; offset < len(raw); n++ {
		next := len(raw)
		if i := strings.IndexByte(raw[offset:], '\n'); i >= 0 {
			next = offset + i + 1
		}
		if strings.TrimSpace(raw[offset:next]) == headerDelim {
			return offset, n, true
		}
		offset = next
	}
	return 0, 0, false
}

// unmarshalHeader decodes the lines between the delimiters into a *Header.
// Line numbers in its errors count from the first line of the block.
func unmarshalHeader(data []byte, v any) error {
	h, ok := v.(*Header)
	if !ok {
		return fmt.Errorf("content: cannot decode header into %T", v)
	}
	for i, text := range strings.Split(string(data), "\n") {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		k, val, reason := parseHeaderLine(text)
		if reason != "" {
			return &MalformedContentError{Line: i + 1, Reason: reason}
		}
		h.Set(k, val)
	}
	return nil
}

// parseHeaderLine returns the key and value, or a non-empty reason when the
// line cannot be parsed.
func parseHeaderLine(text string) (key, val, reason string) {
	if k, v, ok := strings.Cut(text, ": "); ok {
		key, val = strings.TrimSpace(k), strings.TrimSpace(v)
	} else if strings.HasSuffix(text, ":") {
		key = strings.TrimSpace(strings.TrimSuffix(text, ":"))
	} else {
		return "", "", `header line has no "key: value" separator`
	}
	if key == "" {
		return "", "", "header line has an empty key"
	}
	return key, unquote(val), ""
}

// unquote removes one pair of matching surrounding quotes.
func unquote(v string) string {
	if len(v) < 2 {
		return v
	}
	first, last := v[0], v[len(v)-1]
	if (first == '"' || first == '\'') && first == last {
		return v[1 : len(v)-1]
	}
	return v
}
