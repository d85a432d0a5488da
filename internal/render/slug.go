package render

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark/ast"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reSpace   = regexp.MustCompile(`\s+`)
	reNonWord = regexp.MustCompile(`[^\w-]+`)
	reDashes  = regexp.MustCompile(`-{2,}`)
)

// Slugify turns heading text into an anchor id. Accented letters are folded
// to their base form before anything outside [A-Za-z0-9_-] is dropped.
func Slugify(s string) string {
	s = strings.TrimSpace(strings.ToLower(fold(s)))
	s = reSpace.ReplaceAllString(s, "-")
	s = strings.ReplaceAll(s, "&", "-and-")
	s = reNonWord.ReplaceAllString(s, "")
	return reDashes.ReplaceAllString(s, "-")
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// headingIDs implements parser.IDs. Repeated headings get a numeric suffix
// so every id in a document stays unique.
type headingIDs struct {
	seen map[string]struct{}
}

func newHeadingIDs() *headingIDs {
	return &headingIDs{seen: make(map[string]struct{})}
}

func (h *headingIDs) Generate(value []byte, _ ast.NodeKind) []byte {
	base := Slugify(string(value))
	if base == "" {
		base = "heading"
	}
	id := base
	for i := 1; ; i++ {
		if _, dup := h.seen[id]; !dup {
			break
		}
		id = base + "-" + strconv.Itoa(i)
	}
	h.seen[id] = struct{}{}
	return []byte(id)
}

func (h *headingIDs) Put(value []byte) {
	h.seen[string(value)] = struct{}{}
}
