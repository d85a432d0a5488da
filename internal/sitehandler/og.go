package sitehandler

import (
	"bytes"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/timrodz/blog/internal/xerrors"
)

const (
	ogLineWidth = 26
	ogMaxLines  = 3
	ogMaxTitle  = 200
)

type ogCard struct {
	Lines    []string
	Y        int
	Subtitle string
}

// wrapTitle breaks a title into at most ogMaxLines lines of roughly
// ogLineWidth characters. Overflow is cut with an ellipsis.
func wrapTitle(title string) []string {
	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(title) {
		if cur.Len() > 0 && utf8.RuneCountInString(cur.String())+1+utf8.RuneCountInString(word) > ogLineWidth {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	if len(lines) > ogMaxLines {
		lines = lines[:ogMaxLines]
		lines[ogMaxLines-1] += "…"
	}
	return lines
}

// OG serves a 1200x630 SVG social card for ?title=.
func (h *Handler) OG(w http.ResponseWriter, r *http.Request) {
	site := h.site()
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		title = site.Author
	}
	if title == "" {
		title = site.Title
	}
	if utf8.RuneCountInString(title) > ogMaxTitle {
		title = string([]rune(title)[:ogMaxTitle])
	}

	lines := wrapTitle(title)
	card := ogCard{
		Lines:    lines,
		Y:        315 - (len(lines)-1)*43,
		Subtitle: site.Title,
	}

	var buf bytes.Buffer
	if err := h.og.Execute(&buf, card); err != nil {
		h.serverError(w, r, xerrors.Wrap(err, "execute og template"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", h.opts.OtherCacheControl)
	_, _ = w.Write(buf.Bytes())
}
