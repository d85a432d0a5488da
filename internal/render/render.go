// Package render converts post and project bodies from markdown to HTML.
//
// Output is GitHub flavoured markdown with highlighted code blocks. Raw HTML
// embedded in content is never passed through.
package render

import (
	"bytes"
	"html/template"
	"io"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/util"

	"github.com/timrodz/blog/internal/xerrors"
)

// DefaultStyle is the chroma style used for the generated stylesheet.
const DefaultStyle = "github"

type Options struct {
	// Style is a chroma style name, see CSS.
	Style string
}

type Renderer struct {
	md    goldmark.Markdown
	style string
}

func New(opts Options) *Renderer {
	if opts.Style == "" {
		opts.Style = DefaultStyle
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(opts.Style),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(elementTransformer{}, 500)),
		),
	)
	return &Renderer{md: md, style: opts.Style}
}

// Render writes the HTML for src to w.
func (r *Renderer) Render(w io.Writer, src []byte) error {
	ctx := parser.NewContext(parser.WithIDs(newHeadingIDs()))
	if err := r.md.Convert(src, w, parser.WithContext(ctx)); err != nil {
		return xerrors.Wrap(err, "render markdown")
	}
	return nil
}

// HTML renders src for use inside html/template. The result is safe to embed
// because goldmark escapes raw HTML unless told otherwise.
func (r *Renderer) HTML(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, []byte(src)); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil //nolint:gosec // raw HTML is escaped by goldmark
}

// CSS writes the stylesheet for highlighted code blocks.
func (r *Renderer) CSS(w io.Writer) error {
	style := styles.Get(r.style)
	f := chromahtml.New(chromahtml.WithClasses(true))
	if err := f.WriteCSS(w, style); err != nil {
		return xerrors.Wrap(err, "write chroma css")
	}
	return nil
}
