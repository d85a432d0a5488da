package render

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// ImageClass is added to every <img> rendered from markdown.
const ImageClass = "rounded-md shadow-xl"

// elementTransformer decorates links, images and headings after parsing:
// - links leaving the site open in a new tab without an opener reference
// - images load lazily
// - headings with an id get a leading empty anchor link
type elementTransformer struct{}

func (elementTransformer) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	var headings []*ast.Heading

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Link:
			if isExternal(string(n.Destination)) {
				markExternal(n)
			}
		case *ast.AutoLink:
			if n.AutoLinkType == ast.AutoLinkURL {
				markExternal(n)
			}
		case *ast.Image:
			n.SetAttributeString("loading", []byte("lazy"))
			n.SetAttributeString("class", []byte(ImageClass))
		case *ast.Heading:
			headings = append(headings, n)
		}
		return ast.WalkContinue, nil
	})

	// inserted after the walk so the tree is not modified while iterating
	for _, h := range headings {
		v, ok := h.AttributeString("id")
		if !ok {
			continue
		}
		id, ok := v.([]byte)
		if !ok || len(id) == 0 {
			continue
		}
		anchor := ast.NewLink()
		anchor.Destination = append([]byte("#"), id...)
		anchor.SetAttributeString("class", []byte("anchor"))
		h.InsertBefore(h, h.FirstChild(), anchor)
	}
}

func markExternal(n ast.Node) {
	n.SetAttributeString("target", []byte("_blank"))
	n.SetAttributeString("rel", []byte("noopener noreferrer"))
}

// isExternal reports whether a link target leaves the site. Site-relative
// paths and in-page fragments stay in the same tab.
func isExternal(dest string) bool {
	return dest != "" && !strings.HasPrefix(dest, "/") && !strings.HasPrefix(dest, "#")
}
