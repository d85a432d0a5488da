package render

import (
	"bytes"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Hello,   World!  ", "hello-world"},
		{"Rock & Roll", "rock-and-roll"},
		{"Café crème", "cafe-creme"},
		{"Go 1.22 -- what's new?", "go-122-whats-new"},
		{"snake_case stays", "snake_case-stays"},
		{"日本", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHeadingIDs_Unique(t *testing.T) {
	ids := newHeadingIDs()
	got := []string{
		string(ids.Generate([]byte("Intro"), 0)),
		string(ids.Generate([]byte("Intro"), 0)),
		string(ids.Generate([]byte("Intro"), 0)),
		string(ids.Generate([]byte("日本"), 0)),
	}
	want := []string{"intro", "intro-1", "intro-2", "heading"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids = %v, want %v", got, want)
		}
	}
}

func render(t *testing.T, src string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := New(Options{}).Render(&buf, []byte(src)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestRender_Headings(t *testing.T) {
	out := render(t, "# Hello World\n\n## Hello World\n")
	for _, want := range []string{
		`<h1 id="hello-world"><a href="#hello-world" class="anchor"></a>Hello World</h1>`,
		`<h2 id="hello-world-1">`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_Links(t *testing.T) {
	out := render(t, "[ext](https://example.com) [int](/posts/a) [frag](#top)\n")

	ext := `<a href="https://example.com" target="_blank" rel="noopener noreferrer">ext</a>`
	if !strings.Contains(out, ext) {
		t.Errorf("external link not decorated:\n%s", out)
	}
	if !strings.Contains(out, `<a href="/posts/a">int</a>`) {
		t.Errorf("internal link changed:\n%s", out)
	}
	if !strings.Contains(out, `<a href="#top">frag</a>`) {
		t.Errorf("fragment link changed:\n%s", out)
	}
}

func TestRender_Images(t *testing.T) {
	out := render(t, "![a cat](/img/cat.png)\n")
	for _, want := range []string{`src="/img/cat.png"`, `alt="a cat"`, `loading="lazy"`, `class="` + ImageClass + `"`} {
		if !strings.Contains(out, want) {
			t.Errorf("image missing %s:\n%s", want, out)
		}
	}
}

func TestRender_EscapesRawHTML(t *testing.T) {
	out := render(t, "hi\n\n<script>alert(1)</script>\n\n<b onclick=x>bold</b>\n")
	if strings.Contains(out, "<script>") || strings.Contains(out, "onclick") {
		t.Fatalf("raw HTML passed through:\n%s", out)
	}
}

func TestRender_GFM(t *testing.T) {
	out := render(t, "| a | b |\n|---|---|\n| 1 | 2 |\n\n~~gone~~\n\n- [x] done\n")
	for _, want := range []string{"<table>", "<del>gone</del>", `type="checkbox"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestRender_HighlightsCode(t *testing.T) {
	out := render(t, "```go\nfunc main() {}\n```\n")
	if !strings.Contains(out, `class="chroma"`) {
		t.Fatalf("code block not highlighted:\n%s", out)
	}
	if strings.Contains(out, "style=") {
		t.Fatalf("highlighting should use classes, not inline styles:\n%s", out)
	}
}

func TestHTML(t *testing.T) {
	got, err := New(Options{}).HTML("**bold**")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(got)) != "<p><strong>bold</strong></p>" {
		t.Fatalf("HTML = %q", got)
	}
}

func TestCSS(t *testing.T) {
	var buf bytes.Buffer
	if err := New(Options{Style: "monokai"}).CSS(&buf); err != nil {
		t.Fatalf("CSS: %v", err)
	}
	if !strings.Contains(buf.String(), ".chroma") {
		t.Fatalf("stylesheet missing .chroma rules:\n%s", buf.String())
	}
}
